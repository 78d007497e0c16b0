package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"ppv/backend"
	"ppv/internal/actionitems"
	"ppv/internal/cli/prompt"
	"ppv/internal/notification"
	"ppv/internal/tui"
	"ppv/internal/utils"
)

// errNothingToUpdate is returned by 'today edit' without any field flag
var errNothingToUpdate = errors.New("nothing to update: pass at least one of --title, --priority, --project, --do-date, --clear-date, --content")

// newTodayCmd creates the 'today' subcommand
func newTodayCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	todayCmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's action items",
		Long: `Show open action items (Active or Waiting, not done) with a do date of today or earlier.

Items are served from the cache when present. Use --refresh to clear the
cached items and fetch them again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refresh, _ := cmd.Flags().GetBool("refresh")

			return runApp(cmd, cfg, stdout, true, func(ctx context.Context, a *app) error {
				var (
					items []backend.ActionItem
					err   error
				)
				if refresh {
					items, err = a.items.Refresh(ctx)
				} else {
					items, err = a.items.FetchToday(ctx)
				}
				if err != nil {
					a.notifier.Notify(notification.Failed("Failed to load action items", err))
					return err
				}
				return doTodayList(a, actionitems.Visible(items, nil))
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	todayCmd.Flags().Bool("refresh", false, "Clear cached action items and fetch them again")

	todayCmd.AddCommand(newTodayDoneCmd(stdout, cfg))
	todayCmd.AddCommand(newTodayEditCmd(stdout, cfg))
	todayCmd.AddCommand(newTodayPrioritiesCmd(stdout, cfg))

	return todayCmd
}

// doTodayList displays today's action items
func doTodayList(a *app, items []backend.ActionItem) error {
	if a.jsonOutput {
		if items == nil {
			items = []backend.ActionItem{}
		}
		return writeJSON(a.stdout, itemsResponse{Items: items, Count: len(items), Result: ResultInfoOnly})
	}

	if len(items) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "No action items for today")
		a.resultCode(ResultInfoOnly)
		return nil
	}

	_, _ = fmt.Fprintf(a.stdout, "Today's action items (%d):\n\n", len(items))
	for _, item := range items {
		check := "[ ]"
		if item.Done {
			check = "[✓]"
		}
		_, _ = fmt.Fprintf(a.stdout, "%s %s\n    %s\n", check, prompt.FormatItemLine(item), item.ID)
	}
	a.resultCode(ResultInfoOnly)
	return nil
}

// resolveItem finds the action item a command refers to. A page id is used
// as-is; other input is matched against the titles of today's items.
func resolveItem(ctx context.Context, a *app, ref string) (*backend.ActionItem, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" {
		if id, err := backend.NormalizePageID(ref); err == nil {
			for _, item := range a.cache.CachedActionItems(ctx) {
				if normalized, _ := backend.NormalizePageID(item.ID); normalized == id {
					return &item, nil
				}
			}
			return &backend.ActionItem{ID: id}, nil
		}
	}

	items, err := a.items.FetchToday(ctx)
	if err != nil {
		return nil, err
	}
	items = actionitems.Visible(items, nil)

	if ref != "" {
		var matches []backend.ActionItem
		for _, item := range items {
			if strings.EqualFold(item.Title, ref) {
				return &item, nil
			}
			if strings.Contains(strings.ToLower(item.Title), strings.ToLower(ref)) {
				matches = append(matches, item)
			}
		}
		switch {
		case len(matches) == 0:
			return nil, utils.WrapWithSuggestion(
				fmt.Errorf("no action item for today matches %q", ref),
				"Use 'ppv today' to list today's action items and their ids")
		case len(matches) == 1:
			return &matches[0], nil
		case a.cfg.NoPrompt:
			return nil, utils.WrapWithSuggestion(
				fmt.Errorf("%d action items match %q", len(matches), ref),
				"Pass the item id shown by 'ppv today'")
		}
		items = matches
	} else if a.cfg.NoPrompt {
		return nil, errors.New("an action item id or title is required with --no-prompt")
	}

	return (&prompt.ItemSelector{Items: items, Reader: a.stdin(), Writer: a.stdout}).Run()
}

// newTodayDoneCmd creates the 'today done' subcommand
func newTodayDoneCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "done [id or title]",
		Short: "Mark an action item done",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ref string
			if len(args) == 1 {
				ref = args[0]
			}

			return runApp(cmd, cfg, stdout, true, func(ctx context.Context, a *app) error {
				item, err := resolveItem(ctx, a, ref)
				if err != nil {
					return err
				}

				if err := a.gateway.ToggleActionItemDone(ctx, item.ID); err != nil {
					a.notifier.Notify(notification.Failed("Failed to update action item", err))
					return err
				}

				if a.jsonOutput {
					return writeJSON(a.stdout, actionResponse{
						Action: "done",
						Page:   pageJSON{ID: item.ID, Title: item.Title, Open: backend.OpenURL(item.ID)},
						Result: ResultActionCompleted,
					})
				}
				a.notifier.Notify(notification.Succeeded("Updated action item status", item.Title))
				a.resultCode(ResultActionCompleted)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newTodayEditCmd creates the 'today edit' subcommand
func newTodayEditCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [id or title]",
		Short: "Update an action item",
		Long: `Update the title, priority, project, do date or content of an action item.

Only the fields given are written. An empty --priority, --project or --content
clears the field; --clear-date removes the do date.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ref string
			if len(args) == 1 {
				ref = args[0]
			}

			return runApp(cmd, cfg, stdout, true, func(ctx context.Context, a *app) error {
				update, err := buildUpdate(ctx, cmd, a)
				if err != nil {
					return err
				}

				item, err := resolveItem(ctx, a, ref)
				if err != nil {
					return err
				}

				if err := a.gateway.UpdateActionItem(ctx, item.ID, update); err != nil {
					a.notifier.Notify(notification.Failed("Failed to update action item", err))
					return err
				}

				if a.jsonOutput {
					return writeJSON(a.stdout, actionResponse{
						Action: "update",
						Page:   pageJSON{ID: item.ID, Title: item.Title, Open: backend.OpenURL(item.ID)},
						Result: ResultActionCompleted,
					})
				}
				a.notifier.Notify(notification.Succeeded("Updated action item", item.Title))
				a.resultCode(ResultActionCompleted)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().String("title", "", "New title")
	cmd.Flags().String("priority", "", "Priority label or name (e.g. quick, \"1st priority\"); empty clears")
	cmd.Flags().String("project", "", "Project title or id; empty removes the project")
	cmd.Flags().String("do-date", "", "Do date (YYYY-MM-DD, today, tomorrow, +Nd)")
	cmd.Flags().Bool("clear-date", false, "Remove the do date")
	cmd.Flags().String("content", "", "Content text; empty clears")
	return cmd
}

// buildUpdate turns the changed flags into a tri-state update. Everything is
// validated before the item is looked up.
func buildUpdate(ctx context.Context, cmd *cobra.Command, a *app) (backend.ActionItemUpdate, error) {
	var update backend.ActionItemUpdate
	flags := cmd.Flags()

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		if strings.TrimSpace(v) == "" {
			return update, errors.New("title cannot be empty")
		}
		update.Title = backend.Set(strings.TrimSpace(v))
	}

	if flags.Changed("priority") {
		v, _ := flags.GetString("priority")
		if strings.TrimSpace(v) == "" {
			update.Priority = backend.Clear[string]()
		} else {
			p, ok := backend.MatchPriority(v)
			if !ok {
				return update, utils.ErrInvalidPriority(v, backend.Priorities())
			}
			update.Priority = backend.Set(p)
		}
	}

	clearDate, _ := flags.GetBool("clear-date")
	if flags.Changed("do-date") && clearDate {
		return update, errors.New("--do-date and --clear-date cannot be combined")
	}
	if flags.Changed("do-date") {
		v, _ := flags.GetString("do-date")
		date, err := utils.ParseDateFlag(strings.TrimSpace(v))
		if err != nil {
			return update, err
		}
		if date == nil {
			update.DoDate = backend.Clear[string]()
		} else {
			update.DoDate = backend.Set(utils.FormatDoDate(*date))
		}
	}
	if clearDate {
		update.DoDate = backend.Clear[string]()
	}

	if flags.Changed("content") {
		v, _ := flags.GetString("content")
		if v == "" {
			update.Content = backend.Clear[string]()
		} else {
			update.Content = backend.Set(v)
		}
	}

	if flags.Changed("project") {
		v, _ := flags.GetString("project")
		if strings.TrimSpace(v) == "" {
			update.ProjectID = backend.Clear[string]()
		} else {
			project, err := a.capture.ResolveProject(ctx, v)
			if err != nil {
				return update, err
			}
			update.ProjectID = backend.Set(project.ID)
		}
	}

	if update.IsEmpty() {
		return update, errNothingToUpdate
	}
	return update, nil
}

// newTodayPrioritiesCmd creates the 'today priorities' subcommand
func newTodayPrioritiesCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "priorities",
		Short: "List priority labels from most to least urgent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			priorities := backend.Priorities()

			if jsonOutput {
				return writeJSON(stdout, map[string]interface{}{"priorities": priorities, "result": ResultInfoOnly})
			}
			for _, p := range priorities {
				_, _ = fmt.Fprintf(stdout, "%2d  %s\n", backend.PriorityRank(p), p)
			}
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// =============================================================================
// TUI
// =============================================================================

// newTUICmd creates the 'tui' subcommand
func newTUICmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse today's action items interactively",
		Long:  "Open a terminal interface listing today's action items with a detail view, done toggling, debounced content editing and refresh.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, cfg, stdout, true, func(ctx context.Context, a *app) error {
				var notifier notification.Notifier
				if a.settings.Notifications.Desktop {
					notifier = notification.NewDesktopNotifier()
				}

				model := tui.New(tui.Options{
					Context:  ctx,
					Items:    a.items,
					Gateway:  a.gateway,
					Projects: a.capture,
					Notifier: notification.Multi(notifier, a.cfg.Notifier),
					Debounce: a.settings.GetDebounce(),
				})
				if a.cfg.Shutdown != nil {
					a.cfg.Shutdown.RegisterCleanup("tui-pending-edits", func(context.Context) error {
						model.Flush()
						return nil
					})
				}

				p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(stdout))
				_, err := p.Run()
				model.Flush()
				if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
					return fmt.Errorf("error running TUI: %w", err)
				}
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
