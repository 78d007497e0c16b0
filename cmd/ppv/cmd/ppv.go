package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"ppv/backend"
	"ppv/backend/notion"
	"ppv/internal/actionitems"
	"ppv/internal/cache"
	"ppv/internal/capture"
	"ppv/internal/cli/prompt"
	"ppv/internal/config"
	"ppv/internal/credentials"
	"ppv/internal/notification"
	"ppv/internal/shutdown"
	"ppv/internal/utils"
)

// Version is set at build time
var Version = "dev"

// Result codes for CLI output (used in no-prompt mode)
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

// Config holds application configuration
type Config struct {
	NoPrompt     bool
	Verbose      bool
	OutputFormat string

	ConfigPath    string                // Path to config file (for testing); --config wins over the default path only
	CachePath     string                // Path to cache database (for testing)
	NotionBaseURL string                // Notion API base URL (for testing)
	Keyring       credentials.Keyring   // nil = system keyring
	Getenv        func(string) string   // nil = os.Getenv
	Stdin         io.Reader             // nil = os.Stdin
	Notifier      notification.Notifier // receives every toast in addition to the output notifier
	Shutdown      *shutdown.Manager     // provides the command context and flushes TUI edits on signals
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	if cfg == nil {
		cfg = &Config{}
	}
	rootCmd := NewPPV(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		// Check if --json flag was passed to output error as JSON
		if containsJSONFlag(args) {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			// Emit ERROR result code in no-prompt mode
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultError)
			}
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

// NewPPV creates the root command with injectable IO
func NewPPV(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "ppv",
		Short:   "Notion projects, notes and action items from the terminal",
		Long:    "ppv captures notes and action items into a Notion PPV workspace and shows today's action items.",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("config", "", "Path to config file")

	cmd.AddCommand(newProjectCmd(stdout, cfg))
	cmd.AddCommand(newAddCmd(stdout, cfg))
	cmd.AddCommand(newTodayCmd(stdout, cfg))
	cmd.AddCommand(newTUICmd(stdout, cfg))
	cmd.AddCommand(newCacheCmd(stdout, cfg))
	cmd.AddCommand(newAuthCmd(stdout, stderr, cfg))
	cmd.AddCommand(newConfigCmd(stdout, cfg))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// =============================================================================
// Application wiring
// =============================================================================

// app holds the services a command needs. The gateway and the services that
// depend on it are created by connect, so local-only commands work without a token.
type app struct {
	cfg        *Config
	settings   *config.Config
	stdout     io.Writer
	jsonOutput bool
	notifier   notification.Notifier

	store   *cache.SQLiteStore
	cache   *cache.Cache
	gateway *notion.Backend
	capture *capture.Service
	items   *actionitems.Aggregator
}

// loadSettings reads the config file and applies flag overrides
func loadSettings(cmd *cobra.Command, cfg *Config) (*config.Config, error) {
	path := cfg.ConfigPath
	if flagPath, _ := cmd.Flags().GetString("config"); flagPath != "" {
		path = config.ExpandPath(flagPath)
	}

	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	noPrompt, _ := cmd.Flags().GetBool("no-prompt")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	format := cfg.OutputFormat
	if jsonOutput {
		format = "json"
	}
	settings.ApplyFlags(noPrompt || cfg.NoPrompt, verbose || cfg.Verbose, format)
	if settings.NoPrompt {
		cfg.NoPrompt = true
	}
	utils.SetVerboseMode(settings.Logging.Verbose)

	if cfg.CachePath != "" {
		settings.Cache.Path = cfg.CachePath
	}
	if cfg.NotionBaseURL != "" {
		settings.Notion.BaseURL = cfg.NotionBaseURL
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// newApp loads settings and opens the cache
func newApp(cmd *cobra.Command, cfg *Config, stdout io.Writer) (*app, error) {
	settings, err := loadSettings(cmd, cfg)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(settings.GetCachePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	utils.Debugf("cache: %s", settings.GetCachePath())

	a := &app{
		cfg:        cfg,
		settings:   settings,
		stdout:     stdout,
		jsonOutput: settings.OutputFormat == "json",
		store:      store,
		cache:      cache.New(store, settings.Cache.Partitions.Projects, settings.Cache.Partitions.ActionItems),
	}

	var notifiers []notification.Notifier
	if !a.jsonOutput {
		notifiers = append(notifiers, notification.NewWriterNotifier(stdout, false))
	}
	if settings.Notifications.Desktop {
		notifiers = append(notifiers, notification.NewDesktopNotifier())
	}
	notifiers = append(notifiers, cfg.Notifier)
	a.notifier = notification.Multi(notifiers...)

	return a, nil
}

// credentialManager builds the token resolver honoring test overrides
func (a *app) credentialManager() *credentials.Manager {
	return newCredentialManager(a.cfg, a.settings.Notion.Token)
}

func newCredentialManager(cfg *Config, configToken string) *credentials.Manager {
	opts := []credentials.ManagerOption{credentials.WithConfigToken(configToken)}
	if cfg.Keyring != nil {
		opts = append(opts, credentials.WithKeyring(cfg.Keyring))
	}
	if cfg.Getenv != nil {
		opts = append(opts, credentials.WithGetenv(cfg.Getenv))
	}
	return credentials.NewManager(opts...)
}

// connect resolves the token and creates the gateway and the services using it
func (a *app) connect(ctx context.Context) error {
	info, err := a.credentialManager().Get(ctx)
	if err != nil {
		return err
	}
	if !info.Found {
		return utils.ErrTokenMissing()
	}
	utils.Debugf("using token from %s", info.Source)

	n := a.settings.Notion
	gateway, err := notion.New(notion.Config{
		Token:   info.Token,
		BaseURL: n.BaseURL,
		Version: n.Version,
		Databases: notion.Databases{
			Projects:    n.Databases.Projects,
			Notes:       n.Databases.Notes,
			ActionItems: n.Databases.ActionItems,
		},
		SparkFileTagID: n.SparkFileTag,
		Timeout:        a.settings.GetNotionTimeout(),
	})
	if err != nil {
		return err
	}

	a.gateway = gateway
	a.capture = capture.New(gateway, a.cache)
	a.items = actionitems.New(gateway, a.cache,
		actionitems.WithLookupConcurrency(a.settings.GetProjectLookupConcurrency()))
	return nil
}

// Close releases the gateway and the cache
func (a *app) Close() {
	if a.gateway != nil {
		_ = a.gateway.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// context returns the command context, cancelled on SIGINT/SIGTERM when a shutdown manager is set
func (a *app) context() context.Context {
	if a.cfg.Shutdown != nil {
		return a.cfg.Shutdown.Context()
	}
	return context.Background()
}

func (a *app) stdin() io.Reader {
	if a.cfg.Stdin != nil {
		return a.cfg.Stdin
	}
	return os.Stdin
}

// resultCode prints the result code line in no-prompt text mode
func (a *app) resultCode(code string) {
	if a.cfg.NoPrompt && !a.jsonOutput {
		_, _ = fmt.Fprintln(a.stdout, code)
	}
}

// runApp opens the app for a command, optionally connects, and always closes it
func runApp(cmd *cobra.Command, cfg *Config, stdout io.Writer, connect bool, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd, cfg, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := a.context()
	if connect {
		if err := a.connect(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}

// =============================================================================
// Projects
// =============================================================================

// newProjectCmd creates the 'project' subcommand
func newProjectCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  "List projects or create a new one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	projectCmd.AddCommand(newProjectListCmd(stdout, cfg))
	projectCmd.AddCommand(newProjectCreateCmd(stdout, cfg))
	projectCmd.AddCommand(newProjectQuicklinkCmd(stdout, cfg))

	return projectCmd
}

// newProjectListCmd creates the 'project list' subcommand
func newProjectListCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long:  "List projects from the cache, fetching and caching them when the cache is empty.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cached, _ := cmd.Flags().GetBool("cached")
			refresh, _ := cmd.Flags().GetBool("refresh")

			return runApp(cmd, cfg, stdout, !cached, func(ctx context.Context, a *app) error {
				var projects []backend.Project
				if cached {
					projects = a.cache.CachedProjects(ctx)
				} else {
					var err error
					projects, err = a.capture.LoadProjects(ctx, !refresh)
					if err != nil {
						return err
					}
				}
				return doProjectList(a, projects)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Bool("cached", false, "Only show cached projects, never contact Notion")
	cmd.Flags().Bool("refresh", false, "Fetch projects from Notion even when cached")
	return cmd
}

// doProjectList displays projects
func doProjectList(a *app, projects []backend.Project) error {
	if a.jsonOutput {
		if projects == nil {
			projects = []backend.Project{}
		}
		return writeJSON(a.stdout, projectsResponse{Projects: projects, Count: len(projects), Result: ResultInfoOnly})
	}

	if len(projects) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "No projects found. Create one with: ppv project create \"MyProject\"")
		a.resultCode(ResultInfoOnly)
		return nil
	}

	_, _ = fmt.Fprintf(a.stdout, "Projects (%d):\n\n", len(projects))
	_, _ = fmt.Fprintf(a.stdout, "%-30s %s\n", "TITLE", "ID")
	for _, p := range projects {
		_, _ = fmt.Fprintf(a.stdout, "%-30s %s\n", p.Title, p.ID)
	}
	a.resultCode(ResultInfoOnly)
	return nil
}

// newProjectCreateCmd creates the 'project create' subcommand
func newProjectCreateCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [title]",
		Short: "Create a new project",
		Long:  "Create a project with an optional description. Without a title the create-project form is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")

			return runApp(cmd, cfg, stdout, true, func(ctx context.Context, a *app) error {
				fields := &prompt.ProjectFields{Description: description}
				if len(args) == 1 {
					fields.Title = args[0]
				} else {
					var err error
					fields, err = (&prompt.ProjectForm{
						Reader:   a.stdin(),
						Writer:   stdout,
						NoPrompt: a.cfg.NoPrompt,
					}).Run()
					if err != nil {
						if errors.Is(err, prompt.ErrNoPromptMode) {
							return capture.ErrProjectTitleRequired
						}
						return err
					}
				}
				return doProjectCreate(ctx, a, fields)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("description", "d", "", "Project description")
	return cmd
}

// doProjectCreate creates a project and reports the result
func doProjectCreate(ctx context.Context, a *app, fields *prompt.ProjectFields) error {
	page, err := a.capture.CreateProject(ctx, fields.Title, fields.Description)
	if err != nil {
		a.notifier.Notify(notification.Failed("Failed to create project", err))
		return err
	}

	if a.jsonOutput {
		return writeJSON(a.stdout, actionResponse{Action: "create_project", Page: pageToJSON(page), Result: ResultActionCompleted})
	}

	a.notifier.Notify(notification.Succeeded("Project created", page.Title))
	a.resultCode(ResultActionCompleted)
	return nil
}

// newProjectQuicklinkCmd creates the 'project quicklink' subcommand
func newProjectQuicklinkCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "quicklink [project]",
		Short: "Show the capture shortcut for a project",
		Long:  "Print the name and command of a shortcut that opens the capture form on a project.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, cfg, stdout, true, func(ctx context.Context, a *app) error {
				project, err := a.capture.ResolveProject(ctx, args[0])
				if err != nil {
					return err
				}

				if a.jsonOutput {
					return writeJSON(a.stdout, map[string]string{
						"name":   capture.QuicklinkName(*project),
						"link":   capture.QuicklinkURL(*project),
						"result": ResultInfoOnly,
					})
				}
				_, _ = fmt.Fprintf(a.stdout, "%s\n  %s\n", capture.QuicklinkName(*project), capture.QuicklinkURL(*project))
				a.resultCode(ResultInfoOnly)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// =============================================================================
// Capture
// =============================================================================

// newAddCmd creates the 'add' subcommand
func newAddCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [project] [text]",
		Short: "Add a spark note, note or action item to a project",
		Long: `Add an entry to a project.

Entry types:
  spark   append the text to the project's spark file (created on first use)
  note    create a note with a title and optional text
  action  create an action item with a title

Missing fields are asked for interactively unless --no-prompt is set.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typeFlag, _ := cmd.Flags().GetString("type")
			title, _ := cmd.Flags().GetString("title")
			projectRef, _ := cmd.Flags().GetString("project")

			var text string
			if len(args) >= 1 {
				projectRef = args[0]
			}
			if len(args) == 2 {
				text = args[1]
			}

			var entryType capture.EntryType
			if typeFlag != "" {
				var err error
				if entryType, err = capture.ParseEntryType(typeFlag); err != nil {
					return err
				}
			}

			return runApp(cmd, cfg, stdout, true, func(ctx context.Context, a *app) error {
				return doAdd(ctx, a, projectRef, entryType, title, text)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("type", "t", "", "Entry type: spark, note or action")
	cmd.Flags().String("title", "", "Title of the note or action item")
	cmd.Flags().StringP("project", "p", "", "Project title or id")
	return cmd
}

// doAdd resolves the project, completes the entry and submits it.
// In no-prompt mode the type defaults to spark.
func doAdd(ctx context.Context, a *app, projectRef string, entryType capture.EntryType, title, text string) error {
	scanner := bufio.NewScanner(a.stdin())

	var project *backend.Project
	var err error
	switch {
	case projectRef != "":
		project, err = a.capture.ResolveProject(ctx, projectRef)
	case a.cfg.NoPrompt:
		err = capture.ErrNoProject
	default:
		var projects []backend.Project
		if projects, err = a.capture.LoadProjects(ctx, true); err == nil {
			project, err = (&prompt.ProjectSelector{Projects: projects, Scanner: scanner, Writer: a.stdout}).Run()
		}
	}
	if err != nil {
		return err
	}

	var entry *capture.Entry
	if a.cfg.NoPrompt {
		if entryType == "" {
			entryType = capture.TypeSpark
		}
		entry = &capture.Entry{Type: entryType, Title: title, Text: text}
	} else {
		entry, err = (&prompt.EntryForm{Type: entryType, Title: title, Text: text, Scanner: scanner, Writer: a.stdout}).Run()
		if err != nil {
			return err
		}
	}
	entry.Project = *project

	result, err := a.capture.Submit(ctx, *entry)
	if err != nil {
		a.notifier.Notify(notification.Failed("Failed to add entry", err))
		return err
	}

	if a.jsonOutput {
		return writeJSON(a.stdout, actionResponse{
			Action: "add_" + string(result.Type),
			Page:   pageToJSON(result.Page),
			Result: ResultActionCompleted,
		})
	}

	a.notifier.Notify(notification.Succeeded(result.SuccessTitle(), project.Title))
	a.resultCode(ResultActionCompleted)
	return nil
}

// =============================================================================
// Cache
// =============================================================================

// newCacheCmd creates the 'cache' subcommand
func newCacheCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local cache",
		Long:  "Inspect or clear the cached projects and action items.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached projects and action items",
		Long:  "Clear both cache partitions, or only one with --projects or --action-items.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			onlyProjects, _ := cmd.Flags().GetBool("projects")
			onlyItems, _ := cmd.Flags().GetBool("action-items")
			both := onlyProjects == onlyItems

			return runApp(cmd, cfg, stdout, false, func(ctx context.Context, a *app) error {
				var cleared []string
				if both || onlyProjects {
					if err := a.cache.ClearProjects(ctx); err != nil {
						return fmt.Errorf("failed to clear projects: %w", err)
					}
					cleared = append(cleared, a.settings.Cache.Partitions.Projects)
				}
				if both || onlyItems {
					if err := a.cache.ClearActionItems(ctx); err != nil {
						return fmt.Errorf("failed to clear action items: %w", err)
					}
					cleared = append(cleared, a.settings.Cache.Partitions.ActionItems)
				}

				if a.jsonOutput {
					return writeJSON(a.stdout, map[string]interface{}{"cleared": cleared, "result": ResultActionCompleted})
				}
				for _, name := range cleared {
					_, _ = fmt.Fprintf(a.stdout, "Cleared cache partition: %s\n", name)
				}
				a.resultCode(ResultActionCompleted)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	clearCmd.Flags().Bool("projects", false, "Only clear cached projects")
	clearCmd.Flags().Bool("action-items", false, "Only clear cached action items and project titles")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, cfg, stdout, false, func(ctx context.Context, a *app) error {
				stats, err := a.cache.Stats(ctx)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return writeJSON(a.stdout, map[string]interface{}{
						"path":       a.settings.GetCachePath(),
						"partitions": stats,
						"result":     ResultInfoOnly,
					})
				}
				_, _ = fmt.Fprintf(a.stdout, "Cache: %s\n\n", a.settings.GetCachePath())
				_, _ = fmt.Fprintf(a.stdout, "%-20s %s\n", "PARTITION", "ENTRIES")
				for _, s := range stats {
					_, _ = fmt.Fprintf(a.stdout, "%-20s %d\n", s.Name, s.Entries)
				}
				a.resultCode(ResultInfoOnly)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cacheCmd.AddCommand(clearCmd, statusCmd)
	return cacheCmd
}

// =============================================================================
// Auth
// =============================================================================

// newAuthCmd creates the 'auth' subcommand for token management
func newAuthCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Notion integration token",
		Long:  "Store, inspect, and remove the Notion integration token. The system keyring is preferred over PPV_NOTION_TOKEN and the config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	handler := func(cmd *cobra.Command, stdin io.Reader) (*credentials.CLIHandler, error) {
		settings, err := loadSettings(cmd, cfg)
		if err != nil {
			return nil, err
		}
		return credentials.NewCLIHandler(newCredentialManager(cfg, settings.Notion.Token), stdin, stdout, stderr), nil
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the token in the system keyring",
		Long:  "Prompt for the integration token (input hidden on a terminal) and store it in the system keyring.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdin := cfg.Stdin
			if stdin == nil {
				stdin = os.Stdin
			}
			h, err := handler(cmd, stdin)
			if err != nil {
				return err
			}
			return h.Set(context.Background())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show where the token is found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := handler(cmd, nil)
			if err != nil {
				return err
			}
			jsonOutput, _ := cmd.Flags().GetBool("json")
			return h.Status(context.Background(), jsonOutput)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the token from the system keyring",
		Long:  "Remove the stored token from the system keyring. PPV_NOTION_TOKEN and the config file are not affected.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := handler(cmd, nil)
			if err != nil {
				return err
			}
			return h.Delete(context.Background())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	return authCmd
}

// =============================================================================
// Config and version
// =============================================================================

// newConfigCmd creates the 'config' subcommand
func newConfigCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.ConfigPath
			if flagPath, _ := cmd.Flags().GetString("config"); flagPath != "" {
				path = config.ExpandPath(flagPath)
			}
			if path == "" {
				path = config.DefaultPath()
			}
			_, _ = fmt.Fprintln(stdout, path)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (token hidden)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, cfg)
			if err != nil {
				return err
			}
			redacted := settings.Redacted()
			if settings.OutputFormat == "json" {
				return writeJSON(stdout, redacted)
			}
			data, err := redacted.Marshal()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(stdout, string(data))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	return configCmd
}

// newVersionCmd creates the 'version' subcommand
func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(stdout, "ppv %s\n", Version)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// =============================================================================
// JSON output
// =============================================================================

type pageJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Open  string `json:"open"`
}

type projectsResponse struct {
	Projects []backend.Project `json:"projects"`
	Count    int               `json:"count"`
	Result   string            `json:"result"`
}

type itemsResponse struct {
	Items  []backend.ActionItem `json:"items"`
	Count  int                  `json:"count"`
	Result string               `json:"result"`
}

type actionResponse struct {
	Action string   `json:"action"`
	Page   pageJSON `json:"page"`
	Result string   `json:"result"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Result string `json:"result"`
}

// pageToJSON converts a backend.Page to pageJSON
func pageToJSON(p *backend.Page) pageJSON {
	if p == nil {
		return pageJSON{}
	}
	return pageJSON{ID: p.ID, Title: p.Title, URL: p.URL, Open: backend.OpenURL(p.ID)}
}

// writeJSON writes v as one line of JSON
func writeJSON(stdout io.Writer, v interface{}) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
	return nil
}

// outputErrorJSON outputs error in JSON format
func outputErrorJSON(err error, stdout io.Writer) {
	response := errorResponse{
		Error:  err.Error(),
		Code:   1,
		Result: ResultError,
	}

	jsonBytes, _ := json.Marshal(response)
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
}
