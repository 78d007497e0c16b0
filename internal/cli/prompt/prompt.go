// Package prompt handles interactive prompts with no-prompt mode support.
// It provides filtered project and action item selection and the
// sequential capture and create-project forms.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"ppv/backend"
	"ppv/internal/capture"
	"ppv/internal/utils"
)

// Sentinel errors for prompt operations.
var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrNoPromptMode       = errors.New("interactive prompts disabled (--no-prompt / -y)")
	ErrNoProjects         = errors.New("no projects available")
	ErrNoItems            = errors.New("no action items available")
	ErrNoMatches          = errors.New("nothing matches the filter")
)

// scannerFor reuses a shared scanner so consecutive prompts on one reader do
// not lose buffered input.
func scannerFor(scanner *bufio.Scanner, reader io.Reader) *bufio.Scanner {
	if scanner != nil {
		return scanner
	}
	if reader == nil {
		reader = strings.NewReader("")
	}
	return bufio.NewScanner(reader)
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// =============================================================================
// Selection
// =============================================================================

// filterSelect narrows items by a typed filter, then asks for a number.
// One remaining item is selected without asking.
func filterSelect[T any](items []T, prompt string, scanner *bufio.Scanner, writer io.Writer, text func(T) string, line func(T) string) (*T, error) {
	_, _ = fmt.Fprintf(writer, "%s\nFilter (or press Enter to show all): ", prompt)
	if !scanner.Scan() {
		return nil, ErrSelectionCancelled
	}
	filter := strings.ToLower(strings.TrimSpace(scanner.Text()))

	var filtered []T
	for _, item := range items {
		if filter == "" || strings.Contains(strings.ToLower(text(item)), filter) {
			filtered = append(filtered, item)
		}
	}

	if len(filtered) == 0 {
		return nil, ErrNoMatches
	}
	if len(filtered) == 1 {
		_, _ = fmt.Fprintf(writer, "Auto-selected: %s\n", text(filtered[0]))
		return &filtered[0], nil
	}

	idx, err := utils.PromptSelectionWithReader(filtered, "Select", scanner, writer, func(i int, item T) {
		_, _ = fmt.Fprintf(writer, "  %d) %s\n", i+1, line(item))
	})
	if err != nil {
		if errors.Is(err, utils.ErrSelectionCancelled) {
			return nil, ErrSelectionCancelled
		}
		return nil, err
	}
	return &filtered[idx], nil
}

// ProjectSelector lets the user pick a project by filtering on its title.
type ProjectSelector struct {
	Projects []backend.Project
	Prompt   string
	Reader   io.Reader
	Scanner  *bufio.Scanner
	Writer   io.Writer
	NoPrompt bool
}

// Run executes the project selection prompt.
func (s *ProjectSelector) Run() (*backend.Project, error) {
	if s.NoPrompt {
		return nil, ErrNoPromptMode
	}
	if len(s.Projects) == 0 {
		return nil, ErrNoProjects
	}

	prompt := s.Prompt
	if prompt == "" {
		prompt = "Select project:"
	}
	return filterSelect(s.Projects, prompt, scannerFor(s.Scanner, s.Reader), writerOrDiscard(s.Writer),
		func(p backend.Project) string { return p.Title },
		func(p backend.Project) string { return p.Title },
	)
}

// ItemSelector lets the user pick one of today's action items.
type ItemSelector struct {
	Items    []backend.ActionItem
	Prompt   string
	Reader   io.Reader
	Scanner  *bufio.Scanner
	Writer   io.Writer
	NoPrompt bool
}

// Run executes the action item selection prompt.
// A single item is selected without prompting.
func (s *ItemSelector) Run() (*backend.ActionItem, error) {
	if s.NoPrompt {
		return nil, ErrNoPromptMode
	}
	if len(s.Items) == 0 {
		return nil, ErrNoItems
	}
	if len(s.Items) == 1 {
		return &s.Items[0], nil
	}

	prompt := s.Prompt
	if prompt == "" {
		prompt = "Select action item:"
	}
	return filterSelect(s.Items, prompt, scannerFor(s.Scanner, s.Reader), writerOrDiscard(s.Writer),
		func(a backend.ActionItem) string { return a.Title },
		FormatItemLine,
	)
}

// FormatItemLine formats an action item with its priority, project and do date.
func FormatItemLine(a backend.ActionItem) string {
	var meta []string
	if a.Priority != "" {
		meta = append(meta, a.Priority)
	}
	if a.Project != "" {
		meta = append(meta, a.Project)
	}
	if a.DoDate != nil {
		meta = append(meta, "do: "+*a.DoDate)
	}
	if len(meta) == 0 {
		return a.Title
	}
	return fmt.Sprintf("%s [%s]", a.Title, strings.Join(meta, ", "))
}

// =============================================================================
// Forms
// =============================================================================

// EntryForm collects the fields of a capture entry that were not given on the
// command line. Fields already set are not asked for.
type EntryForm struct {
	Type     capture.EntryType
	Title    string
	Text     string
	Reader   io.Reader
	Scanner  *bufio.Scanner
	Writer   io.Writer
	NoPrompt bool
}

// Run prompts for the missing entry type, title and text.
func (f *EntryForm) Run() (*capture.Entry, error) {
	if f.NoPrompt {
		return nil, ErrNoPromptMode
	}
	writer := writerOrDiscard(f.Writer)
	scanner := scannerFor(f.Scanner, f.Reader)

	entry := &capture.Entry{Type: f.Type, Title: f.Title, Text: f.Text}

	if entry.Type == "" {
		idx, err := utils.PromptSelectionWithReader(capture.EntryTypes, "Entry type", scanner, writer, func(i int, t capture.EntryType) {
			_, _ = fmt.Fprintf(writer, "  %d) %s\n", i+1, t.Label())
		})
		if err != nil {
			return nil, ErrSelectionCancelled
		}
		entry.Type = capture.EntryTypes[idx]
	}

	switch entry.Type {
	case capture.TypeNote:
		title, err := requiredLine(scanner, writer, entry.Title, "Note title (required): ", "Note title cannot be empty.")
		if err != nil {
			return nil, err
		}
		entry.Title = title
	case capture.TypeAction:
		title, err := requiredLine(scanner, writer, entry.Title, "Action item title (required): ", "Action item title cannot be empty.")
		if err != nil {
			return nil, err
		}
		entry.Title = title
	}

	switch entry.Type {
	case capture.TypeSpark:
		text, err := requiredLine(scanner, writer, entry.Text, "Note (required): ", "Note cannot be empty.")
		if err != nil {
			return nil, err
		}
		entry.Text = text
	case capture.TypeNote:
		if entry.Text == "" {
			_, _ = fmt.Fprint(writer, "Note (optional): ")
			if scanner.Scan() {
				entry.Text = strings.TrimSpace(scanner.Text())
			}
		}
	}

	return entry, nil
}

// ProjectFields holds the values of the create-project form.
type ProjectFields struct {
	Title       string
	Description string
}

// ProjectForm collects a project title and optional description.
type ProjectForm struct {
	Reader   io.Reader
	Scanner  *bufio.Scanner
	Writer   io.Writer
	NoPrompt bool
}

// Run prompts for the project fields. The title is asked again until non-empty.
func (f *ProjectForm) Run() (*ProjectFields, error) {
	if f.NoPrompt {
		return nil, ErrNoPromptMode
	}
	writer := writerOrDiscard(f.Writer)
	scanner := scannerFor(f.Scanner, f.Reader)

	title, err := requiredLine(scanner, writer, "", "Project title (required): ", "Title is required.")
	if err != nil {
		return nil, err
	}
	fields := &ProjectFields{Title: title}

	_, _ = fmt.Fprint(writer, "Description (optional): ")
	if scanner.Scan() {
		fields.Description = strings.TrimSpace(scanner.Text())
	}
	return fields, nil
}

// requiredLine returns current when set, otherwise prompts until a non-empty line.
func requiredLine(scanner *bufio.Scanner, writer io.Writer, current, prompt, emptyMsg string) (string, error) {
	if strings.TrimSpace(current) != "" {
		return strings.TrimSpace(current), nil
	}
	for {
		line, err := utils.PromptLine(scanner, writer, prompt)
		if err != nil {
			return "", fmt.Errorf("no input for %s", strings.TrimSuffix(strings.TrimSpace(prompt), ":"))
		}
		if line != "" {
			return line, nil
		}
		_, _ = fmt.Fprintln(writer, emptyMsg)
	}
}
