// Package capture implements the creation forms: spark notes, new notes,
// action items and projects. Preconditions are checked before any remote call.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ppv/backend"
	"ppv/internal/cache"
	"ppv/internal/utils"
)

// EntryType selects what Submit creates
type EntryType string

const (
	TypeSpark  EntryType = "spark"
	TypeNote   EntryType = "note"
	TypeAction EntryType = "action"
)

// EntryTypes lists the supported entry types in form order
var EntryTypes = []EntryType{TypeSpark, TypeNote, TypeAction}

// Label returns the form label of an entry type
func (t EntryType) Label() string {
	switch t {
	case TypeSpark:
		return "Spark Note"
	case TypeNote:
		return "New Note"
	case TypeAction:
		return "Action Item"
	default:
		return string(t)
	}
}

// ParseEntryType converts user input to an EntryType
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range EntryTypes {
		if t == known {
			return t, nil
		}
	}
	return "", &utils.ErrorWithSuggestion{
		Err:        fmt.Errorf("unknown entry type: %s", s),
		Suggestion: "Valid options: spark, note, action",
	}
}

// Precondition errors
var (
	ErrNoProject            = errors.New("no project selected")
	ErrNoteTitleRequired    = errors.New("note title is required")
	ErrActionTitleRequired  = errors.New("action item title is required")
	ErrTextRequired         = errors.New("note text is required")
	ErrProjectTitleRequired = errors.New("title is required")
)

// Entry is one submission of the capture form.
// Title is the note title for TypeNote and the action item title for TypeAction.
type Entry struct {
	Type    EntryType
	Project backend.Project
	Title   string
	Text    string
}

// Result describes what Submit created
type Result struct {
	Type EntryType
	Page *backend.Page
}

// SuccessTitle is the toast title shown after a successful submit
func (r Result) SuccessTitle() string {
	if r.Type == TypeAction {
		return "Action item added successfully"
	}
	return "Note added successfully"
}

// Gateway is the subset of the remote gateway used by the forms
type Gateway interface {
	FetchProjects(ctx context.Context) ([]backend.Project, error)
	CreateProject(ctx context.Context, title, description string) (*backend.Page, error)
	FindOrCreateSparkFile(ctx context.Context, projectName, projectID string) (*backend.Page, error)
	AppendNoteToSparkFile(ctx context.Context, sparkFileID, content string) error
	CreateNewNote(ctx context.Context, projectID, title, content string) (*backend.Page, error)
	CreateActionItem(ctx context.Context, projectID, title string) (*backend.Page, error)
}

// Service backs the capture and create-project forms
type Service struct {
	gateway Gateway
	cache   *cache.Cache
}

// New creates a Service
func New(gateway Gateway, c *cache.Cache) *Service {
	return &Service{gateway: gateway, cache: c}
}

// LoadProjects returns the project list. With preferCache a non-empty cached
// list is returned without a remote call; otherwise the list is fetched and
// written through to the cache.
func (s *Service) LoadProjects(ctx context.Context, preferCache bool) ([]backend.Project, error) {
	if preferCache {
		if cached := s.cache.CachedProjects(ctx); len(cached) > 0 {
			utils.Debugf("using %d cached projects", len(cached))
			return cached, nil
		}
	}

	projects, err := s.gateway.FetchProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	if err := s.cache.CacheProjects(ctx, projects); err != nil {
		utils.Warnf("failed to cache projects: %v", err)
	}
	return projects, nil
}

// ResolveProject finds a project by id or title. The cached list is searched
// first and a fresh list is fetched on a miss.
func (s *Service) ResolveProject(ctx context.Context, ref string) (*backend.Project, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, ErrNoProject
	}
	if p := backend.FindProject(s.cache.CachedProjects(ctx), ref); p != nil {
		return p, nil
	}
	projects, err := s.LoadProjects(ctx, false)
	if err != nil {
		return nil, err
	}
	if p := backend.FindProject(projects, ref); p != nil {
		return p, nil
	}
	return nil, utils.ErrProjectNotFound(ref)
}

// Validate checks an entry's preconditions without contacting the remote side
func (e Entry) Validate() error {
	if e.Project.ID == "" {
		return ErrNoProject
	}
	switch e.Type {
	case TypeSpark:
		if strings.TrimSpace(e.Text) == "" {
			return ErrTextRequired
		}
	case TypeNote:
		if strings.TrimSpace(e.Title) == "" {
			return ErrNoteTitleRequired
		}
	case TypeAction:
		if strings.TrimSpace(e.Title) == "" {
			return ErrActionTitleRequired
		}
	default:
		_, err := ParseEntryType(string(e.Type))
		return err
	}
	return nil
}

// Submit creates the entry. A spark entry is appended to the project's spark
// file, which is created first when missing.
func (s *Service) Submit(ctx context.Context, e Entry) (*Result, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var (
		page *backend.Page
		err  error
	)
	switch e.Type {
	case TypeSpark:
		page, err = s.gateway.FindOrCreateSparkFile(ctx, e.Project.Title, e.Project.ID)
		if err == nil {
			err = s.gateway.AppendNoteToSparkFile(ctx, page.ID, e.Text)
		}
	case TypeNote:
		page, err = s.gateway.CreateNewNote(ctx, e.Project.ID, strings.TrimSpace(e.Title), e.Text)
	case TypeAction:
		page, err = s.gateway.CreateActionItem(ctx, e.Project.ID, strings.TrimSpace(e.Title))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add entry: %w", err)
	}
	return &Result{Type: e.Type, Page: page}, nil
}

// CreateProject creates a project. The description is optional.
func (s *Service) CreateProject(ctx context.Context, title, description string) (*backend.Page, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrProjectTitleRequired
	}
	page, err := s.gateway.CreateProject(ctx, title, strings.TrimSpace(description))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return page, nil
}

// QuicklinkName is the display name of a project's capture shortcut
func QuicklinkName(p backend.Project) string {
	return "Spark " + p.Title
}

// QuicklinkURL returns the command that opens the capture form on a project
func QuicklinkURL(p backend.Project) string {
	return "ppv add --project " + p.ID
}
