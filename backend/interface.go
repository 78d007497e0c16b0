package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is a row of the Projects database
type Project struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ActionItem is a row of the Action Items database with its project resolved to a title
type ActionItem struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	DoDate       *string `json:"doDate"`
	Project      string  `json:"project"`
	ProjectID    string  `json:"projectId,omitempty"`
	Priority     string  `json:"priority"`
	PriorityIcon string  `json:"priorityIcon"`
	Done         bool    `json:"done"`
	Content      string  `json:"content"`
}

// DoDateTime parses DoDate. It accepts plain dates and full timestamps.
// Returns nil when the item has no date or the value cannot be parsed.
func (a ActionItem) DoDateTime() *time.Time {
	if a.DoDate == nil || *a.DoDate == "" {
		return nil
	}
	if t, err := time.ParseInLocation("2006-01-02", *a.DoDate, time.Local); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, *a.DoDate); err == nil {
		return &t
	}
	return nil
}

// Page is a page created or found by the gateway (notes, spark files, projects, action items)
type Page struct {
	ID    string
	Title string
	URL   string
}

// ActionItemUpdate is a partial update of an action item.
// Unset fields are not written; cleared fields are written as empty/null.
type ActionItemUpdate struct {
	Title     Field[string]
	Priority  Field[string]
	ProjectID Field[string]
	DoDate    Field[string]
	Content   Field[string]
}

// IsEmpty reports whether the update would not touch any property
func (u ActionItemUpdate) IsEmpty() bool {
	return u.Title.IsUnset() && u.Priority.IsUnset() && u.ProjectID.IsUnset() &&
		u.DoDate.IsUnset() && u.Content.IsUnset()
}

// Gateway defines the remote operations against the workspace service
type Gateway interface {
	// Projects
	FetchProjects(ctx context.Context) ([]Project, error)
	RetrieveProjectTitle(ctx context.Context, projectID string) (string, error)
	CreateProject(ctx context.Context, title, description string) (*Page, error)

	// Notes
	FindOrCreateSparkFile(ctx context.Context, projectName, projectID string) (*Page, error)
	AppendNoteToSparkFile(ctx context.Context, sparkFileID, content string) error
	CreateNewNote(ctx context.Context, projectID, title, content string) (*Page, error)

	// Action items
	CreateActionItem(ctx context.Context, projectID, title string) (*Page, error)
	QueryTodayActionItems(ctx context.Context, cutoff time.Time) ([]ActionItem, error)
	ToggleActionItemDone(ctx context.Context, pageID string) error
	UpdateActionItemContent(ctx context.Context, pageID, content string) error
	UpdateActionItem(ctx context.Context, pageID string, update ActionItemUpdate) error

	Close() error
}

// FindProject searches projects by ID or by title (case-insensitive).
// Returns nil if no match is found.
func FindProject(projects []Project, ref string) *Project {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if id, err := NormalizePageID(ref); err == nil {
		for _, p := range projects {
			if pid, perr := NormalizePageID(p.ID); perr == nil && pid == id {
				return &p
			}
		}
	}
	for _, p := range projects {
		if strings.EqualFold(p.Title, ref) {
			return &p
		}
	}
	return nil
}

// NormalizePageID converts a page id with or without dashes to the dashed form
func NormalizePageID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("invalid page id %q: %w", id, err)
	}
	return parsed.String(), nil
}

// OpenURL returns the desktop-app link for a page
func OpenURL(pageID string) string {
	return "notion://notion.so/" + strings.ReplaceAll(pageID, "-", "")
}
