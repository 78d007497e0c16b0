// Package notion provides the remote gateway for the Notion REST API v1.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ppv/backend"
	"ppv/internal/utils"
)

const (
	// DefaultBaseURL is the Notion API base URL
	DefaultBaseURL = "https://api.notion.com"

	// DefaultVersion is the Notion-Version header sent with every request
	DefaultVersion = "2022-06-28"

	// Database ids of the PPV workspace template
	DefaultProjectsDatabaseID    = "e0d34b0831c24e30a48ac235e425459b"
	DefaultNotesDatabaseID       = "e194928c96664eb6b5518b690f08ea05"
	DefaultActionItemsDatabaseID = "d1c2b6fab84843638eb88480f0d4223e"

	// DefaultSparkFileTagID is the "Areas / Tags" page every spark file is related to
	DefaultSparkFileTagID = "137577f82e28806f82c9f2b86497fe2f"

	// SparkFileTagProperty is the note relation that carries the spark-file tag
	SparkFileTagProperty = "Areas / Tags"
)

// Property names of the workspace schema
const (
	propActionItem  = "Action Item"
	propProjectsDB  = "Projects (DB)"
	propProjects    = "Projects"
	propAreasTags   = SparkFileTagProperty
	propStatus      = "Status"
	propDone        = "Done"
	propDoDate      = "Do Date"
	propPriority    = "Priority"
	propContent     = "Content"
	propProject     = "Project"
	propTitle       = "title"
	statusActive    = "Active"
	statusWaiting   = "Waiting"
	sparkFileSuffix = " Spark File"
)

// projectTitleProperties are tried in order; the first non-empty title wins
var projectTitleProperties = []string{"Name", "Title", "Project"}

// Databases holds the ids of the three collections
type Databases struct {
	Projects    string
	Notes       string
	ActionItems string
}

// Config holds Notion connection settings
type Config struct {
	Token          string
	BaseURL        string // Override for testing
	Version        string
	Databases      Databases
	SparkFileTagID string
	Timeout        time.Duration // 0 = no timeout
}

// ConfigFromEnv creates a Config from environment variables with default database ids
func ConfigFromEnv() Config {
	return Config{
		Token: os.Getenv("PPV_NOTION_TOKEN"),
	}
}

// Backend implements backend.Gateway using the Notion REST API
type Backend struct {
	config  Config
	client  *http.Client
	baseURL string
}

// New creates a new Notion gateway
func New(cfg Config) (*Backend, error) {
	if cfg.Token == "" {
		return nil, utils.ErrTokenMissing()
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Databases.Projects == "" {
		cfg.Databases.Projects = DefaultProjectsDatabaseID
	}
	if cfg.Databases.Notes == "" {
		cfg.Databases.Notes = DefaultNotesDatabaseID
	}
	if cfg.Databases.ActionItems == "" {
		cfg.Databases.ActionItems = DefaultActionItemsDatabaseID
	}
	if cfg.SparkFileTagID == "" {
		cfg.SparkFileTagID = DefaultSparkFileTagID
	}

	return &Backend{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout, Transport: http.DefaultTransport.(*http.Transport).Clone()},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// Close closes the backend's idle connections
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	b.client.CloseIdleConnections()
	return nil
}

// APIError is the error object returned by Notion for non-2xx responses
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion API error: status %d", e.Status)
	}
	return fmt.Sprintf("notion API error %d (%s): %s", e.Status, e.Code, e.Message)
}

// doRequest performs an authenticated request and decodes a JSON response into out (may be nil).
// There is no retry: failures are returned to the caller as-is.
func (b *Backend) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+b.config.Token)
	req.Header.Set("Notion-Version", b.config.Version)
	req.Header.Set("Content-Type", "application/json")

	utils.Debugf("notion: %s %s", method, path)

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns a failed response into an *APIError, wrapped with a suggestion where useful
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
		apiErr.Status = resp.StatusCode
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return utils.ErrAuthenticationFailed(apiErr)
	case http.StatusNotFound:
		return utils.WrapWithSuggestion(apiErr, "Make sure the database or page is shared with your Notion integration")
	}
	return apiErr
}

// IsNotFound reports whether err is a Notion 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// =============================================================================
// Wire Types
// =============================================================================

type richText struct {
	PlainText string `json:"plain_text"`
}

type property struct {
	Type     string     `json:"type"`
	Title    []richText `json:"title"`
	RichText []richText `json:"rich_text"`
	Select   *struct {
		Name string `json:"name"`
	} `json:"select"`
	Checkbox bool `json:"checkbox"`
	Date     *struct {
		Start string `json:"start"`
	} `json:"date"`
	Relation []struct {
		ID string `json:"id"`
	} `json:"relation"`
}

type page struct {
	Object     string              `json:"object"`
	ID         string              `json:"id"`
	URL        string              `json:"url"`
	Properties map[string]property `json:"properties"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

func plainText(parts []richText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return sb.String()
}

func (p page) title(name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	return plainText(prop.Title)
}

func (p page) toPage(title string) *backend.Page {
	return &backend.Page{ID: p.ID, Title: title, URL: p.URL}
}

func textValue(content string) []map[string]interface{} {
	return []map[string]interface{}{
		{"text": map[string]string{"content": content}},
	}
}

func titleProperty(content string) map[string]interface{} {
	return map[string]interface{}{"title": textValue(content)}
}

func relationProperty(ids ...string) map[string]interface{} {
	rel := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		rel = append(rel, map[string]string{"id": id})
	}
	return map[string]interface{}{"relation": rel}
}

func selectProperty(name string) map[string]interface{} {
	return map[string]interface{}{"select": map[string]string{"name": name}}
}

func paragraphBlock(content string) map[string]interface{} {
	return map[string]interface{}{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]interface{}{
			"rich_text": textValue(content),
		},
	}
}

// =============================================================================
// Project Operations
// =============================================================================

// FetchProjects returns every project in the Projects database
func (b *Backend) FetchProjects(ctx context.Context) ([]backend.Project, error) {
	var resp queryResponse
	if err := b.doRequest(ctx, http.MethodPost, "/v1/databases/"+b.config.Databases.Projects+"/query", map[string]interface{}{}, &resp); err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}

	projects := make([]backend.Project, 0, len(resp.Results))
	for _, p := range resp.Results {
		projects = append(projects, backend.Project{
			ID:    p.ID,
			Title: projectTitle(p),
		})
	}
	return projects, nil
}

// projectTitle tolerates schema drift by trying several title property names
func projectTitle(p page) string {
	for _, name := range projectTitleProperties {
		if t := p.title(name); t != "" {
			return t
		}
	}
	return ""
}

// RetrieveProjectTitle fetches a single project page and returns its title
func (b *Backend) RetrieveProjectTitle(ctx context.Context, projectID string) (string, error) {
	var p page
	if err := b.doRequest(ctx, http.MethodGet, "/v1/pages/"+projectID, nil, &p); err != nil {
		return "", fmt.Errorf("failed to retrieve project %s: %w", projectID, err)
	}
	return p.title(propProject), nil
}

// CreateProject creates an active project. A non-empty description becomes the first paragraph.
func (b *Backend) CreateProject(ctx context.Context, title, description string) (*backend.Page, error) {
	body := map[string]interface{}{
		"parent": map[string]string{"database_id": b.config.Databases.Projects},
		"properties": map[string]interface{}{
			propProject: titleProperty(title),
			propStatus:  selectProperty(statusActive),
		},
	}
	if description != "" {
		body["children"] = []interface{}{paragraphBlock(description)}
	}

	var created page
	if err := b.doRequest(ctx, http.MethodPost, "/v1/pages", body, &created); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return created.toPage(title), nil
}

// =============================================================================
// Note Operations
// =============================================================================

// SparkFileTitle returns the title of a project's spark file
func SparkFileTitle(projectName string) string {
	return projectName + sparkFileSuffix
}

// FindOrCreateSparkFile returns the project's spark file, creating it when missing
func (b *Backend) FindOrCreateSparkFile(ctx context.Context, projectName, projectID string) (*backend.Page, error) {
	title := SparkFileTitle(projectName)
	query := map[string]interface{}{
		"filter": map[string]interface{}{
			"and": []interface{}{
				map[string]interface{}{
					"property": propTitle,
					"title":    map[string]string{"equals": title},
				},
				map[string]interface{}{
					"property": propProjects,
					"relation": map[string]string{"contains": projectID},
				},
			},
		},
	}

	var resp queryResponse
	if err := b.doRequest(ctx, http.MethodPost, "/v1/databases/"+b.config.Databases.Notes+"/query", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to query spark file: %w", err)
	}
	if len(resp.Results) > 0 {
		return resp.Results[0].toPage(title), nil
	}

	utils.Debugf("creating spark file %q with tag %s", title, b.config.SparkFileTagID)
	body := map[string]interface{}{
		"parent": map[string]string{"database_id": b.config.Databases.Notes},
		"properties": map[string]interface{}{
			propTitle:     titleProperty(title),
			propProjects:  relationProperty(projectID),
			propAreasTags: relationProperty(b.config.SparkFileTagID),
		},
	}

	var created page
	if err := b.doRequest(ctx, http.MethodPost, "/v1/pages", body, &created); err != nil {
		return nil, fmt.Errorf("failed to create spark file: %w", err)
	}
	return created.toPage(title), nil
}

// AppendNoteToSparkFile appends a paragraph to the spark file
func (b *Backend) AppendNoteToSparkFile(ctx context.Context, sparkFileID, content string) error {
	body := map[string]interface{}{
		"children": []interface{}{paragraphBlock(content)},
	}
	if err := b.doRequest(ctx, http.MethodPatch, "/v1/blocks/"+sparkFileID+"/children", body, nil); err != nil {
		return fmt.Errorf("failed to append to spark file: %w", err)
	}
	return nil
}

// CreateNewNote creates a note page related to the project with content as its first paragraph
func (b *Backend) CreateNewNote(ctx context.Context, projectID, title, content string) (*backend.Page, error) {
	body := map[string]interface{}{
		"parent": map[string]string{"database_id": b.config.Databases.Notes},
		"properties": map[string]interface{}{
			propTitle:    titleProperty(title),
			propProjects: relationProperty(projectID),
		},
		"children": []interface{}{paragraphBlock(content)},
	}

	var created page
	if err := b.doRequest(ctx, http.MethodPost, "/v1/pages", body, &created); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return created.toPage(title), nil
}

// =============================================================================
// Action Item Operations
// =============================================================================

// CreateActionItem creates an active action item related to the project
func (b *Backend) CreateActionItem(ctx context.Context, projectID, title string) (*backend.Page, error) {
	body := map[string]interface{}{
		"parent": map[string]string{"database_id": b.config.Databases.ActionItems},
		"properties": map[string]interface{}{
			propActionItem: titleProperty(title),
			propProjectsDB: relationProperty(projectID),
			propStatus:     selectProperty(statusActive),
		},
	}

	var created page
	if err := b.doRequest(ctx, http.MethodPost, "/v1/pages", body, &created); err != nil {
		return nil, fmt.Errorf("failed to create action item: %w", err)
	}
	return created.toPage(title), nil
}

// TodayFilter builds the action item query: (Active OR Waiting) AND not done AND due on or before cutoff
func TodayFilter(cutoff time.Time) map[string]interface{} {
	return map[string]interface{}{
		"filter": map[string]interface{}{
			"and": []interface{}{
				map[string]interface{}{
					"or": []interface{}{
						map[string]interface{}{
							"property": propStatus,
							"select":   map[string]string{"equals": statusActive},
						},
						map[string]interface{}{
							"property": propStatus,
							"select":   map[string]string{"equals": statusWaiting},
						},
					},
				},
				map[string]interface{}{
					"property": propDone,
					"checkbox": map[string]bool{"equals": false},
				},
				map[string]interface{}{
					"property": propDoDate,
					"date":     map[string]string{"on_or_before": cutoff.Format(time.RFC3339)},
				},
			},
		},
		"sorts": []interface{}{
			map[string]string{"property": propPriority, "direction": "ascending"},
			map[string]string{"property": propDoDate, "direction": "ascending"},
		},
	}
}

// QueryTodayActionItems returns the unresolved action items matching TodayFilter.
// Project holds nothing yet; ProjectID carries the first related project.
func (b *Backend) QueryTodayActionItems(ctx context.Context, cutoff time.Time) ([]backend.ActionItem, error) {
	var resp queryResponse
	if err := b.doRequest(ctx, http.MethodPost, "/v1/databases/"+b.config.Databases.ActionItems+"/query", TodayFilter(cutoff), &resp); err != nil {
		return nil, fmt.Errorf("failed to query action items: %w", err)
	}

	items := make([]backend.ActionItem, 0, len(resp.Results))
	for _, p := range resp.Results {
		items = append(items, toActionItem(p))
	}
	return items, nil
}

func toActionItem(p page) backend.ActionItem {
	item := backend.ActionItem{
		ID:      p.ID,
		Title:   p.title(propActionItem),
		Done:    p.Properties[propDone].Checkbox,
		Content: plainText(p.Properties[propContent].RichText),
	}

	if rel := p.Properties[propProjectsDB].Relation; len(rel) > 0 {
		item.ProjectID = rel[0].ID
	}
	if sel := p.Properties[propPriority].Select; sel != nil {
		item.Priority = sel.Name
		item.PriorityIcon = sel.Name
	}
	if d := p.Properties[propDoDate].Date; d != nil && d.Start != "" {
		start := d.Start
		item.DoDate = &start
	}
	return item
}

// ToggleActionItemDone marks the action item done.
// The remote flag is always set to true, never cleared.
func (b *Backend) ToggleActionItemDone(ctx context.Context, pageID string) error {
	body := map[string]interface{}{
		"properties": map[string]interface{}{
			propDone: map[string]bool{"checkbox": true},
		},
	}
	if err := b.doRequest(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, nil); err != nil {
		return fmt.Errorf("failed to mark action item done: %w", err)
	}
	return nil
}

// UpdateActionItemContent replaces the Content property
func (b *Backend) UpdateActionItemContent(ctx context.Context, pageID, content string) error {
	body := map[string]interface{}{
		"properties": map[string]interface{}{
			propContent: map[string]interface{}{"rich_text": textValue(content)},
		},
	}
	if err := b.doRequest(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, nil); err != nil {
		return fmt.Errorf("failed to update action item content: %w", err)
	}
	return nil
}

// UpdateActionItem writes only the fields that are not Unset
func (b *Backend) UpdateActionItem(ctx context.Context, pageID string, update backend.ActionItemUpdate) error {
	properties, err := UpdateProperties(update)
	if err != nil {
		return err
	}

	body := map[string]interface{}{"properties": properties}
	if err := b.doRequest(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, nil); err != nil {
		return fmt.Errorf("failed to update action item: %w", err)
	}
	return nil
}

// ErrTitleRequired is returned when an update tries to clear the title
var ErrTitleRequired = errors.New("action item title cannot be cleared")

// UpdateProperties translates an update to the properties payload.
// A cleared Do Date is sent as an explicit null date.
func UpdateProperties(update backend.ActionItemUpdate) (map[string]interface{}, error) {
	properties := map[string]interface{}{}

	if update.Title.IsClear() {
		return nil, ErrTitleRequired
	}
	if v, ok := update.Title.Value(); ok {
		properties[propActionItem] = titleProperty(v)
	}

	switch {
	case update.Priority.IsClear():
		properties[propPriority] = map[string]interface{}{"select": nil}
	case update.Priority.IsSet():
		v, _ := update.Priority.Value()
		properties[propPriority] = selectProperty(v)
	}

	switch {
	case update.ProjectID.IsClear():
		properties[propProjectsDB] = relationProperty()
	case update.ProjectID.IsSet():
		v, _ := update.ProjectID.Value()
		properties[propProjectsDB] = relationProperty(v)
	}

	switch {
	case update.DoDate.IsClear():
		properties[propDoDate] = map[string]interface{}{"date": nil}
	case update.DoDate.IsSet():
		v, _ := update.DoDate.Value()
		properties[propDoDate] = map[string]interface{}{
			"date": map[string]string{"start": v},
		}
	}

	switch {
	case update.Content.IsClear():
		properties[propContent] = map[string]interface{}{"rich_text": []interface{}{}}
	case update.Content.IsSet():
		v, _ := update.Content.Value()
		properties[propContent] = map[string]interface{}{"rich_text": textValue(v)}
	}

	return properties, nil
}

// Verify interface compliance at compile time
var _ backend.Gateway = (*Backend)(nil)
