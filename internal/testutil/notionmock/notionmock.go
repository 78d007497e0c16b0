// Package notionmock is an in-memory Notion REST API used by tests.
// It understands the subset of v1 the gateway uses: database queries with
// compound filters, page create/retrieve/update and block children append.
package notionmock

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Database ids served by the mock
const (
	ProjectsDB     = "projects-db"
	NotesDB        = "notes-db"
	ActionItemsDB  = "action-items-db"
	SparkFileTagID = "spark-file-tag"
)

// DefaultToken is the bearer token the mock accepts unless told otherwise
const DefaultToken = "secret_test_token"

// Request is one recorded API call
type Request struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

// Page is a stored page. Properties use Notion's response shape.
type Page struct {
	ID         string
	DatabaseID string
	Properties map[string]interface{}
	Blocks     []string
}

type failure struct {
	status int
	code   string
}

// Server simulates the Notion API
type Server struct {
	server *httptest.Server
	token  string

	mu       sync.Mutex
	pages    map[string]*Page
	order    []string
	requests []Request
	failures map[string]failure
}

// New starts a mock server accepting token. It is closed when the test ends.
func New(tb testing.TB, token string) *Server {
	tb.Helper()
	m := &Server{
		token:    token,
		pages:    make(map[string]*Page),
		failures: make(map[string]failure),
	}

	r := mux.NewRouter()
	r.Use(m.record, m.authenticate, m.injectFailures)
	r.HandleFunc("/v1/databases/{id}/query", m.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/v1/pages", m.handleCreatePage).Methods(http.MethodPost)
	r.HandleFunc("/v1/pages/{id}", m.handleGetPage).Methods(http.MethodGet)
	r.HandleFunc("/v1/pages/{id}", m.handleUpdatePage).Methods(http.MethodPatch)
	r.HandleFunc("/v1/blocks/{id}/children", m.handleAppendChildren).Methods(http.MethodPatch)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, "invalid_request_url", "Invalid request URL.")
	})

	m.server = httptest.NewServer(r)
	tb.Cleanup(m.server.Close)
	return m
}

// URL returns the base URL to use as the gateway's BaseURL
func (m *Server) URL() string {
	return m.server.URL
}

// Token returns the accepted bearer token
func (m *Server) Token() string {
	return m.token
}

// Close stops the server early
func (m *Server) Close() {
	m.server.Close()
}

// =============================================================================
// Seeding
// =============================================================================

// AddProject adds a project titled via the "Project" property and returns its id
func (m *Server) AddProject(title string) string {
	return m.AddProjectWithTitleProperty("Project", title)
}

// AddProjectWithTitleProperty adds a project whose title lives under prop
func (m *Server) AddProjectWithTitleProperty(prop, title string) string {
	return m.insert(ProjectsDB, map[string]interface{}{
		prop:     titleValue(title),
		"Status": selectValue("Active"),
	})
}

// ActionItem describes a seeded action item
type ActionItem struct {
	Title     string
	ProjectID string
	Priority  string
	DoDate    string
	Status    string
	Done      bool
	Content   string
}

// AddActionItem adds an action item and returns its id. Status defaults to Active.
func (m *Server) AddActionItem(item ActionItem) string {
	if item.Status == "" {
		item.Status = "Active"
	}
	props := map[string]interface{}{
		"Action Item": titleValue(item.Title),
		"Status":      selectValue(item.Status),
		"Done":        map[string]interface{}{"checkbox": item.Done},
		"Content":     map[string]interface{}{"rich_text": plainTextValue(item.Content)},
	}
	if item.ProjectID != "" {
		props["Projects (DB)"] = relationValue(item.ProjectID)
	}
	if item.Priority != "" {
		props["Priority"] = selectValue(item.Priority)
	}
	if item.DoDate != "" {
		props["Do Date"] = map[string]interface{}{"date": map[string]interface{}{"start": item.DoDate}}
	}
	return m.insert(ActionItemsDB, props)
}

// AddNote adds a note related to projectID and returns its id
func (m *Server) AddNote(title, projectID string) string {
	return m.insert(NotesDB, map[string]interface{}{
		"title":    titleValue(title),
		"Projects": relationValue(projectID),
	})
}

// FailWith makes every request whose "METHOD /path" starts with prefix fail
func (m *Server) FailWith(prefix string, status int, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[prefix] = failure{status: status, code: code}
}

// =============================================================================
// Inspection
// =============================================================================

// Requests returns the recorded requests in order
func (m *Server) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// RequestsTo returns recorded requests whose "METHOD /path" starts with prefix
func (m *Server) RequestsTo(prefix string) []Request {
	var out []Request
	for _, r := range m.Requests() {
		if strings.HasPrefix(r.Method+" "+r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets recorded requests
func (m *Server) ResetRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// Page returns a copy of a stored page
func (m *Server) Page(id string) (Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[normalizeID(id)]
	if !ok {
		return Page{}, false
	}
	cp := *p
	cp.Blocks = append([]string(nil), p.Blocks...)
	return cp, true
}

// Pages returns the ids of the pages in a database in insertion order
func (m *Server) Pages(databaseID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, id := range m.order {
		if m.pages[id].DatabaseID == databaseID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Title returns the plain text of a page's title property
func (p Page) Title(prop string) string {
	v, _ := p.Properties[prop].(map[string]interface{})
	return joinPlainText(v["title"])
}

// Text returns the plain text of a page's rich text property
func (p Page) Text(prop string) string {
	v, _ := p.Properties[prop].(map[string]interface{})
	return joinPlainText(v["rich_text"])
}

// Checkbox returns a checkbox property
func (p Page) Checkbox(prop string) bool {
	v, _ := p.Properties[prop].(map[string]interface{})
	b, _ := v["checkbox"].(bool)
	return b
}

// Select returns the name of a select property, empty when unset
func (p Page) Select(prop string) string {
	v, _ := p.Properties[prop].(map[string]interface{})
	sel, _ := v["select"].(map[string]interface{})
	name, _ := sel["name"].(string)
	return name
}

// Date returns the start of a date property, empty when unset
func (p Page) Date(prop string) string {
	v, _ := p.Properties[prop].(map[string]interface{})
	d, _ := v["date"].(map[string]interface{})
	start, _ := d["start"].(string)
	return start
}

// Relation returns the related page ids
func (p Page) Relation(prop string) []string {
	v, _ := p.Properties[prop].(map[string]interface{})
	rel, _ := v["relation"].([]interface{})
	ids := make([]string, 0, len(rel))
	for _, r := range rel {
		if obj, ok := r.(map[string]interface{}); ok {
			id, _ := obj["id"].(string)
			ids = append(ids, id)
		}
	}
	return ids
}

// =============================================================================
// Middleware
// =============================================================================

func (m *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			if len(data) > 0 {
				_ = json.Unmarshal(data, &body)
			}
			r.Body = io.NopCloser(strings.NewReader(string(data)))
		}
		m.mu.Lock()
		m.requests = append(m.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		m.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (m *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+m.token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
			return
		}
		if r.Header.Get("Notion-Version") == "" {
			writeError(w, http.StatusBadRequest, "missing_version", "Notion-Version header failed validation.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		m.mu.Lock()
		var hit *failure
		for prefix, f := range m.failures {
			if strings.HasPrefix(key, prefix) {
				f := f
				hit = &f
				break
			}
		}
		m.mu.Unlock()
		if hit != nil {
			writeError(w, hit.status, hit.code, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (m *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	dbID := mux.Vars(r)["id"]
	var req struct {
		Filter map[string]interface{} `json:"filter"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	m.mu.Lock()
	results := []interface{}{}
	for _, id := range m.order {
		p := m.pages[id]
		if p.DatabaseID != dbID {
			continue
		}
		if req.Filter != nil && !matches(p.Properties, req.Filter) {
			continue
		}
		results = append(results, pageJSON(p))
	}
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"object":      "list",
		"results":     results,
		"has_more":    false,
		"next_cursor": nil,
	})
}

func (m *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parent struct {
			DatabaseID string `json:"database_id"`
		} `json:"parent"`
		Properties map[string]map[string]interface{} `json:"properties"`
		Children   []map[string]interface{}          `json:"children"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Parent.DatabaseID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "body.parent.database_id should be defined")
		return
	}

	props := make(map[string]interface{}, len(req.Properties))
	for name, v := range req.Properties {
		props[name] = toResponseProperty(v)
	}
	id := m.insert(req.Parent.DatabaseID, props)

	m.mu.Lock()
	p := m.pages[id]
	p.Blocks = append(p.Blocks, blockTexts(req.Children)...)
	out := pageJSON(p)
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (m *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	p, ok := m.pages[normalizeID(mux.Vars(r)["id"])]
	var out map[string]interface{}
	if ok {
		out = pageJSON(p)
	}
	m.mu.Unlock()

	if !ok {
		writeNotFound(w, mux.Vars(r)["id"])
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (m *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Properties map[string]map[string]interface{} `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	m.mu.Lock()
	p, ok := m.pages[normalizeID(mux.Vars(r)["id"])]
	var out map[string]interface{}
	if ok {
		for name, v := range req.Properties {
			p.Properties[name] = toResponseProperty(v)
		}
		out = pageJSON(p)
	}
	m.mu.Unlock()

	if !ok {
		writeNotFound(w, mux.Vars(r)["id"])
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (m *Server) handleAppendChildren(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Children []map[string]interface{} `json:"children"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	m.mu.Lock()
	p, ok := m.pages[normalizeID(mux.Vars(r)["id"])]
	if ok {
		p.Blocks = append(p.Blocks, blockTexts(req.Children)...)
	}
	m.mu.Unlock()

	if !ok {
		writeNotFound(w, mux.Vars(r)["id"])
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"object": "list", "results": []interface{}{}})
}

// =============================================================================
// Helpers
// =============================================================================

func (m *Server) insert(databaseID string, props map[string]interface{}) string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[id] = &Page{ID: id, DatabaseID: databaseID, Properties: props}
	m.order = append(m.order, id)
	return id
}

func pageJSON(p *Page) map[string]interface{} {
	return map[string]interface{}{
		"object":     "page",
		"id":         p.ID,
		"url":        "https://www.notion.so/" + strings.ReplaceAll(p.ID, "-", ""),
		"parent":     map[string]interface{}{"type": "database_id", "database_id": p.DatabaseID},
		"properties": p.Properties,
	}
}

func normalizeID(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}

func plainTextValue(s string) []interface{} {
	if s == "" {
		return []interface{}{}
	}
	return []interface{}{map[string]interface{}{
		"type":       "text",
		"plain_text": s,
		"text":       map[string]interface{}{"content": s},
	}}
}

func titleValue(s string) map[string]interface{} {
	return map[string]interface{}{"type": "title", "title": plainTextValue(s)}
}

func selectValue(name string) map[string]interface{} {
	return map[string]interface{}{"type": "select", "select": map[string]interface{}{"name": name}}
}

func relationValue(ids ...string) map[string]interface{} {
	rel := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		rel = append(rel, map[string]interface{}{"id": id})
	}
	return map[string]interface{}{"type": "relation", "relation": rel}
}

// toResponseProperty fills plain_text for rich text written in request shape
func toResponseProperty(v map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(v))
	for k, val := range v {
		out[k] = val
	}
	for _, key := range []string{"title", "rich_text"} {
		parts, ok := v[key].([]interface{})
		if !ok {
			continue
		}
		var sb strings.Builder
		for _, part := range parts {
			obj, _ := part.(map[string]interface{})
			text, _ := obj["text"].(map[string]interface{})
			content, _ := text["content"].(string)
			sb.WriteString(content)
		}
		out[key] = plainTextValue(sb.String())
	}
	return out
}

func joinPlainText(v interface{}) string {
	parts, _ := v.([]interface{})
	var sb strings.Builder
	for _, part := range parts {
		obj, _ := part.(map[string]interface{})
		s, _ := obj["plain_text"].(string)
		sb.WriteString(s)
	}
	return sb.String()
}

func blockTexts(children []map[string]interface{}) []string {
	texts := make([]string, 0, len(children))
	for _, c := range children {
		para, _ := c["paragraph"].(map[string]interface{})
		texts = append(texts, joinRequestText(para["rich_text"]))
	}
	return texts
}

func joinRequestText(v interface{}) string {
	parts, _ := v.([]interface{})
	var sb strings.Builder
	for _, part := range parts {
		obj, _ := part.(map[string]interface{})
		text, _ := obj["text"].(map[string]interface{})
		s, _ := text["content"].(string)
		sb.WriteString(s)
	}
	return sb.String()
}

// matches evaluates the filter subset the gateway sends
func matches(props map[string]interface{}, filter map[string]interface{}) bool {
	if and, ok := filter["and"].([]interface{}); ok {
		for _, f := range and {
			sub, _ := f.(map[string]interface{})
			if !matches(props, sub) {
				return false
			}
		}
		return true
	}
	if or, ok := filter["or"].([]interface{}); ok {
		for _, f := range or {
			sub, _ := f.(map[string]interface{})
			if matches(props, sub) {
				return true
			}
		}
		return false
	}

	name, _ := filter["property"].(string)
	p := Page{Properties: props}
	switch {
	case filter["title"] != nil:
		cond, _ := filter["title"].(map[string]interface{})
		return p.Title(name) == cond["equals"]
	case filter["select"] != nil:
		cond, _ := filter["select"].(map[string]interface{})
		return p.Select(name) == cond["equals"]
	case filter["checkbox"] != nil:
		cond, _ := filter["checkbox"].(map[string]interface{})
		want, _ := cond["equals"].(bool)
		return p.Checkbox(name) == want
	case filter["relation"] != nil:
		cond, _ := filter["relation"].(map[string]interface{})
		want, _ := cond["contains"].(string)
		for _, id := range p.Relation(name) {
			if normalizeID(id) == normalizeID(want) {
				return true
			}
		}
		return false
	case filter["date"] != nil:
		cond, _ := filter["date"].(map[string]interface{})
		bound, _ := cond["on_or_before"].(string)
		start := p.Date(name)
		if start == "" {
			return false
		}
		st, err1 := parseDate(start)
		bt, err2 := parseDate(bound)
		if err1 != nil || err2 != nil {
			return false
		}
		return !st.After(bt)
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"object":  "error",
		"status":  status,
		"code":    code,
		"message": message,
	})
}

func writeNotFound(w http.ResponseWriter, id string) {
	writeError(w, http.StatusNotFound, "object_not_found",
		fmt.Sprintf("Could not find page with ID: %s.", id))
}
