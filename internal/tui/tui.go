// Package tui provides the terminal interface for today's action items.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ppv/backend"
	"ppv/internal/actionitems"
	"ppv/internal/debounce"
	"ppv/internal/notification"
	"ppv/internal/utils"
)

// Items loads today's action items (satisfied by *actionitems.Aggregator)
type Items interface {
	FetchToday(ctx context.Context) ([]backend.ActionItem, error)
	Refresh(ctx context.Context) ([]backend.ActionItem, error)
}

// Gateway is the subset of the remote gateway used for edits
type Gateway interface {
	ToggleActionItemDone(ctx context.Context, pageID string) error
	UpdateActionItemContent(ctx context.Context, pageID, content string) error
	UpdateActionItem(ctx context.Context, pageID string, update backend.ActionItemUpdate) error
}

// Projects loads the project list for the project picker (satisfied by *capture.Service)
type Projects interface {
	LoadProjects(ctx context.Context, preferCache bool) ([]backend.Project, error)
}

// Options configures the model
type Options struct {
	Context  context.Context
	Items    Items
	Gateway  Gateway
	Projects Projects              // optional; disables the project picker when nil
	Notifier notification.Notifier // optional; receives every toast shown in the status bar
	Debounce time.Duration         // content save delay; 0 = debounce.DefaultWindow
}

// saveTimeout bounds a single content write
const saveTimeout = 10 * time.Second

// View indicates which screen is shown
type View int

const (
	ViewList View = iota
	ViewDetail
)

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeFilter
	ModeHelp
	ModeEditContent
	ModeEditTitle
	ModeEditDate
	ModePickPriority
	ModePickProject
)

// Model represents the TUI state
type Model struct {
	ctx      context.Context
	items    Items
	gateway  Gateway
	projects Projects
	notifier notification.Notifier
	saver    *debounce.Debouncer
	saved    chan savedMsg

	// Data
	all             []backend.ActionItem
	visible         []backend.ActionItem
	recentlyToggled map[string]bool
	projectList     []backend.Project
	loading         bool

	// Selection
	cursor     int
	pickCursor int
	view       View

	// Mode and input
	mode      Mode
	textInput textinput.Model
	content   textarea.Model
	filter    string
	status    *notification.Toast

	// UI dimensions
	width  int
	height int

	// Styles
	paneStyle      lipgloss.Style
	selectedStyle  lipgloss.Style
	doneStyle      lipgloss.Style
	labelStyle     lipgloss.Style
	helpStyle      lipgloss.Style
	dialogStyle    lipgloss.Style
	statusBarStyle lipgloss.Style
	failureStyle   lipgloss.Style
}

// Message types
type itemsLoadedMsg struct {
	items []backend.ActionItem
}

type projectsLoadedMsg struct {
	projects []backend.Project
}

type toggledMsg struct {
	id string
}

type updatedMsg struct {
	id    string
	apply func(*backend.ActionItem)
}

type toastMsg struct {
	toast notification.Toast
}

type savedMsg struct {
	toast notification.Toast
}

// New creates a new TUI model
func New(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notification.Discard
	}

	ti := textinput.New()
	ti.CharLimit = 256

	ta := textarea.New()
	ta.Placeholder = "Content..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0

	m := &Model{
		ctx:             ctx,
		items:           opts.Items,
		gateway:         opts.Gateway,
		projects:        opts.Projects,
		notifier:        notifier,
		saved:           make(chan savedMsg, 16),
		recentlyToggled: make(map[string]bool),
		loading:         true,
		textInput:       ti,
		content:         ta,
		paneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		doneStyle: lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("240")),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
		failureStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")),
	}
	m.saver = debounce.New(debounce.Config{Window: opts.Debounce, OnSave: m.saveContent})
	return m
}

// Visible returns the items currently listed
func (m *Model) Visible() []backend.ActionItem {
	return m.visible
}

// LastToast returns the toast shown in the status bar, or nil
func (m *Model) LastToast() *notification.Toast {
	return m.status
}

// Flush saves pending content edits immediately
func (m *Model) Flush() {
	m.saver.Flush()
}

// Init initializes the TUI
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(false), m.waitForSave())
}

// =============================================================================
// Commands
// =============================================================================

func (m *Model) load(refresh bool) tea.Cmd {
	return func() tea.Msg {
		var (
			items []backend.ActionItem
			err   error
		)
		if refresh {
			items, err = m.items.Refresh(m.ctx)
		} else {
			items, err = m.items.FetchToday(m.ctx)
		}
		if err != nil {
			return toastMsg{notification.Failed("Failed to load action items", err)}
		}
		return itemsLoadedMsg{items}
	}
}

func (m *Model) loadProjects() tea.Cmd {
	return func() tea.Msg {
		projects, err := m.projects.LoadProjects(m.ctx, true)
		if err != nil {
			return toastMsg{notification.Failed("Failed to load projects", err)}
		}
		return projectsLoadedMsg{projects}
	}
}

func (m *Model) toggle(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.gateway.ToggleActionItemDone(m.ctx, id); err != nil {
			return toastMsg{notification.Failed("Failed to update action item", err)}
		}
		return toggledMsg{id}
	}
}

func (m *Model) update(id string, update backend.ActionItemUpdate, apply func(*backend.ActionItem)) tea.Cmd {
	return func() tea.Msg {
		if err := m.gateway.UpdateActionItem(m.ctx, id, update); err != nil {
			return toastMsg{notification.Failed("Failed to update action item", err)}
		}
		return updatedMsg{id: id, apply: apply}
	}
}

// saveContent runs on the debouncer's goroutine; results reach Update via m.saved.
// The write outlives the program context so edits flushed on shutdown still land.
func (m *Model) saveContent(id, content string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), saveTimeout)
	defer cancel()

	msg := savedMsg{notification.Succeeded("Saved changes", "")}
	if err := m.gateway.UpdateActionItemContent(ctx, id, content); err != nil {
		msg = savedMsg{notification.Failed("Failed to save changes", err)}
	}
	select {
	case m.saved <- msg:
	default:
		utils.Debugf("tui: dropped save result for %s", id)
	}
}

func (m *Model) waitForSave() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.saved:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.saver.Flush()
	return m, tea.Quit
}

// =============================================================================
// Update
// =============================================================================

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.content.SetWidth(max(msg.Width-8, 20))
		return m, nil

	case itemsLoadedMsg:
		m.loading = false
		m.all = msg.items
		m.applyFilter()
		return m, nil

	case projectsLoadedMsg:
		m.projectList = msg.projects
		return m, nil

	case toggledMsg:
		for i := range m.all {
			if m.all[i].ID == msg.id {
				m.all[i].Done = !m.all[i].Done
			}
		}
		m.recentlyToggled[msg.id] = true
		m.applyFilter()
		return m, m.showToast(notification.Succeeded("Updated action item status", ""))

	case updatedMsg:
		for i := range m.all {
			if m.all[i].ID == msg.id {
				msg.apply(&m.all[i])
			}
		}
		m.applyFilter()
		return m, m.showToast(notification.Succeeded("Updated action item", ""))

	case toastMsg:
		m.loading = false
		return m, m.showToast(msg.toast)

	case savedMsg:
		m.showToast(msg.toast)
		return m, m.waitForSave()

	case tea.KeyMsg:
		switch m.mode {
		case ModeFilter:
			return m.handleFilterMode(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		case ModeEditContent:
			return m.handleContentMode(msg)
		case ModeEditTitle, ModeEditDate:
			return m.handleInputMode(msg)
		case ModePickPriority, ModePickProject:
			return m.handlePickMode(msg)
		}

		if m.view == ViewDetail {
			return m.handleDetailKeys(msg)
		}
		return m.handleListKeys(msg)
	}

	return m, nil
}

func (m *Model) showToast(t notification.Toast) tea.Cmd {
	m.status = &t
	m.notifier.Notify(t)
	return nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case "enter":
		if m.selected() != nil {
			m.view = ViewDetail
		}
	case "t":
		if item := m.selected(); item != nil {
			return m, m.toggle(item.ID)
		}
	case "r":
		m.recentlyToggled = make(map[string]bool)
		m.loading = true
		return m, m.load(true)
	case "/":
		m.mode = ModeFilter
		m.textInput.Reset()
		m.textInput.Placeholder = "Search action items..."
		m.textInput.Focus()
		return m, textinput.Blink
	case "?":
		m.mode = ModeHelp
	}
	return m, nil
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := m.selected()
	if item == nil {
		m.view = ViewList
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()
	case "esc", "backspace":
		m.view = ViewList
	case "t":
		return m, m.toggle(item.ID)
	case "e":
		m.mode = ModeEditContent
		m.content.SetValue(item.Content)
		m.content.Focus()
		return m, textarea.Blink
	case "T":
		m.mode = ModeEditTitle
		m.textInput.Reset()
		m.textInput.Placeholder = "Title"
		m.textInput.SetValue(item.Title)
		m.textInput.Focus()
		return m, textinput.Blink
	case "d":
		m.mode = ModeEditDate
		m.textInput.Reset()
		m.textInput.Placeholder = "YYYY-MM-DD, today, +3d (empty clears)"
		if item.DoDate != nil {
			m.textInput.SetValue(*item.DoDate)
		}
		m.textInput.Focus()
		return m, textinput.Blink
	case "p":
		m.mode = ModePickPriority
		m.pickCursor = 0
		for i, p := range backend.Priorities() {
			if p == item.Priority {
				m.pickCursor = i
			}
		}
	case "m":
		if m.projects == nil {
			return m, nil
		}
		m.mode = ModePickProject
		m.pickCursor = 0
		return m, m.loadProjects()
	case "?":
		m.mode = ModeHelp
	}
	return m, nil
}

func (m *Model) handleFilterMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		m.filter = m.textInput.Value()
		m.applyFilter()
		m.mode = ModeNormal
		return m, nil

	case tea.KeyEsc:
		m.filter = ""
		m.applyFilter()
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// handleContentMode updates the item locally on every keystroke and leaves
// persistence to the debouncer.
func (m *Model) handleContentMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.content.Blur()
		m.mode = ModeNormal
		return m, nil
	}

	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)

	if item := m.selected(); item != nil {
		value := m.content.Value()
		if value != item.Content {
			m.setItem(item.ID, func(a *backend.ActionItem) { a.Content = value })
			m.saver.Trigger(item.ID, value)
		}
	}
	return m, cmd
}

func (m *Model) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeNormal
		return m, nil

	case tea.KeyEnter:
		item := m.selected()
		mode := m.mode
		m.mode = ModeNormal
		if item == nil {
			return m, nil
		}
		value := strings.TrimSpace(m.textInput.Value())

		if mode == ModeEditTitle {
			if value == "" {
				return m, m.showToast(notification.Failed("Failed to update action item", fmt.Errorf("title is required")))
			}
			return m, m.update(item.ID, backend.ActionItemUpdate{Title: backend.Set(value)},
				func(a *backend.ActionItem) { a.Title = value })
		}

		date, err := utils.ParseDateFlag(value)
		if err != nil {
			return m, m.showToast(notification.Failed("Invalid date", err))
		}
		if date == nil {
			return m, m.update(item.ID, backend.ActionItemUpdate{DoDate: backend.Clear[string]()},
				func(a *backend.ActionItem) { a.DoDate = nil })
		}
		formatted := utils.FormatDoDate(*date)
		return m, m.update(item.ID, backend.ActionItemUpdate{DoDate: backend.Set(formatted)},
			func(a *backend.ActionItem) { a.DoDate = &formatted })
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handlePickMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	options := m.pickOptions()

	switch msg.String() {
	case "esc", "q":
		m.mode = ModeNormal
	case "up", "k":
		if m.pickCursor > 0 {
			m.pickCursor--
		}
	case "down", "j":
		if m.pickCursor < len(options)-1 {
			m.pickCursor++
		}
	case "enter":
		item := m.selected()
		mode := m.mode
		m.mode = ModeNormal
		if item == nil || m.pickCursor >= len(options) {
			return m, nil
		}
		if mode == ModePickPriority {
			p := options[m.pickCursor]
			return m, m.update(item.ID, backend.ActionItemUpdate{Priority: backend.Set(p)},
				func(a *backend.ActionItem) { a.Priority, a.PriorityIcon = p, p })
		}
		project := m.projectList[m.pickCursor]
		return m, m.update(item.ID, backend.ActionItemUpdate{ProjectID: backend.Set(project.ID)},
			func(a *backend.ActionItem) { a.ProjectID, a.Project = project.ID, project.Title })
	}
	return m, nil
}

func (m *Model) pickOptions() []string {
	if m.mode == ModePickPriority {
		return backend.Priorities()
	}
	options := make([]string, len(m.projectList))
	for i, p := range m.projectList {
		options[i] = p.Title
	}
	return options
}

func (m *Model) setItem(id string, apply func(*backend.ActionItem)) {
	for i := range m.all {
		if m.all[i].ID == id {
			apply(&m.all[i])
		}
	}
	m.applyFilter()
}

func (m *Model) selected() *backend.ActionItem {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	return &m.visible[m.cursor]
}

// applyFilter recomputes the visible list: open items plus those toggled this
// session, narrowed by the search filter.
func (m *Model) applyFilter() {
	var selectedID string
	if item := m.selected(); item != nil {
		selectedID = item.ID
	}

	m.visible = nil
	needle := strings.ToLower(m.filter)
	for _, item := range actionitems.Visible(m.all, m.recentlyToggled) {
		if needle == "" || strings.Contains(strings.ToLower(item.Title), needle) {
			m.visible = append(m.visible, item)
		}
	}

	m.cursor = 0
	for i, item := range m.visible {
		if item.ID == selectedID {
			m.cursor = i
		}
	}
}

// =============================================================================
// View
// =============================================================================

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	switch m.mode {
	case ModeFilter:
		return m.renderInputDialog("Search Action Items", "Enter: filter  Esc: clear")
	case ModeHelp:
		return m.centerDialog(m.dialogStyle.Render(helpText))
	case ModeEditTitle:
		return m.renderInputDialog("Edit Title", "Enter: save  Esc: cancel")
	case ModeEditDate:
		return m.renderInputDialog("Edit Do Date", "Enter: save  Esc: cancel")
	case ModePickPriority:
		return m.renderPicker("Priority")
	case ModePickProject:
		return m.renderPicker("Project")
	}

	var body string
	if m.view == ViewDetail {
		body = m.renderDetail()
	} else {
		body = m.renderList()
	}

	pane := m.paneStyle.Width(m.width - 2).Height(m.height - 4).Render(body)
	return pane + "\n" + m.renderStatusBar()
}

func (m *Model) renderList() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Today's Action Items (%d)\n", len(m.visible)))
	b.WriteString(strings.Repeat("─", max(m.width-6, 10)))
	b.WriteString("\n")

	if m.loading {
		b.WriteString("Loading...\n")
		return b.String()
	}
	if len(m.visible) == 0 {
		b.WriteString("No action items for today\n")
		return b.String()
	}

	for i, item := range m.visible {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}
		check := "[ ]"
		title := item.Title
		if item.Done {
			check = "[✓]"
			title = m.doneStyle.Render(title)
		} else if i == m.cursor {
			title = m.selectedStyle.Render(title)
		}

		line := cursor + " " + check + " " + title
		if item.Priority != "" {
			line += "  " + m.labelStyle.Render(item.Priority)
		}
		if item.Project != "" {
			line += "  " + m.labelStyle.Render(item.Project)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m *Model) renderDetail() string {
	item := m.selected()
	if item == nil {
		return "No action item selected\n"
	}

	status := "Not Done"
	if item.Done {
		status = "Done"
	}
	project := item.Project
	if project == "" {
		project = "No Project"
	}
	due := "No date"
	if t := item.DoDateTime(); t != nil {
		due = t.Format("2006-01-02")
	}
	priority := item.Priority
	if priority == "" {
		priority = "None"
	}

	var b strings.Builder
	b.WriteString(m.selectedStyle.Render(item.Title) + "\n")
	b.WriteString(strings.Repeat("─", max(m.width-6, 10)) + "\n")
	for _, row := range [][2]string{
		{"Status", status},
		{"Priority", priority},
		{"Project", project},
		{"Due Date", due},
		{"Open", backend.OpenURL(item.ID)},
	} {
		b.WriteString(m.labelStyle.Render(fmt.Sprintf("%-9s", row[0])) + " " + row[1] + "\n")
	}
	b.WriteString("\n")

	if m.mode == ModeEditContent {
		b.WriteString(m.content.View() + "\n")
		b.WriteString(m.helpStyle.Render("Changes save automatically  Esc: done") + "\n")
		return b.String()
	}
	if item.Content == "" {
		b.WriteString(m.helpStyle.Render("No content") + "\n")
	} else {
		b.WriteString(item.Content + "\n")
	}
	return b.String()
}

func (m *Model) renderStatusBar() string {
	left := ""
	if m.status != nil {
		left = m.status.String()
		if m.status.Style == notification.Failure {
			left = m.failureStyle.Render(left)
		}
	}

	right := "q:quit  ?:help"
	if m.view == ViewDetail {
		right = "esc:back  " + right
	}
	if m.filter != "" {
		right = "Filter: " + m.filter + "  " + right
	}

	padding := m.width - lipgloss.Width(left) - len(right) - 2
	if padding < 1 {
		padding = 1
	}

	return m.statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m *Model) renderInputDialog(title, help string) string {
	dialog := m.dialogStyle.Render(
		title + "\n\n" +
			m.textInput.View() + "\n\n" +
			m.helpStyle.Render(help),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderPicker(title string) string {
	var b strings.Builder
	b.WriteString(title + "\n\n")
	options := m.pickOptions()
	if len(options) == 0 {
		b.WriteString("Loading...\n")
	}
	for i, opt := range options {
		cursor := "  "
		if i == m.pickCursor {
			cursor = "> "
			opt = m.selectedStyle.Render(opt)
		}
		b.WriteString(cursor + opt + "\n")
	}
	b.WriteString("\n" + m.helpStyle.Render("Enter: select  Esc: cancel"))
	return m.centerDialog(m.dialogStyle.Render(b.String()))
}

// helpText fits an 80x24 terminal inside the dialog border and padding
const helpText = `Help - Key Bindings

List    j/k ↓/↑  Move            Enter  Open detail
        t        Toggle done     r      Refresh (clears the cache)
        /        Search
Detail  e        Edit content (saved after a pause)
        T        Edit title      p      Set priority
        m        Move to project d      Set do date
        t        Toggle done     Esc    Back
General ?        Show this help  q      Quit

Press any key to close`

func (m *Model) centerDialog(dialog string) string {
	lines := strings.Split(dialog, "\n")
	dialogHeight := len(lines)
	dialogWidth := 0
	for _, line := range lines {
		if w := lipgloss.Width(line); w > dialogWidth {
			dialogWidth = w
		}
	}

	topPad := max((m.height-dialogHeight)/2, 0)
	leftPad := max((m.width-dialogWidth)/2, 0)

	var b strings.Builder
	for i := 0; i < topPad; i++ {
		b.WriteString("\n")
	}
	for _, line := range lines {
		b.WriteString(strings.Repeat(" ", leftPad))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
