// Package tui is the Harbordesk terminal console: an inbox list over a
// conversation timeline, driven by the controllers in internal/inbox,
// internal/session and internal/timeline.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harborops/harbordesk/internal/cache"
	"github.com/harborops/harbordesk/internal/inbox"
	"github.com/harborops/harbordesk/internal/logging"
	"github.com/harborops/harbordesk/internal/session"
	"github.com/harborops/harbordesk/internal/transport"
	"github.com/harborops/harbordesk/internal/tui/styles"
)

type ViewID string

const (
	ViewInbox        ViewID = "inbox"
	ViewConversation ViewID = "conversation"
)

// Config carries the settings the console needs from the config layer.
type Config struct {
	Theme          string
	PageSize       int
	ActorID        int64
	ActorName      string
	ShowTimestamps bool
	LocalMode      bool
}

// Deps are the collaborators the console drives.
type Deps struct {
	Inbox   *inbox.Controller
	Session *session.Session
	Intents transport.Intents

	// Events is the push stream; nil in local mode.
	Events <-chan transport.Event

	// Store persists the inbox snapshot across runs; nil disables it.
	Store *cache.Cache
}

type viewModel interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View(width, height int, theme styles.Theme) string
}

type pushEventMsg struct {
	event transport.Event
}

type eventsClosedMsg struct{}

type openThreadMsg struct {
	id string
}

type popViewMsg struct{}

func openThreadCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return openThreadMsg{id: id}
	}
}

func popViewCmd() tea.Cmd {
	return func() tea.Msg {
		return popViewMsg{}
	}
}

// Model is the root bubbletea model.
type Model struct {
	cfg   Config
	theme styles.Theme

	inbox   *inbox.Controller
	session *session.Session
	intents transport.Intents
	events  <-chan transport.Event
	store   *cache.Cache

	width     int
	height    int
	showHelp  bool
	connected bool

	viewStack []ViewID
	views     map[ViewID]viewModel
}

// NewModel builds the root model.
func NewModel(cfg Config, deps Deps) (*Model, error) {
	if deps.Inbox == nil || deps.Session == nil || deps.Intents == nil {
		return nil, fmt.Errorf("inbox, session and intents are required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if strings.TrimSpace(cfg.Theme) == "" {
		cfg.Theme = "default"
	}
	if _, ok := styles.Themes[cfg.Theme]; !ok {
		return nil, fmt.Errorf("invalid theme %q", cfg.Theme)
	}

	m := &Model{
		cfg:       cfg,
		theme:     styles.Resolve(cfg.Theme),
		inbox:     deps.Inbox,
		session:   deps.Session,
		intents:   deps.Intents,
		events:    deps.Events,
		store:     deps.Store,
		connected: deps.Events != nil,
		viewStack: []ViewID{ViewInbox},
		views:     make(map[ViewID]viewModel),
	}
	m.initViews()
	return m, nil
}

// Run starts the console and blocks until it exits.
func Run(cfg Config, deps Deps) error {
	model, err := NewModel(cfg, deps)
	if err != nil {
		return err
	}
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// Close flushes the inbox snapshot to the offline cache.
func (m *Model) Close() {
	if m.store == nil {
		return
	}
	if err := m.store.SaveThreads(context.Background(), m.inbox.Threads()); err != nil {
		logging.Warn().Err(err).Msg("failed to persist inbox snapshot")
	}
}

func (m *Model) initViews() {
	m.views[ViewInbox] = newInboxView(m.inbox, m.intents)
	m.views[ViewConversation] = newConversationView(conversationDeps{
		actorID:        m.cfg.ActorID,
		pageSize:       m.cfg.PageSize,
		showTimestamps: m.cfg.ShowTimestamps,
		inbox:          m.inbox,
		session:        m.session,
		intents:        m.intents,
		store:          m.store,
	})
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{}
	if view := m.activeView(); view != nil {
		cmds = append(cmds, view.Init())
	}
	if m.events != nil {
		cmds = append(cmds, waitForEvent(m.events))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case pushEventMsg:
		cmd := m.applyEvent(typed.event)
		return m, tea.Batch(cmd, waitForEvent(m.events))
	case eventsClosedMsg:
		m.connected = false
		return m, nil
	case openThreadMsg:
		m.pushView(ViewConversation)
		if conv, ok := m.views[ViewConversation].(*conversationView); ok {
			return m, conv.Open(typed.id)
		}
		return m, nil
	case popViewMsg:
		m.popView()
		if view := m.activeView(); view != nil {
			return m, view.Init()
		}
		return m, nil
	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(typed); handled {
			return m, cmd
		}
	}

	if active := m.activeView(); active != nil {
		return m, active.Update(msg)
	}
	return m, nil
}

func (m *Model) View() string {
	active := m.activeView()
	if active == nil {
		return "no active view"
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}
	body := active.View(m.width, contentHeight, m.theme)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// handleGlobalKey intercepts app-level keys. On the conversation view
// only control chords are global so plain letters reach the composer.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit, true
	}

	if m.activeViewID() == ViewConversation {
		return nil, false
	}

	switch key {
	case "q":
		return tea.Quit, true
	case "?":
		m.showHelp = !m.showHelp
		return nil, true
	}
	return nil, false
}

// applyEvent folds one push event into the controllers and hands it to
// the conversation view when it affects the open thread.
func (m *Model) applyEvent(event transport.Event) tea.Cmd {
	switch event.Kind {
	case transport.EventMessage:
		if event.Message == nil {
			return nil
		}
		// The frame's thread id routes the event; the embedded message
		// does not always repeat it.
		if event.Message.ThreadID == "" {
			event.Message.ThreadID = event.ThreadID
		}
		m.inbox.ApplyMessage(*event.Message)
		m.session.Reconcile(*event.Message)
	case transport.EventTyping:
		if event.Typing == nil {
			return nil
		}
		m.inbox.ApplyTyping(event.ThreadID, *event.Typing)
	case transport.EventReceipt:
		if event.Receipt == nil {
			return nil
		}
		m.inbox.ApplyReadReceipt(event.ThreadID, *event.Receipt)
	case transport.EventThread:
		if event.Thread == nil {
			return nil
		}
		m.inbox.UpsertThread(*event.Thread)
	}

	if conv, ok := m.views[ViewConversation].(*conversationView); ok {
		return conv.ApplyEvent(event)
	}
	return nil
}

func waitForEvent(events <-chan transport.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return pushEventMsg{event: event}
	}
}

func (m *Model) activeView() viewModel {
	return m.views[m.activeViewID()]
}

func (m *Model) activeViewID() ViewID {
	if len(m.viewStack) == 0 {
		return ViewInbox
	}
	return m.viewStack[len(m.viewStack)-1]
}

func (m *Model) pushView(id ViewID) {
	if _, ok := m.views[id]; !ok {
		return
	}
	if m.activeViewID() == id {
		return
	}
	m.viewStack = append(m.viewStack, id)
}

func (m *Model) popView() {
	if len(m.viewStack) <= 1 {
		return
	}
	m.viewStack = m.viewStack[:len(m.viewStack)-1]
}

func (m *Model) renderHeader() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Base.Foreground)).
		Background(lipgloss.Color(m.theme.Chrome.Header)).
		Bold(true).
		Padding(0, 1)

	left := "Harbordesk"
	center := ""
	if m.cfg.ActorName != "" {
		center = fmt.Sprintf("signed in as %s", m.cfg.ActorName)
	}
	right := m.connectionStatus()
	return style.Width(maxInt(0, m.width)).Render(joinHeader(left, center, right, m.width))
}

func (m *Model) renderFooter() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Base.Foreground)).
		Background(lipgloss.Color(m.theme.Chrome.Footer)).
		Padding(0, 1)

	base := footerHints[m.activeViewID()]
	if m.showHelp {
		base += "  (arrows move, enter confirm)"
	}
	return style.Width(maxInt(0, m.width)).Render(truncate(base, maxInt(0, m.width-2)))
}

var footerHints = map[ViewID]string{
	ViewInbox:        "[enter]Open [p]Pin [u]Unread [o]Pinned [c]Channel [/]Search [?]Help q Quit",
	ViewConversation: "[enter]Send [ctrl+l]Link [ctrl+o]Call [esc]Back ctrl+c Quit",
}

func (m *Model) connectionStatus() string {
	if m.cfg.LocalMode {
		return "local"
	}
	if m.connected {
		return "connected"
	}
	return "disconnected"
}

func joinHeader(left, center, right string, width int) string {
	left = strings.TrimSpace(left)
	center = strings.TrimSpace(center)
	right = strings.TrimSpace(right)
	if width <= 0 {
		return left
	}

	space := width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if space < 2 {
		line := left
		if right != "" {
			line = left + "  " + right
		}
		return truncate(line, width)
	}

	leftGap := space / 2
	rightGap := space - leftGap
	return truncate(left+strings.Repeat(" ", leftGap)+center+strings.Repeat(" ", rightGap)+right, width)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
