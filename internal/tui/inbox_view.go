package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harborops/harbordesk/internal/inbox"
	"github.com/harborops/harbordesk/internal/models"
	"github.com/harborops/harbordesk/internal/transport"
	"github.com/harborops/harbordesk/internal/tui/styles"
)

const intentTimeout = 10 * time.Second

// channelCycle is the order the channel filter steps through; the empty
// leading entry means "all channels".
var channelCycle = []models.ChannelType{
	"",
	models.ChannelDirect,
	models.ChannelMentor,
	models.ChannelSupport,
	models.ChannelHiring,
	models.ChannelMarketing,
	models.ChannelInvestorRelations,
	models.ChannelProduct,
}

type pinToggledMsg struct {
	threadID string
	pinned   bool
	err      error
}

type inboxView struct {
	inbox   *inbox.Controller
	intents transport.Intents

	selected int
	top      int

	searching  bool
	queryInput string
	channelIdx int

	lastErr string
}

func newInboxView(controller *inbox.Controller, intents transport.Intents) *inboxView {
	return &inboxView{
		inbox:   controller,
		intents: intents,
	}
}

func (v *inboxView) Init() tea.Cmd {
	return nil
}

func (v *inboxView) Update(msg tea.Msg) tea.Cmd {
	switch typed := msg.(type) {
	case pinToggledMsg:
		if typed.err != nil {
			v.lastErr = typed.err.Error()
			return nil
		}
		v.lastErr = ""
		v.inbox.SetPinned(typed.threadID, typed.pinned)
		return nil
	case tea.KeyMsg:
		return v.handleKey(typed)
	}
	return nil
}

func (v *inboxView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.searching {
		return v.handleSearchKey(msg)
	}

	switch msg.String() {
	case "j", "down":
		v.moveSelection(1)
	case "k", "up":
		v.moveSelection(-1)
	case "g", "home":
		v.selected = 0
	case "G", "end":
		v.selected = maxInt(0, len(v.rows())-1)
	case "enter":
		if thread := v.selectedThread(); thread != nil {
			return openThreadCmd(thread.ID)
		}
	case "p":
		if thread := v.selectedThread(); thread != nil {
			return v.togglePinCmd(thread.ID, !thread.Pinned)
		}
	case "u":
		filters := v.inbox.Filters()
		filters.UnreadOnly = !filters.UnreadOnly
		v.inbox.SetFilters(filters)
		v.selected = 0
	case "o":
		filters := v.inbox.Filters()
		filters.PinnedOnly = !filters.PinnedOnly
		v.inbox.SetFilters(filters)
		v.selected = 0
	case "c":
		v.cycleChannel()
	case "/":
		v.searching = true
		v.queryInput = v.inbox.Filters().Query
	case "esc":
		v.clearFilters()
	}
	return nil
}

func (v *inboxView) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		v.searching = false
		filters := v.inbox.Filters()
		filters.Query = strings.TrimSpace(v.queryInput)
		v.inbox.SetFilters(filters)
		v.selected = 0
	case "esc":
		v.searching = false
		v.queryInput = ""
	case "backspace":
		if len(v.queryInput) > 0 {
			runes := []rune(v.queryInput)
			v.queryInput = string(runes[:len(runes)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			v.queryInput += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			v.queryInput += " "
		}
	}
	return nil
}

func (v *inboxView) togglePinCmd(threadID string, pinned bool) tea.Cmd {
	intents := v.intents
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		err := intents.TogglePin(ctx, threadID, pinned)
		return pinToggledMsg{threadID: threadID, pinned: pinned, err: err}
	}
}

func (v *inboxView) cycleChannel() {
	v.channelIdx = (v.channelIdx + 1) % len(channelCycle)
	filters := v.inbox.Filters()
	if channelCycle[v.channelIdx] == "" {
		filters.Channels = nil
	} else {
		filters.Channels = []models.ChannelType{channelCycle[v.channelIdx]}
	}
	v.inbox.SetFilters(filters)
	v.selected = 0
}

func (v *inboxView) clearFilters() {
	v.channelIdx = 0
	v.inbox.SetFilters(inbox.Filters{})
	v.selected = 0
}

type inboxRow struct {
	thread *models.Thread
	header string
}

// rows flattens the pinned and unpinned groups with their headers.
func (v *inboxView) rows() []inboxRow {
	pinned, unpinned := v.inbox.Visible()
	rows := make([]inboxRow, 0, len(pinned)+len(unpinned)+2)
	if len(pinned) > 0 {
		rows = append(rows, inboxRow{header: "Pinned"})
		for i := range pinned {
			rows = append(rows, inboxRow{thread: &pinned[i]})
		}
	}
	if len(unpinned) > 0 {
		header := "Conversations"
		if len(pinned) == 0 {
			header = ""
		}
		if header != "" {
			rows = append(rows, inboxRow{header: header})
		}
		for i := range unpinned {
			rows = append(rows, inboxRow{thread: &unpinned[i]})
		}
	}
	return rows
}

func (v *inboxView) moveSelection(delta int) {
	rows := v.rows()
	if len(rows) == 0 {
		v.selected = 0
		return
	}

	next := v.selected + delta
	for next >= 0 && next < len(rows) && rows[next].thread == nil {
		next += delta
	}
	if next < 0 || next >= len(rows) {
		return
	}
	v.selected = next
}

func (v *inboxView) selectedThread() *models.Thread {
	rows := v.rows()
	if v.selected < 0 || v.selected >= len(rows) {
		return nil
	}
	if rows[v.selected].thread == nil {
		// Selection landed on a header after a filter change.
		for i := v.selected; i < len(rows); i++ {
			if rows[i].thread != nil {
				v.selected = i
				return rows[i].thread
			}
		}
		return nil
	}
	return rows[v.selected].thread
}

func (v *inboxView) View(width, height int, theme styles.Theme) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	header := v.renderMetrics(width, theme)
	filterLine := v.renderFilterLine(width, theme)

	bodyHeight := height - lipgloss.Height(header) - lipgloss.Height(filterLine)
	if v.lastErr != "" {
		bodyHeight--
	}
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	body := v.renderRows(width, bodyHeight, theme)
	content := lipgloss.JoinVertical(lipgloss.Left, header, filterLine, body)
	if v.lastErr != "" {
		errLine := theme.Error().Render(truncate("error: "+v.lastErr, maxInt(0, width-2)))
		content = lipgloss.JoinVertical(lipgloss.Left, content, errLine)
	}
	return content
}

func (v *inboxView) renderMetrics(width int, theme styles.Theme) string {
	m := v.inbox.Metrics()
	line := fmt.Sprintf("%d conversations · %d pinned · %d unread · %d escalated · %d collaborators",
		m.Total, m.Pinned, m.Unread, m.Escalated, m.Collaborators)
	if m.AvgResponseMinutes > 0 {
		line += fmt.Sprintf(" · avg response %.0fm", m.AvgResponseMinutes)
	}
	return theme.Muted().Render(truncate(line, maxInt(0, width)))
}

func (v *inboxView) renderFilterLine(width int, theme styles.Theme) string {
	if v.searching {
		return theme.Accent().Render(truncate("search: "+v.queryInput+"▌", maxInt(0, width)))
	}

	filters := v.inbox.Filters()
	parts := []string{}
	if filters.PinnedOnly {
		parts = append(parts, "pinned")
	}
	if filters.UnreadOnly {
		parts = append(parts, "unread")
	}
	if len(filters.Channels) > 0 {
		parts = append(parts, "channel:"+string(filters.Channels[0]))
	}
	if filters.Query != "" {
		parts = append(parts, fmt.Sprintf("query:%q", filters.Query))
	}
	if len(parts) == 0 {
		return theme.Muted().Render("all conversations")
	}
	return theme.Accent().Render(truncate("filters: "+strings.Join(parts, " "), maxInt(0, width)))
}

func (v *inboxView) renderRows(width, height int, theme styles.Theme) string {
	rows := v.rows()
	if len(rows) == 0 {
		return theme.Muted().Render("No conversations match the current filters.")
	}

	if v.selected >= len(rows) {
		v.selected = len(rows) - 1
	}
	if v.selected < v.top {
		v.top = v.selected
	}
	if v.selected >= v.top+height {
		v.top = v.selected - height + 1
	}

	lines := make([]string, 0, height)
	for i := v.top; i < len(rows) && len(lines) < height; i++ {
		lines = append(lines, v.renderRow(rows[i], i == v.selected, width, theme))
	}
	return strings.Join(lines, "\n")
}

func (v *inboxView) renderRow(row inboxRow, selected bool, width int, theme styles.Theme) string {
	if row.thread == nil {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.Pinned)).Bold(true)
		return style.Render(truncate(row.header, maxInt(0, width)))
	}

	t := row.thread
	marker := "  "
	if t.Unread() {
		marker = "● "
	}

	badge := ""
	if t.UnreadCount != nil && *t.UnreadCount > 0 {
		badge = fmt.Sprintf(" (%d)", *t.UnreadCount)
	}
	channel := string(t.Channel)
	if channel != "" {
		channel = " [" + channel + "]"
	}
	escalated := ""
	if t.Escalated() {
		escalated = " !"
	}

	line := fmt.Sprintf("%s%s%s%s%s · %s", marker, t.Title, badge, channel, escalated, t.LastActivity)
	if typing := v.inbox.TypingLine(t.ID); typing != "" {
		line = fmt.Sprintf("%s · %s", line, typing)
	} else if t.LastMessage != "" {
		line = fmt.Sprintf("%s · %s", line, t.LastMessage)
	}
	line = truncate(line, maxInt(0, width))

	switch {
	case selected:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Chrome.SelectedItem)).
			Bold(true).
			Render(line)
	case t.Unread():
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Status.Unread)).
			Render(line)
	case t.Escalated():
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Priority.High)).
			Render(line)
	default:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Base.Foreground)).
			Render(line)
	}
}
