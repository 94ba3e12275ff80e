package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/harborops/harbordesk/internal/cache"
	"github.com/harborops/harbordesk/internal/calls"
	"github.com/harborops/harbordesk/internal/inbox"
	"github.com/harborops/harbordesk/internal/models"
	"github.com/harborops/harbordesk/internal/presence"
	"github.com/harborops/harbordesk/internal/session"
	"github.com/harborops/harbordesk/internal/timeline"
	"github.com/harborops/harbordesk/internal/transport"
	"github.com/harborops/harbordesk/internal/tui/styles"
)

type pageLoadedMsg struct {
	threadID string
	token    timeline.LoadToken
	page     transport.Page
	err      error
}

type sendDoneMsg struct {
	threadID string
	token    session.SendToken
	msg      models.Message
	err      error
}

type callDoneMsg struct {
	token session.CallToken
	meta  *models.CallMetadata
	err   error
}

type readMarkedMsg struct {
	threadID string
	err      error
}

type conversationDeps struct {
	actorID        int64
	pageSize       int
	showTimestamps bool
	inbox          *inbox.Controller
	session        *session.Session
	intents        transport.Intents
	store          *cache.Cache
}

// conversationView renders the open thread: a scrollable timeline above
// a composer. Scroll behavior (auto-follow, anchor-preserving backward
// pagination, single-flight load-more) is delegated to timeline.Viewport;
// this view translates rendered line counts into viewport metrics.
type conversationView struct {
	conversationDeps

	vp       *timeline.Viewport
	threadID string

	messages []models.Message
	receipts []models.ReadReceipt

	scrollTop  int
	lastWidth  int
	lastHeight int
	lastTheme  styles.Theme
	bodyHeight int

	linkPrompt bool
	linkInput  string
	lastErr    string
}

func newConversationView(deps conversationDeps) *conversationView {
	return &conversationView{
		conversationDeps: deps,
		vp:               timeline.NewViewport(),
	}
}

func (v *conversationView) Init() tea.Cmd {
	return nil
}

// Open switches the view to a thread and kicks off the initial history
// load. Reopening the already-open thread just refreshes the read marker.
func (v *conversationView) Open(threadID string) tea.Cmd {
	if threadID == v.threadID {
		return v.markReadCmd()
	}

	v.threadID = threadID
	v.session.Select(threadID)
	v.messages = nil
	v.receipts = nil
	v.scrollTop = 0
	v.linkPrompt = false
	v.linkInput = ""
	v.lastErr = ""
	v.vp.Reset(true)

	if v.store != nil {
		if draft, err := v.store.Draft(context.Background(), threadID); err == nil {
			v.session.SetComposer(draft)
		}
	}

	return tea.Batch(v.loadOlderCmd(), v.markReadCmd())
}

func (v *conversationView) Update(msg tea.Msg) tea.Cmd {
	switch typed := msg.(type) {
	case pageLoadedMsg:
		return v.applyPage(typed)
	case sendDoneMsg:
		return v.applySendResult(typed)
	case callDoneMsg:
		v.session.FinishStartCall(typed.token, typed.meta, typed.err)
		return nil
	case readMarkedMsg:
		if typed.err == nil && typed.threadID == v.threadID {
			v.inbox.MarkRead(typed.threadID)
		}
		return nil
	case tea.KeyMsg:
		return v.handleKey(typed)
	}
	return nil
}

// ApplyEvent folds a push event affecting the open thread into the view.
// Events for other threads were already applied to the inbox controller
// and are ignored here.
func (v *conversationView) ApplyEvent(event transport.Event) tea.Cmd {
	if v.threadID == "" || event.ThreadID != v.threadID {
		return nil
	}

	switch event.Kind {
	case transport.EventMessage:
		if event.Message == nil {
			return nil
		}
		v.appendMessage(*event.Message)
		if v.vp.AtBottom() {
			return v.markReadCmd()
		}
	case transport.EventReceipt:
		if event.Receipt == nil {
			return nil
		}
		v.applyReceipt(*event.Receipt)
	}
	return nil
}

// appendMessage inserts an incoming message by id, keeping createdAt
// order, then lets the viewport decide whether to follow the bottom.
func (v *conversationView) appendMessage(msg models.Message) {
	for i := range v.messages {
		if v.messages[i].ID == msg.ID {
			return
		}
	}
	msg.Seq = len(v.messages)
	v.messages = append(v.messages, msg)
	models.SortMessages(v.messages)

	// The follow decision uses the geometry observed at the last render,
	// before the append changed the content height.
	if v.vp.OnContentChanged(v.visibleCount()) == timeline.EffectScrollToBottom {
		v.scrollToBottom()
	}
	v.syncViewport()
}

func (v *conversationView) applyReceipt(r models.ReadReceipt) {
	for i := range v.receipts {
		if v.receipts[i].UserID == r.UserID {
			v.receipts[i] = r
			return
		}
	}
	v.receipts = append(v.receipts, r)
}

func (v *conversationView) applyPage(msg pageLoadedMsg) tea.Cmd {
	if msg.threadID == v.threadID && msg.err == nil {
		prepended := make([]models.Message, 0, len(msg.page.Messages)+len(v.messages))
		prepended = append(prepended, msg.page.Messages...)
		prepended = append(prepended, v.messages...)
		for i := range prepended {
			prepended[i].Seq = i
		}
		v.messages = prepended

		for i := range msg.page.Messages {
			v.session.Reconcile(msg.page.Messages[i])
			v.seedReceipts(msg.page.Messages[i].ReadReceipts)
		}
	}

	newHeight := len(v.timelineLines(v.contentWidth()))
	scrollTop, applied := v.vp.FinishLoadOlder(msg.token, newHeight, msg.page.HasMore, msg.err)
	if applied {
		v.scrollTop = scrollTop
	}
	if msg.err != nil && msg.threadID == v.threadID {
		v.lastErr = msg.err.Error()
	}
	return nil
}

func (v *conversationView) seedReceipts(receipts []models.ReadReceipt) {
	for _, r := range receipts {
		existing := false
		for i := range v.receipts {
			if v.receipts[i].UserID == r.UserID {
				existing = true
				if r.ReadAt.After(v.receipts[i].ReadAt) {
					v.receipts[i] = r
				}
				break
			}
		}
		if !existing {
			v.receipts = append(v.receipts, r)
		}
	}
}

func (v *conversationView) applySendResult(msg sendDoneMsg) tea.Cmd {
	applied := v.session.FinishSend(msg.token, msg.msg, msg.err)
	if !applied {
		return nil
	}

	v.inbox.ApplyMessage(msg.msg)
	var cmds []tea.Cmd
	if v.store != nil {
		threadID := msg.threadID
		store := v.store
		cmds = append(cmds, func() tea.Msg {
			_ = store.DeleteDraft(context.Background(), threadID)
			return nil
		})
	}
	if v.vp.OnContentChanged(v.visibleCount()) == timeline.EffectScrollToBottom {
		v.scrollToBottom()
	}
	v.syncViewport()
	return tea.Batch(cmds...)
}

func (v *conversationView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.linkPrompt {
		return v.handleLinkKey(msg)
	}

	switch msg.String() {
	case "esc":
		return tea.Batch(v.saveDraftCmd(), popViewCmd())
	case "up":
		if v.scrollTop == 0 {
			return v.loadOlderCmd()
		}
		v.scrollBy(-1)
	case "down":
		v.scrollBy(1)
	case "pgup":
		if v.scrollTop == 0 {
			return v.loadOlderCmd()
		}
		v.scrollBy(-maxInt(1, v.bodyHeight-1))
	case "pgdown":
		v.scrollBy(maxInt(1, v.bodyHeight-1))
	case "end":
		v.scrollToBottom()
		return v.markReadCmd()
	case "enter":
		return v.sendCmd()
	case "ctrl+l":
		v.linkPrompt = true
		v.linkInput = ""
	case "ctrl+o":
		return v.startCallCmd()
	case "ctrl+j":
		return v.joinCallCmd()
	case "backspace":
		text := v.session.Composer()
		if len(text) > 0 {
			runes := []rune(text)
			v.session.SetComposer(string(runes[:len(runes)-1]))
		}
	default:
		if msg.Type == tea.KeyRunes {
			v.session.SetComposer(v.session.Composer() + string(msg.Runes))
		} else if msg.Type == tea.KeySpace {
			v.session.SetComposer(v.session.Composer() + " ")
		}
	}
	return nil
}

func (v *conversationView) handleLinkKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		v.linkPrompt = false
		_ = v.session.AttachLink(v.linkInput, "")
		v.linkInput = ""
	case "esc":
		v.linkPrompt = false
		v.linkInput = ""
	case "backspace":
		if len(v.linkInput) > 0 {
			runes := []rune(v.linkInput)
			v.linkInput = string(runes[:len(runes)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			v.linkInput += string(msg.Runes)
		}
	}
	return nil
}

// loadOlderCmd starts one backward page. The viewport refuses to start a
// second load while one is in flight or when history is exhausted.
func (v *conversationView) loadOlderCmd() tea.Cmd {
	token, ok := v.vp.BeginLoadOlder()
	if !ok {
		return nil
	}

	threadID := v.threadID
	cursor := ""
	if len(v.messages) > 0 {
		cursor = v.messages[0].ID
	}
	intents := v.intents
	pageSize := v.pageSize

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		page, err := intents.LoadOlderMessages(ctx, threadID, cursor, pageSize)
		return pageLoadedMsg{threadID: threadID, token: token, page: page, err: err}
	}
}

func (v *conversationView) sendCmd() tea.Cmd {
	token, draft, err := v.session.BeginSend()
	if err != nil {
		// Validation failures stay local; session.Err carries the banner.
		return nil
	}

	if v.vp.OnContentChanged(v.visibleCount()) == timeline.EffectScrollToBottom {
		v.scrollToBottom()
	}
	v.syncViewport()

	threadID := v.threadID
	intents := v.intents
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		msg, sendErr := intents.SendMessage(ctx, threadID, draft)
		return sendDoneMsg{threadID: threadID, token: token, msg: msg, err: sendErr}
	}
}

func (v *conversationView) startCallCmd() tea.Cmd {
	token, err := v.session.BeginStartCall()
	if err != nil {
		return nil
	}

	threadID := v.threadID
	intents := v.intents
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		meta, callErr := intents.StartCall(ctx, threadID, models.CallVideo)
		return callDoneMsg{token: token, meta: meta, err: callErr}
	}
}

func (v *conversationView) joinCallCmd() tea.Cmd {
	meta := v.activeCall()
	if meta == nil {
		return nil
	}
	intents := v.intents
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		_ = intents.JoinCall(ctx, meta)
		return nil
	}
}

func (v *conversationView) markReadCmd() tea.Cmd {
	threadID := v.threadID
	if threadID == "" {
		return nil
	}
	intents := v.intents
	store := v.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		err := intents.MarkThreadRead(ctx, threadID)
		if err == nil && store != nil {
			_ = store.SaveReadMarker(ctx, threadID, time.Now().UTC())
		}
		return readMarkedMsg{threadID: threadID, err: err}
	}
}

func (v *conversationView) saveDraftCmd() tea.Cmd {
	if v.store == nil || v.threadID == "" {
		return nil
	}
	threadID := v.threadID
	body := v.session.Composer()
	store := v.store
	return func() tea.Msg {
		_ = store.SaveDraft(context.Background(), threadID, body)
		return nil
	}
}

// activeCall returns the call to banner: the session's own call first,
// otherwise the newest still-active call event in the timeline.
func (v *conversationView) activeCall() *models.CallMetadata {
	if meta := v.session.ActiveCall(); meta != nil {
		return meta
	}
	now := time.Now()
	for i := len(v.messages) - 1; i >= 0; i-- {
		if meta := calls.Info(&v.messages[i]); meta != nil && calls.IsActive(meta, now) {
			return meta
		}
	}
	return nil
}

func (v *conversationView) visibleMessages() []models.Message {
	echoes := v.session.Echoes(v.threadID)
	out := make([]models.Message, 0, len(v.messages)+len(echoes))
	out = append(out, v.messages...)
	// Echoes sit at the end of the known sequence; they are not
	// re-sorted unless the canonical copy arrives.
	out = append(out, echoes...)
	return out
}

func (v *conversationView) visibleCount() int {
	return len(v.messages) + len(v.session.Echoes(v.threadID))
}

func (v *conversationView) contentWidth() int {
	return maxInt(20, v.lastWidth)
}

func (v *conversationView) scrollBy(delta int) {
	v.scrollTop += delta
	v.clampScroll()
}

func (v *conversationView) scrollToBottom() {
	v.scrollTop = maxInt(0, len(v.timelineLines(v.contentWidth()))-maxInt(1, v.bodyHeight))
}

func (v *conversationView) clampScroll() {
	maxScroll := maxInt(0, len(v.timelineLines(v.contentWidth()))-maxInt(1, v.bodyHeight))
	if v.scrollTop > maxScroll {
		v.scrollTop = maxScroll
	}
	if v.scrollTop < 0 {
		v.scrollTop = 0
	}
}

func (v *conversationView) syncViewport() {
	v.vp.Observe(timeline.Metrics{
		ScrollTop:      v.scrollTop,
		ScrollHeight:   len(v.timelineLines(v.contentWidth())),
		ViewportHeight: maxInt(1, v.bodyHeight),
	})
}

func (v *conversationView) View(width, height int, theme styles.Theme) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	v.lastWidth = width
	v.lastHeight = height
	v.lastTheme = theme

	header := v.renderHeader(width, theme)
	footer := v.renderComposer(width, theme)
	banner := v.renderCallBanner(width, theme)
	presenceLine := v.renderPresence(width, theme)

	chrome := lipgloss.Height(header) + lipgloss.Height(footer)
	if banner != "" {
		chrome += lipgloss.Height(banner)
	}
	if presenceLine != "" {
		chrome += lipgloss.Height(presenceLine)
	}

	v.bodyHeight = maxInt(1, height-chrome)
	lines := v.timelineLines(width)
	v.clampScroll()
	v.syncViewport()

	body := v.renderWindow(lines, theme)

	sections := []string{header}
	if banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections, body)
	if presenceLine != "" {
		sections = append(sections, presenceLine)
	}
	sections = append(sections, footer)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *conversationView) renderWindow(lines []string, theme styles.Theme) string {
	if len(lines) == 0 {
		empty := "No messages yet"
		if v.vp.Loading() {
			empty = "Loading conversation…"
		}
		return theme.Muted().Render(empty)
	}

	start := v.scrollTop
	if start > len(lines) {
		start = len(lines)
	}
	end := start + v.bodyHeight
	if end > len(lines) {
		end = len(lines)
	}

	window := make([]string, 0, v.bodyHeight)
	if start == 0 && v.vp.Loading() {
		window = append(window, theme.Muted().Render("loading older messages…"))
	}
	window = append(window, lines[start:end]...)
	return strings.Join(window, "\n")
}

func (v *conversationView) renderHeader(width int, theme styles.Theme) string {
	thread := v.inbox.Get(v.threadID)
	title := "Conversation"
	sub := ""
	if thread != nil {
		title = thread.Title
		parts := []string{}
		if thread.Channel != "" {
			parts = append(parts, string(thread.Channel))
		}
		if len(thread.DisplayParticipants) > 0 {
			parts = append(parts, strings.Join(thread.DisplayParticipants, ", "))
		}
		sub = strings.Join(parts, " · ")
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Base.Foreground)).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color(theme.Base.Border))
	line := title
	if sub != "" {
		line = fmt.Sprintf("%s  %s", title, sub)
	}
	return style.Render(truncate(line, maxInt(0, width)))
}

func (v *conversationView) renderCallBanner(width int, theme styles.Theme) string {
	meta := v.activeCall()
	if meta == nil {
		return ""
	}
	kind := "call"
	if meta.Type != "" {
		kind = string(meta.Type) + " call"
	}
	line := fmt.Sprintf("● %s in progress · ctrl+j to join", kind)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Status.Call)).Bold(true)
	return style.Render(truncate(line, maxInt(0, width)))
}

func (v *conversationView) renderPresence(width int, theme styles.Theme) string {
	lines := []string{}
	if typing := v.inbox.TypingLine(v.threadID); typing != "" {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Status.Typing)).
			Render(truncate(typing, maxInt(0, width))))
	}
	if summary := presence.ReadReceiptSummary(v.receipts, v.actorID); summary != "" {
		lines = append(lines, theme.Muted().Render(truncate("Seen by "+summary, maxInt(0, width))))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func (v *conversationView) renderComposer(width int, theme styles.Theme) string {
	lines := []string{}

	if v.lastErr != "" {
		lines = append(lines, theme.Error().Render(truncate("error: "+v.lastErr, maxInt(0, width))))
	}
	if sessErr := v.session.Err(); sessErr != "" {
		lines = append(lines, theme.Error().Render(truncate(sessErr, maxInt(0, width))))
	}

	if v.linkPrompt {
		lines = append(lines, theme.Accent().Render(truncate("link: "+v.linkInput+"▌", maxInt(0, width))))
	}

	prompt := "> " + v.session.Composer()
	if attachments := v.session.Attachments(); len(attachments) > 0 {
		prompt += fmt.Sprintf(" [%d attachment(s)]", len(attachments))
	}
	if v.session.Sending() {
		prompt += " …sending"
	} else {
		prompt += "▌"
	}
	lines = append(lines, lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Message.Own)).
		Render(truncate(prompt, maxInt(0, width))))

	return strings.Join(lines, "\n")
}

// timelineLines renders every visible message into terminal lines; the
// line count doubles as the viewport's scroll height.
func (v *conversationView) timelineLines(width int) []string {
	messages := v.visibleMessages()
	if len(messages) == 0 {
		return nil
	}

	wrapWidth := maxInt(10, width-2)
	lines := make([]string, 0, len(messages)*3)
	now := time.Now()

	ownStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(v.lastTheme.Message.Own))
	otherStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(v.lastTheme.Message.Other))
	systemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(v.lastTheme.Message.System))

	for i := range messages {
		msg := &messages[i]
		if i > 0 {
			lines = append(lines, "")
		}

		if calls.IsCallEvent(msg) {
			lines = append(lines, systemStyle.Render(v.renderCallEventLine(msg, now, wrapWidth)))
			continue
		}

		headerStyle := otherStyle
		if msg.BelongsTo(v.actorID) {
			headerStyle = ownStyle
		}
		lines = append(lines, headerStyle.Render(v.renderMessageHeader(msg, wrapWidth)))
		body := msg.Body
		if body == "" && len(msg.Attachments) == 0 {
			body = "—"
		}
		if body != "" {
			for _, wrapped := range strings.Split(wordwrap.String(body, wrapWidth), "\n") {
				lines = append(lines, "  "+wrapped)
			}
		}
		for _, a := range msg.Attachments {
			name := a.Name
			if name == "" {
				name = a.URL
			}
			lines = append(lines, truncate("  ⎘ "+name, wrapWidth))
		}
	}
	return lines
}

func (v *conversationView) renderMessageHeader(msg *models.Message, width int) string {
	name := msg.SenderName()
	if msg.BelongsTo(v.actorID) {
		name = "You"
	}
	header := name
	if v.showTimestamps && !msg.CreatedAt.IsZero() {
		header = fmt.Sprintf("%s · %s", name, msg.CreatedAt.Local().Format("Jan 2 15:04"))
	}
	if msg.Local {
		header += " · sending…"
	}
	return truncate(header, width)
}

func (v *conversationView) renderCallEventLine(msg *models.Message, now time.Time, width int) string {
	meta := calls.Info(msg)
	kind := "call"
	if meta != nil && meta.Type != "" {
		kind = string(meta.Type) + " call"
	}
	state := "ended"
	if calls.IsActive(meta, now) {
		state = "in progress"
	}
	return truncate(fmt.Sprintf("— %s %s —", kind, state), width)
}
