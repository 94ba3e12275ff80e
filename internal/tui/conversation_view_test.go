package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborops/harbordesk/internal/inbox"
	"github.com/harborops/harbordesk/internal/models"
	"github.com/harborops/harbordesk/internal/session"
	"github.com/harborops/harbordesk/internal/timeline"
	"github.com/harborops/harbordesk/internal/transport"
	"github.com/harborops/harbordesk/internal/tui/styles"
)

const testActor = int64(7)

func collectMsgs(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collectMsgs(t, c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func deliver(t *testing.T, v *conversationView, cmd tea.Cmd) {
	t.Helper()
	for _, msg := range collectMsgs(t, cmd) {
		deliver(t, v, func() tea.Cmd {
			return v.Update(msg)
		}())
	}
}

func seededBackend(t *testing.T, history int) *transport.LocalIntents {
	t.Helper()
	local := transport.NewLocalIntents(testActor)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sender := int64(3)
	msgs := make([]models.Message, 0, history)
	for i := 0; i < history; i++ {
		msgs = append(msgs, models.Message{
			ID:        "m" + string(rune('a'+i)),
			Body:      "message body",
			SenderID:  &sender,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Type:      models.MessageTypeText,
		})
	}
	local.Seed("support-9", msgs)
	return local
}

func newTestConversation(t *testing.T, intents transport.Intents, pageSize int) (*conversationView, *inbox.Controller, *session.Session) {
	t.Helper()
	controller := inbox.NewController(testActor)
	counter := 2
	last := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	controller.SetThreads([]models.Thread{
		{
			ID:            "support-9",
			Subject:       "Refund stuck",
			Channel:       models.ChannelSupport,
			UnreadCount:   &counter,
			LastMessageAt: &last,
		},
		{ID: "direct-4", Subject: "Quick sync", Channel: models.ChannelDirect},
	})

	sess := session.New(testActor)
	view := newConversationView(conversationDeps{
		actorID:  testActor,
		pageSize: pageSize,
		inbox:    controller,
		session:  sess,
		intents:  intents,
	})
	// Establish dimensions the way the app shell would.
	view.View(80, 24, styles.DefaultTheme)
	return view, controller, sess
}

func TestOpenLoadsInitialPage(t *testing.T) {
	local := seededBackend(t, 3)
	view, _, _ := newTestConversation(t, local, 10)

	deliver(t, view, view.Open("support-9"))

	require.Len(t, view.messages, 3)
	assert.False(t, view.vp.Loading())
	assert.False(t, view.vp.HasMore(), "three messages fit in one page of ten")
	assert.Contains(t, view.View(80, 24, styles.DefaultTheme), "message body")
}

func TestUpAtTopRequestsOlderPageOnce(t *testing.T) {
	local := seededBackend(t, 5)
	view, _, _ := newTestConversation(t, local, 2)

	deliver(t, view, view.Open("support-9"))
	require.Len(t, view.messages, 2)
	require.True(t, view.vp.HasMore())

	view.scrollTop = 0
	cmd := view.Update(tea.KeyMsg{Type: tea.KeyUp})
	require.NotNil(t, cmd)
	assert.True(t, view.vp.Loading())

	// A second scroll while loading must not start another load.
	assert.Nil(t, view.Update(tea.KeyMsg{Type: tea.KeyUp}))

	deliver(t, view, cmd)
	assert.Len(t, view.messages, 4)
	assert.False(t, view.vp.Loading())
}

func TestSendFlowClearsComposer(t *testing.T) {
	local := seededBackend(t, 1)
	view, controller, sess := newTestConversation(t, local, 10)
	deliver(t, view, view.Open("support-9"))

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("on my way")})
	require.Equal(t, "on my way", sess.Composer())

	cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, sess.Sending())
	require.Len(t, sess.Echoes("support-9"), 1, "optimistic echo appended at send time")

	deliver(t, view, cmd)

	assert.False(t, sess.Sending())
	assert.Empty(t, sess.Composer())
	echoes := sess.Echoes("support-9")
	require.Len(t, echoes, 1)
	assert.False(t, echoes[0].Local, "canonical copy superseded the echo")

	thread := controller.Get("support-9")
	require.NotNil(t, thread)
	assert.Equal(t, "on my way", thread.LastMessage)
}

func TestBlankSendRejectedWithoutTransportCall(t *testing.T) {
	local := seededBackend(t, 1)
	view, _, sess := newTestConversation(t, local, 10)
	deliver(t, view, view.Open("support-9"))

	cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd, "no transport call for a blank draft")
	assert.NotEmpty(t, sess.Err())
	assert.Contains(t, view.View(80, 24, styles.DefaultTheme), sess.Err())
}

func TestThreadSwitchDiscardsStaleSend(t *testing.T) {
	local := seededBackend(t, 1)
	view, _, sess := newTestConversation(t, local, 10)
	deliver(t, view, view.Open("support-9"))

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("reply to support")})
	cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	// User switches before the send completes.
	deliver(t, view, view.Open("direct-4"))
	assert.Empty(t, sess.Composer())
	assert.Nil(t, sess.ActiveCall())

	deliver(t, view, cmd)
	assert.Empty(t, sess.Composer(), "stale completion must not disturb the new thread")
	assert.Empty(t, sess.Err())
}

func TestIncomingMessageFollowsBottom(t *testing.T) {
	local := seededBackend(t, 2)
	view, _, _ := newTestConversation(t, local, 10)
	deliver(t, view, view.Open("support-9"))
	view.View(80, 24, styles.DefaultTheme)

	sender := int64(3)
	cmd := view.ApplyEvent(transport.Event{
		Kind:     transport.EventMessage,
		ThreadID: "support-9",
		Message: &models.Message{
			ID:        "push-1",
			Body:      "fresh push",
			SenderID:  &sender,
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Type:      models.MessageTypeText,
		},
	})

	assert.Len(t, view.messages, 3)
	assert.NotNil(t, cmd, "viewer at bottom marks the thread read")
	assert.Contains(t, view.View(80, 24, styles.DefaultTheme), "fresh push")
}

func TestLongIncomingMessageFollowsFromInsideBand(t *testing.T) {
	local := seededBackend(t, 80)
	view, _, _ := newTestConversation(t, local, 200)
	deliver(t, view, view.Open("support-9"))
	view.View(80, 24, styles.DefaultTheme)

	maxScroll := len(view.timelineLines(view.contentWidth())) - view.bodyHeight
	require.Greater(t, maxScroll, timeline.AutoFollowThreshold)

	// Park the viewer inside the follow band but well above the bottom,
	// then render so the viewport observes that position.
	view.scrollToBottom()
	view.scrollBy(-(timeline.AutoFollowThreshold - 10))
	view.View(80, 24, styles.DefaultTheme)
	require.True(t, view.vp.AtBottom())

	sender := int64(3)
	view.ApplyEvent(transport.Event{
		Kind:     transport.EventMessage,
		ThreadID: "support-9",
		Message: &models.Message{
			ID:        "push-long",
			Body:      strings.Repeat("the payout ledger entry needs another compliance pass ", 30),
			SenderID:  &sender,
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Type:      models.MessageTypeText,
		},
	})

	newMax := len(view.timelineLines(view.contentWidth())) - view.bodyHeight
	require.Greater(t, newMax-maxScroll, 10, "long body wraps past the band slack")
	assert.Equal(t, newMax, view.scrollTop, "follow decision uses the position before the append")
}

func TestEventsForOtherThreadsIgnored(t *testing.T) {
	local := seededBackend(t, 2)
	view, _, _ := newTestConversation(t, local, 10)
	deliver(t, view, view.Open("support-9"))

	cmd := view.ApplyEvent(transport.Event{
		Kind:     transport.EventMessage,
		ThreadID: "direct-4",
		Message:  &models.Message{ID: "other-1", Body: "elsewhere"},
	})

	assert.Nil(t, cmd)
	assert.Len(t, view.messages, 2)
}

func TestReceiptEventUpdatesSeenLine(t *testing.T) {
	local := seededBackend(t, 2)
	view, _, _ := newTestConversation(t, local, 10)
	deliver(t, view, view.Open("support-9"))

	view.ApplyEvent(transport.Event{
		Kind:     transport.EventReceipt,
		ThreadID: "support-9",
		Receipt: &models.ReadReceipt{
			UserID: 3,
			ReadAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			User:   &models.User{FirstName: "Brooke"},
		},
	})

	assert.Contains(t, view.View(80, 24, styles.DefaultTheme), "Seen by Brooke")
}

func TestLinkPromptValidation(t *testing.T) {
	local := seededBackend(t, 1)
	view, _, sess := newTestConversation(t, local, 10)
	deliver(t, view, view.Open("support-9"))

	view.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	require.True(t, view.linkPrompt)
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("not a url")})
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, view.linkPrompt)
	assert.Empty(t, sess.Attachments())
	assert.NotEmpty(t, sess.Err())

	view.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("https://harborops.dev/doc.pdf")})
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Len(t, sess.Attachments(), 1)
	assert.Empty(t, sess.Err())
}

func TestCallBannerFromTimelineEvent(t *testing.T) {
	local := transport.NewLocalIntents(testActor)
	expires := time.Now().Add(time.Hour).Format(time.RFC3339)
	local.Seed("support-9", []models.Message{
		{
			ID:        "call-ev",
			CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Type:      models.MessageTypeEvent,
			Metadata: &models.Metadata{
				EventType: "call",
				Call:      &models.CallMetadata{ID: "call-1", Type: models.CallVoice, ExpiresAt: expires},
			},
		},
	})
	view, _, _ := newTestConversation(t, local, 10)
	deliver(t, view, view.Open("support-9"))

	out := view.View(80, 24, styles.DefaultTheme)
	assert.Contains(t, out, "voice call in progress")
}

func TestExpiredCallShowsEnded(t *testing.T) {
	local := transport.NewLocalIntents(testActor)
	expired := time.Now().Add(-time.Hour).Format(time.RFC3339)
	local.Seed("support-9", []models.Message{
		{
			ID:        "call-ev",
			CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Type:      models.MessageTypeEvent,
			Metadata: &models.Metadata{
				EventType: "call",
				Call:      &models.CallMetadata{ID: "call-1", Type: models.CallVideo, ExpiresAt: expired},
			},
		},
	})
	view, _, _ := newTestConversation(t, local, 10)
	deliver(t, view, view.Open("support-9"))

	out := view.View(80, 24, styles.DefaultTheme)
	assert.Contains(t, out, "video call ended")
	assert.NotContains(t, out, "ctrl+j to join")
}
