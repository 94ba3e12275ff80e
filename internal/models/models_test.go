package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParticipantDisplayNameFallbacks(t *testing.T) {
	full := Participant{UserID: 7, User: &User{FirstName: "Brooke", LastName: "硕"}}
	require.Equal(t, "Brooke 硕", full.DisplayName())

	firstOnly := Participant{UserID: 7, User: &User{FirstName: "Brooke"}}
	require.Equal(t, "Brooke", firstOnly.DisplayName())

	anonymous := Participant{UserID: 42}
	require.Equal(t, "User 42", anonymous.DisplayName())

	emptyProfile := Participant{UserID: 9, User: &User{Email: "x@example.com"}}
	require.Equal(t, "User 9", emptyProfile.DisplayName())
}

func TestThreadUnreadCounterIsSoleSignal(t *testing.T) {
	past := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	later := past.Add(time.Hour)

	zero := 0
	read := Thread{UnreadCount: &zero, LastMessageAt: &later}
	require.False(t, read.Unread(), "counter present and zero wins over timestamps")

	three := 3
	unread := Thread{UnreadCount: &three}
	require.True(t, unread.Unread())
}

func TestThreadUnreadDerivedFromTimestamps(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	th := Thread{LastMessageAt: &t2, Viewer: ViewerState{LastReadAt: &t1}}
	require.True(t, th.Unread())

	th.Viewer.LastReadAt = &t3
	require.False(t, th.Unread())

	neverRead := Thread{LastMessageAt: &t2}
	require.True(t, neverRead.Unread())

	noActivity := Thread{}
	require.False(t, noActivity.Unread())
}

func TestThreadEscalated(t *testing.T) {
	require.True(t, (&Thread{Priority: PriorityHigh}).Escalated())
	require.True(t, (&Thread{State: ThreadStateEscalated}).Escalated())
	require.False(t, (&Thread{Priority: PriorityMedium, State: ThreadStateActive}).Escalated())
}

func TestMessageSenderName(t *testing.T) {
	system := Message{}
	require.Equal(t, "System", system.SenderName())

	id := int64(12)
	named := Message{SenderID: &id, Sender: &User{FirstName: "Alex", LastName: "Rivera"}}
	require.Equal(t, "Alex Rivera", named.SenderName())

	unnamed := Message{SenderID: &id}
	require.Equal(t, "User 12", unnamed.SenderName())
}

func TestMessageBelongsTo(t *testing.T) {
	id := int64(5)
	msg := Message{SenderID: &id}
	require.True(t, msg.BelongsTo(5))
	require.False(t, msg.BelongsTo(6))
	require.False(t, msg.BelongsTo(0))
	require.False(t, (&Message{}).BelongsTo(5))
}

func TestSortMessagesBreaksTiesByInsertionOrder(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		{ID: "c", CreatedAt: at.Add(time.Second), Seq: 2},
		{ID: "b", CreatedAt: at, Seq: 1},
		{ID: "a", CreatedAt: at, Seq: 0},
	}
	SortMessages(msgs)
	require.Equal(t, "a", msgs[0].ID)
	require.Equal(t, "b", msgs[1].ID)
	require.Equal(t, "c", msgs[2].ID)
}

func TestValidationErrorsAggregate(t *testing.T) {
	v := &ValidationErrors{}
	require.NoError(t, v.Err())

	v.Add("body", ErrEmptyMessage)
	v.AddMessage("link", "not absolute")

	err := v.Err()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEmptyMessage))
	require.Contains(t, err.Error(), "body")
	require.Contains(t, err.Error(), "link: not absolute")
}

func TestValidationErrorsNestedFieldJoin(t *testing.T) {
	inner := &ValidationErrors{}
	inner.AddMessage("url", "missing scheme")

	outer := &ValidationErrors{}
	outer.Add("attachment", inner.Err())

	require.Equal(t, "attachment.url", outer.Errors[0].Field)
}
