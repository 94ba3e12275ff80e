package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborops/harbordesk/internal/models"
)

func TestDecodeEventMessage(t *testing.T) {
	raw := []byte(`{"kind":"message","thread_id":"support-9","payload":{"id":"m1","body":"hello","sender_id":7}}`)

	event, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, EventMessage, event.Kind)
	assert.Equal(t, "support-9", event.ThreadID)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hello", event.Message.Body)
	assert.Equal(t, "support-9", event.Message.ThreadID, "frame thread id stamped onto payload")
}

func TestDecodeEventTyping(t *testing.T) {
	raw := []byte(`{"kind":"typing","thread_id":"direct-4","payload":{"user_id":3,"display_name":"Brooke"}}`)

	event, err := DecodeEvent(raw)
	require.NoError(t, err)
	require.NotNil(t, event.Typing)
	assert.Equal(t, int64(3), event.Typing.UserID)
	assert.Equal(t, "Brooke", event.Typing.DisplayName)
}

func TestDecodeEventRejectsMissingThread(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"kind":"message","payload":{"id":"m1"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thread id")
}

func TestDecodeEventRejectsUnknownKind(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"kind":"reaction","thread_id":"direct-4","payload":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown push kind")
}

func TestDecodeEventRejectsMalformedFrame(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"kind":`))
	require.Error(t, err)
}

func seedHistory(t *testing.T, local *LocalIntents, threadID string, n int) []models.Message {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sender := int64(3)
	messages := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		messages = append(messages, models.Message{
			ID:        "m" + string(rune('a'+i)),
			Body:      "note",
			SenderID:  &sender,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Type:      models.MessageTypeText,
		})
	}
	local.Seed(threadID, messages)
	return messages
}

func TestLocalIntentsPaging(t *testing.T) {
	local := NewLocalIntents(7)
	seedHistory(t, local, "support-9", 5)

	// First page from the newest.
	page, err := local.LoadOlderMessages(context.Background(), "support-9", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "md", page.Messages[0].ID)
	assert.Equal(t, "me", page.Messages[1].ID)

	// Next page is strictly older than the first page's oldest message.
	page, err = local.LoadOlderMessages(context.Background(), "support-9", "md", 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "mb", page.Messages[0].ID)
	assert.Equal(t, "mc", page.Messages[1].ID)

	// Final page exhausts the history.
	page, err = local.LoadOlderMessages(context.Background(), "support-9", "mb", 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, "ma", page.Messages[0].ID)
}

func TestLocalIntentsSendSynthesizesCanonicalMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := NewLocalIntents(7, WithLocalNow(func() time.Time { return now }))

	msg, err := local.SendMessage(context.Background(), "direct-4", Draft{Body: "on my way"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "direct-4", msg.ThreadID)
	assert.Equal(t, "on my way", msg.Body)
	require.NotNil(t, msg.SenderID)
	assert.Equal(t, int64(7), *msg.SenderID)
	assert.True(t, msg.CreatedAt.Equal(now))

	page, err := local.LoadOlderMessages(context.Background(), "direct-4", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, msg.ID, page.Messages[0].ID)
}

func TestLocalIntentsSendRequiresThreadID(t *testing.T) {
	local := NewLocalIntents(7)

	_, err := local.SendMessage(context.Background(), "", Draft{Body: "lost"})
	require.ErrorIs(t, err, models.ErrMissingThreadID)
	assert.Empty(t, local.Threads())
}

func TestLocalIntentsStartCallAppendsEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := NewLocalIntents(7, WithLocalNow(func() time.Time { return now }))

	meta, err := local.StartCall(context.Background(), "direct-4", models.CallVideo)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, models.CallVideo, meta.Type)
	assert.Equal(t, now.Add(time.Hour).Format(time.RFC3339), meta.ExpiresAt)

	page, err := local.LoadOlderMessages(context.Background(), "direct-4", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, models.MessageTypeEvent, page.Messages[0].Type)
	require.NotNil(t, page.Messages[0].Metadata)
	assert.Equal(t, meta.ID, page.Messages[0].Metadata.Call.ID)
}

func TestLocalIntentsHonorsContext(t *testing.T) {
	local := NewLocalIntents(7)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := local.SendMessage(ctx, "direct-4", Draft{Body: "x"})
	require.Error(t, err)
	_, err = local.LoadOlderMessages(ctx, "direct-4", "", 10)
	require.Error(t, err)
	require.Error(t, local.MarkThreadRead(ctx, "direct-4"))
}
