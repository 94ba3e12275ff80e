package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborops/harbordesk/internal/inbox"
)

func TestSeedDemoPopulatesInboxAndTransport(t *testing.T) {
	controller := inbox.NewController(1)
	intents := seedDemo(1, controller)

	require.Equal(t, 4, controller.Len())
	assert.ElementsMatch(t, []string{"direct-4", "hiring-3", "mentor-2", "support-9"}, intents.Threads())

	support := controller.Get("support-9")
	require.NotNil(t, support)
	assert.True(t, support.Pinned)
	assert.False(t, support.Unread(), "support thread was read after its last message")
	assert.NotEmpty(t, support.LastMessage)

	direct := controller.Get("direct-4")
	require.NotNil(t, direct)
	assert.True(t, direct.Unread(), "direct thread has no read position")

	page, err := intents.LoadOlderMessages(context.Background(), "support-9", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 4)
	assert.False(t, page.HasMore)
	assert.Equal(t, "Brooke Hale", page.Messages[0].SenderName())
}

func TestSeedDemoHistoryIsChronological(t *testing.T) {
	intents := seedDemo(1, inbox.NewController(1))

	page, err := intents.LoadOlderMessages(context.Background(), "mentor-2", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.True(t, page.Messages[0].CreatedAt.Before(page.Messages[1].CreatedAt))
	assert.Equal(t, "mentor-2", page.Messages[0].ThreadID)
}
