package inbox

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborops/harbordesk/internal/models"
)

func fixedNow() func() time.Time {
	return func() time.Time { return testNow }
}

func intp(n int) *int { return &n }

func timep(t time.Time) *time.Time { return &t }

func seedThreads() []models.Thread {
	return []models.Thread{
		{
			ID:      "support-9",
			Subject: "Refund dispute",
			Channel: models.ChannelSupport,
			Pinned:  true,
			Labels:  []string{"refunds"},
			Participants: []models.Participant{
				{UserID: 1, User: &models.User{FirstName: "Me"}},
				{UserID: 2, User: &models.User{FirstName: "Brooke"}},
			},
			LastMessageAt:   timep(testNow.Add(-10 * time.Minute)),
			UnreadCount:     intp(2),
			ResponseMinutes: 12,
		},
		{
			ID:      "hiring-3",
			Channel: models.ChannelHiring,
			State:   models.ThreadStateEscalated,
			Participants: []models.Participant{
				{UserID: 1, User: &models.User{FirstName: "Me"}},
				{UserID: 3, User: &models.User{FirstName: "Alex", LastName: "Rivera"}},
			},
			LastMessageAt:   timep(testNow.Add(-time.Hour)),
			ResponseMinutes: 30,
		},
		{
			ID:            "direct-4",
			Channel:       models.ChannelDirect,
			Participants:  []models.Participant{{UserID: 4}},
			LastMessageAt: timep(testNow.Add(-2 * time.Hour)),
			Viewer:        models.ViewerState{LastReadAt: timep(testNow.Add(-time.Hour))},
		},
	}
}

func seededController(t *testing.T) *Controller {
	t.Helper()
	c := NewController(1, WithNow(fixedNow()))
	c.SetThreads(seedThreads())
	return c
}

func TestVisibleSeparatesPinnedGroups(t *testing.T) {
	c := seededController(t)
	pinned, unpinned := c.Visible()
	require.Len(t, pinned, 1)
	require.Equal(t, "support-9", pinned[0].ID)
	require.Len(t, unpinned, 2)
	require.Equal(t, "hiring-3", unpinned[0].ID, "most recent unpinned first")
}

func TestVisibleAppliesFilterPipeline(t *testing.T) {
	c := seededController(t)

	c.SetFilters(Filters{UnreadOnly: true})
	pinned, unpinned := c.Visible()
	require.Len(t, pinned, 1)
	require.Len(t, unpinned, 1)
	require.Equal(t, "hiring-3", unpinned[0].ID, "read thread filtered out")

	c.SetFilters(Filters{Channels: []models.ChannelType{models.ChannelSupport, models.ChannelDirect}})
	pinned, unpinned = c.Visible()
	require.Len(t, pinned, 1)
	require.Len(t, unpinned, 1)
	require.Equal(t, "direct-4", unpinned[0].ID)

	c.SetFilters(Filters{Query: "rivera"})
	pinned, unpinned = c.Visible()
	require.Empty(t, pinned)
	require.Len(t, unpinned, 1)
	require.Equal(t, "hiring-3", unpinned[0].ID, "participant name matches")

	c.SetFilters(Filters{Query: "refunds"})
	pinned, _ = c.Visible()
	require.Len(t, pinned, 1, "label matches")
}

func TestMetricsOverUnfilteredSet(t *testing.T) {
	c := seededController(t)
	c.SetFilters(Filters{Query: "no such thing"})

	m := c.Metrics()
	require.Equal(t, 3, m.Total)
	require.Equal(t, 1, m.Pinned)
	require.Equal(t, 2, m.Unread)
	require.Equal(t, 1, m.Escalated)
	require.Equal(t, 4, m.Collaborators)
	require.InDelta(t, 21.0, m.AvgResponseMinutes, 0.001)
}

func TestMetricsIgnoresNonFiniteResponseTimes(t *testing.T) {
	threads := []models.Thread{
		{ID: "a", ResponseMinutes: 10},
		{ID: "b", ResponseMinutes: math.Inf(1)},
		{ID: "c", ResponseMinutes: math.NaN()},
		{ID: "d", ResponseMinutes: -5},
		{ID: "e"},
	}
	m := ComputeMetrics(threads)
	require.InDelta(t, 10.0, m.AvgResponseMinutes, 0.001)
}

func TestApplyMessageBumpsThread(t *testing.T) {
	c := seededController(t)
	sender := int64(2)
	c.ApplyMessage(models.Message{
		ID:        "m-new",
		ThreadID:  "support-9",
		Body:      "any update?",
		SenderID:  &sender,
		CreatedAt: testNow,
	})

	th := c.Get("support-9")
	require.NotNil(t, th)
	require.Equal(t, "any update?", th.LastMessage)
	require.Equal(t, testNow, *th.LastMessageAt)
	require.Equal(t, 3, *th.UnreadCount)
}

func TestApplyMessageOwnMessageDoesNotIncrementUnread(t *testing.T) {
	c := seededController(t)
	actor := int64(1)
	c.ApplyMessage(models.Message{ID: "m", ThreadID: "support-9", SenderID: &actor, CreatedAt: testNow})
	require.Equal(t, 2, *c.Get("support-9").UnreadCount)
}

func TestApplyMessageUnknownThreadIgnored(t *testing.T) {
	c := seededController(t)
	c.ApplyMessage(models.Message{ID: "m", ThreadID: "gone", CreatedAt: testNow})
	require.Equal(t, 3, c.Len())
}

func TestMarkReadClearsCounterAndMovesViewer(t *testing.T) {
	c := seededController(t)
	c.MarkRead("support-9")

	th := c.Get("support-9")
	require.Equal(t, 0, *th.UnreadCount)
	require.Equal(t, testNow, *th.Viewer.LastReadAt)
	require.False(t, th.Unread())
}

func TestApplyReadReceiptOtherUserIgnored(t *testing.T) {
	c := seededController(t)
	c.ApplyReadReceipt("support-9", models.ReadReceipt{UserID: 2, ReadAt: testNow})
	require.Equal(t, 2, *c.Get("support-9").UnreadCount)
}

func TestTypingLineSupersedesPerUser(t *testing.T) {
	c := seededController(t)
	soon := testNow.Add(5 * time.Second)
	c.ApplyTyping("support-9", models.TypingSignal{UserID: 2, DisplayName: "Brooke", ExpiresAt: &soon})
	c.ApplyTyping("support-9", models.TypingSignal{UserID: 2, DisplayName: "Brooke", ExpiresAt: &soon})

	require.Equal(t, "Brooke is typing…", c.TypingLine("support-9"))
}

func TestTypingLineExpires(t *testing.T) {
	c := seededController(t)
	gone := testNow.Add(-time.Second)
	c.ApplyTyping("support-9", models.TypingSignal{UserID: 2, DisplayName: "Brooke", ExpiresAt: &gone})
	require.Empty(t, c.TypingLine("support-9"))
}

func TestSetThreadsDropsStaleTyping(t *testing.T) {
	c := seededController(t)
	c.ApplyTyping("support-9", models.TypingSignal{UserID: 2, DisplayName: "Brooke"})
	c.SetThreads([]models.Thread{{ID: "other"}})
	require.Empty(t, c.TypingLine("support-9"))
}

func TestSetPinned(t *testing.T) {
	c := seededController(t)
	c.SetPinned("hiring-3", true)
	pinned, _ := c.Visible()
	require.Len(t, pinned, 2)
}

func TestUpsertThreadReplacesExisting(t *testing.T) {
	c := seededController(t)
	c.UpsertThread(models.Thread{
		ID:            "support-9",
		Subject:       "Refund dispute, round two",
		Channel:       models.ChannelSupport,
		LastMessageAt: timep(testNow.Add(-time.Minute)),
	})
	require.Equal(t, 3, c.Len())
	got := c.Get("support-9")
	require.NotNil(t, got)
	require.Equal(t, "Refund dispute, round two", got.Title)
}

func TestUpsertThreadAppendsAndNormalizes(t *testing.T) {
	c := seededController(t)
	c.UpsertThread(models.Thread{
		ID:      "mentor-2",
		Channel: models.ChannelMentor,
		Participants: []models.Participant{
			{UserID: 1, User: &models.User{FirstName: "Me"}},
			{UserID: 5, User: &models.User{FirstName: "Morgan"}},
		},
	})
	require.Equal(t, 4, c.Len())
	got := c.Get("mentor-2")
	require.NotNil(t, got)
	require.Equal(t, "Morgan", got.Title)

	c.UpsertThread(models.Thread{})
	require.Equal(t, 4, c.Len())
}
