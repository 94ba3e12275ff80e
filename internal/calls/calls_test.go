package calls

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborops/harbordesk/internal/models"
)

func TestIsCallEventRequiresEventTypeAndMetadata(t *testing.T) {
	text := &models.Message{Type: models.MessageTypeText, Metadata: &models.Metadata{EventType: EventTypeCall}}
	require.False(t, IsCallEvent(text))
	require.Nil(t, Info(text))

	otherEvent := &models.Message{Type: models.MessageTypeEvent, Metadata: &models.Metadata{EventType: "listing_published"}}
	require.False(t, IsCallEvent(otherEvent))

	bareEvent := &models.Message{Type: models.MessageTypeEvent}
	require.False(t, IsCallEvent(bareEvent))

	call := &models.Message{
		Type:     models.MessageTypeEvent,
		Metadata: &models.Metadata{EventType: EventTypeCall, Call: &models.CallMetadata{ID: "c1", Type: models.CallVideo}},
	}
	require.True(t, IsCallEvent(call))
	require.Equal(t, "c1", Info(call).ID)

	require.False(t, IsCallEvent(nil))
}

func TestIsActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, IsActive(nil, now), "no metadata means no call")
	require.True(t, IsActive(&models.CallMetadata{}, now), "no expiry means active")

	future := &models.CallMetadata{ExpiresAt: now.Add(time.Minute).Format(time.RFC3339)}
	require.True(t, IsActive(future, now))

	past := &models.CallMetadata{ExpiresAt: now.Add(-time.Minute).Format(time.RFC3339)}
	require.False(t, IsActive(past, now))

	exact := &models.CallMetadata{ExpiresAt: now.Format(time.RFC3339)}
	require.False(t, IsActive(exact, now), "expiry must be strictly in the future")

	garbage := &models.CallMetadata{ExpiresAt: "not-a-date"}
	require.True(t, IsActive(garbage, now), "unparsable expiry fails open")
}
