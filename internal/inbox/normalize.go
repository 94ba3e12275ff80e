package inbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/harborops/harbordesk/internal/models"
)

// fallbackTitle is used when a thread has neither subject nor participants.
const fallbackTitle = "Conversation"

// NormalizeThread derives the display fields for a raw thread record:
// title, participant names excluding the actor, and a relative-time
// last-activity string. Missing subject, participants, and timestamps all
// degrade to fallbacks; the function never panics on partial data and is
// idempotent, since every derived field is recomputed from the raw fields.
func NormalizeThread(raw models.Thread, actorID int64, now time.Time) models.Thread {
	thread := raw

	names := displayParticipants(raw.Participants, actorID)
	thread.DisplayParticipants = names

	title := strings.TrimSpace(raw.Subject)
	if title == "" && len(names) > 0 {
		title = strings.Join(names, ", ")
	}
	if title == "" {
		title = fallbackTitle
	}
	thread.Title = title

	if raw.LastMessageAt != nil {
		thread.LastActivity = relativeTime(*raw.LastMessageAt, now)
	} else {
		thread.LastActivity = "No messages yet"
	}

	return thread
}

// displayParticipants resolves names excluding the actor. When excluding
// the actor would leave nobody to show, the full participant list is used
// instead.
func displayParticipants(participants []models.Participant, actorID int64) []string {
	if len(participants) == 0 {
		return nil
	}

	others := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.UserID == actorID {
			continue
		}
		others = append(others, p)
	}
	if len(others) == 0 {
		others = participants
	}

	names := make([]string, 0, len(others))
	for _, p := range others {
		names = append(names, p.DisplayName())
	}
	return names
}

// relativeTime renders a short "5m ago" style label.
func relativeTime(at, now time.Time) string {
	delta := now.Sub(at)
	switch {
	case delta < time.Minute:
		return "just now"
	case delta < time.Hour:
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	case delta < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(delta.Hours()))
	case delta < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(delta.Hours()/24))
	default:
		return at.Format("Jan 2, 2006")
	}
}
