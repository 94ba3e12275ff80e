package cli

import (
	"fmt"
	"time"

	"github.com/harborops/harbordesk/internal/inbox"
	"github.com/harborops/harbordesk/internal/models"
	"github.com/harborops/harbordesk/internal/transport"
)

// Demo participants. IDs above 1 so the signed-in actor never collides
// with them regardless of configuration.
var demoUsers = map[int64]*models.User{
	3: {FirstName: "Brooke", LastName: "Hale", Email: "brooke@harborops.dev"},
	4: {FirstName: "Devon", LastName: "Reyes", Email: "devon@harborops.dev"},
	5: {FirstName: "Casey", LastName: "Lin", Email: "casey@harborops.dev"},
	6: {FirstName: "Morgan", LastName: "Ota", Email: "morgan@harborops.dev"},
}

// seedDemo populates the in-memory transport and the inbox with sample
// conversations so the console is explorable without a gateway.
func seedDemo(actorID int64, controller *inbox.Controller) *transport.LocalIntents {
	now := time.Now().UTC()
	intents := transport.NewLocalIntents(actorID)

	threads := []models.Thread{
		{
			ID:       "support-9",
			Subject:  "Payout stuck in review",
			Channel:  models.ChannelSupport,
			State:    models.ThreadStateEscalated,
			Priority: models.PriorityUrgent,
			Pinned:   true,
			Participants: []models.Participant{
				{UserID: 3, User: demoUsers[3]},
				{UserID: 5, User: demoUsers[5]},
			},
			Support:         &models.SupportCase{AssignedTo: "Casey Lin", Status: "open", Priority: models.PriorityUrgent},
			ResponseMinutes: 42,
		},
		{
			ID:      "direct-4",
			Channel: models.ChannelDirect,
			State:   models.ThreadStateActive,
			Participants: []models.Participant{
				{UserID: 4, User: demoUsers[4]},
			},
			ResponseMinutes: 12,
		},
		{
			ID:       "hiring-3",
			Subject:  "Senior backend loop",
			Channel:  models.ChannelHiring,
			State:    models.ThreadStateActive,
			Priority: models.PriorityHigh,
			Participants: []models.Participant{
				{UserID: 6, User: demoUsers[6]},
			},
		},
		{
			ID:      "mentor-2",
			Subject: "Q3 pricing review",
			Channel: models.ChannelMentor,
			State:   models.ThreadStateActive,
			Participants: []models.Participant{
				{UserID: 3, User: demoUsers[3]},
				{UserID: 4, User: demoUsers[4]},
			},
		},
	}

	histories := map[string][]models.Message{
		"support-9": demoHistory("support-9", now.Add(-4*time.Hour), []demoLine{
			{sender: 3, body: "Hey, my payout from last week still shows as in review."},
			{sender: 5, body: "Looking into it now, pulling the ledger entry."},
			{sender: 3, body: "Thanks. The bank side shows nothing pending."},
			{sender: 5, body: "Found it, compliance flagged the amount. Escalating."},
		}),
		"direct-4": demoHistory("direct-4", now.Add(-30*time.Minute), []demoLine{
			{sender: 4, body: "Are you around for a quick sync on the onboarding doc?"},
			{sender: 4, body: "No rush, tomorrow works too."},
		}),
		"hiring-3": demoHistory("hiring-3", now.Add(-26*time.Hour), []demoLine{
			{sender: 6, body: "Panel feedback is in for the backend candidate."},
			{sender: 6, body: "Strong yes from two, leaning yes from one. Debrief Friday?"},
		}),
		"mentor-2": demoHistory("mentor-2", now.Add(-3*24*time.Hour), []demoLine{
			{sender: 3, body: "Sharing the pricing deck ahead of Thursday."},
			{sender: 4, body: "The tiered model on slide 8 is the one to push on."},
		}),
	}
	for id, history := range histories {
		intents.Seed(id, history)
	}

	// Stamp previews and read state so unread derivation has signal:
	// the direct thread is unseen, everything else was read after its
	// last activity.
	for i := range threads {
		history := histories[threads[i].ID]
		if len(history) == 0 {
			continue
		}
		last := history[len(history)-1]
		threads[i].LastMessage = last.Body
		at := last.CreatedAt
		threads[i].LastMessageAt = &at
		if threads[i].ID != "direct-4" {
			readAt := at.Add(time.Minute)
			threads[i].Viewer.LastReadAt = &readAt
		}
	}

	controller.SetThreads(threads)
	return intents
}

type demoLine struct {
	sender int64
	body   string
}

// demoHistory spaces lines a few minutes apart starting at the given time.
func demoHistory(threadID string, start time.Time, lines []demoLine) []models.Message {
	msgs := make([]models.Message, 0, len(lines))
	for i, line := range lines {
		sender := line.sender
		msgs = append(msgs, models.Message{
			ID:        fmt.Sprintf("%s-seed-%d", threadID, i+1),
			Body:      line.body,
			SenderID:  &sender,
			Sender:    demoUsers[sender],
			CreatedAt: start.Add(time.Duration(i) * 4 * time.Minute),
			Type:      models.MessageTypeText,
		})
	}
	return msgs
}
