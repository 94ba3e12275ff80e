// Package presence reduces read-receipt and typing records into short
// human-readable summaries for tight inbox rows. Both summarizers are pure:
// they take the clock as a parameter and never mutate their inputs.
package presence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harborops/harbordesk/internal/models"
)

// maxReceiptNames is the largest receipt set rendered in full; beyond it
// the summary collapses to the two most recent readers plus a count.
const maxReceiptNames = 3

// ReadReceiptSummary renders the receipts on a message as a single line,
// excluding the actor's own receipt. The most recent readers come first.
// Returns "" when no receipts remain after filtering.
func ReadReceiptSummary(receipts []models.ReadReceipt, actorID int64) string {
	remaining := make([]models.ReadReceipt, 0, len(receipts))
	for _, r := range receipts {
		if r.UserID == actorID {
			continue
		}
		remaining = append(remaining, r)
	}
	if len(remaining) == 0 {
		return ""
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].ReadAt.After(remaining[j].ReadAt)
	})

	names := make([]string, 0, len(remaining))
	for _, r := range remaining {
		names = append(names, models.Participant{UserID: r.UserID, User: r.User}.DisplayName())
	}

	if len(names) <= maxReceiptNames {
		return joinNames(names)
	}
	shown := names[:2]
	return fmt.Sprintf("%s, and %d more", joinNames(shown), len(names)-len(shown))
}

// TypingSummary renders active typing signals as "X is typing…" or
// "X and Y are typing…", excluding the actor and any signal whose expiry
// has elapsed. A signal with no expiry counts as still typing. Returns ""
// when nobody remains.
func TypingSummary(signals []models.TypingSignal, actorID int64, now time.Time) string {
	names := make([]string, 0, len(signals))
	for _, s := range signals {
		if s.UserID == actorID {
			continue
		}
		if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			continue
		}
		name := strings.TrimSpace(s.DisplayName)
		if name == "" {
			name = fmt.Sprintf("User %d", s.UserID)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}

	verb := "are"
	if len(names) == 1 {
		verb = "is"
	}
	return fmt.Sprintf("%s %s typing…", joinNames(names), verb)
}

// joinNames joins with ", " except the last pair, which reads " and ".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
