package inbox

import (
	"strings"

	"github.com/harborops/harbordesk/internal/models"
)

// Predicate decides whether a thread stays in view.
type Predicate func(*models.Thread) bool

// And combines predicates; a thread passes only if every predicate passes.
func And(preds ...Predicate) Predicate {
	return func(t *models.Thread) bool {
		for _, pred := range preds {
			if pred != nil && !pred(t) {
				return false
			}
		}
		return true
	}
}

// PinnedOnly keeps only pinned threads.
func PinnedOnly() Predicate {
	return func(t *models.Thread) bool { return t.Pinned }
}

// UnreadOnly keeps only threads with unseen activity.
func UnreadOnly() Predicate {
	return func(t *models.Thread) bool { return t.Unread() }
}

// Channels keeps threads in any of the given channels. An empty selection
// means no channel filtering.
func Channels(selected ...models.ChannelType) Predicate {
	if len(selected) == 0 {
		return func(*models.Thread) bool { return true }
	}
	set := make(map[models.ChannelType]struct{}, len(selected))
	for _, ch := range selected {
		set[ch] = struct{}{}
	}
	return func(t *models.Thread) bool {
		_, ok := set[t.Channel]
		return ok
	}
}

// Query keeps threads where the free-text query matches the subject,
// preview text, any resolved participant name, or any label. Matching is
// a case-insensitive substring test; any single field hit is enough.
func Query(query string) Predicate {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return func(*models.Thread) bool { return true }
	}
	return func(t *models.Thread) bool {
		if strings.Contains(strings.ToLower(t.Subject), query) {
			return true
		}
		if strings.Contains(strings.ToLower(t.Title), query) {
			return true
		}
		if strings.Contains(strings.ToLower(t.LastMessage), query) {
			return true
		}
		for _, name := range t.DisplayParticipants {
			if strings.Contains(strings.ToLower(name), query) {
				return true
			}
		}
		for _, label := range t.Labels {
			if strings.Contains(strings.ToLower(label), query) {
				return true
			}
		}
		return false
	}
}

// Filters is the inbox filter state. Predicate composes the pipeline in
// its fixed order: pinned, unread, channel set, free-text query.
type Filters struct {
	PinnedOnly bool
	UnreadOnly bool
	Channels   []models.ChannelType
	Query      string
}

// Predicate builds the combined filter predicate.
func (f Filters) Predicate() Predicate {
	preds := make([]Predicate, 0, 4)
	if f.PinnedOnly {
		preds = append(preds, PinnedOnly())
	}
	if f.UnreadOnly {
		preds = append(preds, UnreadOnly())
	}
	preds = append(preds, Channels(f.Channels...), Query(f.Query))
	return And(preds...)
}
