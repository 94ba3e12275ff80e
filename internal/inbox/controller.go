package inbox

import (
	"sort"
	"time"

	"github.com/harborops/harbordesk/internal/models"
	"github.com/harborops/harbordesk/internal/presence"
)

// Controller owns the full thread collection for the inbox list: it
// normalizes incoming records, applies the filter pipeline, splits pinned
// from unpinned threads, tracks typing signals per thread, and computes
// inbox-level metrics. It is driven from the UI event loop and is not
// safe for concurrent use.
type Controller struct {
	actorID int64
	now     func() time.Time

	threads []models.Thread
	index   map[string]int
	filters Filters
	typing  map[string][]models.TypingSignal
}

// Option configures a Controller.
type Option func(*Controller)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates an inbox controller for the given actor.
func NewController(actorID int64, opts ...Option) *Controller {
	c := &Controller{
		actorID: actorID,
		now:     func() time.Time { return time.Now().UTC() },
		index:   make(map[string]int),
		typing:  make(map[string][]models.TypingSignal),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetThreads replaces the collection with freshly-fetched records. Each
// record is normalized on ingest; stale typing signals for threads that
// disappeared are dropped.
func (c *Controller) SetThreads(raw []models.Thread) {
	now := c.now()
	c.threads = make([]models.Thread, 0, len(raw))
	c.index = make(map[string]int, len(raw))
	for _, t := range raw {
		if t.ID == "" {
			continue
		}
		if _, exists := c.index[t.ID]; exists {
			continue
		}
		c.index[t.ID] = len(c.threads)
		c.threads = append(c.threads, NormalizeThread(t, c.actorID, now))
	}
	for id := range c.typing {
		if _, ok := c.index[id]; !ok {
			delete(c.typing, id)
		}
	}
}

// UpsertThread folds a pushed thread record into the collection,
// replacing the existing entry or appending a new one.
func (c *Controller) UpsertThread(raw models.Thread) {
	if raw.ID == "" {
		return
	}
	normalized := NormalizeThread(raw, c.actorID, c.now())
	if idx, ok := c.index[raw.ID]; ok {
		c.threads[idx] = normalized
		return
	}
	c.index[raw.ID] = len(c.threads)
	c.threads = append(c.threads, normalized)
}

// Len returns the unfiltered thread count.
func (c *Controller) Len() int { return len(c.threads) }

// Get returns the thread by id, or nil.
func (c *Controller) Get(id string) *models.Thread {
	idx, ok := c.index[id]
	if !ok {
		return nil
	}
	return &c.threads[idx]
}

// Threads returns the unfiltered collection with display fields refreshed
// against the current clock.
func (c *Controller) Threads() []models.Thread {
	now := c.now()
	out := make([]models.Thread, len(c.threads))
	for i := range c.threads {
		out[i] = NormalizeThread(c.threads[i], c.actorID, now)
	}
	return out
}

// SetFilters replaces the filter state.
func (c *Controller) SetFilters(f Filters) { c.filters = f }

// Filters returns the current filter state.
func (c *Controller) Filters() Filters { return c.filters }

// Visible returns the pinned and unpinned groups, each independently
// subject to the filter pipeline and ordered by recency.
func (c *Controller) Visible() (pinned, unpinned []models.Thread) {
	pred := c.filters.Predicate()
	now := c.now()

	for i := range c.threads {
		t := NormalizeThread(c.threads[i], c.actorID, now)
		if !pred(&t) {
			continue
		}
		if t.Pinned {
			pinned = append(pinned, t)
		} else {
			unpinned = append(unpinned, t)
		}
	}
	sortByRecency(pinned)
	sortByRecency(unpinned)
	return pinned, unpinned
}

// Metrics aggregates over the unfiltered collection.
func (c *Controller) Metrics() Metrics {
	return ComputeMetrics(c.threads)
}

// ApplyMessage folds a new-message push event into list state: it bumps
// the thread's preview and last activity, and when the platform maintains
// an unread counter, increments it for messages the actor did not author.
// Unknown thread ids are ignored.
func (c *Controller) ApplyMessage(msg models.Message) {
	idx, ok := c.index[msg.ThreadID]
	if !ok {
		return
	}
	t := &c.threads[idx]

	at := msg.CreatedAt
	if t.LastMessageAt == nil || at.After(*t.LastMessageAt) {
		t.LastMessageAt = &at
	}
	if msg.Body != "" {
		t.LastMessage = msg.Body
	}
	if t.UnreadCount != nil && !msg.BelongsTo(c.actorID) {
		n := *t.UnreadCount + 1
		t.UnreadCount = &n
	}
	*t = NormalizeThread(*t, c.actorID, c.now())
}

// ApplyReadReceipt folds a read-receipt push event into list state. Only
// the actor's own receipt moves the viewer read position.
func (c *Controller) ApplyReadReceipt(threadID string, r models.ReadReceipt) {
	idx, ok := c.index[threadID]
	if !ok {
		return
	}
	if r.UserID != c.actorID {
		return
	}
	t := &c.threads[idx]
	at := r.ReadAt
	if t.Viewer.LastReadAt == nil || at.After(*t.Viewer.LastReadAt) {
		t.Viewer.LastReadAt = &at
	}
	if t.UnreadCount != nil {
		zero := 0
		t.UnreadCount = &zero
	}
}

// MarkRead records that the actor has viewed the thread up to now.
func (c *Controller) MarkRead(threadID string) {
	c.ApplyReadReceipt(threadID, models.ReadReceipt{UserID: c.actorID, ReadAt: c.now()})
}

// SetPinned updates a thread's pinned flag.
func (c *Controller) SetPinned(threadID string, pinned bool) {
	if t := c.Get(threadID); t != nil {
		t.Pinned = pinned
	}
}

// ApplyTyping folds a typing push event in, superseding any earlier
// signal from the same user on the same thread.
func (c *Controller) ApplyTyping(threadID string, signal models.TypingSignal) {
	if _, ok := c.index[threadID]; !ok {
		return
	}
	signals := c.typing[threadID]
	replaced := false
	for i := range signals {
		if signals[i].UserID == signal.UserID {
			signals[i] = signal
			replaced = true
			break
		}
	}
	if !replaced {
		signals = append(signals, signal)
	}
	c.typing[threadID] = signals
}

// TypingLine renders the typing summary for a thread, dropping expired
// signals as a side effect so the map does not grow without bound.
func (c *Controller) TypingLine(threadID string) string {
	signals := c.typing[threadID]
	if len(signals) == 0 {
		return ""
	}
	now := c.now()

	kept := signals[:0]
	for _, s := range signals {
		if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		delete(c.typing, threadID)
		return ""
	}
	c.typing[threadID] = kept

	return presence.TypingSummary(kept, c.actorID, now)
}

func sortByRecency(threads []models.Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		left, right := threads[i].LastMessageAt, threads[j].LastMessageAt
		switch {
		case left == nil && right == nil:
			return threads[i].Title < threads[j].Title
		case left == nil:
			return false
		case right == nil:
			return true
		default:
			return left.After(*right)
		}
	})
}
