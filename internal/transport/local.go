package transport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/harbordesk/internal/models"
)

// LocalIntents is the demo/offline Intents implementation: it keeps
// per-thread history in memory, synthesizes canonical copies of sent
// drafts, and serves backward pages from its own store. Used when no
// gateway is configured so the console works end to end without a
// platform.
type LocalIntents struct {
	actorID int64
	now     func() time.Time

	mu       sync.Mutex
	messages map[string][]models.Message
	pinned   map[string]bool
	readAt   map[string]time.Time
}

// LocalOption configures LocalIntents.
type LocalOption func(*LocalIntents)

// WithLocalNow overrides the clock, for tests.
func WithLocalNow(now func() time.Time) LocalOption {
	return func(l *LocalIntents) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLocalIntents creates a local backend acting for the given actor.
func NewLocalIntents(actorID int64, opts ...LocalOption) *LocalIntents {
	l := &LocalIntents{
		actorID:  actorID,
		now:      func() time.Time { return time.Now().UTC() },
		messages: make(map[string][]models.Message),
		pinned:   make(map[string]bool),
		readAt:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Seed loads history for a thread, replacing anything already there.
func (l *LocalIntents) Seed(threadID string, messages []models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	history := make([]models.Message, len(messages))
	copy(history, messages)
	for i := range history {
		history[i].ThreadID = threadID
		history[i].Seq = i
	}
	models.SortMessages(history)
	l.messages[threadID] = history
}

// SendMessage synthesizes the canonical copy of a draft.
func (l *LocalIntents) SendMessage(ctx context.Context, threadID string, draft Draft) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	if threadID == "" {
		return models.Message{}, models.ErrMissingThreadID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	actor := l.actorID
	msg := models.Message{
		ID:          uuid.New().String(),
		ThreadID:    threadID,
		Body:        draft.Body,
		SenderID:    &actor,
		CreatedAt:   l.now(),
		Type:        models.MessageTypeText,
		Attachments: draft.Attachments,
		Seq:         len(l.messages[threadID]),
	}
	l.messages[threadID] = append(l.messages[threadID], msg)
	return msg, nil
}

// LoadOlderMessages serves one backward page strictly older than the
// cursor message.
func (l *LocalIntents) LoadOlderMessages(ctx context.Context, threadID, beforeCursor string, limit int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if limit <= 0 {
		limit = 50
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.messages[threadID]
	end := len(history)
	if beforeCursor != "" {
		end = 0
		for i := range history {
			if history[i].ID == beforeCursor {
				end = i
				break
			}
		}
	}

	start := end - limit
	if start < 0 {
		start = 0
	}
	page := make([]models.Message, end-start)
	copy(page, history[start:end])
	return Page{Messages: page, HasMore: start > 0}, nil
}

// MarkThreadRead records the actor's read position.
func (l *LocalIntents) MarkThreadRead(ctx context.Context, threadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readAt[threadID] = l.now()
	return nil
}

// TogglePin flips local pin state.
func (l *LocalIntents) TogglePin(ctx context.Context, threadID string, pinned bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pinned[threadID] = pinned
	return nil
}

// StartCall opens a short-lived local call and appends its event message.
func (l *LocalIntents) StartCall(ctx context.Context, threadID string, kind models.CallType) (*models.CallMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	meta := &models.CallMetadata{
		ID:           uuid.New().String(),
		Type:         kind,
		Participants: []models.Participant{{UserID: l.actorID}},
		ExpiresAt:    now.Add(time.Hour).Format(time.RFC3339),
	}
	event := models.Message{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		CreatedAt: now,
		Type:      models.MessageTypeEvent,
		Metadata:  &models.Metadata{EventType: "call", Call: meta},
		Seq:       len(l.messages[threadID]),
	}
	l.messages[threadID] = append(l.messages[threadID], event)
	return meta, nil
}

// JoinCall is a no-op locally.
func (l *LocalIntents) JoinCall(ctx context.Context, _ *models.CallMetadata) error {
	return ctx.Err()
}

// Threads lists the thread ids with local history, for demo seeding.
func (l *LocalIntents) Threads() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.messages))
	for id := range l.messages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ Intents = (*LocalIntents)(nil)
