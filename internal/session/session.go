// Package session owns the state of the open conversation: composer
// draft, send-in-flight flag, pending attachments, active call, and the
// per-thread local echo buffer. Like the timeline viewport, async work is
// split into Begin/Finish pairs carrying a token so that completions
// arriving after a thread switch are discarded instead of mutating the
// now-active thread.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/harbordesk/internal/models"
	"github.com/harborops/harbordesk/internal/transport"
)

// Sentinel errors for send and attachment preconditions. Draft and link
// validation reuse the shared model sentinels.
var (
	// ErrNoThread means no conversation is selected.
	ErrNoThread = fmt.Errorf("no thread selected")

	// ErrEmptyDraft means the trimmed body is blank and there are no
	// attachments.
	ErrEmptyDraft = models.ErrEmptyMessage

	// ErrSendInFlight means a send for this thread is already pending.
	ErrSendInFlight = fmt.Errorf("send already in progress")

	// ErrInvalidLink means the link draft did not parse as an absolute URL.
	ErrInvalidLink = models.ErrInvalidURL
)

// SendToken identifies one send operation. FinishSend discards the
// completion unless the token still matches the session's selection.
type SendToken struct {
	threadID   string
	generation int
	echoID     string
	key        string
}

// CallToken identifies one start-call operation.
type CallToken struct {
	threadID   string
	generation int
}

// Session is the conversation session controller. It is not safe for
// concurrent use; the event loop owns it.
type Session struct {
	actorID int64
	now     func() time.Time

	threadID   string
	generation int

	composer    string
	attachments []models.Attachment
	sending     bool
	lastErr     string

	call *models.CallMetadata

	// echoes holds optimistic local messages per thread until the
	// canonical copy supersedes them. The buffer survives thread
	// switches; only composer and call state are discarded.
	echoes map[string][]models.Message
}

// Option configures a Session.
type Option func(*Session)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session controller acting for the given actor.
func New(actorID int64, opts ...Option) *Session {
	s := &Session{
		actorID: actorID,
		now:     func() time.Time { return time.Now().UTC() },
		echoes:  make(map[string][]models.Message),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select switches the active thread. Composer text, pending attachments,
// the in-flight flag, the inline error, and any active call are all
// discarded; call sessions are not portable across threads. Selecting the
// already-active thread is a no-op.
func (s *Session) Select(threadID string) {
	if threadID == s.threadID {
		return
	}
	s.threadID = threadID
	s.generation++
	s.composer = ""
	s.attachments = nil
	s.sending = false
	s.lastErr = ""
	s.call = nil
}

// ThreadID returns the active thread id, empty when nothing is selected.
func (s *Session) ThreadID() string { return s.threadID }

// SetComposer replaces the composer draft.
func (s *Session) SetComposer(text string) { s.composer = text }

// Composer returns the current draft text.
func (s *Session) Composer() string { return s.composer }

// Attachments returns the pending attachments.
func (s *Session) Attachments() []models.Attachment { return s.attachments }

// Sending reports whether a send is in flight for the active thread.
func (s *Session) Sending() bool { return s.sending }

// Err returns the inline error from the last failed sub-action, empty
// when there is none. Retrying the action clears it.
func (s *Session) Err() string { return s.lastErr }

// ActiveCall returns the call attached to the active thread, if any.
func (s *Session) ActiveCall() *models.CallMetadata { return s.call }

// AttachLink validates and appends a link attachment. The URL must parse
// and be absolute (scheme and host present); otherwise the attachment is
// not added and ErrInvalidLink is surfaced inline.
func (s *Session) AttachLink(rawURL, name string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() || u.Host == "" {
		s.lastErr = ErrInvalidLink.Error()
		return ErrInvalidLink
	}
	s.lastErr = ""
	if name == "" {
		name = u.Host
	}
	s.attachments = append(s.attachments, models.Attachment{
		ID:   uuid.New().String(),
		URL:  u.String(),
		Name: name,
	})
	return nil
}

// RemoveAttachment drops the pending attachment at index i.
func (s *Session) RemoveAttachment(i int) {
	if i < 0 || i >= len(s.attachments) {
		return
	}
	s.attachments = append(s.attachments[:i], s.attachments[i+1:]...)
}

// BeginSend validates the draft, marks the send in flight, appends an
// optimistic echo to the active thread's buffer, and returns the draft to
// hand to the transport. The composer is NOT cleared here; it is cleared
// only when FinishSend reports success.
func (s *Session) BeginSend() (SendToken, transport.Draft, error) {
	if s.threadID == "" {
		s.lastErr = ErrNoThread.Error()
		return SendToken{}, transport.Draft{}, ErrNoThread
	}
	if s.sending {
		return SendToken{}, transport.Draft{}, ErrSendInFlight
	}
	body := strings.TrimSpace(s.composer)
	if body == "" && len(s.attachments) == 0 {
		s.lastErr = ErrEmptyDraft.Error()
		return SendToken{}, transport.Draft{}, ErrEmptyDraft
	}

	s.sending = true
	s.lastErr = ""

	now := s.now()
	key := idempotencyKey(s.threadID, s.actorID, body, now)
	echo := s.appendEcho(body, key, now)

	draft := transport.Draft{
		Body:           body,
		Attachments:    append([]models.Attachment(nil), s.attachments...),
		IdempotencyKey: key,
	}
	token := SendToken{
		threadID:   s.threadID,
		generation: s.generation,
		echoID:     echo.ID,
		key:        key,
	}
	return token, draft, nil
}

// FinishSend applies a send completion. A completion whose token no
// longer matches the active selection is silently discarded; the user has
// moved on and the echo buffer for the old thread was already resolved or
// abandoned there. On success the canonical message supersedes the echo
// in place and the composer is cleared; on failure the echo is withdrawn
// and the composer text is preserved with an inline error.
func (s *Session) FinishSend(token SendToken, canonical models.Message, sendErr error) bool {
	if token.threadID != s.threadID || token.generation != s.generation {
		// Stale completion; the echo (if confirmed) will reconcile via
		// push when the thread is reopened.
		s.resolveEcho(token, canonical, sendErr)
		return false
	}

	s.sending = false
	if sendErr != nil {
		s.removeEcho(token.threadID, token.echoID)
		s.lastErr = sendErr.Error()
		return false
	}

	s.supersedeEcho(token.threadID, token.echoID, canonical)
	s.composer = ""
	s.attachments = nil
	s.lastErr = ""
	return true
}

// resolveEcho settles the echo buffer for a stale send without touching
// composer or error state.
func (s *Session) resolveEcho(token SendToken, canonical models.Message, sendErr error) {
	if sendErr != nil {
		s.removeEcho(token.threadID, token.echoID)
		return
	}
	s.supersedeEcho(token.threadID, token.echoID, canonical)
}

// Echoes returns the optimistic messages pending for a thread, in send
// order. Confirmed entries carry the canonical id and Local=false until
// Reconcile drops them.
func (s *Session) Echoes(threadID string) []models.Message {
	buf := s.echoes[threadID]
	out := make([]models.Message, len(buf))
	copy(out, buf)
	return out
}

// Reconcile drops any echo the given delivered message supersedes, by id
// or by idempotency key when the platform echoes the key back. Call it
// when push delivers a message so the timeline does not show the same
// send twice.
func (s *Session) Reconcile(msg models.Message) {
	buf := s.echoes[msg.ThreadID]
	for i := range buf {
		if buf[i].ID == msg.ID || (msg.IdempotencyKey != "" && buf[i].IdempotencyKey == msg.IdempotencyKey) {
			s.echoes[msg.ThreadID] = append(buf[:i], buf[i+1:]...)
			return
		}
	}
}

// BeginStartCall marks the intent to open a call on the active thread.
func (s *Session) BeginStartCall() (CallToken, error) {
	if s.threadID == "" {
		s.lastErr = ErrNoThread.Error()
		return CallToken{}, ErrNoThread
	}
	s.lastErr = ""
	return CallToken{threadID: s.threadID, generation: s.generation}, nil
}

// FinishStartCall attaches the started call, unless the user has switched
// threads since; a stale completion is discarded because call sessions do
// not follow the user across threads.
func (s *Session) FinishStartCall(token CallToken, meta *models.CallMetadata, callErr error) bool {
	if token.threadID != s.threadID || token.generation != s.generation {
		return false
	}
	if callErr != nil {
		s.lastErr = callErr.Error()
		return false
	}
	s.call = meta
	s.lastErr = ""
	return true
}

// EndCall clears the active call reference.
func (s *Session) EndCall() { s.call = nil }

func (s *Session) appendEcho(body, key string, now time.Time) models.Message {
	actor := s.actorID
	echo := models.Message{
		ID:             "local-" + uuid.New().String(),
		ThreadID:       s.threadID,
		Body:           body,
		SenderID:       &actor,
		CreatedAt:      now,
		Type:           models.MessageTypeText,
		Attachments:    append([]models.Attachment(nil), s.attachments...),
		IdempotencyKey: key,
		Seq:            len(s.echoes[s.threadID]),
		Local:          true,
	}
	s.echoes[s.threadID] = append(s.echoes[s.threadID], echo)
	return echo
}

func (s *Session) supersedeEcho(threadID, echoID string, canonical models.Message) {
	buf := s.echoes[threadID]
	for i := range buf {
		if buf[i].ID == echoID {
			canonical.ThreadID = threadID
			canonical.Seq = buf[i].Seq
			buf[i] = canonical
			return
		}
	}
}

func (s *Session) removeEcho(threadID, id string) {
	buf := s.echoes[threadID]
	for i := range buf {
		if buf[i].ID == id {
			s.echoes[threadID] = append(buf[:i], buf[i+1:]...)
			return
		}
	}
}

// idempotencyKey derives a stable key for a draft so the platform can
// dedupe a resend of the same text within the same minute.
func idempotencyKey(threadID string, actorID int64, body string, now time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s", threadID, actorID, body, now.Format("2006-01-02T15:04"))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
