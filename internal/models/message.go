package models

import (
	"sort"
	"time"
)

// MessageType distinguishes plain text messages from in-stream events.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeEvent MessageType = "event"
)

// CallType identifies the media of an embedded call.
type CallType string

const (
	CallVoice CallType = "voice"
	CallVideo CallType = "video"
)

// CallMetadata describes a call-lifecycle event carried inside a message.
// ExpiresAt stays a raw timestamp string: whether the call is still active
// is derived at evaluation time, never stored.
type CallMetadata struct {
	ID           string        `json:"id,omitempty"`
	Type         CallType      `json:"type,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	ExpiresAt    string        `json:"expires_at,omitempty"`
}

// Metadata is the event payload of a non-text message.
type Metadata struct {
	EventType string        `json:"event_type,omitempty"`
	Call      *CallMetadata `json:"call,omitempty"`
}

// Attachment references a file or link attached to a message.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ReadReceipt records when one user last viewed a thread's messages.
type ReadReceipt struct {
	UserID int64     `json:"user_id"`
	ReadAt time.Time `json:"read_at"`
	User   *User     `json:"user,omitempty"`
}

// Message is one entry in a thread's append-only history.
type Message struct {
	ID        string      `json:"id"`
	ThreadID  string      `json:"thread_id,omitempty"`
	Body      string      `json:"body,omitempty"`
	SenderID  *int64      `json:"sender_id,omitempty"`
	Sender    *User       `json:"sender,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	Type      MessageType `json:"message_type,omitempty"`
	Metadata  *Metadata   `json:"metadata,omitempty"`

	ReadReceipts []ReadReceipt `json:"read_receipts,omitempty"`
	Attachments  []Attachment  `json:"attachments,omitempty"`

	// IdempotencyKey echoes the draft key the sender supplied, when the
	// platform includes it on delivered copies of a send.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Seq is the arrival/insertion order, used to break createdAt ties.
	Seq int `json:"-"`

	// Local marks an optimistic echo not yet confirmed by the transport.
	Local bool `json:"-"`
}

// SenderName resolves the sender's display name; messages without a sender
// are attributed to "System".
func (m *Message) SenderName() string {
	if m.SenderID == nil && m.Sender == nil {
		return "System"
	}
	var id int64
	if m.SenderID != nil {
		id = *m.SenderID
	}
	return Participant{UserID: id, User: m.Sender}.DisplayName()
}

// BelongsTo reports whether the message was authored by the given actor.
// Both sides must be present; a missing sender id or zero actor id is
// never a match.
func (m *Message) BelongsTo(actorID int64) bool {
	if m.SenderID == nil || actorID == 0 {
		return false
	}
	return *m.SenderID == actorID
}

// SortMessages orders messages by createdAt, breaking ties by insertion
// order. The sort is stable so equal entries keep arrival order even when
// Seq was never assigned.
func SortMessages(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].Seq < messages[j].Seq
	})
}

// TypingSignal is an ephemeral indicator that a participant is composing.
// A nil ExpiresAt means "still typing" until superseded or the thread
// changes; signals past their expiry are excluded from summaries.
type TypingSignal struct {
	UserID      int64      `json:"user_id"`
	DisplayName string     `json:"display_name,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
