package transport

import (
	"encoding/json"
	"fmt"

	"github.com/harborops/harbordesk/internal/models"
)

// EventKind identifies a push frame's payload shape.
type EventKind string

const (
	EventMessage EventKind = "message"
	EventTyping  EventKind = "typing"
	EventReceipt EventKind = "receipt"
	EventThread  EventKind = "thread"
)

// Event is one decoded push notification. Exactly one payload field is
// set, matching Kind. Events apply to in-memory state by thread id; no
// refetch is needed.
type Event struct {
	Kind     EventKind
	ThreadID string

	Message *models.Message
	Typing  *models.TypingSignal
	Receipt *models.ReadReceipt
	Thread  *models.Thread
}

// frame is the wire shape of a push notification.
type frame struct {
	Kind     EventKind       `json:"kind"`
	ThreadID string          `json:"thread_id"`
	Payload  json.RawMessage `json:"payload"`
}

// DecodeEvent parses a raw push frame. Unknown kinds and malformed
// payloads are errors; the caller logs and drops them rather than
// tearing down the stream.
func DecodeEvent(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Event{}, fmt.Errorf("decode push frame: %w", err)
	}
	if f.ThreadID == "" {
		return Event{}, fmt.Errorf("push frame missing thread id")
	}

	event := Event{Kind: f.Kind, ThreadID: f.ThreadID}
	switch f.Kind {
	case EventMessage:
		msg := &models.Message{}
		if err := json.Unmarshal(f.Payload, msg); err != nil {
			return Event{}, fmt.Errorf("decode message payload: %w", err)
		}
		msg.ThreadID = f.ThreadID
		event.Message = msg
	case EventTyping:
		sig := &models.TypingSignal{}
		if err := json.Unmarshal(f.Payload, sig); err != nil {
			return Event{}, fmt.Errorf("decode typing payload: %w", err)
		}
		event.Typing = sig
	case EventReceipt:
		receipt := &models.ReadReceipt{}
		if err := json.Unmarshal(f.Payload, receipt); err != nil {
			return Event{}, fmt.Errorf("decode receipt payload: %w", err)
		}
		event.Receipt = receipt
	case EventThread:
		thread := &models.Thread{}
		if err := json.Unmarshal(f.Payload, thread); err != nil {
			return Event{}, fmt.Errorf("decode thread payload: %w", err)
		}
		event.Thread = thread
	default:
		return Event{}, fmt.Errorf("unknown push kind %q", f.Kind)
	}
	return event, nil
}
