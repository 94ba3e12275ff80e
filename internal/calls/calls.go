// Package calls classifies in-stream call events and derives their
// lifecycle state. Whether a call is active is recomputed per evaluation
// against an explicit clock; it is never cached.
package calls

import (
	"time"

	"github.com/harborops/harbordesk/internal/models"
)

// EventTypeCall is the metadata event type carried by call messages.
const EventTypeCall = "call"

// IsCallEvent reports whether the message is a call-lifecycle event.
func IsCallEvent(msg *models.Message) bool {
	if msg == nil || msg.Type != models.MessageTypeEvent {
		return false
	}
	return msg.Metadata != nil && msg.Metadata.EventType == EventTypeCall
}

// Info returns the call metadata for a call event, or nil for any other
// message.
func Info(msg *models.Message) *models.CallMetadata {
	if !IsCallEvent(msg) {
		return nil
	}
	return msg.Metadata.Call
}

// IsActive reports whether the call is still joinable at the given time.
// A call with no expiry is active. An unparsable expiry also counts as
// active: a stale expiry check must not block joining.
func IsActive(meta *models.CallMetadata, now time.Time) bool {
	if meta == nil {
		return false
	}
	if meta.ExpiresAt == "" {
		return true
	}
	expires, err := time.Parse(time.RFC3339, meta.ExpiresAt)
	if err != nil {
		return true
	}
	return expires.After(now)
}
