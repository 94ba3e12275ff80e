// Package transport is the boundary between the inbox core and the
// platform: outbound intents the core invokes, and inbound push events it
// consumes. The core never performs HTTP itself; it hands intents to an
// Intents implementation and folds already-deserialized records back in.
package transport

import (
	"context"

	"github.com/harborops/harbordesk/internal/models"
)

// Draft is the outgoing payload of a send intent.
type Draft struct {
	Body        string              `json:"body"`
	Attachments []models.Attachment `json:"attachments,omitempty"`

	// IdempotencyKey lets the platform dedupe a resent draft against the
	// local echo it already confirmed.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Page is one slice of backward history.
type Page struct {
	Messages []models.Message
	HasMore  bool
}

// Intents are the operations the core asks the platform to carry out.
// Implementations own retries and wire formats; every call honors its
// context.
type Intents interface {
	// SendMessage delivers a draft and returns the canonical message.
	SendMessage(ctx context.Context, threadID string, draft Draft) (models.Message, error)

	// LoadOlderMessages returns up to limit messages strictly older than
	// the cursor (a message id; empty means "from the newest").
	LoadOlderMessages(ctx context.Context, threadID, beforeCursor string, limit int) (Page, error)

	// MarkThreadRead records the actor's read position.
	MarkThreadRead(ctx context.Context, threadID string) error

	// TogglePin pins or unpins a thread.
	TogglePin(ctx context.Context, threadID string, pinned bool) error

	// StartCall opens a call on the thread and returns its metadata.
	StartCall(ctx context.Context, threadID string, kind models.CallType) (*models.CallMetadata, error)

	// JoinCall joins an in-progress call.
	JoinCall(ctx context.Context, meta *models.CallMetadata) error
}
