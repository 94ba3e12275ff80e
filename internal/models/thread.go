package models

import "time"

// ChannelType categorizes which marketplace surface a thread belongs to.
type ChannelType string

const (
	ChannelDirect            ChannelType = "direct"
	ChannelMentor            ChannelType = "mentor"
	ChannelSupport           ChannelType = "support"
	ChannelHiring            ChannelType = "hiring"
	ChannelMarketing         ChannelType = "marketing"
	ChannelInvestorRelations ChannelType = "investor_relations"
	ChannelProduct           ChannelType = "product"
)

// ThreadState is the lifecycle state of a thread.
type ThreadState string

const (
	ThreadStateActive    ThreadState = "active"
	ThreadStateArchived  ThreadState = "archived"
	ThreadStateLocked    ThreadState = "locked"
	ThreadStateEscalated ThreadState = "escalated"
)

// Priority ranks a thread for triage.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// SupportCase is the optional support sub-record attached to support threads.
type SupportCase struct {
	AssignedTo        string   `json:"assigned_to,omitempty"`
	Status            string   `json:"status,omitempty"`
	Priority          Priority `json:"priority,omitempty"`
	ResolutionSummary string   `json:"resolution_summary,omitempty"`
}

// ViewerState carries per-viewer read position for a thread.
type ViewerState struct {
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

// Thread is a conversation record as delivered by the platform, plus the
// display fields the normalizer derives from it. Raw fields are never
// mutated client-side except via optimistic echo; threads are filtered out
// of view rather than deleted.
type Thread struct {
	ID           string        `json:"id"`
	Subject      string        `json:"subject,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Channel      ChannelType   `json:"channel_type,omitempty"`
	State        ThreadState   `json:"state,omitempty"`
	Priority     Priority      `json:"priority,omitempty"`
	Pinned       bool          `json:"pinned,omitempty"`
	Labels       []string      `json:"labels,omitempty"`
	LastMessage  string        `json:"last_message,omitempty"` // preview text
	LastMessageAt *time.Time   `json:"last_message_at,omitempty"`
	UnreadCount  *int          `json:"unread_count,omitempty"`
	Support      *SupportCase  `json:"support_case,omitempty"`
	Viewer       ViewerState   `json:"viewer,omitempty"`

	// ResponseMinutes is the externally-derived average response time for
	// this thread; non-finite or non-positive values are ignored by the
	// inbox metrics.
	ResponseMinutes float64 `json:"response_minutes,omitempty"`

	// Derived display fields, populated by inbox.NormalizeThread.
	Title               string   `json:"title,omitempty"`
	DisplayParticipants []string `json:"display_participants,omitempty"`
	LastActivity        string   `json:"last_activity,omitempty"`
}

// Unread reports whether the thread has unseen activity for the viewer.
// When the platform supplies an unread counter it is the sole signal;
// otherwise unread is derived from last activity vs the viewer's read
// position, and a thread with activity but no read position counts as
// unread.
func (t *Thread) Unread() bool {
	if t.UnreadCount != nil {
		return *t.UnreadCount > 0
	}
	if t.LastMessageAt == nil {
		return false
	}
	if t.Viewer.LastReadAt == nil {
		return true
	}
	return t.LastMessageAt.After(*t.Viewer.LastReadAt)
}

// Escalated reports whether the thread counts toward the escalation metric.
func (t *Thread) Escalated() bool {
	return t.Priority == PriorityHigh || t.State == ThreadStateEscalated
}
