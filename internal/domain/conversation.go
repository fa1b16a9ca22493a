package domain

import "time"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// DialogueState is the optional state tag carried by every turn. The empty
// value is the idle state.
type DialogueState string

const (
	StateIdle              DialogueState = ""
	StateConfirmEscalation DialogueState = "confirm_escalation"
	StateAwaitingOrderID   DialogueState = "awaiting_order_id"
)

// ResolutionStatus is set out-of-band by a human reviewer on escalated turns.
type ResolutionStatus string

const (
	ResolutionOpen       ResolutionStatus = "open"
	ResolutionInProgress ResolutionStatus = "in_progress"
	ResolutionResolved   ResolutionStatus = "resolved"
)

// Valid reports whether s is one of the known resolution statuses.
func (s ResolutionStatus) Valid() bool {
	switch s {
	case ResolutionOpen, ResolutionInProgress, ResolutionResolved:
		return true
	}
	return false
}

// Turn is a single persisted conversation entry. Turns are append-only; the
// latest turn of a thread carries the thread's dialogue state.
type Turn struct {
	ID               string           `json:"id"`
	ThreadID         string           `json:"thread_id"`
	SessionID        string           `json:"session_id"`
	Role             Role             `json:"role"`
	Text             string           `json:"text"`
	Query            string           `json:"user_query,omitempty"`
	State            DialogueState    `json:"state,omitempty"`
	Escalated        bool             `json:"escalation_flag"`
	ResolutionStatus ResolutionStatus `json:"resolution_status,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}
