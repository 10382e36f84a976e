// Package assistant drives one assistant run per work item: it submits the
// prompt to a conversation backend, polls the run until it settles, and
// classifies the result into an ItemOutcome.
package assistant

import (
	"fmt"

	"github.com/turtacn/leadscore/internal/domain/scoring"
)

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State is the lifecycle state of one operation.
//
//	created → submitted → polling → completed
//	                   ↘          ↘ failed | expired
type State int

const (
	StateCreated State = iota
	StateSubmitted
	StatePolling
	StateCompleted
	StateFailed
	StateExpired
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateExpired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsTerminal reports whether s is completed, failed or expired.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateExpired
}

// ---------------------------------------------------------------------------
// Failure reasons
// ---------------------------------------------------------------------------

// Reason says why an operation ended in StateFailed or StateExpired.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonPromptMissing
	ReasonCredentials
	ReasonCreateThread
	ReasonPostMessage
	ReasonStartRun
	ReasonPoll
	ReasonRemoteStatus
	ReasonFetch
	ReasonNoContent
	ReasonExhausted
	ReasonAborted
	ReasonMalformedInput
)

// String returns a short label, used as a log field.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonPromptMissing:
		return "prompt_missing"
	case ReasonCredentials:
		return "credentials"
	case ReasonCreateThread:
		return "create_thread"
	case ReasonPostMessage:
		return "post_message"
	case ReasonStartRun:
		return "start_run"
	case ReasonPoll:
		return "poll"
	case ReasonRemoteStatus:
		return "remote_status"
	case ReasonFetch:
		return "fetch_messages"
	case ReasonNoContent:
		return "no_content"
	case ReasonExhausted:
		return "exhausted"
	case ReasonAborted:
		return "aborted"
	case ReasonMalformedInput:
		return "malformed_input"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// ---------------------------------------------------------------------------
// RunResult
// ---------------------------------------------------------------------------

// RunResult is the tagged result of one operation. State is always terminal.
// Content is set only for StateCompleted, RemoteStatus only when a status
// was observed, and Err carries the classified cause of a failure.
type RunResult struct {
	State        State
	Reason       Reason
	RemoteStatus scoring.RunStatus
	Content      string
	Attempts     int
	ThreadID     string
	RunID        string
	Err          error
}

//Personal.AI order the ending
