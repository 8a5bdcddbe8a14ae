package audit

import "time"

// Event is an append-only record of one dispatched function call.
//
// Invariants:
// - Events are never updated or deleted.
// - FunctionName is required.
// - Recording is best-effort; replies never wait on a failed write.
//
// Storage (Postgres): table function_call_events, INSERT-only.
type Event struct {
	ID string `json:"id" db:"id"`

	FunctionName   string `json:"function_name" db:"function_name"`
	CallID         string `json:"call_id,omitempty" db:"call_id"`
	ConversationID string `json:"conversation_id,omitempty" db:"conversation_id"`

	// Status is the HTTP status returned to the voice platform.
	Status int  `json:"status" db:"status"`
	OK     bool `json:"ok" db:"ok"`

	ErrorCode string `json:"error_code,omitempty" db:"error_code"`
	BookingID string `json:"booking_id,omitempty" db:"booking_id"`

	DurationMS int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ClampLimit bounds a caller-supplied page size.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultListLimit
	case n > MaxListLimit:
		return MaxListLimit
	default:
		return n
	}
}
