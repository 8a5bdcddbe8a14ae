package pos

// Appointment is the body of POST /api/v1/open-api/appointments.
type Appointment struct {
	CustomerID  int64             `json:"customerId"`
	Group       int64             `json:"group"`
	Items       []AppointmentItem `json:"items"`
	Note        string            `json:"note"`
	ReferenceID string            `json:"referenceId"`
	SourceType  string            `json:"sourceType"`
}

// AppointmentItem is one service slot. Times use the POS layout MM/DD/YYYY HH:mm.
type AppointmentItem struct {
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	RequestStaff bool    `json:"requestStaff"`
	ServiceIDs   []int64 `json:"serviceIds"`
	StaffID      int64   `json:"staffId"`
}

// SourceTypeAI tags appointments created by the voice agent.
const SourceTypeAI = "ai_chat"

// Outcome codes.
const (
	CodeAuthFailed       = "POS_AUTH_FAILED"
	CodeBookingFailed    = "POS_BOOKING_FAILED"
	CodeBookingException = "POS_BOOKING_EXCEPTION"
)

// Outcome is the classified result of one booking attempt. Text is always
// caller-facing.
type Outcome struct {
	OK        bool
	BookingID any
	Text      string
	Data      any

	Error  string
	Detail any
}

// FailureDetail is attached to AUTH/FAILED outcomes.
type FailureDetail struct {
	Status int `json:"status"`
	Data   any `json:"data"`
}
