// Package booking turns loosely specified caller arguments into a POS
// appointment and runs the create_booking and update_appt_detail functions.
package booking

import (
	"strings"
	"time"

	"retell-pos-bridge/internal/pos"
)

// Failure codes for input the caller still has to fix.
const (
	CodeNeedMoreInfo    = "NEED_MORE_INFO"
	CodeInvalidDatetime = "INVALID_DATETIME"
)

const (
	DefaultNote            = "Booking từ AI."
	DefaultDurationMinutes = 60
)

const (
	msgNeedDatetime    = "Bạn muốn đặt lịch ngày giờ nào ạ?"
	msgNeedNote        = "Bạn cho mình xin thông tin note nhé."
	msgNeedDatetimeISO = "Bạn cho mình xin ngày giờ cụ thể (VD: 2025-12-15T18:30:00+07:00) nhé."
	msgInvalidDatetime = "Thời gian chưa đúng định dạng. Bạn gửi lại giúp mình nhé."
	msgNeedService     = "Bạn muốn đặt dịch vụ nào ạ? (Mình cần dịch vụ để tạo lịch trên POS)"
)

// NeedMoreInfo reports input that is missing or unusable. Need names the
// fields; Message is what the agent should ask.
type NeedMoreInfo struct {
	Code    string
	Need    []string
	Message string
}

// Pools are the candidate ids used when the caller does not name one.
type Pools struct {
	Customers []int64
	Staff     []int64
	Services  []int64
}

// Plan is a normalized booking ready for the POS.
type Plan struct {
	Appointment pos.Appointment
	Start       time.Time
	End         time.Time
}

// Normalizer holds read-only defaults shared by all requests.
type Normalizer struct {
	GroupID         int64
	DurationMinutes int
	Pools           Pools
	Location        *time.Location

	Picker      Picker
	Now         func() time.Time
	ReferenceID func(time.Time) string
}

func NewNormalizer(groupID int64, durationMinutes int, pools Pools, loc *time.Location, picker Picker) *Normalizer {
	return &Normalizer{
		GroupID:         groupID,
		DurationMinutes: durationMinutes,
		Pools:           pools,
		Location:        loc,
		Picker:          picker,
		Now:             time.Now,
		ReferenceID:     NewReferenceID,
	}
}

// Normalize resolves a into a Plan, or reports what is still needed.
func (n *Normalizer) Normalize(a Args) (Plan, *NeedMoreInfo) {
	var missing []string
	if a.Note == "" {
		missing = append(missing, "note")
	}
	if a.DatetimeISO == "" && a.DatetimeText == "" {
		missing = append(missing, "datetime")
	}
	if len(missing) > 0 {
		msg := msgNeedNote
		if a.DatetimeISO == "" && a.DatetimeText == "" {
			msg = msgNeedDatetime
		}
		return Plan{}, &NeedMoreInfo{Code: CodeNeedMoreInfo, Need: missing, Message: msg}
	}

	// datetime_text is never parsed; an explicit instant is required.
	if a.DatetimeISO == "" {
		return Plan{}, &NeedMoreInfo{Code: CodeNeedMoreInfo, Need: []string{"datetime_iso"}, Message: msgNeedDatetimeISO}
	}
	start, err := ParseInstant(a.DatetimeISO, n.location())
	if err != nil {
		return Plan{}, &NeedMoreInfo{Code: CodeInvalidDatetime, Need: []string{"datetime_iso"}, Message: msgInvalidDatetime}
	}

	picker := n.Picker
	if picker == nil {
		picker = NewRandomPicker(nil)
	}
	customerID := pickID(a.CustomerID, n.Pools.Customers, picker)
	staffID := pickID(a.StaffID, n.Pools.Staff, picker)
	serviceID := pickID(a.ServiceID, n.Pools.Services, picker)

	end := start.Add(time.Duration(n.duration(a.DurationMin)) * time.Minute)

	if serviceID == 0 {
		return Plan{}, &NeedMoreInfo{Code: CodeNeedMoreInfo, Need: []string{"service"}, Message: msgNeedService}
	}

	note := strings.TrimSpace(a.Note)
	if note == "" {
		note = DefaultNote
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	refID := NewReferenceID
	if n.ReferenceID != nil {
		refID = n.ReferenceID
	}

	appt := pos.Appointment{
		CustomerID: customerID,
		Group:      n.GroupID,
		Items: []pos.AppointmentItem{{
			StartTime:    FormatPOSTime(start, n.location()),
			EndTime:      FormatPOSTime(end, n.location()),
			RequestStaff: true,
			ServiceIDs:   []int64{serviceID},
			StaffID:      staffID,
		}},
		Note:        note,
		ReferenceID: refID(now()),
		SourceType:  pos.SourceTypeAI,
	}
	return Plan{Appointment: appt, Start: start, End: end}, nil
}

func (n *Normalizer) duration(given int) int {
	if given > 0 {
		return given
	}
	if n.DurationMinutes > 0 {
		return n.DurationMinutes
	}
	return DefaultDurationMinutes
}

func (n *Normalizer) location() *time.Location {
	if n.Location == nil {
		return time.Local
	}
	return n.Location
}
