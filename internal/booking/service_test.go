package booking

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"retell-pos-bridge/internal/functions"
	"retell-pos-bridge/internal/pos"
)

type fakeCreator struct {
	calls int
	got   pos.Appointment
	out   pos.Outcome
}

func (f *fakeCreator) CreateAppointment(ctx context.Context, appt pos.Appointment) pos.Outcome {
	f.calls++
	f.got = appt
	return f.out
}

type fakeLimiter struct {
	allow    bool
	err      error
	released int
}

func (l *fakeLimiter) Acquire(ctx context.Context) (bool, error) { return l.allow, l.err }

func (l *fakeLimiter) Release(ctx context.Context) error {
	l.released++
	return nil
}

var validArgs = map[string]any{
	"datetime_iso": "2025-12-15T18:30:00+07:00",
	"note":         "Cắt tóc",
	"serviceId":    "6137",
}

func TestCreateBooking_Success(t *testing.T) {
	creator := &fakeCreator{out: pos.Outcome{OK: true, BookingID: "BK-9", Text: "booked", Data: map[string]any{"statusCode": float64(200)}}}
	svc := NewService(testNormalizer(t), creator, nil)

	res, err := svc.CreateBooking(context.Background(), validArgs, functions.CallContext{FunctionName: "create_booking"})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !res.OK || res.BookingID != "BK-9" || res.Text != "booked" {
		t.Fatalf("unexpected result %+v", res)
	}
	if creator.got.Items[0].ServiceIDs[0] != 6137 {
		t.Fatalf("service id not passed through: %+v", creator.got)
	}
}

func TestCreateBooking_NeedMoreInfoSkipsPOS(t *testing.T) {
	creator := &fakeCreator{}
	svc := NewService(testNormalizer(t), creator, nil)

	res, err := svc.CreateBooking(context.Background(), map[string]any{}, functions.CallContext{})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if res.OK || !reflect.DeepEqual(res.Need, []string{"note", "datetime"}) || res.Text != msgNeedDatetime {
		t.Fatalf("unexpected result %+v", res)
	}
	if creator.calls != 0 {
		t.Fatalf("pos must not be called")
	}
}

func TestCreateBooking_POSFailurePassesThrough(t *testing.T) {
	creator := &fakeCreator{out: pos.Outcome{Error: pos.CodeAuthFailed, Text: "auth", Detail: pos.FailureDetail{Status: 403}}}
	svc := NewService(testNormalizer(t), creator, nil)

	res, _ := svc.CreateBooking(context.Background(), validArgs, functions.CallContext{})
	if res.OK || res.Error != pos.CodeAuthFailed || res.Text != "auth" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Need) != 0 {
		t.Fatalf("expected no need list, got %v", res.Need)
	}
	raw, err := json.Marshal(functions.Format(res))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := body["need"]; ok {
		t.Fatalf("pos failures must not carry a need key: %s", raw)
	}
}

func TestCreateBooking_FallbackText(t *testing.T) {
	creator := &fakeCreator{out: pos.Outcome{Error: pos.CodeBookingFailed}}
	res, _ := NewService(testNormalizer(t), creator, nil).CreateBooking(context.Background(), validArgs, functions.CallContext{})
	if res.Text != msgFallback {
		t.Fatalf("expected fallback text, got %q", res.Text)
	}
}

func TestCreateBooking_Limiter(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		creator := &fakeCreator{}
		lim := &fakeLimiter{allow: false}
		res, _ := NewService(testNormalizer(t), creator, lim).CreateBooking(context.Background(), validArgs, functions.CallContext{})
		if res.OK || res.Error != CodePOSBusy || creator.calls != 0 {
			t.Fatalf("unexpected result %+v calls=%d", res, creator.calls)
		}
	})
	t.Run("acquired", func(t *testing.T) {
		creator := &fakeCreator{out: pos.Outcome{OK: true, BookingID: "x"}}
		lim := &fakeLimiter{allow: true}
		NewService(testNormalizer(t), creator, lim).CreateBooking(context.Background(), validArgs, functions.CallContext{})
		if creator.calls != 1 || lim.released != 1 {
			t.Fatalf("calls=%d released=%d", creator.calls, lim.released)
		}
	})
	t.Run("fails open", func(t *testing.T) {
		creator := &fakeCreator{out: pos.Outcome{OK: true, BookingID: "x"}}
		lim := &fakeLimiter{err: errors.New("redis down")}
		res, _ := NewService(testNormalizer(t), creator, lim).CreateBooking(context.Background(), validArgs, functions.CallContext{})
		if !res.OK || creator.calls != 1 || lim.released != 0 {
			t.Fatalf("unexpected result %+v released=%d", res, lim.released)
		}
	})
}

func TestUpdateDetail(t *testing.T) {
	res, err := UpdateDetail(context.Background(), map[string]any{"appointment_id": "A1", "new_time_iso": "2025-12-16T10:00:00+07:00"}, functions.CallContext{})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !res.OK || res.Text != "Appointment A1 updated successfully." {
		t.Fatalf("unexpected result %+v", res)
	}
	data := res.Data.(map[string]any)
	if data["status"] != "UPDATED" || data["updated_time"] != "2025-12-16T10:00:00+07:00" || data["note"] != nil {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestUpdateDetail_Invalid(t *testing.T) {
	cases := map[string]map[string]any{
		"appointment_id": {},
		"new_time_iso":   {"appointment_id": "A1", "new_time_iso": ""},
		"note":           {"appointment_id": "A1", "note": 5},
	}
	for field, args := range cases {
		res, err := UpdateDetail(context.Background(), args, functions.CallContext{})
		if err != nil {
			t.Fatalf("%s: unexpected err %v", field, err)
		}
		if res.OK || res.Error != functions.CodeValidationError || res.Text != msgUpdateInvalid {
			t.Fatalf("%s: unexpected result %+v", field, res)
		}
		d := res.Detail.(functions.Diagnostics)
		if len(d.FieldErrors[field]) == 0 {
			t.Fatalf("%s: expected diagnostics, got %+v", field, d)
		}
	}
}
