package functions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

type spyHandler struct {
	mu    sync.Mutex
	calls int
	args  map[string]any
	call  CallContext
	res   Result
	err   error
	panic any
}

func (s *spyHandler) Handle(ctx context.Context, args map[string]any, call CallContext) (Result, error) {
	s.mu.Lock()
	s.calls++
	s.args = args
	s.call = call
	s.mu.Unlock()
	if s.panic != nil {
		panic(s.panic)
	}
	return s.res, s.err
}

type memRecorder struct {
	mu   sync.Mutex
	recs []CallRecord
}

func (m *memRecorder) RecordCall(ctx context.Context, rec CallRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
}

func decodeError(t *testing.T, body any) ErrorBody {
	t.Helper()
	eb, ok := body.(ErrorBody)
	if !ok {
		t.Fatalf("expected ErrorBody, got %T", body)
	}
	return eb
}

func TestDispatch_BadPayloadNeverRunsHandler(t *testing.T) {
	h := &spyHandler{res: Result{OK: true}}
	rec := &memRecorder{}
	d := NewDispatcher(NewRegistry().Register("create_booking", h), rec)

	reply := d.Dispatch(context.Background(), []byte(`{"args":{"note":"x"}}`))
	if reply.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", reply.Status)
	}
	if eb := decodeError(t, reply.Body); eb.Error.Code != CodeBadPayload || eb.Error.Details == nil {
		t.Fatalf("unexpected body %+v", eb)
	}
	if h.calls != 0 {
		t.Fatalf("handler must not run")
	}
	if len(rec.recs) != 0 {
		t.Fatalf("bad payloads are not recorded")
	}
}

func TestDispatch_RoutesWithResolvedArgs(t *testing.T) {
	for _, body := range []string{
		`{"name":"create_booking","args":{"note":"hi"},"call_id":"c1"}`,
		`{"function":"create_booking","arguments":{"note":"hi"},"call_id":"c1"}`,
	} {
		h := &spyHandler{res: Result{OK: true, Text: "done", BookingID: 99}}
		other := &spyHandler{}
		rec := &memRecorder{}
		d := NewDispatcher(NewRegistry().Register("create_booking", h).Register("update_appt_detail", other), rec)

		reply := d.Dispatch(context.Background(), []byte(body))
		if reply.Status != http.StatusOK {
			t.Fatalf("expected 200, got %d", reply.Status)
		}
		if h.calls != 1 || other.calls != 0 {
			t.Fatalf("expected exactly the registered handler to run: %d/%d", h.calls, other.calls)
		}
		if h.args["note"] != "hi" || h.call.CallID != "c1" || h.call.FunctionName != "create_booking" {
			t.Fatalf("unexpected handler input %v %+v", h.args, h.call)
		}
		resp, ok := reply.Body.(Response)
		if !ok || !resp.OK || resp.Result != "done" || resp.BookingID != 99 {
			t.Fatalf("unexpected response %+v", reply.Body)
		}
		if len(rec.recs) != 1 || !rec.recs[0].OK || rec.recs[0].BookingID != "99" {
			t.Fatalf("unexpected records %+v", rec.recs)
		}
	}
}

func TestDispatch_RecordsLargeNumericBookingIDVerbatim(t *testing.T) {
	h := &spyHandler{res: Result{OK: true, Text: "done", BookingID: float64(12345678)}}
	rec := &memRecorder{}
	d := NewDispatcher(NewRegistry().Register("create_booking", h), rec)

	d.Dispatch(context.Background(), []byte(`{"name":"create_booking"}`))
	if len(rec.recs) != 1 || rec.recs[0].BookingID != "12345678" {
		t.Fatalf("unexpected records %+v", rec.recs)
	}
}

func TestDispatch_UnknownFunction(t *testing.T) {
	known := &spyHandler{}
	rec := &memRecorder{}
	d := NewDispatcher(NewRegistry().Register("create_booking", known), rec)

	reply := d.Dispatch(context.Background(), []byte(`{"name":"cancel_appointment"}`))
	if reply.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", reply.Status)
	}
	eb := decodeError(t, reply.Body)
	if eb.Error.Code != CodeFunctionNotFound || !strings.Contains(eb.Message, "cancel_appointment") {
		t.Fatalf("unexpected body %+v", eb)
	}
	if !errors.Is(reply.Err, ErrFunctionNotFound) {
		t.Fatalf("expected ErrFunctionNotFound, got %v", reply.Err)
	}
	if known.calls != 0 {
		t.Fatalf("other handlers must not run")
	}
	if len(rec.recs) != 1 || rec.recs[0].ErrorCode != CodeFunctionNotFound {
		t.Fatalf("unexpected records %+v", rec.recs)
	}
}

func TestDispatch_HandlerFaultsBecomeInternalError(t *testing.T) {
	cases := map[string]*spyHandler{
		"error": {err: errors.New("boom")},
		"panic": {panic: "nil map write"},
	}
	for label, h := range cases {
		d := NewDispatcher(NewRegistry().Register("create_booking", h), nil)
		reply := d.Dispatch(context.Background(), []byte(`{"name":"create_booking"}`))
		if reply.Status != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", label, reply.Status)
		}
		eb := decodeError(t, reply.Body)
		if eb.Error.Code != CodeInternalError {
			t.Fatalf("%s: unexpected code %q", label, eb.Error.Code)
		}
		if strings.Contains(eb.Message, "boom") || strings.Contains(eb.Message, "nil map") {
			t.Fatalf("%s: internal detail leaked: %q", label, eb.Message)
		}
	}
}

func TestDispatch_BusinessFailureIs200(t *testing.T) {
	h := &spyHandler{res: Result{OK: false, Error: "POS_BOOKING_FAILED", Text: "pick another slot"}}
	rec := &memRecorder{}
	d := NewDispatcher(NewRegistry().Register("create_booking", h), rec)

	reply := d.Dispatch(context.Background(), []byte(`{"name":"create_booking"}`))
	if reply.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", reply.Status)
	}
	resp := reply.Body.(Response)
	if resp.OK || resp.Error != "POS_BOOKING_FAILED" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if rec.recs[0].OK || rec.recs[0].ErrorCode != "POS_BOOKING_FAILED" {
		t.Fatalf("unexpected record %+v", rec.recs[0])
	}
}

func TestHandleFunctionCall_WritesJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &spyHandler{res: Result{OK: true, Text: "ok"}}
	d := NewDispatcher(NewRegistry().Register("create_booking", h), nil)

	r := gin.New()
	r.POST("/retell/functions", d.HandleFunctionCall)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/retell/functions", strings.NewReader(`{"name":"create_booking","args":{}}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true || body["result"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}
