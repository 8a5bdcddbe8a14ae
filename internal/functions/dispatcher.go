package functions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"retell-pos-bridge/internal/retell"
	"retell-pos-bridge/pkg/logger"
	"retell-pos-bridge/pkg/utils"

	"github.com/gin-gonic/gin"
)

// CallRecord summarizes one dispatched call for the audit trail.
type CallRecord struct {
	FunctionName   string
	CallID         string
	ConversationID string

	Status    int
	OK        bool
	ErrorCode string
	BookingID string

	Duration time.Duration
}

// CallRecorder receives a record for every call that got past payload
// validation. Recording is best-effort; implementations must not block replies.
type CallRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord)
}

// Reply is the HTTP status and JSON body for one dispatch.
type Reply struct {
	Status int
	Body   any
	Err    error
}

// Dispatcher validates a webhook payload, routes it to its handler and shapes
// the reply. It never panics on handler faults.
type Dispatcher struct {
	Registry *Registry
	Recorder CallRecorder
	Now      func() time.Time
}

func NewDispatcher(reg *Registry, rec CallRecorder) *Dispatcher {
	return &Dispatcher{Registry: reg, Recorder: rec, Now: time.Now}
}

// Dispatch processes one raw webhook body.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) Reply {
	log := logger.From(ctx)
	now := d.Now
	if now == nil {
		now = time.Now
	}
	start := now()

	env, err := ParseEnvelope(raw)
	if err != nil {
		var details any
		var perr *PayloadError
		if errors.As(err, &perr) {
			details = perr.Diagnostics
		}
		log.Info("webhook payload rejected", "err", err)
		return Reply{Status: HTTPStatus(err), Body: errorBody(Code(err), "Invalid webhook payload", details), Err: err}
	}

	log = log.With("function", env.FunctionName, "call_id", env.CallID, "conversation_id", env.ConversationID)
	ctx = logger.With(ctx, log)

	reply, res := d.route(ctx, env)
	d.record(ctx, env, reply, res, now().Sub(start))
	return reply
}

func (d *Dispatcher) route(ctx context.Context, env Envelope) (Reply, Result) {
	log := logger.From(ctx)

	if d.Registry == nil {
		err := fmt.Errorf("%w: registry not configured", ErrInternal)
		log.Error("dispatch failed", "err", err)
		return Reply{Status: HTTPStatus(err), Body: errorBody(Code(err), "Function execution failed", nil), Err: err}, Result{}
	}

	h, err := d.Registry.Lookup(env.FunctionName)
	if err != nil {
		log.Warn("unknown function")
		return Reply{Status: HTTPStatus(err), Body: errorBody(Code(err), "Unknown function: "+env.FunctionName, nil), Err: err}, Result{}
	}

	res, err := invoke(ctx, h, env)
	if err != nil {
		log.Error("function execution failed", "err", err)
		err = fmt.Errorf("%w: %v", ErrInternal, err)
		return Reply{Status: HTTPStatus(err), Body: errorBody(Code(err), "Function execution failed", nil), Err: err}, Result{}
	}

	if !res.OK {
		log.Info("function returned failure", "error_code", res.Error, "need", res.Need)
	}
	return Reply{Status: http.StatusOK, Body: Format(res)}, res
}

// invoke isolates handler faults: a panic is reported as an error.
func invoke(ctx context.Context, h Handler, env Envelope) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h.Handle(ctx, env.Args, env.Context())
}

func (d *Dispatcher) record(ctx context.Context, env Envelope, reply Reply, res Result, dur time.Duration) {
	if d.Recorder == nil {
		return
	}
	rec := CallRecord{
		FunctionName:   env.FunctionName,
		CallID:         env.CallID,
		ConversationID: env.ConversationID,
		Status:         reply.Status,
		OK:             reply.Err == nil && res.OK,
		Duration:       dur,
	}
	switch {
	case reply.Err != nil:
		rec.ErrorCode = Code(reply.Err)
	case !res.OK:
		rec.ErrorCode = res.Error
	}
	if res.BookingID != nil {
		rec.BookingID = utils.FormatID(res.BookingID)
	}
	d.Recorder.RecordCall(ctx, rec)
}

// HandleFunctionCall is the gin handler for POST /retell/functions.
func (d *Dispatcher) HandleFunctionCall(c *gin.Context) {
	raw, err := retell.RawBody(c)
	if err != nil {
		logger.FromGin(c).Warn("webhook body read failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(CodeBadPayload, "Invalid webhook payload", nil))
		return
	}
	reply := d.Dispatch(c.Request.Context(), raw)
	c.JSON(reply.Status, reply.Body)
}
