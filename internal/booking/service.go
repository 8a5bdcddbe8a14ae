package booking

import (
	"context"

	"retell-pos-bridge/internal/functions"
	"retell-pos-bridge/internal/pos"
	"retell-pos-bridge/pkg/logger"
)

// CodePOSBusy is returned when the in-flight booking cap is full.
const CodePOSBusy = "POS_BUSY"

const (
	msgFallback = "Mình chưa tạo được lịch. Bạn cho mình thêm thông tin nhé."
	msgPOSBusy  = "Hệ thống đang bận. Bạn đợi một chút rồi thử lại giúp mình nhé."
)

// AppointmentCreator is the POS side of a booking.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, appt pos.Appointment) pos.Outcome
}

// Limiter caps concurrent POS bookings across instances.
type Limiter interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Service implements create_booking.
type Service struct {
	Normalizer *Normalizer
	POS        AppointmentCreator
	Limiter    Limiter
}

func NewService(n *Normalizer, creator AppointmentCreator, limiter Limiter) *Service {
	return &Service{Normalizer: n, POS: creator, Limiter: limiter}
}

// CreateBooking is the create_booking handler.
func (s *Service) CreateBooking(ctx context.Context, raw map[string]any, call functions.CallContext) (functions.Result, error) {
	log := logger.From(ctx)

	args, err := DecodeArgs(raw)
	if err != nil {
		log.Debug("booking args partially decoded", "err", err)
	}

	plan, need := s.Normalizer.Normalize(args)
	if need != nil {
		log.Info("booking needs more info", "need", need.Need, "code", need.Code)
		return fromOutcome(pos.Outcome{Error: need.Code, Text: need.Message}, need.Need), nil
	}

	if s.Limiter != nil {
		ok, err := s.Limiter.Acquire(ctx)
		switch {
		case err != nil:
			log.Warn("pos cap unavailable, proceeding", "err", err)
		case !ok:
			log.Warn("pos cap full")
			return fromOutcome(pos.Outcome{Error: CodePOSBusy, Text: msgPOSBusy}, nil), nil
		default:
			defer func() {
				if err := s.Limiter.Release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("pos cap release failed", "err", err)
				}
			}()
		}
	}

	out := s.POS.CreateAppointment(ctx, plan.Appointment)
	return fromOutcome(out, nil), nil
}

func fromOutcome(out pos.Outcome, need []string) functions.Result {
	if out.OK {
		return functions.Result{OK: true, Text: out.Text, BookingID: out.BookingID, Data: out.Data}
	}
	text := out.Text
	if text == "" {
		text = msgFallback
	}
	return functions.Result{
		OK:     false,
		Text:   text,
		Error:  out.Error,
		Detail: out.Detail,
		Need:   need,
	}
}
