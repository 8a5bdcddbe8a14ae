package booking

import (
	"context"

	"retell-pos-bridge/internal/functions"
	"retell-pos-bridge/pkg/logger"
)

const msgUpdateInvalid = "Missing/invalid fields for update_appt_detail"

type updateArgs struct {
	AppointmentID string  `json:"appointment_id" validate:"required,min=1"`
	NewTimeISO    *string `json:"new_time_iso" validate:"omitnil,min=1"`
	Note          *string `json:"note"`
}

// UpdateDetail is the update_appt_detail handler. It acknowledges the change
// without calling the POS.
func UpdateDetail(ctx context.Context, raw map[string]any, call functions.CallContext) (functions.Result, error) {
	var a updateArgs
	d := functions.Diagnostics{FormErrors: []string{}, FieldErrors: map[string][]string{}}

	a.AppointmentID, _ = stringArg(raw, "appointment_id", &d)
	if v, ok := stringArg(raw, "new_time_iso", &d); ok {
		a.NewTimeISO = &v
	}
	if v, ok := stringArg(raw, "note", &d); ok {
		a.Note = &v
	}

	if vd, ok := functions.Validate(a); !ok {
		for field, msgs := range vd.FieldErrors {
			if len(d.FieldErrors[field]) == 0 {
				d.FieldErrors[field] = msgs
			}
		}
	}
	if !d.Empty() {
		logger.From(ctx).Info("update_appt_detail rejected", "fields", d.FieldErrors)
		return functions.Result{
			OK:     false,
			Text:   msgUpdateInvalid,
			Error:  functions.CodeValidationError,
			Detail: d,
		}, nil
	}

	data := map[string]any{
		"appointment_id": a.AppointmentID,
		"updated_time":   nil,
		"note":           nil,
		"status":         "UPDATED",
	}
	if a.NewTimeISO != nil {
		data["updated_time"] = *a.NewTimeISO
	}
	if a.Note != nil && *a.Note != "" {
		data["note"] = *a.Note
	}
	return functions.Result{
		OK:   true,
		Text: "Appointment " + a.AppointmentID + " updated successfully.",
		Data: data,
	}, nil
}

// stringArg reads an optional string argument. Present non-string values are
// reported as type errors.
func stringArg(raw map[string]any, key string, d *functions.Diagnostics) (string, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		d.FieldErrors[key] = append(d.FieldErrors[key], "Expected string")
		return "", false
	}
	return s, true
}
