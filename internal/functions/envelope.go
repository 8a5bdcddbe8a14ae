package functions

import (
	"bytes"
	"encoding/json"
)

// Envelope is the canonical function-call request. The platform names the
// function either "name" or "function" and its arguments either "args" or
// "arguments"; ParseEnvelope resolves both into this one shape.
type Envelope struct {
	FunctionName   string
	Args           map[string]any
	CallID         string
	ConversationID string
	Call           json.RawMessage
}

// CallContext is the correlation data handed to every handler.
type CallContext struct {
	FunctionName   string
	CallID         string
	ConversationID string
	Call           json.RawMessage
}

func (e Envelope) Context() CallContext {
	return CallContext{
		FunctionName:   e.FunctionName,
		CallID:         e.CallID,
		ConversationID: e.ConversationID,
		Call:           e.Call,
	}
}

type wireEnvelope struct {
	Name      string         `json:"name" validate:"required_without=Function"`
	Function  string         `json:"function" validate:"required_without=Name"`
	Args      map[string]any `json:"args"`
	Arguments map[string]any `json:"arguments"`

	CallID         string          `json:"call_id"`
	ConversationID string          `json:"conversation_id"`
	Call           json.RawMessage `json:"call"`
}

const msgMissingFunctionName = "Missing function name"

// ParseEnvelope decodes and validates the raw webhook body. Any failure is a
// *PayloadError wrapping ErrBadPayload.
func ParseEnvelope(raw []byte) (Envelope, error) {
	d := newDiagnostics()

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if json.Valid(trimmed) {
			d.addForm("Expected object")
		} else {
			d.addForm("Invalid JSON")
		}
		return Envelope{}, &PayloadError{Diagnostics: d}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		d.addForm("Invalid JSON")
		return Envelope{}, &PayloadError{Diagnostics: d}
	}

	// Keys match exactly. encoding/json folds case on struct fields.
	var w wireEnvelope
	targets := map[string]any{
		"name":            &w.Name,
		"function":        &w.Function,
		"args":            &w.Args,
		"arguments":       &w.Arguments,
		"call_id":         &w.CallID,
		"conversation_id": &w.ConversationID,
		"call":            &w.Call,
	}
	for key, dst := range targets {
		val, ok := fields[key]
		if !ok || bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(val, dst); err != nil {
			d.addField(key, "Expected "+expectedKind(key))
		}
	}
	if !d.Empty() {
		return Envelope{}, &PayloadError{Diagnostics: d}
	}

	if vd, ok := Validate(w); !ok {
		vd.addForm(msgMissingFunctionName)
		return Envelope{}, &PayloadError{Diagnostics: vd}
	}

	env := Envelope{
		FunctionName:   w.Name,
		Args:           w.Args,
		CallID:         w.CallID,
		ConversationID: w.ConversationID,
		Call:           w.Call,
	}
	if env.FunctionName == "" {
		env.FunctionName = w.Function
	}
	if env.Args == nil {
		env.Args = w.Arguments
	}
	if env.Args == nil {
		env.Args = map[string]any{}
	}
	return env, nil
}

func expectedKind(field string) string {
	switch field {
	case "args", "arguments":
		return "object"
	default:
		return "string"
	}
}
