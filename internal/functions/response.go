package functions

// Result is what a handler produced for one call.
type Result struct {
	OK bool

	// Text is what the agent should say back to the caller.
	Text string

	Data      any
	BookingID any

	// Error is a stable business error code, e.g. POS_AUTH_FAILED.
	Error  string
	Detail any

	// Need lists inputs the caller still has to provide.
	Need []string
}

// Response is the contract the voice platform reads. Result is always set so
// the agent has something to speak.
type Response struct {
	OK        bool     `json:"ok"`
	Result    string   `json:"result"`
	Data      any      `json:"data,omitempty"`
	Error     string   `json:"error,omitempty"`
	Detail    any      `json:"detail,omitempty"`
	Need      []string `json:"need,omitempty"`
	BookingID any      `json:"booking_id,omitempty"`
}

// ErrorBody is returned for protocol-level failures (4xx/5xx).
type ErrorBody struct {
	OK      bool      `json:"ok"`
	Message string    `json:"message"`
	Error   ErrorInfo `json:"error"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

const (
	fallbackSuccessText = "Đã xử lý xong yêu cầu."
	fallbackFailureText = "Mình chưa xử lý được yêu cầu. Bạn thử lại giúp mình nhé."
)

// Format shapes a handler Result into the wire Response.
func Format(r Result) Response {
	text := r.Text
	if text == "" {
		if r.OK {
			text = fallbackSuccessText
		} else {
			text = fallbackFailureText
		}
	}
	resp := Response{
		OK:     r.OK,
		Result: text,
		Data:   r.Data,
		Detail: r.Detail,
	}
	if r.OK {
		resp.BookingID = r.BookingID
		return resp
	}
	resp.Error = r.Error
	resp.Need = r.Need
	return resp
}

func errorBody(code, message string, details any) ErrorBody {
	return ErrorBody{OK: false, Message: message, Error: ErrorInfo{Code: code, Details: details}}
}
