// Package pos talks to the point-of-sale appointment API.
package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"retell-pos-bridge/pkg/logger"
	"retell-pos-bridge/pkg/utils"
)

const appointmentsPath = "/api/v1/open-api/appointments"

const maxResponseBytes = 1 << 20

const (
	msgAuthFailed       = "Mình chưa đặt được trên POS do lỗi xác thực. Bạn nhắn mình thử lại sau 1–2 phút nhé."
	msgBookingFailed    = "Khung giờ này có thể đang bận hoặc dữ liệu chưa hợp lệ. Bạn chọn giúp mình khung giờ khác được không?"
	msgBookingException = "Hệ thống gặp lỗi khi tạo lịch. Bạn thử lại giúp mình nhé."
)

// Client makes a single attempt per booking. There is no retry and no client
// timeout; cancellation comes from the caller's context.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string

	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey, bearerToken string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		BearerToken: bearerToken,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

// CreateAppointment posts appt and classifies the reply.
func (c *Client) CreateAppointment(ctx context.Context, appt Appointment) Outcome {
	log := logger.From(ctx).With("reference_id", appt.ReferenceID)

	status, body, err := c.post(ctx, appt)
	if err != nil {
		log.Error("pos request failed", "err", err)
		return exception(err)
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		log.Warn("pos rejected credentials", "status", status)
		return Outcome{
			Error:  CodeAuthFailed,
			Text:   msgAuthFailed,
			Detail: FailureDetail{Status: status, Data: decodeLoose(body)},
		}
	}
	if status < 200 || status >= 300 {
		log.Warn("pos booking rejected", "status", status)
		return failed(status, decodeLoose(body))
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		log.Error("pos returned non-JSON body", "status", status, "err", err)
		return exception(fmt.Errorf("pos: decode response: %w", err))
	}
	obj, _ := data.(map[string]any)
	if !successMarker(obj) {
		log.Warn("pos reply missing success marker", "status", status)
		return failed(status, data)
	}

	id := bookingID(obj, appt.ReferenceID)
	log.Info("pos booking created", "booking_id", utils.FormatID(id))
	return Outcome{
		OK:        true,
		BookingID: id,
		Text:      fmt.Sprintf("✅ Đã ghi nhận lịch lúc %s. Mã lịch: %s", startTime(appt), utils.FormatID(id)),
		Data:      data,
	}
}

func (c *Client) post(ctx context.Context, appt Appointment) (int, []byte, error) {
	payload, err := json.Marshal(appt)
	if err != nil {
		return 0, nil, fmt.Errorf("pos: marshal appointment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+appointmentsPath, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("pos: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("pos: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	// Drain remainder for connection reuse.
	_, _ = io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("pos: read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func exception(err error) Outcome {
	return Outcome{Error: CodeBookingException, Text: msgBookingException, Detail: err.Error()}
}

func failed(status int, data any) Outcome {
	return Outcome{
		Error:  CodeBookingFailed,
		Text:   msgBookingFailed,
		Detail: FailureDetail{Status: status, Data: data},
	}
}

// decodeLoose returns the parsed body, or an empty object when it is not JSON.
func decodeLoose(body []byte) any {
	var data any
	if err := json.Unmarshal(body, &data); err != nil || data == nil {
		return map[string]any{}
	}
	return data
}

func successMarker(obj map[string]any) bool {
	n, ok := obj["statusCode"].(float64)
	return ok && n == 200
}

// bookingID takes the first truthy of data, id, bookingId and falls back to ref.
func bookingID(obj map[string]any, ref string) any {
	for _, key := range []string{"data", "id", "bookingId"} {
		if v, ok := obj[key]; ok && truthy(v) {
			return v
		}
	}
	return ref
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func startTime(appt Appointment) string {
	if len(appt.Items) == 0 {
		return ""
	}
	return appt.Items[0].StartTime
}
