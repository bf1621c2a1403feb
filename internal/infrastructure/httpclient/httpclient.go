package httpclient

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rent_payment_service/internal/infrastructure/retry"

	"github.com/go-resty/resty/v2"
)

const maxErrorBody = 512

// New returns a resty client for a JSON API. Retries are handled by the retry
// executor, never by resty itself.
func New(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
}

// Check turns a transport error or a non-2xx answer into an error.
func Check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &retry.StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String())}
	}
	return nil
}

// Decode checks the outcome and unmarshals a 2xx JSON body into out.
func Decode(resp *resty.Response, err error, out any) error {
	if err := Check(resp, err); err != nil {
		return err
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Message extracts a "message" or "detail" field from a JSON error body.
func Message(body string) string {
	var payload struct {
		Message any `json:"message"`
		Detail  any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		for _, v := range []any{payload.Message, payload.Detail} {
			switch m := v.(type) {
			case string:
				if m != "" {
					return m
				}
			case nil:
			default:
				if b, err := json.Marshal(m); err == nil {
					return string(b)
				}
			}
		}
	}
	return strings.TrimSpace(body)
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
