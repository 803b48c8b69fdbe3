package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPAcknowledger posts acknowledgements to the application's ack endpoints.
type HTTPAcknowledger struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPAcknowledger(baseURL string, timeout time.Duration) *HTTPAcknowledger {
	return &HTTPAcknowledger{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAcknowledger) Delivered(ctx context.Context, notificationID string) error {
	return a.post(ctx, notificationID, "delivered", nil)
}

func (a *HTTPAcknowledger) Clicked(ctx context.Context, notificationID, action string) error {
	body, err := json.Marshal(struct {
		Action string `json:"action"`
	}{Action: action})
	if err != nil {
		return err
	}
	return a.post(ctx, notificationID, "clicked", body)
}

func (a *HTTPAcknowledger) post(ctx context.Context, notificationID, kind string, body []byte) error {
	endpoint := fmt.Sprintf("%s/api/notifications/%s/%s", a.baseURL, url.PathEscape(notificationID), kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s ack: status %d", kind, resp.StatusCode)
	}
	return nil
}
