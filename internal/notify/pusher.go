package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrEndpointGone marks a push endpoint that the receiving service reports
// as expired. The caller must deregister it.
var ErrEndpointGone = errors.New("push endpoint gone")

// Pusher delivers one notification to one endpoint.
type Pusher interface {
	Push(ctx context.Context, endpoint, title, body string) error
}

// HTTPPusher posts the notification payload to the subscription endpoint.
type HTTPPusher struct {
	httpClient *http.Client
}

func NewHTTPPusher() *HTTPPusher {
	return &HTTPPusher{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (p *HTTPPusher) Push(ctx context.Context, endpoint, title, body string) error {
	encoded, err := json.Marshal(pushPayload{Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver push to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("endpoint %s: %w", endpoint, ErrEndpointGone)
	default:
		return fmt.Errorf("push to %s returned status %d", endpoint, resp.StatusCode)
	}
}
