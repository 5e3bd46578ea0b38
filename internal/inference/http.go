package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"portrait-pipeline/internal/model"
)

// HTTPInvoker posts the request as JSON to an endpoint URL. Used with
// self-hosted inference containers.
type HTTPInvoker struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPInvoker uses http.DefaultClient when client is nil.
func NewHTTPInvoker(client *http.Client, timeout time.Duration) *HTTPInvoker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPInvoker{client: client, timeout: timeout}
}

func (h *HTTPInvoker) Invoke(ctx context.Context, endpoint string, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode inference request: %w", err)
	}

	ctx, cancel := withTimeout(ctx, h.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &model.UpstreamServiceError{Service: endpoint, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return &model.UpstreamServiceError{Service: endpoint, Err: err}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.UpstreamServiceError{
			Service: endpoint,
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return nil
}
