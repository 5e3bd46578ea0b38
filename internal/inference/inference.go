// Package inference calls the external face-swap and restoration services.
// Calls are fire-and-return: the service writes its output object itself and
// the response body is ignored.
package inference

import (
	"context"
	"time"
)

// Request is the body every inference endpoint accepts.
type Request struct {
	UUID   string `json:"uuid"`
	Bucket string `json:"bucket"`
	Source string `json:"source"`
	Target string `json:"target,omitempty"`
	Output string `json:"output"`
}

// Invoker sends a Request to a named endpoint. Failures are returned as
// *model.UpstreamServiceError.
type Invoker interface {
	Invoke(ctx context.Context, endpoint string, req Request) error
}

// DefaultTimeout caps one call, well under the 60s stage limit.
const DefaultTimeout = 50 * time.Second

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
