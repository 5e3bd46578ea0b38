// Package events turns object-created notifications into pipeline
// dispatches, either pushed over HTTP or pulled from an SQS queue.
package events

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"portrait-pipeline/internal/model"
)

// testEvent is what S3 sends once when a notification target is configured.
const testEvent = "s3:TestEvent"

type notification struct {
	Event   string   `json:"Event"`
	Records []record `json:"Records"`
}

type record struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// Decode parses an S3 event notification document. Object keys arrive
// form-encoded and are returned decoded. Test events and non-create
// records yield nothing.
func Decode(body []byte) ([]model.ObjectCreated, error) {
	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	if n.Event == testEvent {
		return nil, nil
	}

	out := make([]model.ObjectCreated, 0, len(n.Records))
	for _, r := range n.Records {
		if r.EventName != "" && !strings.HasPrefix(r.EventName, "ObjectCreated:") {
			continue
		}
		key, err := url.QueryUnescape(r.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("decode object key %q: %w", r.S3.Object.Key, err)
		}
		if key == "" {
			return nil, fmt.Errorf("notification record without object key")
		}
		out = append(out, model.ObjectCreated{Bucket: r.S3.Bucket.Name, Key: key})
	}
	return out, nil
}
