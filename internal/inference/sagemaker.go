package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sagemakerruntime"
	"github.com/aws/aws-sdk-go/service/sagemakerruntime/sagemakerruntimeiface"

	"portrait-pipeline/internal/model"
)

// SageMakerInvoker calls SageMaker real-time endpoints by name.
type SageMakerInvoker struct {
	client  sagemakerruntimeiface.SageMakerRuntimeAPI
	timeout time.Duration
}

func NewSageMakerInvoker(client sagemakerruntimeiface.SageMakerRuntimeAPI, timeout time.Duration) *SageMakerInvoker {
	return &SageMakerInvoker{client: client, timeout: timeout}
}

func (s *SageMakerInvoker) Invoke(ctx context.Context, endpoint string, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode inference request: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.client.InvokeEndpointWithContext(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(endpoint),
		ContentType:  aws.String("application/json"),
		Body:         body,
	})
	if err != nil {
		return &model.UpstreamServiceError{Service: endpoint, Err: err}
	}
	return nil
}
