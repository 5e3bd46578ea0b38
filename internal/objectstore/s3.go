package objectstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"portrait-pipeline/pkg/utils"
)

// Presigner issues time-limited URLs scoped to a single object.
type Presigner interface {
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// S3Presigner signs URLs locally with the client's credentials; no request
// is sent to S3.
type S3Presigner struct {
	client s3iface.S3API
	bucket string
}

// NewS3Presigner creates a presigner for bucket.
func NewS3Presigner(client s3iface.S3API, bucket string) *S3Presigner {
	return &S3Presigner{client: client, bucket: bucket}
}

// PresignUpload returns a PUT URL that only accepts contentType.
func (p *S3Presigner) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, _ := p.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	req.SetContext(ctx)

	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("presign upload %s: %w", key, err)
	}
	return url, nil
}

// PresignDownload returns a GET URL for key.
func (p *S3Presigner) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := p.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket:              aws.String(p.bucket),
		Key:                 aws.String(key),
		ResponseContentType: aws.String(utils.ContentType(key)),
	})
	req.SetContext(ctx)

	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("presign download %s: %w", key, err)
	}
	return url, nil
}
