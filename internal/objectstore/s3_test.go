package objectstore

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPresigner(t *testing.T) *S3Presigner {
	t.Helper()
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String("us-east-1"),
		Credentials:      credentials.NewStaticCredentials("AKIDTEST", "SECRETTEST", ""),
		Endpoint:         aws.String("http://localhost:9000"),
		S3ForcePathStyle: aws.Bool(true),
	})
	require.NoError(t, err)
	return NewS3Presigner(s3.New(sess), "gallery")
}

func TestPresignUpload(t *testing.T) {
	p := newTestPresigner(t)
	key := "face-images/20250101000000-user1-Edo-female-light-5f0c6a1e-2b7d-4c1e-9a57-0d1c2e3f4a5b.jpeg"

	raw, err := p.PresignUpload(context.Background(), key, "image/jpeg", 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/gallery/"+key, u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")
}

func TestPresignDownload(t *testing.T) {
	p := newTestPresigner(t)

	raw, err := p.PresignDownload(context.Background(), "result-images/a.jpeg", 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/gallery/result-images/a.jpeg", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "image/jpeg", u.Query().Get("response-content-type"))
}
