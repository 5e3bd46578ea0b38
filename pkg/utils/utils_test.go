package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectLayoutKey(t *testing.T) {
	l := NewObjectLayout("face-images", "/face-cropped-images/", "face-swapped-images/", "result-images")

	assert.Equal(t, "face-images/a-b.jpeg", l.Key(PathRaw, "a-b.jpeg"))
	assert.Equal(t, "face-cropped-images/a-b.jpeg", l.Key(PathCropped, "face-images/a-b.jpeg"))
	assert.Equal(t, "result-images/a-b.jpeg", l.Key(PathResult, "../../a-b.jpeg"))
	assert.Equal(t, "face-swapped-images/", l.Prefix(PathSwapped))
}

func TestObjectLayoutPathOf(t *testing.T) {
	l := NewObjectLayout("uploads", "uploads/cropped", "swapped", "results")

	assert.Equal(t, PathRaw, l.PathOf("uploads/x.jpeg"))
	assert.Equal(t, PathCropped, l.PathOf("uploads/cropped/x.jpeg"))
	assert.Equal(t, PathSwapped, l.PathOf("swapped/x.jpeg"))
	assert.Equal(t, PathResult, l.PathOf("results/x.jpeg"))
	assert.Equal(t, PathUnknown, l.PathOf("base-images/x.jpeg"))
	assert.Equal(t, PathUnknown, l.PathOf("resultsx.jpeg"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType("a.JPEG"))
	assert.Equal(t, "image/jpeg", ContentType("dir/a.jpg"))
	assert.Equal(t, "image/png", ContentType("a.png"))
	assert.Equal(t, "application/octet-stream", ContentType("a"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpeg", Extension("image/jpeg"))
	assert.Equal(t, ".png", Extension("IMAGE/PNG"))
	assert.Equal(t, ".jpeg", Extension("image/heic"))
	assert.Equal(t, "image/webp", ContentType("a"+Extension("image/webp")))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, ParseDuration(""))
	assert.Equal(t, 5*time.Minute, ParseDuration("soon"))
	assert.Equal(t, 90*time.Second, ParseDuration("90s"))
	assert.Equal(t, 50*time.Second, ParseDurationOr("-1s", 50*time.Second))
}
