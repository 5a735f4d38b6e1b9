package opencv

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proctor-go/internal/errors"
)

// cascadePath returns the Haar cascade used by integration tests, skipping when absent
func cascadePath(t *testing.T) string {
	t.Helper()
	path := os.Getenv("PROCTOR_CASCADE_PATH")
	if path == "" {
		t.Skip("PROCTOR_CASCADE_PATH not set")
	}
	return path
}

func TestCascadeDetectorBlankFrame(t *testing.T) {
	path := cascadePath(t)

	detector, err := NewCascadeDetector(path, 2, CascadeOptions{ScaleFactor: 1.1, MinNeighbors: 5, MinSize: 30})
	require.NoError(t, err)
	t.Cleanup(func() { _ = detector.Close() })

	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	img.Set(0, 0, color.White)

	faces, err := detector.DetectFaces(img)
	require.NoError(t, err)
	assert.Empty(t, faces)
}

func TestNewCascadeDetectorMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewCascadeDetector("/nonexistent/haarcascade_frontalface_default.xml", 1, CascadeOptions{ScaleFactor: 1.1})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelLoad))
}
