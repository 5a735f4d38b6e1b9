package facemesh

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/vision"
)

func TestDecodeLandmarks(t *testing.T) {
	t.Parallel()

	raw := make([]float32, NumLandmarks*3)
	raw[0], raw[1], raw[2] = 96, 48, -12
	raw[3*467], raw[3*467+1] = 192, 0

	points := decodeLandmarks(raw)
	require.Len(t, points, NumLandmarks)
	assert.Equal(t, vision.Point{X: 0.5, Y: 0.25}, points[0])
	assert.Equal(t, vision.Point{X: 1, Y: 0}, points[467])
}

func TestSigmoid(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, sigmoid(0), 1e-12)
	assert.Greater(t, sigmoid(6), 0.99)
	assert.Less(t, sigmoid(-6), 0.01)
}

func TestToInputTensor(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for y := range 300 {
		for x := range 400 {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	tensor := toInputTensor(img, image.Rect(50, 0, 350, 300))
	require.Len(t, tensor, InputSize*InputSize*3)
	assert.InDelta(t, 1.0, tensor[0], 1e-6)
	assert.InDelta(t, 0.0, tensor[1], 1e-6)
	assert.InDelta(t, 0.2, tensor[2], 1e-6)

	last := len(tensor) - 3
	assert.InDelta(t, 1.0, tensor[last], 1e-6)
}

func TestNewExtractorMissingModel(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor("/nonexistent/face_landmark.tflite", 1, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelLoad))
}

func TestExtractLandmarksWithoutFaces(t *testing.T) {
	t.Parallel()

	// No interpreter is needed when there is nothing to crop
	ex := &Extractor{}
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))

	sets, err := ex.ExtractLandmarks(img, nil, 2)
	require.NoError(t, err)
	assert.Empty(t, sets)

	sets, err = ex.ExtractLandmarks(img, []image.Rectangle{image.Rect(0, 0, 32, 32)}, 0)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestExtractorOnBlankFrame(t *testing.T) {
	path := os.Getenv("PROCTOR_FACEMESH_MODEL")
	if path == "" {
		t.Skip("PROCTOR_FACEMESH_MODEL not set")
	}

	ex, err := NewExtractor(path, 1, Options{MinConfidence: 0.5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ex.Close() })

	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	sets, err := ex.ExtractLandmarks(img, []image.Rectangle{img.Bounds()}, 2)
	require.NoError(t, err)
	assert.Empty(t, sets, "a uniform frame should not pass the face presence check")
}
