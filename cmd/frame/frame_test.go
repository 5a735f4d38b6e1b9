package frame

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/vision"
)

type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeFrame(raw []byte) (vision.FaceSignalResult, error) {
	if string(raw) == "garbage" {
		return vision.FaceSignalResult{}, errors.InvalidInputf("vision", "failed to decode image")
	}
	return vision.FaceSignalResult{
		FacesDetected: 2,
		MultipleFaces: true,
		FacePosition:  &vision.FacePosition{X: 320, Y: 240},
	}, nil
}

func TestRenderFrames(t *testing.T) {
	color.NoColor = true

	dir := t.TempDir()
	good := filepath.Join(dir, "good.jpg")
	bad := filepath.Join(dir, "bad.jpg")
	require.NoError(t, os.WriteFile(good, []byte("jpeg"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o600))

	out := render(stubAnalyzer{}, []string{good, bad, filepath.Join(dir, "missing.jpg")})

	assert.Contains(t, out, "good.jpg")
	assert.Contains(t, out, "320,240")
	assert.Contains(t, out, "multiple_faces")
	assert.Contains(t, out, "error: failed to decode image")
	assert.Contains(t, out, "missing.jpg")
}
