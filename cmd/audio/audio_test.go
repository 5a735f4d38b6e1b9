package audio

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proctor-go/internal/analysis"
	"github.com/tphakala/proctor-go/internal/media"
)

type stubClips struct{ got media.Clip }

func (s *stubClips) AnalyzeAudioClip(_ context.Context, clip media.Clip) (*analysis.BlobReport, error) {
	s.got = clip
	return &analysis.BlobReport{
		Duration:           clip.Duration().Seconds(),
		SpeakerCount:       1,
		SuspiciousPatterns: []analysis.Pattern{{OffsetSeconds: 2, Type: analysis.PatternSuddenSpike}},
	}, nil
}

func TestRenderRawPCM(t *testing.T) {
	color.NoColor = true

	raw := make([]byte, 4*8)
	for i := range 8 {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(0.25))
	}
	path := filepath.Join(t.TempDir(), "clip.pcm")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	stub := &stubClips{}
	out := render(t.Context(), stub, []string{path}, 4)

	assert.Equal(t, 4, stub.got.SampleRate)
	assert.Contains(t, out, "pcm_f32le")
	assert.Contains(t, out, "2.00s")
	assert.Contains(t, out, "2.0s")
}

func TestRenderRejectsWebM(t *testing.T) {
	color.NoColor = true

	path := filepath.Join(t.TempDir(), "clip.webm")
	require.NoError(t, os.WriteFile(path, []byte{0x1A, 0x45, 0xDF, 0xA3, 0, 0, 0, 0}, 0o600))

	out := render(t.Context(), &stubClips{}, []string{path}, 44100)
	assert.Contains(t, out, "webm")
	assert.Contains(t, out, "error: unsupported")
}
