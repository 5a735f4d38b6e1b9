package analysis

import (
	"context"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/proctor-go/internal/audio"
	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/observability/metrics"
	"github.com/tphakala/proctor-go/internal/vision"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFace returns canned results; frames whose first byte is 'x' are rejected
type fakeFace struct {
	result  vision.FaceSignalResult
	byImage func(img image.Image) vision.FaceSignalResult
}

func (f *fakeFace) AnalyzeFrame(raw []byte) (vision.FaceSignalResult, error) {
	if len(raw) == 0 || raw[0] == 'x' {
		return vision.FaceSignalResult{}, errors.InvalidInputf("vision", "undecodable frame")
	}
	return f.result, nil
}

func (f *fakeFace) AnalyzeImage(img image.Image) (vision.FaceSignalResult, error) {
	if f.byImage != nil {
		return f.byImage(img), nil
	}
	return f.result, nil
}

type recordedVerdict struct {
	kind      string
	timestamp *int64
	flags     []string
}

type fakePublisher struct {
	mu       sync.Mutex
	verdicts []recordedVerdict
	block    chan struct{}
}

func (p *fakePublisher) PublishVerdict(_ context.Context, kind string, ts *int64, flags []string, _ any) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verdicts = append(p.verdicts, recordedVerdict{kind: kind, timestamp: ts, flags: flags})
	return nil
}

func (p *fakePublisher) recorded() []recordedVerdict {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedVerdict(nil), p.verdicts...)
}

func newAudio(t *testing.T) *audio.Analyzer {
	t.Helper()
	a, err := audio.NewAnalyzer()
	require.NoError(t, err)
	return a
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(&fakeFace{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = NewService(&fakeFace{}, newAudio(t), WithVideoWorkers(0))
	require.Error(t, err)

	_, err = NewService(&fakeFace{}, newAudio(t), WithBlobWindow(0))
	require.Error(t, err)
}

func TestAnalyzeFacePublishesVerdict(t *testing.T) {
	pub := &fakePublisher{}
	face := &fakeFace{result: vision.FaceSignalResult{FacesDetected: 2, MultipleFaces: true, Confidence: 0.8}}
	svc, err := NewService(face, newAudio(t), WithPublisher(pub, 4))
	require.NoError(t, err)

	ts := int64(1700000000000)
	result, err := svc.AnalyzeFace(t.Context(), []byte("frame"), &ts)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FacesDetected)

	svc.Close()

	verdicts := pub.recorded()
	require.Len(t, verdicts, 1)
	assert.Equal(t, metrics.KindFace, verdicts[0].kind)
	assert.Equal(t, []string{"multiple_faces"}, verdicts[0].flags)
	require.NotNil(t, verdicts[0].timestamp)
	assert.Equal(t, ts, *verdicts[0].timestamp)
}

func TestAudioOnlyService(t *testing.T) {
	svc, err := NewService(nil, newAudio(t))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.AnalyzeFace(t.Context(), []byte("frame"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = svc.AnalyzeAudio(t.Context(), make([]float32, 16), 8000, nil)
	require.NoError(t, err)
}

func TestFailedAnalysisIsNotPublished(t *testing.T) {
	pub := &fakePublisher{}
	svc, err := NewService(&fakeFace{}, newAudio(t), WithPublisher(pub, 4))
	require.NoError(t, err)

	_, err = svc.AnalyzeFace(t.Context(), []byte("x"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	_, err = svc.AnalyzeAudio(t.Context(), nil, 44100, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	svc.Close()
	assert.Empty(t, pub.recorded())
}

func TestFullQueueDropsVerdicts(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	svc, err := NewService(&fakeFace{}, newAudio(t), WithPublisher(pub, 1))
	require.NoError(t, err)

	// The worker takes the first verdict and blocks, the second fills the
	// queue and the rest are dropped without blocking the caller.
	for range 5 {
		_, err := svc.AnalyzeFace(t.Context(), []byte("frame"), nil)
		require.NoError(t, err)
	}

	close(pub.block)
	svc.Close()

	got := len(pub.recorded())
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 2)
}

func TestAnalysisAfterCloseDoesNotPanic(t *testing.T) {
	pub := &fakePublisher{}
	svc, err := NewService(&fakeFace{}, newAudio(t), WithPublisher(pub, 4))
	require.NoError(t, err)

	svc.Close()
	svc.Close()

	// A handler outliving the shutdown deadline still completes its call
	assert.NotPanics(t, func() {
		_, err := svc.AnalyzeFace(t.Context(), []byte("frame"), nil)
		require.NoError(t, err)
		_, err = svc.AnalyzeAudio(t.Context(), make([]float32, 16), 8000, nil)
		require.NoError(t, err)
	})
	assert.Empty(t, pub.recorded())
}

func TestCanceledContextSkipsAnalysis(t *testing.T) {
	svc, err := NewService(&fakeFace{}, newAudio(t))
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = svc.AnalyzeFace(ctx, []byte("frame"), nil)
	require.ErrorIs(t, err, context.Canceled)

	_, err = svc.AnalyzeAudio(ctx, []float32{0.5}, 44100, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestServiceRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewAnalyzerMetrics(registry)
	require.NoError(t, err)

	svc, err := NewService(&fakeFace{result: vision.FaceSignalResult{LookingAway: true, FacesDetected: 1}},
		newAudio(t), WithMetrics(m))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.AnalyzeFace(t.Context(), []byte("frame"), nil)
	require.NoError(t, err)
	_, err = svc.AnalyzeFace(t.Context(), []byte("x"), nil)
	require.Error(t, err)
	_, err = svc.AnalyzeAudio(t.Context(), make([]float32, 64), 16000, nil)
	require.NoError(t, err)

	expected := `
# HELP proctor_analyses_total Total number of analyses by kind and outcome
# TYPE proctor_analyses_total counter
proctor_analyses_total{kind="audio",status="success"} 1
proctor_analyses_total{kind="face",status="invalid_input"} 1
proctor_analyses_total{kind="face",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "proctor_analyses_total"))
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, metrics.StatusSuccess, statusOf(nil))
	assert.Equal(t, metrics.StatusInvalidInput, statusOf(errors.InvalidInputf("audio", "bad")))
	assert.Equal(t, metrics.StatusError, statusOf(context.DeadlineExceeded))
}

func TestRoundSeconds(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.235, roundSeconds(1234567*time.Microsecond), 1e-9)
	assert.InDelta(t, 0, roundSeconds(0), 0)
}
