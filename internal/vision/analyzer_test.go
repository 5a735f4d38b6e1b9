package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proctor-go/internal/errors"
)

// fakeDetector returns a fixed set of faces
type fakeDetector struct {
	faces []image.Rectangle
	err   error
	panic bool
}

func (f *fakeDetector) DetectFaces(image.Image) ([]image.Rectangle, error) {
	if f.panic {
		panic("cascade not loaded")
	}
	return f.faces, f.err
}

// fakeExtractor returns fixed landmark sets and records the requested limit
type fakeExtractor struct {
	mu       sync.Mutex
	sets     []LandmarkSet
	err      error
	panic    bool
	maxFaces int
	calls    int
}

func (f *fakeExtractor) ExtractLandmarks(_ image.Image, _ []image.Rectangle, maxFaces int) ([]LandmarkSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.maxFaces = maxFaces
	if f.panic {
		panic("interpreter crashed")
	}
	return f.sets, f.err
}

// meshWith builds a 468-point set with the default nose and eye positions set
func meshWith(nose, left, right Point) LandmarkSet {
	points := make([]Point, 468)
	points[DefaultTopology.NoseTip] = nose
	points[DefaultTopology.LeftEye] = left
	points[DefaultTopology.RightEye] = right
	return LandmarkSet{Points: points}
}

func blankFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestAnalyzer(t *testing.T, d FaceDetector, e LandmarkExtractor, opts ...Option) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(d, e, opts...)
	require.NoError(t, err)
	return a
}

var oneFace = []image.Rectangle{image.Rect(200, 100, 400, 300)}

func TestAnalyzeImageNoFaces(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, &fakeDetector{}, &fakeExtractor{})

	result, err := a.AnalyzeImage(blankFrame(640, 480))
	require.NoError(t, err)
	assert.Equal(t, FaceSignalResult{}, result)
	assert.Nil(t, result.FacePosition)
	assert.Equal(t, []string{"no_face"}, result.Flags())
}

func TestNoFacesIgnoresLandmarks(t *testing.T) {
	t.Parallel()

	// A mesh that would be centered and looking away if it were read
	ext := &fakeExtractor{sets: []LandmarkSet{meshWith(Point{0.5, 0.5}, Point{0.8, 0.2}, Point{0.9, 0.2})}}
	a := newTestAnalyzer(t, &fakeDetector{}, ext)

	result, err := a.AnalyzeImage(blankFrame(100, 100))
	require.NoError(t, err)
	assert.Zero(t, result.FacesDetected)
	assert.Nil(t, result.FacePosition)
	assert.False(t, result.LookingAway)
	assert.InDelta(t, 0.0, result.Confidence, 0)
	assert.Zero(t, ext.calls)
}

func TestAnalyzeImageGaze(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		set         LandmarkSet
		lookingAway bool
	}{
		{
			name:        "eyes centred over nose",
			set:         meshWith(Point{0.5, 0.5}, Point{0.45, 0.45}, Point{0.55, 0.45}),
			lookingAway: false,
		},
		{
			name:        "horizontal deviation of 0.1",
			set:         meshWith(Point{0.5, 0.5}, Point{0.5, 0.5}, Point{0.7, 0.5}),
			lookingAway: false,
		},
		{
			name:        "horizontal deviation above threshold",
			set:         meshWith(Point{0.5, 0.5}, Point{0.57, 0.5}, Point{0.67, 0.5}),
			lookingAway: true,
		},
		{
			name:        "vertical deviation above threshold",
			set:         meshWith(Point{0.5, 0.7}, Point{0.45, 0.55}, Point{0.55, 0.55}),
			lookingAway: true,
		},
		{
			name:        "negative deviation above threshold",
			set:         meshWith(Point{0.5, 0.5}, Point{0.33, 0.5}, Point{0.43, 0.5}),
			lookingAway: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestAnalyzer(t, &fakeDetector{faces: oneFace}, &fakeExtractor{sets: []LandmarkSet{tt.set}})

			result, err := a.AnalyzeImage(blankFrame(640, 480))
			require.NoError(t, err)
			assert.Equal(t, 1, result.FacesDetected)
			assert.False(t, result.MultipleFaces)
			assert.Equal(t, tt.lookingAway, result.LookingAway)
			assert.False(t, result.PersonLeftSeat)
			assert.InDelta(t, 0.8, result.Confidence, 0)
		})
	}
}

func TestAnalyzeImageFacePosition(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{sets: []LandmarkSet{
		meshWith(Point{0.5009, 0.2499}, Point{0.45, 0.2}, Point{0.55, 0.2}),
		meshWith(Point{0.9, 0.9}, Point{0.9, 0.9}, Point{0.9, 0.9}),
	}}
	a := newTestAnalyzer(t, &fakeDetector{faces: oneFace}, ext)

	result, err := a.AnalyzeImage(blankFrame(640, 480))
	require.NoError(t, err)

	// Truncated toward zero, taken from the first landmark set only
	require.NotNil(t, result.FacePosition)
	assert.Equal(t, FacePosition{X: 320, Y: 119}, *result.FacePosition)
	assert.Equal(t, DefaultMaxTrackedFaces, ext.maxFaces)
}

func TestMultipleFacesIffMoreThanOne(t *testing.T) {
	t.Parallel()

	for count := range 5 {
		t.Run(fmt.Sprintf("%d faces", count), func(t *testing.T) {
			t.Parallel()

			faces := make([]image.Rectangle, count)
			for i := range faces {
				faces[i] = image.Rect(i*100, 0, i*100+80, 80)
			}
			a := newTestAnalyzer(t, &fakeDetector{faces: faces}, nil)

			result, err := a.AnalyzeImage(blankFrame(640, 480))
			require.NoError(t, err)
			assert.Equal(t, count, result.FacesDetected)
			assert.Equal(t, count > 1, result.MultipleFaces)
			if count > 0 {
				assert.InDelta(t, 0.8, result.Confidence, 0)
			} else {
				assert.Zero(t, result.Confidence)
			}
		})
	}
}

func TestFacesWithoutLandmarks(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, &fakeDetector{faces: oneFace}, &fakeExtractor{})

	result, err := a.AnalyzeImage(blankFrame(640, 480))
	require.NoError(t, err)
	assert.Equal(t, 1, result.FacesDetected)
	assert.Nil(t, result.FacePosition)
	assert.False(t, result.LookingAway)
	assert.InDelta(t, 0.8, result.Confidence, 0)
}

func TestAnalyzeFrameInvalidInput(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, &fakeDetector{faces: oneFace}, nil)

	tests := []struct {
		name string
		raw  []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"garbage", []byte("definitely not an image")},
		{"truncated png", encodePNG(t, blankFrame(8, 8))[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := a.AnalyzeFrame(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err))
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
			assert.Equal(t, FaceSignalResult{}, result)
		})
	}
}

func TestAnalyzeImageZeroArea(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, &fakeDetector{}, nil)

	_, err := a.AnalyzeImage(image.NewRGBA(image.Rect(0, 0, 0, 10)))
	assert.True(t, errors.IsInvalidInput(err))

	_, err = a.AnalyzeImage(nil)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestAnalyzeFrameDecodesPNG(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{sets: []LandmarkSet{meshWith(Point{0.5, 0.5}, Point{0.45, 0.45}, Point{0.55, 0.45})}}
	a := newTestAnalyzer(t, &fakeDetector{faces: oneFace}, ext)

	result, err := a.AnalyzeFrame(encodePNG(t, blankFrame(100, 50)))
	require.NoError(t, err)
	require.NotNil(t, result.FacePosition)
	assert.Equal(t, FacePosition{X: 50, Y: 25}, *result.FacePosition)
}

func TestCollaboratorFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		detector  *fakeDetector
		extractor *fakeExtractor
	}{
		{"detector error", &fakeDetector{err: fmt.Errorf("cascade empty")}, nil},
		{"detector panic", &fakeDetector{panic: true}, nil},
		{"extractor error", &fakeDetector{faces: oneFace}, &fakeExtractor{err: fmt.Errorf("invoke failed")}},
		{"extractor panic", &fakeDetector{faces: oneFace}, &fakeExtractor{panic: true}},
		{"short landmark set", &fakeDetector{faces: oneFace}, &fakeExtractor{sets: []LandmarkSet{{Points: make([]Point, 10)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ext LandmarkExtractor
			if tt.extractor != nil {
				ext = tt.extractor
			}
			a := newTestAnalyzer(t, tt.detector, ext)

			result, err := a.AnalyzeImage(blankFrame(64, 64))
			require.Error(t, err)
			assert.True(t, errors.IsAnalysis(err))
			assert.ErrorIs(t, err, errors.ErrAnalysis)
			assert.False(t, errors.IsInvalidInput(err))
			assert.Equal(t, FaceSignalResult{}, result)
		})
	}
}

func TestCustomOptions(t *testing.T) {
	t.Parallel()

	set := LandmarkSet{Points: []Point{{0.5, 0.5}, {0.5, 0.6}, {0.5, 0.6}}}
	ext := &fakeExtractor{sets: []LandmarkSet{set}}

	a := newTestAnalyzer(t, &fakeDetector{faces: oneFace}, ext,
		WithTopology(Topology{NoseTip: 0, LeftEye: 1, RightEye: 2}),
		WithMaxTrackedFaces(1),
		WithGazeThreshold(0.2),
		WithConfidence(0.9),
	)

	result, err := a.AnalyzeImage(blankFrame(10, 10))
	require.NoError(t, err)
	assert.False(t, result.LookingAway, "0.1 deviation is below the 0.2 threshold")
	assert.InDelta(t, 0.9, result.Confidence, 0)
	assert.Equal(t, 1, ext.maxFaces)
}

func TestCustomFrameDecoder(t *testing.T) {
	t.Parallel()

	decoded := blankFrame(20, 20)
	a := newTestAnalyzer(t, &fakeDetector{}, nil, WithFrameDecoder(func(raw []byte) (image.Image, error) {
		if string(raw) != "frame" {
			return nil, fmt.Errorf("unexpected payload")
		}
		return decoded, nil
	}))

	_, err := a.AnalyzeFrame([]byte("frame"))
	require.NoError(t, err)

	_, err = a.AnalyzeFrame([]byte("other"))
	assert.True(t, errors.IsInvalidInput(err))
}

func TestNewAnalyzerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewAnalyzer(nil, nil)
	require.Error(t, err)

	_, err = NewAnalyzer(&fakeDetector{}, nil, WithMaxTrackedFaces(0))
	require.Error(t, err)

	_, err = NewAnalyzer(&fakeDetector{}, nil, WithTopology(Topology{NoseTip: -1}))
	require.Error(t, err)

	_, err = NewAnalyzer(&fakeDetector{}, nil, WithGazeThreshold(0))
	require.Error(t, err)
}

func TestAnalyzeImageIsIdempotent(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{sets: []LandmarkSet{meshWith(Point{0.3, 0.4}, Point{0.5, 0.3}, Point{0.6, 0.3})}}
	a := newTestAnalyzer(t, &fakeDetector{faces: append(oneFace, image.Rect(0, 0, 50, 50))}, ext)
	frame := blankFrame(320, 240)

	first, err := a.AnalyzeImage(frame)
	require.NoError(t, err)
	second, err := a.AnalyzeImage(frame)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"multiple_faces", "looking_away"}, first.Flags())
}

func TestAnalyzeImageConcurrent(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{sets: []LandmarkSet{meshWith(Point{0.5, 0.5}, Point{0.45, 0.45}, Point{0.55, 0.45})}}
	a := newTestAnalyzer(t, &fakeDetector{faces: oneFace}, ext)
	frame := blankFrame(64, 64)

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			result, err := a.AnalyzeImage(frame)
			assert.NoError(t, err)
			assert.Equal(t, 1, result.FacesDetected)
		})
	}
	wg.Wait()

	assert.Equal(t, 16, ext.calls)
}
