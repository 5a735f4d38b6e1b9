// Package vision turns one still frame into a FaceSignalResult.
//
// The Analyzer owns no models. A FaceDetector finds face rectangles and an
// optional LandmarkExtractor places mesh points on them; both are injected so
// that OpenCV and TFLite stay behind the opencv and facemesh subpackages.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/tphakala/proctor-go/internal/errors"
)

const componentName = "vision"

// Defaults for a new Analyzer
const (
	DefaultMaxTrackedFaces = 2
	DefaultGazeThreshold   = 0.1
	DefaultFaceConfidence  = 0.8
)

// FaceDetector finds face regions in a frame. Implementations handle any
// channel-order conversion their model needs.
type FaceDetector interface {
	DetectFaces(img image.Image) ([]image.Rectangle, error)
}

// LandmarkExtractor places landmarks on up to maxFaces of the detected faces.
// Returned points are normalized to the whole frame.
type LandmarkExtractor interface {
	ExtractLandmarks(img image.Image, faces []image.Rectangle, maxFaces int) ([]LandmarkSet, error)
}

// FrameDecoder turns encoded bytes (JPEG, PNG, ...) into an image. Without
// WithFrameDecoder the analyzer uses image.Decode, which knows only the
// formats registered by the binary; servers inject media.DecodeImage.
type FrameDecoder func(raw []byte) (image.Image, error)

// Analyzer computes face signals. It holds only immutable settings and the
// injected collaborators, so it is safe for concurrent use as long as they are.
type Analyzer struct {
	detector   FaceDetector
	extractor  LandmarkExtractor
	decode     FrameDecoder
	topology   Topology
	maxFaces   int
	gaze       float64
	confidence float64
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithFrameDecoder replaces the default image.Decode based decoder
func WithFrameDecoder(decode FrameDecoder) Option {
	return func(a *Analyzer) {
		if decode != nil {
			a.decode = decode
		}
	}
}

// WithTopology sets the landmark indices for nose and eyes
func WithTopology(t Topology) Option {
	return func(a *Analyzer) { a.topology = t }
}

// WithMaxTrackedFaces limits how many faces get landmarks
func WithMaxTrackedFaces(n int) Option {
	return func(a *Analyzer) { a.maxFaces = n }
}

// WithGazeThreshold sets the eye-nose deviation above which the subject looks away
func WithGazeThreshold(threshold float64) Option {
	return func(a *Analyzer) { a.gaze = threshold }
}

// WithConfidence sets the confidence reported when at least one face is present
func WithConfidence(confidence float64) Option {
	return func(a *Analyzer) { a.confidence = confidence }
}

// NewAnalyzer creates a Frame Analyzer. extractor may be nil, in which case no
// landmark-derived signals are produced.
func NewAnalyzer(detector FaceDetector, extractor LandmarkExtractor, opts ...Option) (*Analyzer, error) {
	if detector == nil {
		return nil, errors.Newf("face detector is required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	a := &Analyzer{
		detector:   detector,
		extractor:  extractor,
		decode:     decodeImage,
		topology:   DefaultTopology,
		maxFaces:   DefaultMaxTrackedFaces,
		gaze:       DefaultGazeThreshold,
		confidence: DefaultFaceConfidence,
	}
	for _, opt := range opts {
		opt(a)
	}

	switch {
	case a.maxFaces < 1:
		return nil, errors.Newf("max tracked faces must be at least 1, got %d", a.maxFaces).
			Component(componentName).Category(errors.CategoryConfiguration).Build()
	case a.topology.NoseTip < 0 || a.topology.LeftEye < 0 || a.topology.RightEye < 0:
		return nil, errors.Newf("landmark topology indices must not be negative: %+v", a.topology).
			Component(componentName).Category(errors.CategoryConfiguration).Build()
	case a.gaze <= 0 || math.IsNaN(a.gaze):
		return nil, errors.Newf("gaze threshold must be positive, got %g", a.gaze).
			Component(componentName).Category(errors.CategoryConfiguration).Build()
	}

	return a, nil
}

// AnalyzeFrame decodes raw and analyzes the resulting image
func (a *Analyzer) AnalyzeFrame(raw []byte) (FaceSignalResult, error) {
	if len(raw) == 0 {
		return FaceSignalResult{}, errors.InvalidInputf(componentName, "image data is empty")
	}

	img, err := a.decode(raw)
	if err != nil {
		return FaceSignalResult{}, errors.New(fmt.Errorf("failed to decode image: %w", err)).
			Component(componentName).
			Category(errors.CategoryInvalidInput).
			Context("bytes", len(raw)).
			Build()
	}

	return a.AnalyzeImage(img)
}

// AnalyzeImage runs detection and landmark extraction on an already decoded frame
func (a *Analyzer) AnalyzeImage(img image.Image) (FaceSignalResult, error) {
	if img == nil || img.Bounds().Empty() {
		return FaceSignalResult{}, errors.InvalidInputf(componentName, "image has zero area")
	}

	faces, err := a.detectFaces(img)
	if err != nil {
		return FaceSignalResult{}, err
	}

	result := FaceSignalResult{
		FacesDetected: len(faces),
		MultipleFaces: len(faces) > 1,
	}
	if result.FacesDetected > 0 {
		result.Confidence = a.confidence
	}

	// Landmarks exist only per detected face
	if result.FacesDetected == 0 {
		return result, nil
	}

	landmarks, err := a.extractLandmarks(img, faces)
	if err != nil {
		return FaceSignalResult{}, err
	}
	if len(landmarks) == 0 {
		return result, nil
	}

	first := landmarks[0]
	if len(first.Points) <= a.topology.maxIndex() {
		return FaceSignalResult{}, errors.AnalysisError(
			fmt.Errorf("landmark set has %d points, topology needs index %d", len(first.Points), a.topology.maxIndex()),
			componentName, "read_landmarks")
	}

	nose := first.Points[a.topology.NoseTip]
	bounds := img.Bounds()
	result.FacePosition = &FacePosition{
		X: int(nose.X * float64(bounds.Dx())),
		Y: int(nose.Y * float64(bounds.Dy())),
	}
	result.LookingAway = a.isLookingAway(first)

	return result, nil
}

// isLookingAway compares the eye midpoint with the nose tip on both axes
func (a *Analyzer) isLookingAway(set LandmarkSet) bool {
	nose := set.Points[a.topology.NoseTip]
	left := set.Points[a.topology.LeftEye]
	right := set.Points[a.topology.RightEye]

	eyeX := (left.X + right.X) / 2
	eyeY := (left.Y + right.Y) / 2

	return math.Abs(eyeX-nose.X) > a.gaze || math.Abs(eyeY-nose.Y) > a.gaze
}

// detectFaces calls the detector, turning errors and panics into analysis errors
func (a *Analyzer) detectFaces(img image.Image) (faces []image.Rectangle, err error) {
	defer func() {
		if r := recover(); r != nil {
			faces = nil
			err = errors.AnalysisError(fmt.Errorf("face detector panicked: %v", r), componentName, "detect_faces")
		}
	}()

	faces, err = a.detector.DetectFaces(img)
	if err != nil {
		return nil, errors.AnalysisError(fmt.Errorf("face detection failed: %w", err), componentName, "detect_faces")
	}
	return faces, nil
}

// extractLandmarks calls the extractor, if any, with the same error handling as detectFaces
func (a *Analyzer) extractLandmarks(img image.Image, faces []image.Rectangle) (sets []LandmarkSet, err error) {
	if a.extractor == nil {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			sets = nil
			err = errors.AnalysisError(fmt.Errorf("landmark extractor panicked: %v", r), componentName, "extract_landmarks")
		}
	}()

	sets, err = a.extractor.ExtractLandmarks(img, faces, a.maxFaces)
	if err != nil {
		return nil, errors.AnalysisError(fmt.Errorf("landmark extraction failed: %w", err), componentName, "extract_landmarks")
	}
	return sets, nil
}

// decodeImage is the default FrameDecoder
func decodeImage(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	return img, err
}
