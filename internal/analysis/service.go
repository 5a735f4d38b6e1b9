// Package analysis runs the face and audio analyzers for the API and the CLI.
// It adds what the analyzers deliberately leave out: request deadlines,
// metrics, logging, verdict publishing and the multi-frame/multi-window
// reports for recorded media.
package analysis

import (
	"context"
	"image"
	"time"

	"github.com/tphakala/proctor-go/internal/audio"
	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/observability/metrics"
	"github.com/tphakala/proctor-go/internal/vision"
)

// FaceAnalyzer is satisfied by *vision.Analyzer
type FaceAnalyzer interface {
	AnalyzeFrame(raw []byte) (vision.FaceSignalResult, error)
	AnalyzeImage(img image.Image) (vision.FaceSignalResult, error)
}

// AudioAnalyzer is satisfied by *audio.Analyzer
type AudioAnalyzer interface {
	AnalyzeAudio(samples []float32, sampleRate int) (audio.AudioSignalResult, error)
}

// VerdictPublisher is satisfied by *mqtt.Publisher
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, kind string, timestamp *int64, flags []string, analysis any) error
}

// Service coordinates analyses. It is safe for concurrent use.
type Service struct {
	face      FaceAnalyzer
	audio     AudioAnalyzer
	frames    vision.FrameSource
	metrics   *metrics.AnalyzerMetrics
	publisher *asyncPublisher
	log       logger.Logger

	videoWorkers int
	blobWindow   time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithFrameSource enables recorded video analysis
func WithFrameSource(src vision.FrameSource) Option {
	return func(s *Service) { s.frames = src }
}

// WithMetrics records every analysis in m
func WithMetrics(m *metrics.AnalyzerMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher publishes every successful face and audio verdict. Publishing
// happens on a background goroutine; Close drains it.
func WithPublisher(p VerdictPublisher, queueSize int) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = newAsyncPublisher(p, queueSize)
		}
	}
}

// WithVideoWorkers sets how many sampled frames are analyzed in parallel.
// The detector pools bound real parallelism, so more workers than pool
// instances only queues frames.
func WithVideoWorkers(n int) Option {
	return func(s *Service) { s.videoWorkers = n }
}

// WithBlobWindow sets the window length used for audio blobs
func WithBlobWindow(d time.Duration) Option {
	return func(s *Service) { s.blobWindow = d }
}

// WithLogger replaces the package logger
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service around the two analyzers. face may be nil for
// audio-only use; face and video calls then fail with a configuration error.
func NewService(face FaceAnalyzer, aud AudioAnalyzer, opts ...Option) (*Service, error) {
	if aud == nil {
		return nil, errors.Newf("audio analyzer is required").
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s := &Service{
		face:         face,
		audio:        aud,
		log:          GetLogger(),
		videoWorkers: 2,
		blobWindow:   time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.videoWorkers < 1:
		return nil, errors.Newf("video workers must be at least 1, got %d", s.videoWorkers).
			Component("analysis").Category(errors.CategoryConfiguration).Build()
	case s.blobWindow <= 0:
		return nil, errors.Newf("blob window must be positive, got %s", s.blobWindow).
			Component("analysis").Category(errors.CategoryConfiguration).Build()
	}

	if s.publisher != nil {
		s.publisher.start(s.log)
	}
	return s, nil
}

// AnalyzeFace analyzes one encoded frame
func (s *Service) AnalyzeFace(ctx context.Context, raw []byte, timestamp *int64) (vision.FaceSignalResult, error) {
	if s.face == nil {
		return vision.FaceSignalResult{}, unavailable("face analysis")
	}
	if err := ctx.Err(); err != nil {
		return vision.FaceSignalResult{}, err
	}

	start := time.Now()
	result, err := s.face.AnalyzeFrame(raw)
	s.observe(metrics.KindFace, start, err)
	if err != nil {
		s.logFailure(ctx, metrics.KindFace, err)
		return vision.FaceSignalResult{}, err
	}

	flags := result.Flags()
	if s.metrics != nil {
		s.metrics.ObserveFaces(result.FacesDetected)
		s.metrics.RecordFlags(metrics.KindFace, flags)
	}
	s.log.WithContext(ctx).Debug("Face analyzed",
		logger.Int("faces", result.FacesDetected),
		logger.Bool("looking_away", result.LookingAway),
		logger.Duration("elapsed", time.Since(start)))

	s.publish(metrics.KindFace, timestamp, flags, result)
	return result, nil
}

// AnalyzeAudio analyzes one mono sample buffer
func (s *Service) AnalyzeAudio(ctx context.Context, samples []float32, sampleRate int, timestamp *int64) (audio.AudioSignalResult, error) {
	if err := ctx.Err(); err != nil {
		return audio.AudioSignalResult{}, err
	}

	start := time.Now()
	result, err := s.audio.AnalyzeAudio(samples, sampleRate)
	s.observe(metrics.KindAudio, start, err)
	if err != nil {
		s.logFailure(ctx, metrics.KindAudio, err)
		return audio.AudioSignalResult{}, err
	}

	flags := result.Flags()
	if s.metrics != nil {
		s.metrics.ObserveAudioLevel(result.AudioLevel)
		s.metrics.RecordFlags(metrics.KindAudio, flags)
	}
	s.log.WithContext(ctx).Debug("Audio analyzed",
		logger.Int("samples", len(samples)),
		logger.Float64("level", result.AudioLevel),
		logger.Duration("elapsed", time.Since(start)))

	s.publish(metrics.KindAudio, timestamp, flags, result)
	return result, nil
}

// Close stops the background publisher after draining queued verdicts
func (s *Service) Close() {
	if s.publisher != nil {
		s.publisher.stop()
	}
}

func (s *Service) publish(kind string, timestamp *int64, flags []string, analysis any) {
	if s.publisher != nil {
		s.publisher.enqueue(verdict{kind: kind, timestamp: timestamp, flags: flags, analysis: analysis})
	}
}

// observe records count and duration of one analysis
func (s *Service) observe(kind string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperation(kind, statusOf(err))
	s.metrics.RecordDuration(kind, time.Since(start).Seconds())
}

func (s *Service) logFailure(ctx context.Context, kind string, err error) {
	log := s.log.WithContext(ctx)
	if errors.IsInvalidInput(err) {
		log.Debug("Rejected invalid input", logger.String("kind", kind), logger.Error(err))
		return
	}
	log.Error("Analysis failed", logger.String("kind", kind), logger.Error(err))
}

func unavailable(what string) error {
	return errors.Newf("%s is not available", what).
		Component("analysis").
		Category(errors.CategoryConfiguration).
		Build()
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.IsInvalidInput(err):
		return metrics.StatusInvalidInput
	default:
		return metrics.StatusError
	}
}
