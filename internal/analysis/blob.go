package analysis

import (
	"context"
	"time"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/media"
	"github.com/tphakala/proctor-go/internal/observability/metrics"
)

// PatternSuddenSpike marks a window whose tail is much louder than its head
const PatternSuddenSpike = "sudden_spike"

// Pattern is a suspicious audio event within a clip
type Pattern struct {
	OffsetSeconds float64 `json:"offsetSeconds"`
	Type          string  `json:"type"`
}

// BlobReport summarizes a recorded audio clip
type BlobReport struct {
	Duration           float64   `json:"duration"`
	SpeakerCount       int       `json:"speakerCount"`
	SuspiciousPatterns []Pattern `json:"suspiciousPatterns"`
}

// AnalyzeAudioClip runs the audio analyzer over consecutive windows of clip.
// A trailing window shorter than half the window length is ignored.
func (s *Service) AnalyzeAudioClip(ctx context.Context, clip media.Clip) (*BlobReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := s.analyzeClip(ctx, clip)
	s.observe(metrics.KindAudioBlob, start, err)
	if err != nil {
		s.logFailure(ctx, metrics.KindAudioBlob, err)
		return nil, err
	}

	s.log.WithContext(ctx).Info("Audio clip analyzed",
		logger.String("container", string(clip.Container)),
		logger.Float64("duration", report.Duration),
		logger.Int("speakers", report.SpeakerCount),
		logger.Int("patterns", len(report.SuspiciousPatterns)))

	return report, nil
}

func (s *Service) analyzeClip(ctx context.Context, clip media.Clip) (*BlobReport, error) {
	if len(clip.Samples) == 0 {
		return nil, errors.InvalidInputf("analysis", "audio clip contains no samples")
	}
	if clip.SampleRate <= 0 {
		return nil, errors.InvalidInputf("analysis", "audio clip sample rate must be positive, got %d", clip.SampleRate)
	}

	size := max(int(s.blobWindow.Seconds()*float64(clip.SampleRate)), 1)
	report := &BlobReport{
		Duration:           roundSeconds(clip.Duration()),
		SuspiciousPatterns: []Pattern{},
	}

	var anyAudio, multiple bool
	for offset := 0; offset < len(clip.Samples); offset += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(offset+size, len(clip.Samples))
		if offset > 0 && end-offset < size/2 {
			break
		}

		result, err := s.audio.AnalyzeAudio(clip.Samples[offset:end], clip.SampleRate)
		if err != nil {
			return nil, err
		}

		anyAudio = anyAudio || result.HasAudio
		multiple = multiple || result.MultipleSpeakers
		if result.SuspiciousPattern {
			at := time.Duration(offset) * time.Second / time.Duration(clip.SampleRate)
			report.SuspiciousPatterns = append(report.SuspiciousPatterns, Pattern{
				OffsetSeconds: roundSeconds(at),
				Type:          PatternSuddenSpike,
			})
		}
	}

	switch {
	case multiple:
		report.SpeakerCount = 2
	case anyAudio:
		report.SpeakerCount = 1
	}
	return report, nil
}
