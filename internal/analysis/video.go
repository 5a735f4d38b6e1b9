package analysis

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/observability/metrics"
	"github.com/tphakala/proctor-go/internal/vision"
)

// Violation is a flag raised on one sampled video frame
type Violation struct {
	Frame         int     `json:"frame"`
	OffsetSeconds float64 `json:"offsetSeconds"`
	Type          string  `json:"type"`
}

// VideoReport summarizes a recorded video
type VideoReport struct {
	Duration       float64     `json:"duration"`
	FramesAnalyzed int         `json:"framesAnalyzed"`
	Violations     []Violation `json:"violations"`
}

// AnalyzeVideo samples the video at path and runs the face analyzer over
// every sampled frame. Violations are ordered by frame.
func (s *Service) AnalyzeVideo(ctx context.Context, path string) (*VideoReport, error) {
	if s.frames == nil || s.face == nil {
		return nil, unavailable("video analysis")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := s.analyzeVideo(ctx, path)
	s.observe(metrics.KindVideo, start, err)
	if err != nil {
		s.logFailure(ctx, metrics.KindVideo, err)
		return nil, err
	}

	if s.metrics != nil {
		for i := range report.Violations {
			s.metrics.RecordFlags(metrics.KindVideo, []string{report.Violations[i].Type})
		}
	}
	s.log.WithContext(ctx).Info("Video analyzed",
		logger.Int("frames", report.FramesAnalyzed),
		logger.Int("violations", len(report.Violations)),
		logger.Duration("elapsed", time.Since(start)))

	return report, nil
}

func (s *Service) analyzeVideo(ctx context.Context, path string) (*VideoReport, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.videoWorkers)

	var (
		mu         sync.Mutex
		violations = []Violation{}
		analyzed   int
	)

	info, sampleErr := s.frames.Sample(gctx, path, func(frame vision.VideoFrame) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			result, err := s.face.AnalyzeImage(frame.Image)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			analyzed++
			for _, flag := range result.Flags() {
				violations = append(violations, Violation{
					Frame:         frame.Index,
					OffsetSeconds: roundSeconds(frame.Offset),
					Type:          flag,
				})
			}
			return nil
		})
		return nil
	})

	// Wait before inspecting sampleErr so no worker outlives the call
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if sampleErr != nil {
		return nil, sampleErr
	}

	// Frames finish out of order; flags within a frame keep their order
	slices.SortStableFunc(violations, func(a, b Violation) int {
		return a.Frame - b.Frame
	})

	return &VideoReport{
		Duration:       roundSeconds(info.Duration),
		FramesAnalyzed: analyzed,
		Violations:     violations,
	}, nil
}

// roundSeconds converts d to seconds with millisecond precision
func roundSeconds(d time.Duration) float64 {
	return d.Round(time.Millisecond).Seconds()
}
