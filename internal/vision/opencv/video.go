package opencv

import (
	"context"
	"fmt"
	"math"
	"time"

	"gocv.io/x/gocv"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/vision"
)

// fallbackFPS is assumed when the container does not report a frame rate (webm from MediaRecorder often doesn't)
const fallbackFPS = 30.0

// VideoSampler reads recorded video files and hands every Nth frame to a callback
type VideoSampler struct {
	Interval  int // sample every Interval-th frame, starting with the first
	MaxFrames int // stop after this many sampled frames, 0 = no limit
}

// Sample decodes path and calls fn for each sampled frame in order. Reading
// stops at end of stream, when ctx is done, or when fn returns an error.
func (s VideoSampler) Sample(ctx context.Context, path string, fn func(vision.VideoFrame) error) (vision.VideoInfo, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return vision.VideoInfo{}, errors.New(fmt.Errorf("cannot open video: %w", err)).
			Component("vision").
			Category(errors.CategoryInvalidInput).
			Build()
	}
	defer func() {
		if err := capture.Close(); err != nil {
			vision.GetLogger().Warn("Failed to close video capture", logger.Error(err))
		}
	}()

	info := vision.VideoInfo{FPS: normalizeFPS(capture.Get(gocv.VideoCaptureFPS))}
	interval := max(s.Interval, 1)

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			return info, err
		}
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}

		index := info.TotalFrames
		info.TotalFrames++

		if !shouldSample(index, interval) {
			continue
		}
		if s.MaxFrames > 0 && info.Sampled >= s.MaxFrames {
			break
		}

		img, err := frame.ToImage()
		if err != nil {
			return info, errors.AnalysisError(fmt.Errorf("converting frame %d: %w", index, err), "vision", "sample_video")
		}

		info.Sampled++
		if err := fn(vision.VideoFrame{Index: index, Offset: frameOffset(index, info.FPS), Image: img}); err != nil {
			return info, err
		}
	}

	if info.TotalFrames == 0 {
		return info, errors.InvalidInputf("vision", "video contains no decodable frames")
	}

	info.Duration = frameOffset(info.TotalFrames, info.FPS)
	return info, nil
}

// shouldSample reports whether frame index falls on the sampling grid
func shouldSample(index, interval int) bool {
	return index%interval == 0
}

// frameOffset converts a frame index into a timestamp
func frameOffset(index int, fps float64) time.Duration {
	return time.Duration(float64(index) / fps * float64(time.Second))
}

// normalizeFPS guards against the 0, NaN and absurd values some containers report
func normalizeFPS(fps float64) float64 {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 || fps > 1000 {
		return fallbackFPS
	}
	return fps
}

var _ vision.FrameSource = VideoSampler{}
