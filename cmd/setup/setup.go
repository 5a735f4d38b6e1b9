// Package setup builds the analyzers and their model-backed collaborators
// from settings. Every command that analyzes media goes through here.
package setup

import (
	"github.com/tphakala/proctor-go/internal/audio"
	"github.com/tphakala/proctor-go/internal/conf"
	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/media"
	"github.com/tphakala/proctor-go/internal/vision"
	"github.com/tphakala/proctor-go/internal/vision/facemesh"
	"github.com/tphakala/proctor-go/internal/vision/opencv"
)

// FaceStack is the frame analyzer plus the models it owns
type FaceStack struct {
	Analyzer  *vision.Analyzer
	detector  *opencv.CascadeDetector
	extractor *facemesh.Extractor
}

// Close releases the cascade and interpreter pools
func (f *FaceStack) Close() error {
	var errs []error
	if f.extractor != nil {
		if err := f.extractor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.detector != nil {
		if err := f.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewFaceStack loads the cascade and face mesh models and builds the frame analyzer
func NewFaceStack(settings *conf.Settings) (*FaceStack, error) {
	vs := &settings.Vision
	poolSize := vs.PoolSize()
	log := logger.Global().Module("setup")

	detector, err := opencv.NewCascadeDetector(vs.Cascade.Path, poolSize, opencv.CascadeOptions{
		ScaleFactor:  vs.Cascade.ScaleFactor,
		MinNeighbors: vs.Cascade.MinNeighbors,
		MinSize:      vs.Cascade.MinSize,
	})
	if err != nil {
		return nil, err
	}
	stack := &FaceStack{detector: detector}

	extractor, err := facemesh.NewExtractor(vs.FaceMesh.ModelPath, poolSize, facemesh.Options{
		Threads:       vs.FaceMesh.Threads,
		MinConfidence: vs.MinDetectionConfidence,
	})
	if err != nil {
		_ = stack.Close()
		return nil, err
	}
	stack.extractor = extractor

	analyzer, err := vision.NewAnalyzer(detector, extractor,
		vision.WithFrameDecoder(media.DecodeImage),
		vision.WithTopology(vision.Topology{
			NoseTip:  vs.Landmarks.NoseTip,
			LeftEye:  vs.Landmarks.LeftEye,
			RightEye: vs.Landmarks.RightEye,
		}),
		vision.WithMaxTrackedFaces(vs.MaxFaces),
		vision.WithGazeThreshold(vs.GazeThreshold),
		vision.WithConfidence(vs.Confidence),
	)
	if err != nil {
		_ = stack.Close()
		return nil, err
	}
	stack.Analyzer = analyzer

	log.Info("Face models loaded",
		logger.String("cascade", vs.Cascade.Path),
		logger.String("face_mesh", vs.FaceMesh.ModelPath),
		logger.Int("pool_size", poolSize))
	return stack, nil
}

// NewAudioAnalyzer builds the audio analyzer from settings
func NewAudioAnalyzer(settings *conf.Settings) (*audio.Analyzer, error) {
	as := &settings.Audio
	return audio.NewAnalyzer(
		audio.WithLevel(as.LevelScale, as.HasAudioThreshold),
		audio.WithPeaks(as.PeakFactor, as.PeakCount),
		audio.WithSpike(as.SpikeTail, as.SpikeRatio),
		audio.WithConfidence(as.Confidence),
	)
}

// NewVideoSampler returns the frame source for recorded videos
func NewVideoSampler(settings *conf.Settings) opencv.VideoSampler {
	return opencv.VideoSampler{
		Interval:  settings.Video.SampleInterval,
		MaxFrames: settings.Video.MaxFrames,
	}
}
