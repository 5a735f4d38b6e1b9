// Package audio turns one mono sample buffer into an AudioSignalResult.
//
// Loudness comes from the mean absolute amplitude and the speaker guess from
// the number of dominant spectral bins. A spike is a trailing window that is
// much louder than everything before it.
package audio

import (
	"fmt"
	"math"

	"github.com/tphakala/proctor-go/internal/errors"
)

const componentName = "audio"

// Defaults for a new Analyzer
const (
	DefaultLevelScale        = 100.0
	DefaultHasAudioThreshold = 10.0
	DefaultPeakFactor        = 2.0
	DefaultPeakCount         = 5
	DefaultSpikeTail         = 100
	DefaultSpikeRatio        = 2.0
	DefaultConfidence        = 0.7
)

// Analyzer computes audio signals. It is safe for concurrent use.
type Analyzer struct {
	spectrum          SpectrumFunc
	levelScale        float64
	hasAudioThreshold float64
	peakFactor        float64
	peakCount         int
	spikeTail         int
	spikeRatio        float64
	confidence        float64
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithSpectrum replaces the FFT based magnitude spectrum
func WithSpectrum(fn SpectrumFunc) Option {
	return func(a *Analyzer) {
		if fn != nil {
			a.spectrum = fn
		}
	}
}

// WithLevel sets the level scale and the level above which audio counts as present
func WithLevel(scale, threshold float64) Option {
	return func(a *Analyzer) {
		a.levelScale = scale
		a.hasAudioThreshold = threshold
	}
}

// WithPeaks sets the peak magnitude factor and the peak count that flags multiple speakers
func WithPeaks(factor float64, count int) Option {
	return func(a *Analyzer) {
		a.peakFactor = factor
		a.peakCount = count
	}
}

// WithSpike sets the trailing window length and the tail/head ratio for the spike check
func WithSpike(tail int, ratio float64) Option {
	return func(a *Analyzer) {
		a.spikeTail = tail
		a.spikeRatio = ratio
	}
}

// WithConfidence sets the confidence reported when audio is present
func WithConfidence(confidence float64) Option {
	return func(a *Analyzer) { a.confidence = confidence }
}

// NewAnalyzer creates an Analyzer with the default thresholds, adjusted by opts
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		spectrum:          MagnitudeSpectrum,
		levelScale:        DefaultLevelScale,
		hasAudioThreshold: DefaultHasAudioThreshold,
		peakFactor:        DefaultPeakFactor,
		peakCount:         DefaultPeakCount,
		spikeTail:         DefaultSpikeTail,
		spikeRatio:        DefaultSpikeRatio,
		confidence:        DefaultConfidence,
	}
	for _, opt := range opts {
		opt(a)
	}

	switch {
	case a.levelScale <= 0:
		return nil, configError("level scale must be positive, got %v", a.levelScale)
	case a.hasAudioThreshold < 0:
		return nil, configError("audio threshold must not be negative, got %v", a.hasAudioThreshold)
	case a.peakFactor <= 0:
		return nil, configError("peak factor must be positive, got %v", a.peakFactor)
	case a.peakCount < 0:
		return nil, configError("peak count must not be negative, got %d", a.peakCount)
	case a.spikeTail < 1:
		return nil, configError("spike tail must be at least 1, got %d", a.spikeTail)
	case a.spikeRatio <= 0:
		return nil, configError("spike ratio must be positive, got %v", a.spikeRatio)
	case a.confidence < 0 || a.confidence > 1:
		return nil, configError("confidence must be within [0,1], got %v", a.confidence)
	}

	return a, nil
}

func configError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component(componentName).
		Category(errors.CategoryConfiguration).
		Build()
}

// AnalyzeAudio computes the audio verdict for samples. sampleRate is
// validated but does not affect any of the heuristics.
func (a *Analyzer) AnalyzeAudio(samples []float32, sampleRate int) (AudioSignalResult, error) {
	if len(samples) == 0 {
		return AudioSignalResult{}, errors.InvalidInputf(componentName, "audio buffer is empty")
	}
	if sampleRate <= 0 {
		return AudioSignalResult{}, errors.InvalidInputf(componentName, "sample rate must be positive, got %d", sampleRate)
	}
	if i := firstNonFinite(samples); i >= 0 {
		return AudioSignalResult{}, errors.New(fmt.Errorf("sample %d is not a finite number", i)).
			Component(componentName).
			Category(errors.CategoryInvalidInput).
			Context("samples", len(samples)).
			Build()
	}

	result := AudioSignalResult{AudioLevel: meanAbs(samples) * a.levelScale}
	result.HasAudio = result.AudioLevel > a.hasAudioThreshold

	mags, err := a.magnitudes(samples)
	if err != nil {
		return AudioSignalResult{}, err
	}
	result.MultipleSpeakers = result.HasAudio && countPeaks(mags, a.peakFactor) > a.peakCount
	result.SuspiciousPattern = result.HasAudio && a.hasSpike(samples)

	if result.HasAudio {
		result.Confidence = a.confidence
	}

	return result, nil
}

// hasSpike compares the trailing window with the rest of the buffer. Buffers
// not longer than the window, and silent heads, never spike.
func (a *Analyzer) hasSpike(samples []float32) bool {
	if len(samples) <= a.spikeTail {
		return false
	}

	split := len(samples) - a.spikeTail
	headMean := meanAbs(samples[:split])
	if headMean == 0 {
		return false
	}
	return meanAbs(samples[split:]) > a.spikeRatio*headMean
}

// magnitudes runs the spectrum transform, converting panics into analysis errors
func (a *Analyzer) magnitudes(samples []float32) (mags []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			mags = nil
			err = errors.AnalysisError(fmt.Errorf("spectrum transform panicked: %v", r), componentName, "spectrum")
		}
	}()
	return a.spectrum(samples), nil
}

func meanAbs(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	return sum / float64(len(samples))
}

// firstNonFinite returns the index of the first NaN or Inf sample, or -1
func firstNonFinite(samples []float32) int {
	for i, s := range samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}
