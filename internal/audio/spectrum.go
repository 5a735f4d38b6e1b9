package audio

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectrumFunc returns the magnitude of every bin of the complex DFT of samples
type SpectrumFunc func(samples []float32) []float64

// MagnitudeSpectrum computes the full n-bin complex DFT of the buffer. Both
// halves of the spectrum are kept, so a real signal contributes every
// frequency twice.
func MagnitudeSpectrum(samples []float32) []float64 {
	n := len(samples)
	if n == 0 {
		return nil
	}

	seq := make([]complex128, n)
	for i, s := range samples {
		seq[i] = complex(float64(s), 0)
	}

	coeffs := fourier.NewCmplxFFT(n).Coefficients(nil, seq)

	mags := make([]float64, n)
	for k, c := range coeffs {
		mags[k] = cmplx.Abs(c)
	}
	return mags
}

// countPeaks counts bins whose magnitude exceeds factor times the mean magnitude
func countPeaks(mags []float64, factor float64) int {
	if len(mags) == 0 {
		return 0
	}

	var sum float64
	for _, m := range mags {
		sum += m
	}
	threshold := factor * sum / float64(len(mags))

	peaks := 0
	for _, m := range mags {
		if m > threshold {
			peaks++
		}
	}
	return peaks
}
