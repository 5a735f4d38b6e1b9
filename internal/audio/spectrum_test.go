package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagnitudeSpectrumDC(t *testing.T) {
	t.Parallel()

	mags := MagnitudeSpectrum(constant(8, 1))
	require.Len(t, mags, 8)
	assert.InDelta(t, 8.0, mags[0], 1e-9)
	for k := 1; k < 8; k++ {
		assert.InDelta(t, 0.0, mags[k], 1e-9, "bin %d", k)
	}
}

func TestMagnitudeSpectrumKeepsBothHalves(t *testing.T) {
	t.Parallel()

	mags := MagnitudeSpectrum(tones(64, 1, 5))
	require.Len(t, mags, 64)
	assert.InDelta(t, 32.0, mags[5], 1e-4)
	assert.InDelta(t, 32.0, mags[59], 1e-4)
	assert.Equal(t, 2, countPeaks(mags, 2))
}

func TestMagnitudeSpectrumOddLength(t *testing.T) {
	t.Parallel()

	mags := MagnitudeSpectrum(constant(7, 0.5))
	require.Len(t, mags, 7)
	assert.InDelta(t, 3.5, mags[0], 1e-9)
}

func TestMagnitudeSpectrumEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, MagnitudeSpectrum(nil))
}

func TestCountPeaks(t *testing.T) {
	t.Parallel()

	assert.Zero(t, countPeaks(nil, 2))
	assert.Zero(t, countPeaks([]float64{0, 0, 0}, 2), "flat zero spectrum has no peaks")
	assert.Equal(t, 1, countPeaks([]float64{10, 1, 1, 1, 1}, 2))
	assert.Equal(t, 0, countPeaks([]float64{1, 1, 1, 1}, 2))
}
