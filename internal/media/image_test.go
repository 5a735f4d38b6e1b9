package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/tphakala/proctor-go/internal/errors"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func TestStripDataURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"jpeg data url", "data:image/jpeg;base64,QUJD", "QUJD"},
		{"bare payload", "QUJD", "QUJD"},
		{"only first comma splits", "data:x,ab,cd", "ab,cd"},
		{"empty", "", ""},
		{"trailing comma", "data:image/png;base64,", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StripDataURL(tt.input))
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	t.Parallel()

	got, err := DecodeBase64("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	got, err = DecodeBase64("aGVsbG8")
	require.NoError(t, err, "unpadded input is accepted")
	assert.Equal(t, []byte("hello"), got)

	got, err = DecodeBase64("aGVs\nbG8=\r\n")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	_, err = DecodeBase64("not base64 at all!")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	_, err = DecodeBase64("")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestDecodeImageFormats(t *testing.T) {
	t.Parallel()

	src := testImage(40, 30)

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))
	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, src))

	for name, raw := range map[string][]byte{"png": pngBuf.Bytes(), "bmp": bmpBuf.Bytes()} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			img, err := DecodeImage(raw)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
		})
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("definitely not an image"),
		"truncated": {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			img, err := DecodeImage(raw)
			require.Error(t, err)
			assert.Nil(t, img)
			assert.True(t, errors.IsInvalidInput(err))
		})
	}
}

func TestDecodeDataURLImage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(8, 8)))
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	img, err := DecodeDataURLImage(payload)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = DecodeDataURLImage("data:image/png;base64,@@@")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}
