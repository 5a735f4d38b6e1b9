// Package media decodes the payloads clients send: base64 text, data URLs,
// encoded images and audio containers.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder, the default canvas.toBlob format in Chrome

	"github.com/tphakala/proctor-go/internal/errors"
)

const componentName = "media"

// StripDataURL removes a "data:<mime>;base64," header. Everything up to and
// including the first comma is dropped; text without a comma is returned as is.
func StripDataURL(s string) string {
	if _, payload, found := strings.Cut(s, ","); found {
		return payload
	}
	return s
}

// DecodeBase64 decodes standard base64, with or without padding. Whitespace
// from line-wrapped encoders is ignored.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)

	if s == "" {
		return nil, errors.InvalidInputf(componentName, "payload is empty")
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var rawErr error
		if data, rawErr = base64.RawStdEncoding.DecodeString(s); rawErr != nil {
			return nil, errors.New(fmt.Errorf("invalid base64 payload: %w", err)).
				Component(componentName).
				Category(errors.CategoryInvalidInput).
				Context("length", len(s)).
				Build()
		}
	}
	return data, nil
}

// DecodeImage decodes JPEG, PNG, GIF, BMP or WebP bytes
func DecodeImage(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, errors.InvalidInputf(componentName, "image data is empty")
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to decode image: %w", err)).
			Component(componentName).
			Category(errors.CategoryInvalidInput).
			Context("bytes", len(raw)).
			Build()
	}
	if img.Bounds().Empty() {
		return nil, errors.Newf("decoded %s image has zero area", format).
			Component(componentName).
			Category(errors.CategoryInvalidInput).
			Build()
	}
	return img, nil
}

// DecodeDataURLImage combines StripDataURL, DecodeBase64 and DecodeImage
func DecodeDataURLImage(s string) (image.Image, error) {
	raw, err := DecodeBase64(StripDataURL(s))
	if err != nil {
		return nil, err
	}
	return DecodeImage(raw)
}
