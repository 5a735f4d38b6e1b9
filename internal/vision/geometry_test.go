package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquareCrop(t *testing.T) {
	t.Parallel()

	bounds := image.Rect(0, 0, 640, 480)

	tests := []struct {
		name   string
		face   image.Rectangle
		margin float64
		want   image.Rectangle
	}{
		{"square face no margin", image.Rect(100, 100, 200, 200), 0, image.Rect(100, 100, 200, 200)},
		{"square face with margin", image.Rect(100, 100, 200, 200), 0.25, image.Rect(75, 75, 225, 225)},
		{"tall face is squared", image.Rect(100, 100, 140, 200), 0, image.Rect(70, 100, 170, 200)},
		{"clipped at frame edge", image.Rect(0, 0, 100, 100), 0.25, image.Rect(0, 0, 125, 125)},
		{"empty face uses whole frame", image.Rectangle{}, 0.25, bounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SquareCrop(tt.face, bounds, tt.margin))
		})
	}
}

func TestToFrameCoordinates(t *testing.T) {
	t.Parallel()

	frame := image.Rect(0, 0, 200, 100)
	crop := image.Rect(50, 0, 150, 100)

	got := ToFrameCoordinates([]Point{{0, 0}, {0.5, 0.5}, {1, 1}}, crop, frame)

	assert.Equal(t, []Point{{0.25, 0}, {0.5, 0.5}, {0.75, 1}}, got)
	assert.Nil(t, ToFrameCoordinates([]Point{{0.5, 0.5}}, crop, image.Rectangle{}))
}

func TestLargestFirst(t *testing.T) {
	t.Parallel()

	small := image.Rect(0, 0, 10, 10)
	large := image.Rect(0, 0, 50, 50)
	medium := image.Rect(0, 0, 20, 20)
	faces := []image.Rectangle{small, large, medium}

	assert.Equal(t, []image.Rectangle{large, medium, small}, LargestFirst(faces))
	assert.Equal(t, small, faces[0], "input is not modified")
}
