package vision

import (
	"cmp"
	"image"
	"math"
	"slices"
)

// SquareCrop grows face by margin on every side, squares it around its centre
// and clips the result to bounds. Landmark models expect a square input with
// some context around the face.
func SquareCrop(face, bounds image.Rectangle, margin float64) image.Rectangle {
	if face.Empty() {
		return bounds
	}

	cx := float64(face.Min.X+face.Max.X) / 2
	cy := float64(face.Min.Y+face.Max.Y) / 2
	side := float64(max(face.Dx(), face.Dy())) * (1 + 2*margin)
	half := side / 2

	crop := image.Rect(
		int(math.Floor(cx-half)),
		int(math.Floor(cy-half)),
		int(math.Ceil(cx+half)),
		int(math.Ceil(cy+half)),
	)
	return crop.Intersect(bounds)
}

// ToFrameCoordinates maps points normalized to crop into points normalized to frame
func ToFrameCoordinates(points []Point, crop, frame image.Rectangle) []Point {
	if frame.Empty() {
		return nil
	}

	fw := float64(frame.Dx())
	fh := float64(frame.Dy())
	cw := float64(crop.Dx())
	ch := float64(crop.Dy())

	mapped := make([]Point, len(points))
	for i, p := range points {
		mapped[i] = Point{
			X: (float64(crop.Min.X-frame.Min.X) + p.X*cw) / fw,
			Y: (float64(crop.Min.Y-frame.Min.Y) + p.Y*ch) / fh,
		}
	}
	return mapped
}

// LargestFirst orders faces by area, biggest first, so that the subject
// closest to the camera is the one whose landmarks are read.
func LargestFirst(faces []image.Rectangle) []image.Rectangle {
	sorted := slices.Clone(faces)
	slices.SortStableFunc(sorted, func(a, b image.Rectangle) int {
		return cmp.Compare(area(b), area(a))
	})
	return sorted
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
