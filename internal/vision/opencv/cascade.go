// Package opencv adapts OpenCV (through gocv) to the vision interfaces: a Haar
// cascade face detector and a recorded-video frame sampler.
package opencv

import (
	"fmt"
	"image"
	"os"
	"time"

	"gocv.io/x/gocv"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/vision"
)

// CascadeOptions are the DetectMultiScale parameters
type CascadeOptions struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int // smallest face edge in pixels
}

// CascadeDetector detects frontal faces with a pool of Haar cascade classifiers.
// Each classifier is used by one goroutine at a time.
type CascadeDetector struct {
	pool *vision.Pool[*gocv.CascadeClassifier]
	opts CascadeOptions
}

// NewCascadeDetector loads the cascade file size times
func NewCascadeDetector(path string, size int, opts CascadeOptions) (*CascadeDetector, error) {
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.ModelError(fmt.Errorf("cascade file not available: %w", err), "vision", path)
	}

	pool, err := vision.NewPool(size, func(int) (*gocv.CascadeClassifier, error) {
		classifier := gocv.NewCascadeClassifier()
		if !classifier.Load(path) {
			_ = classifier.Close()
			return nil, fmt.Errorf("cannot load cascade classifier from %s", path)
		}
		return &classifier, nil
	}, func(c *gocv.CascadeClassifier) error {
		return c.Close()
	})
	if err != nil {
		return nil, errors.New(err).
			Component("vision").
			Category(errors.CategoryModelInit).
			FileContext(path, info.Size()).
			Timing("load_cascade", time.Since(start)).
			Build()
	}

	vision.GetLogger().Info("Face cascade loaded",
		logger.String("path", path),
		logger.Int("pool_size", size),
		logger.String("opencv", gocv.Version()),
		logger.Duration("elapsed", time.Since(start)))

	return &CascadeDetector{pool: pool, opts: opts}, nil
}

// DetectFaces converts img to grayscale and runs the cascade on it
func (d *CascadeDetector) DetectFaces(img image.Image) ([]image.Rectangle, error) {
	// ImageToMatRGB yields OpenCV's native BGR channel order
	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("converting frame to Mat: %w", err)
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	defer gray.Close()

	if err := gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("converting frame to grayscale: %w", err)
	}
	if err := gocv.EqualizeHist(gray, &gray); err != nil {
		return nil, fmt.Errorf("equalizing histogram: %w", err)
	}

	var faces []image.Rectangle
	err = d.pool.Do(func(c *gocv.CascadeClassifier) error {
		faces = c.DetectMultiScaleWithParams(gray,
			d.opts.ScaleFactor,
			d.opts.MinNeighbors,
			0,
			image.Pt(d.opts.MinSize, d.opts.MinSize),
			image.Pt(0, 0))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return vision.LargestFirst(faces), nil
}

// Close releases all classifiers
func (d *CascadeDetector) Close() error {
	return d.pool.Close()
}

var _ vision.FaceDetector = (*CascadeDetector)(nil)
