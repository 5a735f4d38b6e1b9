// Package facemesh extracts 468-point face meshes with a TensorFlow Lite
// face landmark model.
package facemesh

import (
	"fmt"
	"image"
	"math"
	"os"
	"time"

	"github.com/tphakala/go-tflite"
	"golang.org/x/image/draw"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/vision"
)

const (
	// InputSize is the edge length of the square model input
	InputSize = 192
	// NumLandmarks is the number of mesh points the model returns
	NumLandmarks = 468
	// CropMargin is the context added around a detected face before cropping
	CropMargin = 0.25
)

// Options configures an Extractor
type Options struct {
	Threads       int     // interpreter threads, 0 = 1
	MinConfidence float64 // face presence probability required to keep a mesh
}

// Extractor runs the face landmark model over detected faces. Interpreters
// are pooled; each one serves a single inference at a time.
type Extractor struct {
	model *tflite.Model
	pool  *vision.Pool[*tflite.Interpreter]
	opts  Options
}

// NewExtractor loads the model at modelPath and creates size interpreters
func NewExtractor(modelPath string, size int, opts Options) (*Extractor, error) {
	start := time.Now()

	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, errors.ModelError(err, "vision", modelPath)
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.New(fmt.Errorf("cannot load TensorFlow Lite model")).
			Component("vision").
			Category(errors.CategoryModelInit).
			ModelContext(modelPath).
			Context("model_size_kb", len(modelData)/1024).
			Timing("model-init", time.Since(start)).
			Build()
	}

	pool, err := vision.NewPool(size, func(int) (*tflite.Interpreter, error) {
		return newInterpreter(model, opts.Threads)
	}, func(interp *tflite.Interpreter) error {
		interp.Delete()
		return nil
	})
	if err != nil {
		model.Delete()
		return nil, errors.New(err).
			Component("vision").
			Category(errors.CategoryModelInit).
			ModelContext(modelPath).
			Build()
	}

	GetLogger().Info("Loaded face landmark model",
		logger.String("path", modelPath),
		logger.Int("interpreters", size),
		logger.Duration("elapsed", time.Since(start)))

	return &Extractor{model: model, pool: pool, opts: opts}, nil
}

func newInterpreter(model *tflite.Model, threads int) (*tflite.Interpreter, error) {
	options := tflite.NewInterpreterOptions()

	options.SetNumThread(max(threads, 1))
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	interp := tflite.NewInterpreter(model, options)
	if interp == nil {
		return nil, fmt.Errorf("cannot create interpreter")
	}
	if status := interp.AllocateTensors(); status != tflite.OK {
		interp.Delete()
		return nil, fmt.Errorf("tensor allocation failed")
	}

	input := interp.GetInputTensor(0)
	if got := len(input.Float32s()); got != InputSize*InputSize*3 {
		interp.Delete()
		return nil, fmt.Errorf("unexpected input tensor size %d, want %d", got, InputSize*InputSize*3)
	}
	return interp, nil
}

// ExtractLandmarks returns up to maxFaces meshes, one per detected face in
// order. Faces failing the model's own presence score are skipped.
func (e *Extractor) ExtractLandmarks(img image.Image, faces []image.Rectangle, maxFaces int) ([]vision.LandmarkSet, error) {
	if len(faces) == 0 || maxFaces < 1 {
		return nil, nil
	}

	frame := img.Bounds()
	crops := make([]image.Rectangle, 0, len(faces))
	for _, face := range faces {
		crops = append(crops, vision.SquareCrop(face, frame, CropMargin))
	}

	sets := make([]vision.LandmarkSet, 0, min(len(crops), maxFaces))
	for _, crop := range crops {
		if len(sets) >= maxFaces {
			break
		}
		if crop.Empty() {
			continue
		}

		points, score, err := e.infer(img, crop)
		if err != nil {
			return nil, err
		}
		if score < e.opts.MinConfidence {
			GetLogger().Debug("Dropping low confidence mesh",
				logger.Float64("score", score),
				logger.Float64("min_confidence", e.opts.MinConfidence))
			continue
		}

		sets = append(sets, vision.LandmarkSet{Points: vision.ToFrameCoordinates(points, crop, frame)})
	}

	return sets, nil
}

// infer runs the model on one crop and returns crop-normalized points and the face presence probability
func (e *Extractor) infer(img image.Image, crop image.Rectangle) (points []vision.Point, score float64, err error) {
	tensor := toInputTensor(img, crop)

	err = e.pool.Do(func(interp *tflite.Interpreter) error {
		copy(interp.GetInputTensor(0).Float32s(), tensor)

		if status := interp.Invoke(); status != tflite.OK {
			return fmt.Errorf("tensor invoke failed: %v", status)
		}

		raw := interp.GetOutputTensor(0).Float32s()
		if len(raw) < NumLandmarks*3 {
			return fmt.Errorf("landmark tensor has %d values, want %d", len(raw), NumLandmarks*3)
		}
		points = decodeLandmarks(raw)

		score = 1
		if interp.GetOutputTensorCount() > 1 {
			if flag := interp.GetOutputTensor(1).Float32s(); len(flag) > 0 {
				score = sigmoid(float64(flag[0]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, errors.AnalysisError(err, "vision", "extract_landmarks")
	}
	return points, score, nil
}

// toInputTensor scales crop to the model input and lays it out as NHWC RGB in [0,1]
func toInputTensor(img image.Image, crop image.Rectangle) []float32 {
	scaled := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), img, crop, draw.Src, nil)

	out := make([]float32, InputSize*InputSize*3)
	for i := range InputSize * InputSize {
		out[i*3+0] = float32(scaled.Pix[i*4+0]) / 255
		out[i*3+1] = float32(scaled.Pix[i*4+1]) / 255
		out[i*3+2] = float32(scaled.Pix[i*4+2]) / 255
	}
	return out
}

// decodeLandmarks converts model pixel coordinates (x, y, z triplets) into crop-normalized points.
// Depth is dropped.
func decodeLandmarks(raw []float32) []vision.Point {
	points := make([]vision.Point, NumLandmarks)
	for i := range points {
		points[i] = vision.Point{
			X: float64(raw[i*3]) / InputSize,
			Y: float64(raw[i*3+1]) / InputSize,
		}
	}
	return points
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Close releases the interpreters
func (e *Extractor) Close() error {
	err := e.pool.Close()
	e.model.Delete()
	return err
}

var _ vision.LandmarkExtractor = (*Extractor)(nil)
