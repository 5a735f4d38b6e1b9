package vision

import (
	"context"
	"image"
	"time"
)

// Point is a landmark position normalized to the frame, (0,0) top-left and (1,1) bottom-right
type Point struct {
	X float64
	Y float64
}

// LandmarkSet is one face's ordered landmark points
type LandmarkSet struct {
	Points []Point
}

// Topology names the landmark indices the analyzer reads
type Topology struct {
	NoseTip  int
	LeftEye  int
	RightEye int
}

// DefaultTopology addresses the 468-point face mesh
var DefaultTopology = Topology{NoseTip: 1, LeftEye: 33, RightEye: 263}

// maxIndex returns the highest index the topology reads
func (t Topology) maxIndex() int {
	return max(t.NoseTip, t.LeftEye, t.RightEye)
}

// FacePosition is the nose tip in pixel coordinates
type FacePosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FaceSignalResult is the per-frame face verdict.
//
// PersonLeftSeat is not evaluated per frame and is always false: deciding that
// a seat is empty needs history across frames, which this service does not keep.
type FaceSignalResult struct {
	FacesDetected  int           `json:"facesDetected"`
	MultipleFaces  bool          `json:"multipleFaces"`
	FacePosition   *FacePosition `json:"facePosition"`
	LookingAway    bool          `json:"lookingAway"`
	PersonLeftSeat bool          `json:"personLeftSeat"`
	Confidence     float64       `json:"confidence"`
}

// Flags returns the names of the raised boolean flags, used for metrics and CLI output
func (r *FaceSignalResult) Flags() []string {
	var flags []string
	if r.FacesDetected == 0 {
		flags = append(flags, "no_face")
	}
	if r.MultipleFaces {
		flags = append(flags, "multiple_faces")
	}
	if r.LookingAway {
		flags = append(flags, "looking_away")
	}
	return flags
}

// VideoFrame is one frame sampled from a recorded video
type VideoFrame struct {
	Index  int           // zero-based frame number in the stream
	Offset time.Duration // position in the video
	Image  image.Image
}

// VideoInfo describes a sampled video
type VideoInfo struct {
	FPS         float64
	TotalFrames int // frames actually read
	Sampled     int
	Duration    time.Duration
}

// FrameSource decodes a video file and calls fn for each sampled frame in order
type FrameSource interface {
	Sample(ctx context.Context, path string, fn func(VideoFrame) error) (VideoInfo, error)
}
