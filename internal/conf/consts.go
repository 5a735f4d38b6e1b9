// conf/consts.go hard coded constants
package conf

const (
	ServiceName = "Proctor AI" // Reported by /health
	AppName     = "proctor-go" // Config directory name

	DefaultPort = "8001"

	// FaceMeshLandmarks is the number of points produced by the face mesh model
	FaceMeshLandmarks = 468

	MaxDetectorPool = 4 // Upper bound for the automatic detector pool size
)
