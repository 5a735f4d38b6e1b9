package conf

import (
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/proctor-go/internal/logger"
)

// validSettings returns settings equal to the shipped defaults
func validSettings() *Settings {
	return &Settings{
		Main: MainSettings{Name: AppName},
		Logging: logger.LoggingConfig{
			DefaultLevel: "info",
			Timezone:     "UTC",
			Console:      &logger.ConsoleOutput{Enabled: true, Level: "info"},
			FileOutput:   &logger.FileOutput{Enabled: true, Path: logger.DefaultLogPath, Level: "info"},
		},
		WebServer: WebServerSettings{
			Port:            DefaultPort,
			BodyLimit:       "32M",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			AllowOrigins:    []string{"*"},
			RateLimit:       10,
			RateBurst:       20,
		},
		Vision: VisionSettings{
			Cascade:                CascadeSettings{Path: "cascade.xml", ScaleFactor: 1.1, MinNeighbors: 5, MinSize: 30},
			FaceMesh:               FaceMeshSettings{ModelPath: "face_landmark.tflite", Threads: 1},
			Landmarks:              LandmarkTopology{NoseTip: 1, LeftEye: 33, RightEye: 263},
			MaxFaces:               2,
			MinDetectionConfidence: 0.5,
			GazeThreshold:          0.1,
			Confidence:             0.8,
		},
		Audio: AudioSettings{
			LevelScale:        100,
			HasAudioThreshold: 10,
			PeakFactor:        2,
			PeakCount:         5,
			SpikeTail:         100,
			SpikeRatio:        2,
			Confidence:        0.7,
			DefaultSampleRate: 44100,
			BlobWindowSeconds: 1,
		},
		Video:     VideoSettings{SampleInterval: 10},
		Telemetry: TelemetrySettings{Listen: "0.0.0.0:8090"},
		MQTT:      MQTTSettings{Broker: "tcp://localhost:1883", Topic: "proctor"},
	}
}

// isolateViper gives the test a clean viper instance, an empty home directory
// and no explicit config file.
func isolateViper(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	viper.Reset()
	SetConfigFile("")
	t.Cleanup(func() {
		viper.Reset()
		SetConfigFile("")
	})

	return home
}
