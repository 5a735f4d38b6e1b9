// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/proctor-go/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("main.name", AppName)
	viper.SetDefault("main.debug", false)

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", true)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	viper.SetDefault("logging.file_output.max_age", logger.DefaultMaxAge)
	viper.SetDefault("logging.file_output.max_rotated_files", logger.DefaultMaxRotatedFiles)
	viper.SetDefault("logging.file_output.compress", true)

	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", DefaultPort)
	viper.SetDefault("webserver.bodylimit", "32M")
	viper.SetDefault("webserver.readtimeout", 30*time.Second)
	viper.SetDefault("webserver.writetimeout", 2*time.Minute)
	viper.SetDefault("webserver.shutdowntimeout", 10*time.Second)
	viper.SetDefault("webserver.alloworigins", []string{"*"})
	viper.SetDefault("webserver.ratelimit", 10.0)
	viper.SetDefault("webserver.rateburst", 20)

	viper.SetDefault("vision.cascade.path", "models/haarcascade_frontalface_default.xml")
	viper.SetDefault("vision.cascade.scalefactor", 1.1)
	viper.SetDefault("vision.cascade.minneighbors", 5)
	viper.SetDefault("vision.cascade.minsize", 30)
	viper.SetDefault("vision.facemesh.modelpath", "models/face_landmark.tflite")
	viper.SetDefault("vision.facemesh.threads", 1)
	viper.SetDefault("vision.landmarks.nosetip", 1)
	viper.SetDefault("vision.landmarks.lefteye", 33)
	viper.SetDefault("vision.landmarks.righteye", 263)
	viper.SetDefault("vision.maxfaces", 2)
	viper.SetDefault("vision.mindetectionconfidence", 0.5)
	viper.SetDefault("vision.detectors", 0)
	viper.SetDefault("vision.gazethreshold", 0.1)
	viper.SetDefault("vision.confidence", 0.8)

	viper.SetDefault("audio.levelscale", 100.0)
	viper.SetDefault("audio.hasaudiothreshold", 10.0)
	viper.SetDefault("audio.peakfactor", 2.0)
	viper.SetDefault("audio.peakcount", 5)
	viper.SetDefault("audio.spiketail", 100)
	viper.SetDefault("audio.spikeratio", 2.0)
	viper.SetDefault("audio.confidence", 0.7)
	viper.SetDefault("audio.defaultsamplerate", 44100)
	viper.SetDefault("audio.blobwindowseconds", 1.0)

	viper.SetDefault("video.sampleinterval", 10)
	viper.SetDefault("video.maxframes", 0)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "proctor")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.qos", 0)
	viper.SetDefault("mqtt.retain", false)
}
