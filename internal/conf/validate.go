// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// bodyLimitPattern matches echo's size notation
var bodyLimitPattern = regexp.MustCompile(`^[0-9]+[KMGTP]?$`)

// brokerSchemes are the URL schemes paho accepts
var brokerSchemes = []string{"tcp", "mqtt", "ssl", "tls", "mqtts", "ws", "wss"}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validateWebServerSettings(&s.WebServer) },
		func(s *Settings) error { return validateVisionSettings(&s.Vision) },
		func(s *Settings) error { return validateAudioSettings(&s.Audio) },
		func(s *Settings) error { return validateVideoSettings(&s.Video) },
		func(s *Settings) error { return validateTelemetrySettings(&s.Telemetry) },
		func(s *Settings) error { return validateSentrySettings(&s.Sentry) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateWebServerSettings validates the API server settings
func validateWebServerSettings(settings *WebServerSettings) error {
	var errs []string

	if err := validateEnvPort(settings.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port %q: %v", settings.Port, err))
	}

	if settings.BodyLimit != "" && !bodyLimitPattern.MatchString(settings.BodyLimit) {
		errs = append(errs, fmt.Sprintf("body limit %q must look like 32M or 512K", settings.BodyLimit))
	}

	if settings.ReadTimeout < 0 || settings.WriteTimeout < 0 || settings.ShutdownTimeout < 0 {
		errs = append(errs, "timeouts must not be negative")
	}

	if settings.RateLimit < 0 || settings.RateBurst < 0 {
		errs = append(errs, "rate limit and burst must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("WebServer settings errors: %v", errs)
	}
	return nil
}

// validateVisionSettings validates the Frame Analyzer settings
func validateVisionSettings(settings *VisionSettings) error {
	var errs []string

	if settings.Cascade.ScaleFactor <= 1 {
		errs = append(errs, "cascade scale factor must be greater than 1")
	}
	if settings.Cascade.MinNeighbors < 0 {
		errs = append(errs, "cascade min neighbors must be at least 0")
	}
	if settings.Cascade.MinSize < 0 {
		errs = append(errs, "cascade min size must be at least 0")
	}
	if settings.FaceMesh.Threads < 0 {
		errs = append(errs, "face mesh threads must be at least 0")
	}

	for name, idx := range map[string]int{
		"nose tip":  settings.Landmarks.NoseTip,
		"left eye":  settings.Landmarks.LeftEye,
		"right eye": settings.Landmarks.RightEye,
	} {
		if idx < 0 || idx >= FaceMeshLandmarks {
			errs = append(errs, fmt.Sprintf("%s landmark index must be between 0 and %d, got %d", name, FaceMeshLandmarks-1, idx))
		}
	}

	if settings.MaxFaces < 1 {
		errs = append(errs, "max faces must be at least 1")
	}
	if settings.MinDetectionConfidence < 0 || settings.MinDetectionConfidence > 1 {
		errs = append(errs, "min detection confidence must be between 0 and 1")
	}
	if settings.Detectors < 0 {
		errs = append(errs, "detectors must be at least 0")
	}
	if settings.GazeThreshold <= 0 || settings.GazeThreshold >= 1 {
		errs = append(errs, "gaze threshold must be between 0 and 1 (exclusive)")
	}
	if settings.Confidence < 0 || settings.Confidence > 1 {
		errs = append(errs, "vision confidence must be between 0 and 1")
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("Vision settings errors: %v", errs)
	}
	return nil
}

// validateAudioSettings validates the Audio Analyzer settings
func validateAudioSettings(settings *AudioSettings) error {
	var errs []string

	if settings.LevelScale <= 0 {
		errs = append(errs, "level scale must be positive")
	}
	if settings.HasAudioThreshold < 0 {
		errs = append(errs, "has-audio threshold must not be negative")
	}
	if settings.PeakFactor <= 0 {
		errs = append(errs, "peak factor must be positive")
	}
	if settings.PeakCount < 0 {
		errs = append(errs, "peak count must not be negative")
	}
	if settings.SpikeTail < 1 {
		errs = append(errs, "spike tail must be at least 1 sample")
	}
	if settings.SpikeRatio <= 0 {
		errs = append(errs, "spike ratio must be positive")
	}
	if settings.Confidence < 0 || settings.Confidence > 1 {
		errs = append(errs, "audio confidence must be between 0 and 1")
	}
	if settings.DefaultSampleRate <= 0 {
		errs = append(errs, "default sample rate must be positive")
	}
	if settings.BlobWindowSeconds <= 0 {
		errs = append(errs, "blob window must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("Audio settings errors: %v", errs)
	}
	return nil
}

// validateVideoSettings validates recorded video sampling
func validateVideoSettings(settings *VideoSettings) error {
	if settings.SampleInterval < 1 {
		return fmt.Errorf("video sample interval must be at least 1, got %d", settings.SampleInterval)
	}
	if settings.MaxFrames < 0 {
		return fmt.Errorf("video max frames must be at least 0, got %d", settings.MaxFrames)
	}
	return nil
}

// validateTelemetrySettings validates the metrics listener
func validateTelemetrySettings(settings *TelemetrySettings) error {
	if !settings.Enabled {
		return nil
	}
	_, port, err := net.SplitHostPort(settings.Listen)
	if err != nil {
		return fmt.Errorf("telemetry listen address %q is invalid: %w", settings.Listen, err)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("telemetry listen port %q is not a number", port)
	}
	return nil
}

// validateSentrySettings requires a DSN when error reporting is on
func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return fmt.Errorf("sentry DSN is required when sentry is enabled")
	}
	return nil
}

// validateMQTTSettings validates the verdict publisher settings
func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string
	if err := validateBrokerURL(settings.Broker); err != nil {
		errs = append(errs, err.Error())
	}
	if strings.TrimSpace(settings.Topic) == "" {
		errs = append(errs, "MQTT topic is required when MQTT is enabled")
	}
	if strings.ContainsAny(settings.Topic, "#+") {
		errs = append(errs, "MQTT topic must not contain wildcards")
	}
	if settings.QoS < 0 || settings.QoS > 2 {
		errs = append(errs, fmt.Sprintf("MQTT QoS must be 0, 1 or 2, got %d", settings.QoS))
	}

	if len(errs) > 0 {
		return fmt.Errorf("MQTT settings errors: %v", errs)
	}
	return nil
}

// validateBrokerURL checks for a supported scheme and a host
func validateBrokerURL(value string) error {
	u, err := parseBrokerURL(value)
	if err != nil {
		return err
	}
	if !slices.Contains(brokerSchemes, strings.ToLower(u.Scheme)) {
		return fmt.Errorf("unsupported broker scheme %q, expected one of %s", u.Scheme, strings.Join(brokerSchemes, ", "))
	}
	if u.Host == "" {
		return fmt.Errorf("broker URL %q has no host", value)
	}
	return nil
}
