// env.go - Environment variable configuration and validation for proctor-go
package conf

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. PROCTOR_WEBSERVER_PORT
const EnvPrefix = "PROCTOR"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the environment variables that get explicit validation.
// Every other key is still reachable through AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"main.debug", "PROCTOR_DEBUG", validateEnvBool},

		// API server
		{"webserver.port", "PROCTOR_PORT", validateEnvPort},
		{"webserver.bodylimit", "PROCTOR_BODY_LIMIT", validateEnvBodyLimit},

		// Vision models and thresholds
		{"vision.cascade.path", "PROCTOR_CASCADE_PATH", validateEnvPath},
		{"vision.facemesh.modelpath", "PROCTOR_FACEMESH_MODEL", validateEnvPath},
		{"vision.gazethreshold", "PROCTOR_GAZE_THRESHOLD", validateEnvUnitInterval},
		{"vision.mindetectionconfidence", "PROCTOR_MIN_DETECTION_CONFIDENCE", validateEnvUnitInterval},
		{"vision.detectors", "PROCTOR_DETECTORS", validateEnvNonNegativeInt},

		// Audio thresholds
		{"audio.hasaudiothreshold", "PROCTOR_AUDIO_THRESHOLD", validateEnvNonNegativeFloat},
		{"audio.defaultsamplerate", "PROCTOR_DEFAULT_SAMPLE_RATE", validateEnvPositiveInt},

		// Integrations
		{"mqtt.broker", "PROCTOR_MQTT_BROKER", validateEnvBrokerURL},
		{"sentry.dsn", "PROCTOR_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvBodyLimit(value string) error {
	if !bodyLimitPattern.MatchString(value) {
		return fmt.Errorf("body limit must look like 32M or 512K, got '%s'", value)
	}
	return nil
}

func validateEnvUnitInterval(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("value must be between 0.0 and 1.0, got %g", f)
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 {
		return fmt.Errorf("value must be non-negative, got %g", f)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("value must be non-negative, got %d", n)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("value must be positive, got %d", n)
	}
	return nil
}

func validateEnvBrokerURL(value string) error {
	return validateBrokerURL(value)
}

func validateEnvPath(value string) error {
	cleanedPath := filepath.Clean(value)

	if !filepath.IsAbs(cleanedPath) {
		return fmt.Errorf("path must be absolute, got relative path: %s", cleanedPath)
	}

	// Warn but don't fail; the model loader reports the real error
	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		return fmt.Errorf("warning: file does not exist: %s", cleanedPath)
	}

	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return bindEnvVars()
}

// parseBrokerURL is shared by env and settings validation
func parseBrokerURL(value string) (*url.URL, error) {
	u, err := url.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}
	return u, nil
}
