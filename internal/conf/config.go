// config.go: settings struct and the functions that load and save it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings contains the main application settings
type MainSettings struct {
	Name  string // instance name, included in MQTT payloads
	Debug bool   // true to enable debug mode
}

// WebServerSettings contains settings for the HTTP API
type WebServerSettings struct {
	Host            string        // listen host, empty for all interfaces
	Port            string        // listen port
	BodyLimit       string        // max request body, echo size notation e.g. "32M"
	ReadTimeout     time.Duration // http.Server read timeout
	WriteTimeout    time.Duration // http.Server write timeout
	ShutdownTimeout time.Duration // graceful shutdown deadline
	AllowOrigins    []string      // CORS origins, "*" allows all
	RateLimit       float64       // analysis requests per second per client IP, 0 disables
	RateBurst       int           // requests allowed above RateLimit
}

// Address returns the listen address of the API server
func (w *WebServerSettings) Address() string {
	return w.Host + ":" + w.Port
}

// LandmarkTopology names the mesh indices used for gaze estimation
type LandmarkTopology struct {
	NoseTip  int
	LeftEye  int
	RightEye int
}

// FaceMeshSettings configures the TFLite face landmark model
type FaceMeshSettings struct {
	ModelPath string // path to face_landmark.tflite
	Threads   int    // interpreter threads, 0 = 1
}

// CascadeSettings configures the OpenCV Haar cascade face detector
type CascadeSettings struct {
	Path         string  // path to haarcascade_frontalface_default.xml
	ScaleFactor  float64 // image pyramid scale step
	MinNeighbors int     // neighbours required to keep a detection
	MinSize      int     // smallest face edge in pixels
}

// VisionSettings contains settings for the Frame Analyzer
type VisionSettings struct {
	Cascade                CascadeSettings
	FaceMesh               FaceMeshSettings
	Landmarks              LandmarkTopology
	MaxFaces               int     // landmark sets extracted per frame
	MinDetectionConfidence float64 // face presence score required by the mesh model
	Detectors              int     // detector/interpreter pool size, 0 = auto
	GazeThreshold          float64 // normalized eye-nose deviation that counts as looking away
	Confidence             float64 // reported confidence when a face is present
}

// PoolSize returns the configured pool size, or NumCPU capped at MaxDetectorPool
func (v *VisionSettings) PoolSize() int {
	if v.Detectors > 0 {
		return v.Detectors
	}
	return min(runtime.NumCPU(), MaxDetectorPool)
}

// AudioSettings contains settings for the Audio Analyzer
type AudioSettings struct {
	LevelScale        float64 // mean |x| multiplier
	HasAudioThreshold float64 // level above which audio is present
	PeakFactor        float64 // bins above PeakFactor * mean magnitude are peaks
	PeakCount         int     // more peaks than this flags multiple speakers
	SpikeTail         int     // samples in the trailing window
	SpikeRatio        float64 // tail/head mean ratio that counts as a spike
	Confidence        float64 // reported confidence when audio is present
	DefaultSampleRate int     // used when a request omits sampleRate
	BlobWindowSeconds float64 // window length for /analyze-audio-blob
}

// VideoSettings contains settings for recorded video analysis
type VideoSettings struct {
	SampleInterval int // analyze every Nth frame
	MaxFrames      int // stop after this many sampled frames, 0 = no limit
}

// TelemetrySettings controls the Prometheus metrics listener
type TelemetrySettings struct {
	Enabled bool   // true to expose /metrics
	Listen  string // listen address of the metrics endpoint
}

// SentrySettings controls error reporting
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// MQTTSettings contains settings for verdict publishing
type MQTTSettings struct {
	Enabled  bool   // true to publish every verdict
	Broker   string // MQTT broker URL (tcp://host:1883)
	Topic    string // base topic, verdicts go to <topic>/face and <topic>/audio
	Username string
	Password string
	ClientID string // empty generates one
	QoS      int    // 0, 1 or 2
	Retain   bool
}

// Settings contains all configuration options for proctor-go
type Settings struct {
	Version   string `yaml:"-" mapstructure:"-"` // set from build flags
	BuildDate string `yaml:"-" mapstructure:"-"`

	Main      MainSettings
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	WebServer WebServerSettings
	Vision    VisionSettings
	Audio     AudioSettings
	Video     VideoSettings
	Telemetry TelemetrySettings
	Sentry    SentrySettings
	MQTT      MQTTSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
	configFileFlag   string
)

// SetConfigFile makes Load read path instead of searching the default locations
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileFlag = path
}

// Load reads the configuration file and environment variables into a Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, errors.New(fmt.Errorf("error initializing viper: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigType("yaml")

	// Set default values for each configuration parameter, defined in defaults.go
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		// Bad environment values are reported but do not stop startup;
		// ValidateSettings catches anything that would break analysis.
		GetLogger().Warn("Environment variable configuration issues", logger.Error(err))
	}

	if configFileFlag != "" {
		viper.SetConfigFile(configFileFlag)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFileFlag, err)
		}
		return nil
	}

	viper.SetConfigName("config")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml into dir and reads it back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil { //nolint:gosec // config is not secret by default
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("Created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it on first use.
// It panics if loading fails; commands that can recover should call Load.
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig writes settings to configPath atomically.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := MarshalYAML(settings)
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName) //nolint:errcheck // already renamed on success

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	// Rename is atomic on the same filesystem, moveFile covers cross-device links
	if err := os.Rename(tempFileName, configPath); err != nil {
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}

// MarshalYAML renders settings as YAML. The `config` command prints this.
func MarshalYAML(settings *Settings) ([]byte, error) {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return yamlData, nil
}
