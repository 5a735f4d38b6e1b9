package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	home := isolateViper(t)

	settings, err := Load()
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(home, ".config", AppName, "config.yaml"))

	assert.Equal(t, DefaultPort, settings.WebServer.Port)
	assert.Equal(t, 30*time.Second, settings.WebServer.ReadTimeout)
	assert.Equal(t, []string{"*"}, settings.WebServer.AllowOrigins)

	assert.Equal(t, LandmarkTopology{NoseTip: 1, LeftEye: 33, RightEye: 263}, settings.Vision.Landmarks)
	assert.Equal(t, 2, settings.Vision.MaxFaces)
	assert.InDelta(t, 0.5, settings.Vision.MinDetectionConfidence, 1e-9)
	assert.InDelta(t, 0.1, settings.Vision.GazeThreshold, 1e-9)
	assert.InDelta(t, 0.8, settings.Vision.Confidence, 1e-9)

	assert.InDelta(t, 10.0, settings.Audio.HasAudioThreshold, 1e-9)
	assert.Equal(t, 5, settings.Audio.PeakCount)
	assert.Equal(t, 100, settings.Audio.SpikeTail)
	assert.Equal(t, 44100, settings.Audio.DefaultSampleRate)

	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.Contains(t, settings.Logging.ModuleOutputs, "access")
	assert.Equal(t, "logs/access.log", settings.Logging.ModuleOutputs["access"].FilePath)

	assert.False(t, settings.MQTT.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoadAppliesEnvironment(t *testing.T) {
	isolateViper(t)
	t.Setenv("PROCTOR_PORT", "9001")
	t.Setenv("PROCTOR_AUDIO_PEAKCOUNT", "7")
	t.Setenv("PROCTOR_MQTT_ENABLED", "true")
	t.Setenv("PROCTOR_MQTT_BROKER", "tcp://broker.local:1883")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9001", settings.WebServer.Port)
	assert.Equal(t, 7, settings.Audio.PeakCount)
	assert.True(t, settings.MQTT.Enabled)
	assert.Equal(t, "tcp://broker.local:1883", settings.MQTT.Broker)
}

func TestLoadExplicitFileValidation(t *testing.T) {
	isolateViper(t)

	path := filepath.Join(t.TempDir(), "proctor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("video:\n  sampleinterval: 0\n"), 0o600))
	SetConfigFile(path)

	_, err := Load()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors[0], "sample interval")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolateViper(t)
	SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	isolateViper(t)

	original := validSettings()
	original.WebServer.Port = "8123"
	original.Audio.SpikeRatio = 3.5
	original.Vision.Landmarks.NoseTip = 4

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveYAMLConfig(path, original))

	SetConfigFile(path)
	loaded, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8123", loaded.WebServer.Port)
	assert.InDelta(t, 3.5, loaded.Audio.SpikeRatio, 1e-9)
	assert.Equal(t, 4, loaded.Vision.Landmarks.NoseTip)
	assert.Equal(t, original.WebServer.WriteTimeout, loaded.WebServer.WriteTimeout)
}

func TestEmbeddedConfigMatchesDefaults(t *testing.T) {
	t.Parallel()

	data, err := getDefaultConfig()
	require.NoError(t, err)
	assert.Contains(t, string(data), "nosetip: 1")
	assert.Contains(t, string(data), `port: "8001"`)
}
