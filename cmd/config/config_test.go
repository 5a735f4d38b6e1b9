package config

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/proctor-go/internal/conf"
)

func TestConfigCommandMasksSecrets(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.MQTT.Broker = "tcp://broker:1883"
	settings.MQTT.Password = "hunter22"
	settings.Sentry.DSN = "https://key@o1.ingest.sentry.io/1"

	cmd := Command(settings)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	assert.NotContains(t, out.String(), "hunter22")
	assert.NotContains(t, out.String(), "ingest.sentry.io")
	assert.Contains(t, out.String(), "tcp://broker:1883")
	assert.Equal(t, "hunter22", settings.MQTT.Password, "original settings untouched")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
}

func TestConfigCommandWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	settings := &conf.Settings{}
	settings.WebServer.Port = "9001"

	cmd := Command(settings)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--output", path})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, path)
}
