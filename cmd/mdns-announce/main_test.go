package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettingsAliases(t *testing.T) {
	st, err := parseSettings([]string{
		"-register", "one",
		"-avahi-register", "two",
		"-bonjour-register", "three",
		"-bonjour-register-record", "four",
		"-bonjour-rr", "name=five,ip=192.0.2.5",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three", "four", "name=five,ip=192.0.2.5"}, st.records)
	assert.Equal(t, "avahi", st.backend)
	assert.Equal(t, time.Second, st.retryInterval)
}

func TestParseSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "announce.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hostname: box
backend: builtin
retry_interval: 3s
log_level: debug
log_format: json
register:
  - from-file
`), 0o600))

	st, err := parseSettings([]string{"-config", path, "-hostname", "flag-host", "-register", "from-flag"})
	require.NoError(t, err)
	assert.Equal(t, "flag-host", st.hostname)
	assert.Equal(t, "debug", st.logLevel)
	assert.Equal(t, "json", st.logFormat)
	assert.Equal(t, "builtin", st.backend)
	assert.Equal(t, 3*time.Second, st.retryInterval)
	assert.Equal(t, []string{"from-file", "from-flag"}, st.records)
}

func TestParseSettingsFlagBeatsFileLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "announce.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_format: json\n"), 0o600))

	st, err := parseSettings([]string{"-config", path, "-log-format", "text"})
	require.NoError(t, err)
	assert.Equal(t, "text", st.logFormat)
}

func TestParseSettingsMissingFile(t *testing.T) {
	_, err := parseSettings([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"cli", "text", "json"} {
		_, err := newLogger(&settings{logLevel: "debug", logFormat: format})
		assert.NoError(t, err, format)
	}
	_, err := newLogger(&settings{logLevel: "loud", logFormat: "cli"})
	assert.Error(t, err)
	_, err = newLogger(&settings{logLevel: "info", logFormat: "xml"})
	assert.Error(t, err)
}

func TestNewDialer(t *testing.T) {
	logger, err := newLogger(&settings{logLevel: "info", logFormat: "cli"})
	require.NoError(t, err)

	for _, backend := range []string{"avahi", "builtin"} {
		dial, err := newDialer(&settings{backend: backend}, logger)
		require.NoError(t, err)
		assert.NotNil(t, dial)
	}
	_, err = newDialer(&settings{backend: "bonjour"}, logger)
	assert.Error(t, err)
}
