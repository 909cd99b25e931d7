package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "watch.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	got := LoadConfig(nil)
	if diff := cmp.Diff(defaults(), *got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Layers(t *testing.T) {
	path := writeJSON(t, `{
		"peer_addr": "10.0.0.2:7000",
		"data_dir": "/var/lib/wristnote",
		"reachability_interval": "10s",
		"transcribe_command": "whisper {input}",
		"debug": true
	}`)

	got := LoadConfig([]string{"-c", path, "-p", "10.0.0.3:7000", "-i", "1s", "-unknown", "x"})

	want := defaults()
	want.PeerAddr = "10.0.0.3:7000"
	want.DataDir = "/var/lib/wristnote"
	want.ReachabilityInterval = time.Second
	want.TranscribeCommand = "whisper {input}"
	want.Debug = true

	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_DurationNanoseconds(t *testing.T) {
	path := writeJSON(t, `{"reachability_interval": 2000000000}`)
	got := LoadConfig([]string{"-config", path})
	require.Equal(t, 2*time.Second, got.ReachabilityInterval)
}

func TestLoadConfig_DebugSwitch(t *testing.T) {
	got := LoadConfig([]string{"-debug", "-n", "left-wrist"})
	require.True(t, got.Debug)
	require.Equal(t, "left-wrist", got.DeviceName)
	require.Equal(t, "left-wrist", got.Device().Name)
}

func TestLoadConfig_PanicsOnBadInput(t *testing.T) {
	require.Panics(t, func() { LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.json")}) })
	require.Panics(t, func() { LoadConfig([]string{"-c", writeJSON(t, "{")}) })
	require.Panics(t, func() { LoadConfig([]string{"-i", "soon"}) })
}
