// Package config handles configuration for the watch binary, including
// defaults, JSON overlay and command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/wristnote/internal/models"
)

// Config holds runtime settings for the watch.
//
// Fields:
//   - ListenAddr: where the watch accepts link calls from the phone (acks).
//   - PeerAddr: the phone's link endpoint.
//   - PairingToken: shared secret both devices were paired with.
//   - DataDir: holds the audio store and the queue state file.
//   - ReachabilityInterval: how often the phone is pinged.
//   - TranscribeCommand: speech-to-text command line, "{input}" is replaced
//     by the audio path. Empty disables transcription.
type Config struct {
	ListenAddr           string
	PeerAddr             string
	PairingToken         string
	DataDir              string
	DeviceName           string
	DeviceModel          string
	DeviceOSVersion      string
	ReachabilityInterval time.Duration
	TranscribeCommand    string
	LogFormat            string
	Debug                bool
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = "127.0.0.1:50061"
	c.PeerAddr = "127.0.0.1:50062"
	c.PairingToken = "dev-pairing-token"
	c.DataDir = "./data/watch"
	c.DeviceName = "wrist"
	c.DeviceModel = "simulator"
	c.DeviceOSVersion = "1.0"
	c.ReachabilityInterval = 3 * time.Second
	c.LogFormat = "auto"
}

func (c *Config) Device() models.DeviceInfo {
	return models.DeviceInfo{Name: c.DeviceName, Model: c.DeviceModel, OSVersion: c.DeviceOSVersion}
}

// LoadConfig applies defaults, then the optional JSON file, then flags.
func LoadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
