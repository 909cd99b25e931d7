package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/wristnote/internal/flagx"
	"github.com/dmitrijs2005/wristnote/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "3s" or integer
// nanoseconds. Absent keys keep the value already in Config.
type JsonConfig struct {
	ListenAddr           string         `json:"listen_addr"`
	PeerAddr             string         `json:"peer_addr"`
	PairingToken         string         `json:"pairing_token"`
	DataDir              string         `json:"data_dir"`
	DeviceName           string         `json:"device_name"`
	DeviceModel          string         `json:"device_model"`
	DeviceOSVersion      string         `json:"device_os_version"`
	ReachabilityInterval timex.Duration `json:"reachability_interval"`
	TranscribeCommand    string         `json:"transcribe_command"`
	LogFormat            string         `json:"log_format"`
	Debug                *bool          `json:"debug"`
}

// parseJson loads the file named by -c/-config, if any. Unreadable or invalid
// files panic.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.PeerAddr, c.PeerAddr)
	setString(&config.PairingToken, c.PairingToken)
	setString(&config.DataDir, c.DataDir)
	setString(&config.DeviceName, c.DeviceName)
	setString(&config.DeviceModel, c.DeviceModel)
	setString(&config.DeviceOSVersion, c.DeviceOSVersion)
	setString(&config.TranscribeCommand, c.TranscribeCommand)
	setString(&config.LogFormat, c.LogFormat)
	if c.ReachabilityInterval.Duration > 0 {
		config.ReachabilityInterval = c.ReachabilityInterval.Duration
	}
	if c.Debug != nil {
		config.Debug = *c.Debug
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
