package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/flagx"
	"github.com/dmitrijs2005/wristnote/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "30s" or integer
// nanoseconds. Absent keys keep the value already in Config.
type JsonConfig struct {
	ListenAddr           string         `json:"listen_addr"`
	PeerAddr             string         `json:"peer_addr"`
	PairingToken         string         `json:"pairing_token"`
	DataDir              string         `json:"data_dir"`
	DeviceName           string         `json:"device_name"`
	DeviceModel          string         `json:"device_model"`
	DeviceOSVersion      string         `json:"device_os_version"`
	HTTPAddr             string         `json:"http_addr"`
	AccessToken          string         `json:"access_token"`
	SecretKey            string         `json:"secret_key"`
	DatabaseDSN          string         `json:"database_dsn"`
	OutboxDSN            string         `json:"outbox_dsn"`
	S3AccessKey          string         `json:"s3_access_key"`
	S3SecretKey          string         `json:"s3_secret_key"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Region             string         `json:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint"`
	ReadURLTTL           timex.Duration `json:"read_url_ttl"`
	MaxRetries           *int           `json:"max_retries"`
	BackoffCap           timex.Duration `json:"backoff_cap"`
	AuthWait             timex.Duration `json:"auth_wait"`
	ReachabilityInterval timex.Duration `json:"reachability_interval"`
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

	for dst, v := range map[*string]string{
		&config.ListenAddr:      c.ListenAddr,
		&config.PeerAddr:        c.PeerAddr,
		&config.PairingToken:    c.PairingToken,
		&config.DataDir:         c.DataDir,
		&config.DeviceName:      c.DeviceName,
		&config.DeviceModel:     c.DeviceModel,
		&config.DeviceOSVersion: c.DeviceOSVersion,
		&config.HTTPAddr:        c.HTTPAddr,
		&config.AccessToken:     c.AccessToken,
		&config.SecretKey:       c.SecretKey,
		&config.DatabaseDSN:     c.DatabaseDSN,
		&config.OutboxDSN:       c.OutboxDSN,
		&config.S3AccessKey:     c.S3AccessKey,
		&config.S3SecretKey:     c.S3SecretKey,
		&config.S3Bucket:        c.S3Bucket,
		&config.S3Region:        c.S3Region,
		&config.S3BaseEndpoint:  c.S3BaseEndpoint,
		&config.LogFormat:       c.LogFormat,
	} {
		if v != "" {
			*dst = v
		}
	}

	for dst, v := range map[*time.Duration]timex.Duration{
		&config.ReadURLTTL:           c.ReadURLTTL,
		&config.BackoffCap:           c.BackoffCap,
		&config.AuthWait:             c.AuthWait,
		&config.ReachabilityInterval: c.ReachabilityInterval,
	} {
		if v.Duration > 0 {
			*dst = v.Duration
		}
	}

	if c.MaxRetries != nil {
		config.MaxRetries = *c.MaxRetries
	}
	if c.Debug != nil {
		config.Debug = *c.Debug
	}
}
