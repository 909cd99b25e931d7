package config

import (
	"flag"

	"github.com/dmitrijs2005/wristnote/internal/flagx"
)

// parseFlags overlays command-line flags.
//
//	-a string    link listen address
//	-p string    watch link address
//	-k string    pairing token
//	-data string data directory
//	-n string    device name
//	-w string    HTTP API address
//	-t string    access token
//	-s string    JWT HMAC secret key
//	-d string    PostgreSQL DSN
//	-o string    ack outbox SQLite DSN
//	-u string    S3 access key
//	-x string    S3 secret key
//	-b string    S3 bucket name
//	-g string    S3 region
//	-e string    S3 base endpoint
//	-r int       upload retries before a note fails
//	-i duration  reachability interval
//	-l string    log format: auto, json or console
//	-debug       verbose logging
func parseFlags(config *Config, args []string) {
	specs := append(
		flagx.Values("-a", "-p", "-k", "-data", "-n", "-w", "-t", "-s", "-d", "-o", "-u", "-x", "-b", "-g", "-e", "-r", "-i", "-l"),
		flagx.Spec{Name: "-debug", Switch: true},
	)
	filtered := flagx.FilterArgs(args, specs)

	fs := flag.NewFlagSet("phone", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "link listen address")
	fs.StringVar(&config.PeerAddr, "p", config.PeerAddr, "watch link address")
	fs.StringVar(&config.PairingToken, "k", config.PairingToken, "pairing token")
	fs.StringVar(&config.DataDir, "data", config.DataDir, "data directory")
	fs.StringVar(&config.DeviceName, "n", config.DeviceName, "device name")
	fs.StringVar(&config.HTTPAddr, "w", config.HTTPAddr, "HTTP API address")
	fs.StringVar(&config.AccessToken, "t", config.AccessToken, "access token")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.OutboxDSN, "o", config.OutboxDSN, "ack outbox DSN")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "x", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.IntVar(&config.MaxRetries, "r", config.MaxRetries, "upload retries")
	fs.DurationVar(&config.ReachabilityInterval, "i", config.ReachabilityInterval, "reachability interval")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")
	fs.BoolVar(&config.Debug, "debug", config.Debug, "verbose logging")

	if err := fs.Parse(filtered); err != nil {
		panic(err)
	}
}
