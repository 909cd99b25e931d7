package config

import (
	"flag"

	"github.com/dmitrijs2005/wristnote/internal/flagx"
)

// parseFlags overlays command-line flags.
//
//	-a string     link listen address
//	-p string     phone link address
//	-k string     pairing token
//	-d string     data directory
//	-n string     device name
//	-i duration   reachability interval (e.g. "5s")
//	-t string     transcription command
//	-l string     log format: auto, json or console
//	-debug        verbose logging
func parseFlags(config *Config, args []string) {
	specs := append(flagx.Values("-a", "-p", "-k", "-d", "-n", "-i", "-t", "-l"), flagx.Spec{Name: "-debug", Switch: true})
	filtered := flagx.FilterArgs(args, specs)

	fs := flag.NewFlagSet("watch", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "link listen address")
	fs.StringVar(&config.PeerAddr, "p", config.PeerAddr, "phone link address")
	fs.StringVar(&config.PairingToken, "k", config.PairingToken, "pairing token")
	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.StringVar(&config.DeviceName, "n", config.DeviceName, "device name")
	fs.DurationVar(&config.ReachabilityInterval, "i", config.ReachabilityInterval, "reachability interval")
	fs.StringVar(&config.TranscribeCommand, "t", config.TranscribeCommand, "transcription command")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")
	fs.BoolVar(&config.Debug, "debug", config.Debug, "verbose logging")

	if err := fs.Parse(filtered); err != nil {
		panic(err)
	}
}
