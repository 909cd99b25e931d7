// Package cli is the interactive console of the watch. It records notes from
// audio files, shows the outgoing queue and lets the user retry or discard
// notes by hand.
package cli
