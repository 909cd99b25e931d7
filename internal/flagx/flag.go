// Package flagx lets several independent flag sets share one command line.
//
// Configuration is parsed in layers (JSON file first, then flags), and each
// layer only understands its own flags. flagx picks out the arguments a layer
// knows about so that flag.FlagSet never trips over foreign ones.
package flagx

import (
	"flag"
	"strings"
)

// Spec describes one flag a layer accepts. Switches take no value
// (e.g. -debug); everything else may be followed by a separate value.
type Spec struct {
	Name   string
	Switch bool
}

// Values is a shorthand for a list of value-taking flags.
func Values(names ...string) []Spec {
	specs := make([]Spec, 0, len(names))
	for _, n := range names {
		specs = append(specs, Spec{Name: n})
	}
	return specs
}

// FilterArgs returns the subset of args made of the flags listed in allowed
// together with their values.
//
// Accepted forms are "-f value", "-f=value" and, for switches, a bare "-f".
// A token following a value-taking flag is treated as its value unless it
// starts with '-'.
func FilterArgs(args []string, allowed []Spec) []string {
	known := make(map[string]Spec, len(allowed))
	for _, s := range allowed {
		known[s.Name] = s
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		spec, ok := known[name]
		if !ok {
			continue
		}
		out = append(out, arg)

		if hasValue || spec.Switch {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// ConfigPath extracts the JSON config file path given via -c or -config.
// It returns "" when neither is present.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, Values("-c", "-config", "--config")))

	return path
}
