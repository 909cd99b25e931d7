package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []Spec
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.json", "-a", "localhost"},
			allowed: Values("-c", "--config"),
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "long flag with equals",
			args:    []string{"--config=alt.json", "-a", "localhost"},
			allowed: Values("-c", "--config"),
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags and positionals ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: Values("-c"),
			want:    []string{},
		},
		{
			name:    "flag without value at end is kept",
			args:    []string{"-c"},
			allowed: Values("-c"),
			want:    []string{"-c"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "-notvalue"},
			allowed: Values("-c"),
			want:    []string{"-c"},
		},
		{
			name:    "switch does not swallow following positional",
			args:    []string{"-debug", "record", "-a", ":1"},
			allowed: []Spec{{Name: "-debug", Switch: true}, {Name: "-a"}},
			want:    []string{"-debug", "-a", ":1"},
		},
		{
			name:    "switch with explicit value",
			args:    []string{"-debug=false"},
			allowed: []Spec{{Name: "-debug", Switch: true}},
			want:    []string{"-debug=false"},
		},
		{
			name:    "several allowed flags keep their order",
			args:    []string{"-a", "localhost:8080", "-c", "conf.json", "--other", "x"},
			allowed: Values("-c", "-a"),
			want:    []string{"-a", "localhost:8080", "-c", "conf.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "watch.json"}, "watch.json"},
		{"long", []string{"-config", "phone.json", "-a", ":1"}, "phone.json"},
		{"equals", []string{"-config=x.json"}, "x.json"},
		{"absent", []string{"-a", ":1"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}
