package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "url: {{.SOURCE_URL}}",
			env:   map[string]string{"SOURCE_URL": "ws://crew:8765"},
			want:  "url: ws://crew:8765",
		},
		{
			name:  "several variables in one value",
			input: "url: ws://{{.HOST}}:{{.PORT}}",
			env:   map[string]string{"HOST": "localhost", "PORT": "9000"},
			want:  "url: ws://localhost:9000",
		},
		{
			name:  "shell style reference is not expanded",
			input: "url: ${SOURCE_URL}",
			env:   map[string]string{"SOURCE_URL": "ws://crew:8765"},
			want:  "url: ${SOURCE_URL}",
		},
		{
			name:  "missing variable expands to empty",
			input: "url: {{.NOT_SET_ANYWHERE}}",
			env:   map[string]string{},
			want:  "url: ",
		},
		{
			name:  "value containing equals sign",
			input: "token: {{.TOKEN}}",
			env:   map[string]string{"TOKEN": "a=b=c"},
			want:  "token: a=b=c",
		},
		{
			name:  "nested structure",
			input: "source:\n  url: {{.SOURCE_URL}}\nserver:\n  allowed_ws_origins:\n    - {{.ORIGIN}}",
			env:   map[string]string{"SOURCE_URL": "ws://a", "ORIGIN": "dash.example.com"},
			want:  "source:\n  url: ws://a\nserver:\n  allowed_ws_origins:\n    - dash.example.com",
		},
		{
			name:  "malformed template passes through",
			input: "url: {{.BROKEN",
			env:   map[string]string{},
			want:  "url: {{.BROKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, string(ExpandEnv([]byte(tt.input))))
		})
	}
}

func TestExpandEnvProducesValidYAML(t *testing.T) {
	t.Setenv("RECONNECT_DELAY", "250ms")

	data := ExpandEnv([]byte("source:\n  reconnect_delay: {{.RECONNECT_DELAY}}\n"))

	var cfg CrewvizYAMLConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	require.NotNil(t, cfg.Source)
	assert.Equal(t, "250ms", cfg.Source.ReconnectDelay.String())
}
