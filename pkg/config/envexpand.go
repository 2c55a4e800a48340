package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands {{.VAR}} references in YAML content from the environment.
// The template syntax leaves literal $ characters alone, e.g. in URLs or
// message text:
//
//	url: ws://{{.SOURCE_HOST}}:8765   → ws://crew.internal:8765
//	message: "costs $5"               → unchanged
//
// Missing variables expand to the empty string; validation catches required
// fields left empty. Content that is not a valid template is returned as is
// so the YAML parser can report a clearer error.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			env[key] = value
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		return data
	}
	return buf.Bytes()
}
