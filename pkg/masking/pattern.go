package masking

import (
	"log/slog"
	"regexp"
)

// Pattern is a named regex rule with its replacement.
type Pattern struct {
	Name        string
	Pattern     string
	Replacement string
	Description string
}

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// BuiltinPatterns cover credentials that end up in message source URLs.
// Order matters: userinfo is masked before query parameters.
var BuiltinPatterns = []Pattern{
	{
		Name:        "url_userinfo",
		Pattern:     `(?i)(wss?|https?)://([^/@:\s"']+):([^/@\s"']+)@`,
		Replacement: "$1://$2:[MASKED_PASSWORD]@",
		Description: "Password in URL userinfo",
	},
	{
		Name:        "url_query_secret",
		Pattern:     `(?i)([?&](?:token|access_token|api_key|apikey|key|secret|password|auth)=)[^&#\s"'\\]+`,
		Replacement: "${1}[MASKED_SECRET]",
		Description: "Secret-looking query parameter",
	},
	{
		Name:        "bearer_token",
		Pattern:     `(?i)(bearer\s+)[a-z0-9._~+/-]+=*`,
		Replacement: "${1}[MASKED_TOKEN]",
		Description: "Bearer token",
	},
}

// compilePatterns compiles patterns in order. Invalid patterns are logged and skipped.
func compilePatterns(patterns []Pattern) []*CompiledPattern {
	compiled := make([]*CompiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			slog.Error("Failed to compile masking pattern, skipping",
				"pattern", p.Name, "error", err)
			continue
		}
		compiled = append(compiled, &CompiledPattern{
			Name:        p.Name,
			Regex:       re,
			Replacement: p.Replacement,
			Description: p.Description,
		})
	}
	return compiled
}
