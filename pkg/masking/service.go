// Package masking redacts credentials from strings that leave the process:
// log attributes, API responses and rendered status lines.
package masking

import (
	"log/slog"
)

// MaskingService applies compiled patterns in order. Safe for concurrent use.
type MaskingService struct {
	patterns []*CompiledPattern
}

// NewMaskingService compiles the built-in patterns followed by extra.
// Invalid patterns are logged and skipped.
func NewMaskingService(extra ...Pattern) *MaskingService {
	all := make([]Pattern, 0, len(BuiltinPatterns)+len(extra))
	all = append(all, BuiltinPatterns...)
	all = append(all, extra...)

	s := &MaskingService{patterns: compilePatterns(all)}
	slog.Debug("Masking service initialized",
		"builtin_patterns", len(BuiltinPatterns),
		"compiled_patterns", len(s.patterns))
	return s
}

// Mask returns data with every pattern match replaced.
func (s *MaskingService) Mask(data string) string {
	if data == "" {
		return data
	}
	masked := data
	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}

// PatternNames lists the compiled patterns in application order.
func (s *MaskingService) PatternNames() []string {
	names := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		names[i] = p.Name
	}
	return names
}

var defaultService = NewMaskingService()

// URL masks credentials in a message source URL using the built-in patterns.
func URL(raw string) string {
	return defaultService.Mask(raw)
}
