package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a slog record to the model's status bar.
type logRecordMsg struct {
	Summary string
	IsError bool
}

// LogHandler is a slog.Handler that shows records in the status bar of a
// running program. Records below the level, and records arriving before
// SetProgram, are dropped.
//
// Handlers derived with WithAttrs/WithGroup share the program pointer, so a
// single SetProgram call reaches all of them.
type LogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	group   string
}

// NewLogHandler creates a handler for records at or above level.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{
		level:   level,
		program: &atomic.Pointer[tea.Program]{},
	}
}

// SetProgram sets the program that receives log records.
func (h *LogHandler) SetProgram(p *tea.Program) {
	h.program.Store(p)
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	p := h.program.Load()
	if p == nil {
		return nil
	}
	p.Send(logRecordMsg{
		Summary: h.summarize(record),
		IsError: record.Level >= slog.LevelError,
	})
	return nil
}

// WithAttrs implements slog.Handler.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

// summarize renders "message (key=value, ...)".
func (h *LogHandler) summarize(record slog.Record) string {
	parts := make([]string, 0, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Key, a.Value))
	}
	record.Attrs(func(a slog.Attr) bool {
		a = h.qualify([]slog.Attr{a})[0]
		parts = append(parts, fmt.Sprintf("%s=%s", a.Key, a.Value))
		return true
	})
	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (h *LogHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}
