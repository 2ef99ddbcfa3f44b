// Package klog provides the kernel's structured logging output: every
// subsystem logs through a per-subsystem *slog.Logger built on a shared
// handler, following the pattern smoynes-elsie's internal/log package
// uses for its own hosted CPU simulator.
package klog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// LevelVar holds the live logging level; it can be adjusted at runtime,
// e.g. from cmd/ksim's --verbose flag.
var LevelVar = &slog.LevelVar{}

// Handler formats records as a single line prefixed by the subsystem name
// recorded in the "subsys" attribute, instead of slog's default JSON or
// key=value encodings -- this kernel's log lines are read off a serial
// console, not parsed by a log aggregator.
type Handler struct {
	mu    *sync.Mutex
	out   io.Writer
	level *slog.LevelVar
	attrs []slog.Attr
}

// NewHandler constructs a Handler writing to out at the configured level.
func NewHandler(out io.Writer) *Handler {
	return &Handler{mu: new(sync.Mutex), out: out, level: LevelVar}
}

// Enabled reports whether the handler should emit records at level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a single log record.
func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	subsys := "kernel"
	msg := rec.Message
	rest := make([]slog.Attr, 0, rec.NumAttrs()+len(h.attrs))
	rest = append(rest, h.attrs...)
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == "subsys" {
			subsys = a.Value.String()
			return true
		}
		rest = append(rest, a)
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, "[%-9s] %-5s %s", subsys, rec.Level, msg)
	for _, a := range rest {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value.Any())
	}
	fmt.Fprintln(h.out)
	return nil
}

// WithAttrs returns a handler that also emits attrs on every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{mu: h.mu, out: h.out, level: h.level, attrs: merged}
}

// WithGroup is unsupported; the kernel's log lines are flat.
func (h *Handler) WithGroup(string) slog.Handler { return h }

var root = slog.New(NewHandler(os.Stderr))

// SetOutput replaces the root logger with one writing to w. Only
// loggers obtained from For afterwards write to w; loggers For returned
// earlier keep writing to the previous output.
func SetOutput(w io.Writer) {
	root = slog.New(NewHandler(w))
}

// For returns the logger for a named kernel subsystem (e.g. "vm", "sched",
// "fs"). Every call site logs through the subsystem logger rather than a
// single undifferentiated root logger.
func For(subsys string) *slog.Logger {
	return root.With("subsys", subsys)
}
