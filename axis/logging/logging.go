/*
 * logging - per-instance structured log handler for an axis record.
 *
 * Copyright (c) 2026, the axiscore authors.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 */

// Package logging wraps log/slog with the timestamp/level/message layout
// the teacher's util/logger used, but keyed per axis.Record instance
// rather than behind one process-global debug switch (§9 design note).
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler formats records as "time level: message attr attr ...", mirroring
// the teacher's plain-text layout, and always duplicates warnings and
// above to stderr even when out is something else (e.g. a per-axis log
// file).
type Handler struct {
	out   io.Writer
	inner slog.Handler
	attrs []slog.Attr
	mu    *sync.Mutex
}

// NewHandler builds a Handler writing to out at the given minimum level.
// out may be nil to only emit to stderr for Warn+.
func NewHandler(out io.Writer, level slog.Level) *Handler {
	return &Handler{
		out:   out,
		inner: slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level}),
		mu:    &sync.Mutex{},
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	all := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &Handler{out: h.out, inner: h.inner.WithAttrs(attrs), attrs: all, mu: h.mu}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{out: h.out, inner: h.inner.WithGroup(name), attrs: h.attrs, mu: h.mu}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	parts := []string{
		r.Time.Format("2006/01/02 15:04:05"),
		r.Level.String() + ":",
		r.Message,
	}
	for _, a := range h.attrs {
		parts = append(parts, a.Key+"="+a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.Key+"="+a.Value.String())
		return true
	})
	line := strings.Join(parts, " ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write([]byte(line))
	}
	if r.Level >= slog.LevelWarn {
		_, _ = os.Stderr.Write([]byte(line))
	}
	return err
}

// New builds a ready-to-use *slog.Logger for one axis instance, tagged
// with its name so interleaved log output from several records stays
// attributable.
func New(name string, out io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(out, level)).With(slog.String("axis", name))
}
