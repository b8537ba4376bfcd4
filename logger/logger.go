// Copyright 2026 The Pintosfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger wires structured logging for the core on top of log/slog:
// a package-level default logger, a handful of severity levels including
// one below slog's own
// Debug, and text or JSON output selectable at startup.
//
// Most of the core stays quiet at the default level. Background tasks
// (write-back, read-ahead) log at Debug; fatal invariant violations log at
// Error before the process panics via fserrors.Raise.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// severity levels below slog.LevelDebug are not predefined by the stdlib;
// trace is one extra rung below debug for the cache's most verbose
// tracing (every cache hit/miss, every read-ahead decision).
const (
	LevelTrace = slog.Level(-8)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
}

type factory struct {
	format string // "text" or "json"
}

func (f *factory) handler(w io.Writer, level *slog.LevelVar) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				lvl := a.Value.Any().(slog.Level)
				if name, ok := levelNames[lvl]; ok {
					a.Value = slog.StringValue(name)
				}
			}
			return a
		},
	}
	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

var (
	defaultFactory = &factory{format: "text"}
	programLevel   = new(slog.LevelVar)
	defaultLogger  = slog.New(defaultFactory.handler(os.Stderr, programLevel))
)

// SetFormat switches the default logger between "text" and "json" output.
func SetFormat(format string) {
	defaultFactory.format = format
	defaultLogger = slog.New(defaultFactory.handler(os.Stderr, programLevel))
}

// SetLevel parses one of "TRACE", "DEBUG", "INFO", "WARNING", "ERROR" and
// sets it as the minimum level the default logger emits.
func SetLevel(level string) {
	switch level {
	case "TRACE":
		programLevel.Set(LevelTrace)
	case "DEBUG":
		programLevel.Set(slog.LevelDebug)
	case "WARNING":
		programLevel.Set(slog.LevelWarn)
	case "ERROR":
		programLevel.Set(slog.LevelError)
	default:
		programLevel.Set(slog.LevelInfo)
	}
}

// Named returns a logger carrying a "component" attribute, used so the
// cache's background goroutines ("cache-read-ahead",
// "cache-periodic-flush") can be told apart in logs the way named
// threads are told apart in a thread dump.
func Named(component string) *slog.Logger {
	return defaultLogger.With("component", component)
}

func Tracef(format string, args ...any) {
	defaultLogger.Log(context.Background(), LevelTrace, sprintf(format, args...))
}

func Debugf(format string, args ...any) {
	defaultLogger.Debug(sprintf(format, args...))
}

func Infof(format string, args ...any) {
	defaultLogger.Info(sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	defaultLogger.Error(sprintf(format, args...))
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
