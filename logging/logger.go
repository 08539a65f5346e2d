// Copyright 2025 The Rivaas Authors
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

package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// HandlerType selects the output format.
type HandlerType string

const (
	// JSONHandler writes one JSON object per record.
	JSONHandler HandlerType = "json"
	// TextHandler writes key=value records.
	TextHandler HandlerType = "text"
	// ConsoleHandler writes human-readable records, colored on terminals.
	ConsoleHandler HandlerType = "console"
)

// Level is a log level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// redactedKeys are replaced in every record.
var redactedKeys = map[string]bool{
	"password":      true,
	"token":         true,
	"secret":        true,
	"api_key":       true,
	"authorization": true,
}

// Logger owns a [slog.Logger] built from options. All methods are safe for
// concurrent use.
type Logger struct {
	handlerType HandlerType
	output      io.Writer
	level       slog.LevelVar
	color       *bool

	serviceName    string
	serviceVersion string
	environment    string

	addSource   bool
	replaceAttr func(groups []string, a slog.Attr) slog.Attr

	custom         *slog.Logger
	useCustom      bool
	registerGlobal bool

	slogger  atomic.Pointer[slog.Logger]
	shutdown atomic.Bool
}

// Option configures a [Logger].
type Option func(*Logger)

// New creates a logger. It writes JSON at info level to stdout unless
// configured otherwise. The global slog logger is only replaced with
// [WithGlobalLogger].
func New(opts ...Option) (*Logger, error) {
	l := &Logger{handlerType: JSONHandler, output: os.Stdout}
	l.level.Set(LevelInfo)
	for _, opt := range opts {
		opt(l)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("logging: invalid configuration: %w", err)
	}

	sl, err := l.build()
	if err != nil {
		return nil, err
	}
	l.slogger.Store(sl)
	if l.registerGlobal {
		slog.SetDefault(sl)
	}
	return l, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic(err.Error())
	}
	return l
}

// Validate checks the configuration.
func (l *Logger) Validate() error {
	if l.useCustom {
		if l.custom == nil {
			return ErrNilLogger
		}
		return nil
	}
	if l.output == nil {
		return errors.New("output writer cannot be nil")
	}
	switch l.handlerType {
	case JSONHandler, TextHandler, ConsoleHandler:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidHandler, l.handlerType)
	}
}

func (l *Logger) build() (*slog.Logger, error) {
	if l.useCustom {
		return l.custom, nil
	}

	opts := &slog.HandlerOptions{
		Level:       &l.level,
		AddSource:   l.addSource,
		ReplaceAttr: l.redact,
	}
	var h slog.Handler
	switch l.handlerType {
	case JSONHandler:
		h = slog.NewJSONHandler(l.output, opts)
	case TextHandler:
		h = slog.NewTextHandler(l.output, opts)
	case ConsoleHandler:
		color := isTerminal(l.output)
		if l.color != nil {
			color = *l.color
		}
		h = newConsoleHandler(l.output, opts, color)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandler, l.handlerType)
	}

	sl := slog.New(h)
	var attrs []any
	if l.serviceName != "" {
		attrs = append(attrs, "service", l.serviceName)
	}
	if l.serviceVersion != "" {
		attrs = append(attrs, "version", l.serviceVersion)
	}
	if l.environment != "" {
		attrs = append(attrs, "env", l.environment)
	}
	if len(attrs) > 0 {
		sl = sl.With(attrs...)
	}
	return sl, nil
}

func (l *Logger) redact(groups []string, a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "***REDACTED***")
	}
	if l.replaceAttr != nil {
		return l.replaceAttr(groups, a)
	}
	return a
}

// Logger returns the [slog.Logger]. After [Logger.Shutdown] it discards.
func (l *Logger) Logger() *slog.Logger {
	return l.slogger.Load()
}

// With returns the logger with extra attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.Logger().With(args...)
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level Level) error {
	if l.useCustom {
		return ErrCannotChangeLevel
	}
	l.level.Set(level)
	return nil
}

// Level returns the minimum level.
func (l *Logger) Level() Level {
	return l.level.Level()
}

// ServiceName returns the service name attached to every record.
func (l *Logger) ServiceName() string {
	return l.serviceName
}

// Shutdown stops logging and syncs file outputs. Later records are
// discarded.
func (l *Logger) Shutdown(_ context.Context) error {
	if !l.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	l.slogger.Store(slog.New(slog.DiscardHandler))
	if f, ok := l.output.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Sync()
	}
	return nil
}

// ParseLevel parses "debug", "info", "warn" or "error", case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}
