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

package compression

import (
	"compress/gzip"
	"log/slog"
	"strings"
)

// Option configures the compression advice.
type Option func(*config)

type config struct {
	logger              *slog.Logger
	gzipLevel           int
	brotliLevel         int
	minSize             int
	enableGzip          bool
	enableBrotli        bool
	excludePaths        map[string]bool
	excludeExtensions   map[string]bool
	excludeContentTypes map[string]bool
	order               int
}

func defaultConfig() *config {
	return &config{
		logger:              slog.New(slog.DiscardHandler),
		gzipLevel:           gzip.DefaultCompression,
		brotliLevel:         4,
		minSize:             DefaultMinSize,
		enableGzip:          true,
		enableBrotli:        true,
		excludePaths:        make(map[string]bool),
		excludeExtensions:   make(map[string]bool),
		excludeContentTypes: make(map[string]bool),
		order:               DefaultOrder,
	}
}

// WithGzipLevel sets the gzip level, from gzip.HuffmanOnly to
// gzip.BestCompression. Out of range values keep the default.
func WithGzipLevel(level int) Option {
	return func(cfg *config) {
		if level >= gzip.HuffmanOnly && level <= gzip.BestCompression {
			cfg.gzipLevel = level
		}
	}
}

// WithBrotliLevel sets the Brotli level, clamped to 0-11. Levels above 5 are
// expensive for dynamic content.
func WithBrotliLevel(level int) Option {
	return func(cfg *config) {
		cfg.brotliLevel = max(0, min(level, 11))
	}
}

// WithBrotliDisabled only offers gzip.
func WithBrotliDisabled() Option {
	return func(cfg *config) {
		cfg.enableBrotli = false
	}
}

// WithGzipDisabled only offers Brotli.
func WithGzipDisabled() Option {
	return func(cfg *config) {
		cfg.enableGzip = false
	}
}

// WithMinSize leaves complete bodies smaller than size bytes uncompressed.
// Streamed bodies are always compressed.
func WithMinSize(size int) Option {
	return func(cfg *config) {
		cfg.minSize = max(0, size)
	}
}

// WithExcludePaths never compresses responses to these request paths.
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludePaths[p] = true
		}
	}
}

// WithExcludeExtensions never compresses request paths ending in one of
// extensions, such as ".png".
func WithExcludeExtensions(extensions ...string) Option {
	return func(cfg *config) {
		for _, ext := range extensions {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			cfg.excludeExtensions[strings.ToLower(ext)] = true
		}
	}
}

// WithExcludeContentTypes never compresses these media types.
func WithExcludeContentTypes(types ...string) Option {
	return func(cfg *config) {
		for _, ct := range types {
			cfg.excludeContentTypes[strings.ToLower(ct)] = true
		}
	}
}

// WithOrder sets the advice order. Lower runs first, so wraps the channel
// further out.
func WithOrder(order int) Option {
	return func(cfg *config) {
		cfg.order = order
	}
}

// WithLogger logs compressor failures.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
