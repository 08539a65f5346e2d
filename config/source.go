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

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Source produces one layer of configuration as a nested map.
type Source interface {
	Load(ctx context.Context) (map[string]any, error)
}

// SourceFunc adapts a function to [Source].
type SourceFunc func(ctx context.Context) (map[string]any, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) (map[string]any, error) {
	return f(ctx)
}

// Format is a configuration file format.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

var extensionFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".toml": FormatTOML,
	".json": FormatJSON,
}

func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("cannot detect format from extension %q; use WithFileAs", ext)
}

func decode(format Format, data []byte) (map[string]any, error) {
	out := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &out)
	case FormatTOML:
		err = toml.Unmarshal(data, &out)
	case FormatJSON:
		err = json.Unmarshal(data, &out)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return out, nil
}

type fileSource struct {
	path   string
	data   []byte
	format Format
}

func (f *fileSource) Load(context.Context) (map[string]any, error) {
	data := f.data
	if f.path != "" {
		var err error
		if data, err = os.ReadFile(f.path); err != nil {
			return nil, err
		}
	}
	return decode(f.format, data)
}

// envSource reads variables starting with prefix. The segment after the
// prefix names a section and the rest its key, so APP_SERVER_READ_TIMEOUT
// becomes server.read_timeout. A variable with a single segment sets a
// top-level key.
type envSource struct {
	prefix  string
	environ func() []string
}

func (e *envSource) Load(context.Context) (map[string]any, error) {
	out := make(map[string]any)
	for _, kv := range e.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, e.prefix) {
			continue
		}
		key = strings.Trim(strings.ToLower(strings.TrimPrefix(key, e.prefix)), "_")
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)

		section, leaf, nested := strings.Cut(key, "_")
		if !nested {
			out[key] = value
			continue
		}
		m, isMap := out[section].(map[string]any)
		if !isMap {
			m = make(map[string]any)
			out[section] = m
		}
		m[leaf] = value
	}
	return out, nil
}
