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

package binding

import (
	"net/http"
	"net/textproto"
	"net/url"
)

// Tag names read by [Bind].
const (
	TagPath    = "path"
	TagQuery   = "query"
	TagHeader  = "header"
	TagCookie  = "cookie"
	TagDefault = "default"
)

// Source identifies where a value came from.
type Source int

const (
	// SourceUnknown is an unspecified source.
	SourceUnknown Source = iota
	// SourcePath is a path variable.
	SourcePath
	// SourceQuery is a query parameter.
	SourceQuery
	// SourceHeader is a request header.
	SourceHeader
	// SourceCookie is a cookie.
	SourceCookie
)

// String returns the tag name of the source.
func (s Source) String() string {
	switch s {
	case SourcePath:
		return TagPath
	case SourceQuery:
		return TagQuery
	case SourceHeader:
		return TagHeader
	case SourceCookie:
		return TagCookie
	default:
		return "unknown"
	}
}

var tagSources = []struct {
	tag    string
	source Source
}{
	{TagPath, SourcePath},
	{TagQuery, SourceQuery},
	{TagHeader, SourceHeader},
	{TagCookie, SourceCookie},
}

// ValueGetter abstracts one source of string values.
//
// Has distinguishes a key that is present with an empty value from a key that
// is absent: "?name=" has "name", "?other=1" does not.
type ValueGetter interface {
	Get(key string) string
	GetAll(key string) []string
	Has(key string) bool
}

// Sources maps each source to its getter. Missing sources are skipped.
type Sources map[Source]ValueGetter

// QueryGetter reads url.Values.
func QueryGetter(v url.Values) ValueGetter {
	return valuesGetter(v)
}

type valuesGetter url.Values

func (g valuesGetter) Get(key string) string { return url.Values(g).Get(key) }

func (g valuesGetter) GetAll(key string) []string { return g[key] }

func (g valuesGetter) Has(key string) bool {
	_, ok := g[key]
	return ok
}

// HeaderGetter reads headers with canonical key lookup.
func HeaderGetter(h http.Header) ValueGetter {
	return headerGetter(h)
}

type headerGetter http.Header

func (g headerGetter) Get(key string) string { return http.Header(g).Get(key) }

func (g headerGetter) GetAll(key string) []string { return http.Header(g).Values(key) }

func (g headerGetter) Has(key string) bool {
	_, ok := g[textproto.CanonicalMIMEHeaderKey(key)]
	return ok
}

// MapGetter reads a single-valued map such as path variables.
func MapGetter(m map[string]string) ValueGetter {
	return mapGetter(m)
}

type mapGetter map[string]string

func (g mapGetter) Get(key string) string { return g[key] }

func (g mapGetter) GetAll(key string) []string {
	if v, ok := g[key]; ok {
		return []string{v}
	}
	return nil
}

func (g mapGetter) Has(key string) bool {
	_, ok := g[key]
	return ok
}

// GetterFunc adapts a lookup function to [ValueGetter].
type GetterFunc func(key string) ([]string, bool)

// Get returns the first value.
func (f GetterFunc) Get(key string) string {
	if v, ok := f(key); ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

// GetAll returns every value.
func (f GetterFunc) GetAll(key string) []string {
	v, _ := f(key)
	return v
}

// Has reports whether key is present.
func (f GetterFunc) Has(key string) bool {
	_, ok := f(key)
	return ok
}
