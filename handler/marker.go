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

package handler

import (
	"rivaas.dev/dispatch/resolver"
)

// Option refines a marker.
type Option func(p *resolver.Param)

// Required fails resolution when the value is absent.
func Required() Option {
	return func(p *resolver.Param) {
		p.Required = true
	}
}

// Default supplies the raw value used when the parameter is absent.
func Default(value string) Option {
	return func(p *resolver.Param) {
		p.Default = value
		p.HasDefault = true
	}
}

// Attr attaches metadata read by resolver factories and advices, such as a
// validation rule.
func Attr(key, value string) Option {
	return func(p *resolver.Param) {
		if p.Attrs == nil {
			p.Attrs = make(map[string]string)
		}
		p.Attrs[key] = value
	}
}

// Marker declares where one argument comes from. Markers apply to the
// arguments that are not bound implicitly, left to right.
type Marker struct {
	source resolver.Source
	name   string
	opts   []Option
}

func (m Marker) apply(p *resolver.Param) {
	p.Source = m.source
	if m.name != "" {
		p.Name = m.name
	}
	for _, opt := range m.opts {
		opt(p)
	}
}

// Path binds a path variable.
func Path(name string, opts ...Option) Marker {
	return Marker{source: resolver.SourcePath, name: name, opts: opts}
}

// Query binds a query parameter.
func Query(name string, opts ...Option) Marker {
	return Marker{source: resolver.SourceQuery, name: name, opts: opts}
}

// Header binds a request header.
func Header(name string, opts ...Option) Marker {
	return Marker{source: resolver.SourceHeader, name: name, opts: opts}
}

// Cookie binds a cookie.
func Cookie(name string, opts ...Option) Marker {
	return Marker{source: resolver.SourceCookie, name: name, opts: opts}
}

// Body decodes the request entity.
func Body(opts ...Option) Marker {
	return Marker{source: resolver.SourceBody, name: "body", opts: opts}
}

// Bean binds a struct from its path, query, header and cookie tags.
func Bean(opts ...Option) Marker {
	return Marker{source: resolver.SourceBean, opts: opts}
}

// Custom leaves the source unset so a user-registered factory can claim the
// argument by name or type.
func Custom(name string, opts ...Option) Marker {
	return Marker{source: resolver.SourceNone, name: name, opts: opts}
}
