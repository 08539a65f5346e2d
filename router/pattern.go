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

package router

import (
	"fmt"
	"strings"
)

type segmentKind uint8

const (
	segLiteral segmentKind = iota
	segParam
	segCatchAll
)

type segment struct {
	kind       segmentKind
	value      string // literal text or variable name
	constraint *Constraint
}

// Pattern is a parsed path pattern. Literal segments match exactly, ":name"
// matches one segment and a trailing "*name" matches the rest of the path.
type Pattern struct {
	raw      string
	segments []segment
	key      string
	literals int
	vars     int
	catchAll bool
}

// ParsePattern parses a path pattern such as "/users/:id/files/*path".
func ParsePattern(path string) (*Pattern, error) {
	if path == "" || path[0] != '/' {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, path)
	}
	p := &Pattern{raw: path}
	seen := make(map[string]bool)
	parts := splitPath(path)
	keys := make([]string, 0, len(parts))
	for i, part := range parts {
		switch {
		case part == "":
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPattern, path)
		case part[0] == ':' || part[0] == '*':
			name := part[1:]
			if name == "" {
				return nil, fmt.Errorf("%w: %q has an unnamed variable", ErrInvalidPattern, path)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: %q repeats variable %q", ErrInvalidPattern, path, name)
			}
			seen[name] = true
			p.vars++
			if part[0] == '*' {
				if i != len(parts)-1 {
					return nil, fmt.Errorf("%w: %q catch-all must be last", ErrInvalidPattern, path)
				}
				p.catchAll = true
				p.segments = append(p.segments, segment{kind: segCatchAll, value: name})
				keys = append(keys, "*")
				continue
			}
			p.segments = append(p.segments, segment{kind: segParam, value: name})
			keys = append(keys, ":")
		default:
			p.literals++
			p.segments = append(p.segments, segment{kind: segLiteral, value: part})
			keys = append(keys, part)
		}
	}
	p.key = "/" + strings.Join(keys, "/")
	return p, nil
}

// splitPath splits a path into segments, ignoring the leading slash and a
// single trailing slash.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (p *Pattern) constrain(name string, c *Constraint) error {
	for i := range p.segments {
		if p.segments[i].kind != segLiteral && p.segments[i].value == name {
			p.segments[i].constraint = c
			return nil
		}
	}
	return fmt.Errorf("%w: %q has no variable %q", ErrInvalidConstraint, p.raw, name)
}

// String returns the pattern as written.
func (p *Pattern) String() string {
	return p.raw
}

// Key returns the pattern with variable names removed. Patterns with equal
// keys match the same paths.
func (p *Pattern) Key() string {
	if p.constrained() {
		var b strings.Builder
		for _, s := range p.segments {
			b.WriteByte('/')
			switch s.kind {
			case segLiteral:
				b.WriteString(s.value)
			case segParam:
				b.WriteByte(':')
			case segCatchAll:
				b.WriteByte('*')
			}
			if s.constraint != nil {
				b.WriteString("{" + s.constraint.Pattern + "}")
			}
		}
		return b.String()
	}
	return p.key
}

func (p *Pattern) constrained() bool {
	for _, s := range p.segments {
		if s.constraint != nil {
			return true
		}
	}
	return false
}

// Static reports whether the pattern has no variables.
func (p *Pattern) Static() bool {
	return p.vars == 0
}

// Vars returns the variable names in order.
func (p *Pattern) Vars() []string {
	var names []string
	for _, s := range p.segments {
		if s.kind != segLiteral {
			names = append(names, s.value)
		}
	}
	return names
}

// Constraints returns the variable constraints as regular expressions.
func (p *Pattern) Constraints() map[string]string {
	out := make(map[string]string)
	for _, s := range p.segments {
		if s.constraint != nil {
			out[s.value] = s.constraint.Pattern
		}
	}
	return out
}

// Match matches a request path split by splitPath. It returns the
// variables, or false.
func (p *Pattern) Match(parts []string) (map[string]string, bool) {
	if p.catchAll {
		if len(parts) < len(p.segments)-1 {
			return nil, false
		}
	} else if len(parts) != len(p.segments) {
		return nil, false
	}

	var vars map[string]string
	for i, s := range p.segments {
		switch s.kind {
		case segLiteral:
			if parts[i] != s.value {
				return nil, false
			}
		case segParam:
			if parts[i] == "" || (s.constraint != nil && !s.constraint.Match(parts[i])) {
				return nil, false
			}
			if vars == nil {
				vars = make(map[string]string, p.vars)
			}
			vars[s.value] = parts[i]
		case segCatchAll:
			rest := strings.Join(parts[i:], "/")
			if s.constraint != nil && !s.constraint.Match(rest) {
				return nil, false
			}
			if vars == nil {
				vars = make(map[string]string, p.vars)
			}
			vars[s.value] = rest
		}
	}
	return vars, true
}

// rank orders patterns for the same path: literal before templated before
// catch-all, then more literal segments, fewer variables and more
// constrained variables. Negative means p is more specific.
func (p *Pattern) rank(other *Pattern) int {
	if d := p.class() - other.class(); d != 0 {
		return d
	}
	if d := other.literals - p.literals; d != 0 {
		return d
	}
	if d := p.vars - other.vars; d != 0 {
		return d
	}
	return other.constraintCount() - p.constraintCount()
}

func (p *Pattern) class() int {
	switch {
	case p.catchAll:
		return 2
	case p.vars > 0:
		return 1
	default:
		return 0
	}
}

func (p *Pattern) constraintCount() int {
	n := 0
	for _, s := range p.segments {
		if s.constraint != nil {
			n++
		}
	}
	return n
}
