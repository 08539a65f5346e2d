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

package mediatype

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalid is returned for values that are not type/subtype pairs.
var ErrInvalid = errors.New("mediatype: invalid media type")

const wildcard = "*"

// Common media types.
var (
	All            = MediaType{Type: wildcard, Subtype: wildcard, Quality: 1}
	JSON           = MustParse("application/json")
	AnyJSON        = MustParse("application/*+json")
	ProblemJSON    = MustParse("application/problem+json")
	XML            = MustParse("application/xml")
	TextXML        = MustParse("text/xml")
	TextPlain      = MustParse("text/plain")
	TextHTML       = MustParse("text/html")
	OctetStream    = MustParse("application/octet-stream")
	YAML           = MustParse("application/yaml")
	TextYAML       = MustParse("text/yaml")
	XYAML          = MustParse("application/x-yaml")
	TOML           = MustParse("application/toml")
	MsgPack        = MustParse("application/msgpack")
	XMsgPack       = MustParse("application/x-msgpack")
	Protobuf       = MustParse("application/x-protobuf")
	ProtobufAlt    = MustParse("application/protobuf")
	FormURLEncoded = MustParse("application/x-www-form-urlencoded")
)

// MediaType is a parsed media type or media range.
type MediaType struct {
	Type    string
	Subtype string
	// Params holds parameters other than q.
	Params map[string]string
	// Quality is the q parameter, 1 when absent.
	Quality float64
}

// Parse parses a single media type such as "application/json; charset=utf-8".
// The lone value "*" is read as */*.
func Parse(s string) (MediaType, error) {
	m, ok := parsePart(s)
	if !ok {
		return MediaType{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return m, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) MediaType {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseList parses every value and fails on the first invalid one.
func ParseList(values ...string) ([]MediaType, error) {
	out := make([]MediaType, 0, len(values))
	for _, v := range values {
		m, err := Parse(Normalize(v))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Essence returns "type/subtype" without parameters.
func (m MediaType) Essence() string {
	return m.Type + "/" + m.Subtype
}

// String formats m with its parameters in sorted order. The q parameter is
// written only when it differs from 1.
func (m MediaType) String() string {
	if m.Type == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.Essence())
	for _, k := range slices.Sorted(maps.Keys(m.Params)) {
		b.WriteString(";")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(m.Params[k])
	}
	if m.Quality != 1 {
		b.WriteString(";q=")
		b.WriteString(strconv.FormatFloat(m.Quality, 'f', -1, 64))
	}
	return b.String()
}

// IsZero reports whether m is the zero value.
func (m MediaType) IsZero() bool {
	return m.Type == ""
}

// IsWildcardType reports whether m is */*.
func (m MediaType) IsWildcardType() bool {
	return m.Type == wildcard
}

// IsWildcardSubtype reports whether the subtype is * or a *+suffix pattern.
func (m MediaType) IsWildcardSubtype() bool {
	return m.Subtype == wildcard || strings.HasPrefix(m.Subtype, "*+")
}

// IsConcrete reports whether m names a single media type.
func (m MediaType) IsConcrete() bool {
	return !m.IsWildcardType() && !m.IsWildcardSubtype()
}

// Suffix returns the structured syntax suffix ("json" for
// application/problem+json), or "".
func (m MediaType) Suffix() string {
	if i := strings.LastIndexByte(m.Subtype, '+'); i >= 0 {
		return m.Subtype[i+1:]
	}
	return ""
}

// Specificity ranks a media range: 3 for an exact type, 2 for a subtype or
// suffix wildcard, 1 for */*.
func (m MediaType) Specificity() int {
	switch {
	case m.IsWildcardType():
		return 1
	case m.IsWildcardSubtype():
		return 2
	default:
		return 3
	}
}

// Includes reports whether the range m contains other.
func (m MediaType) Includes(other MediaType) bool {
	if m.IsWildcardType() {
		return true
	}
	if m.Type != other.Type {
		return false
	}
	if m.Subtype == other.Subtype || m.Subtype == wildcard {
		return true
	}
	if suffix, ok := strings.CutPrefix(m.Subtype, "*+"); ok {
		return other.Suffix() == suffix
	}
	return false
}

// Compatible reports whether either value includes the other.
func (m MediaType) Compatible(other MediaType) bool {
	return m.Includes(other) || other.Includes(m)
}

// Equal compares type and subtype, ignoring parameters and quality.
func (m MediaType) Equal(other MediaType) bool {
	return m.Type == other.Type && m.Subtype == other.Subtype
}

// WithParam returns a copy of m with the parameter set.
func (m MediaType) WithParam(key, value string) MediaType {
	params := maps.Clone(m.Params)
	if params == nil {
		params = make(map[string]string, 1)
	}
	params[strings.ToLower(key)] = value
	m.Params = params
	return m
}

// IncludesAny reports whether any range in ranges includes m.
// An empty list includes everything.
func IncludesAny(ranges []MediaType, m MediaType) bool {
	if len(ranges) == 0 {
		return true
	}
	for _, r := range ranges {
		if r.Includes(m) {
			return true
		}
	}
	return false
}

// BestInclusion returns the highest specificity among the ranges that include
// m, or 0 when none does.
func BestInclusion(ranges []MediaType, m MediaType) int {
	best := 0
	for _, r := range ranges {
		if r.Includes(m) && r.Specificity() > best {
			best = r.Specificity()
		}
	}
	return best
}

// Normalize expands short names such as "json" into full media types and
// lowercases the result.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if full, ok := shortNames[s]; ok {
		return full
	}
	return s
}

var shortNames = map[string]string{
	"json":     "application/json",
	"xml":      "application/xml",
	"yaml":     "application/yaml",
	"yml":      "application/yaml",
	"toml":     "application/toml",
	"msgpack":  "application/msgpack",
	"protobuf": "application/x-protobuf",
	"proto":    "application/x-protobuf",
	"text":     "text/plain",
	"txt":      "text/plain",
	"html":     "text/html",
	"binary":   "application/octet-stream",
	"form":     "application/x-www-form-urlencoded",
	"problem":  "application/problem+json",
}
