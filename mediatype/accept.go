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
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// acceptCacheLimit bounds the number of distinct Accept headers kept parsed.
const acceptCacheLimit = 512

var (
	acceptCache     sync.Map // string -> []MediaType
	acceptCacheSize atomic.Int64
)

// ParseAccept parses an Accept header into media ranges in header order.
// Invalid parts are skipped. An empty header, or one with no valid part,
// yields a single */* range.
//
// The returned slice is shared and must not be modified.
func ParseAccept(header string) []MediaType {
	header = strings.TrimSpace(header)
	if header == "" {
		return []MediaType{All}
	}
	if cached, ok := acceptCache.Load(header); ok {
		return cached.([]MediaType)
	}

	ranges := make([]MediaType, 0, 4)
	for part := range strings.SplitSeq(header, ",") {
		if m, ok := parsePart(part); ok {
			ranges = append(ranges, m)
		}
	}
	if len(ranges) == 0 {
		ranges = append(ranges, All)
	}

	if acceptCacheSize.Load() < acceptCacheLimit {
		if _, loaded := acceptCache.LoadOrStore(header, ranges); !loaded {
			acceptCacheSize.Add(1)
		}
	}
	return ranges
}

// parsePart parses one comma-separated element of a media type list.
func parsePart(part string) (MediaType, bool) {
	value, params, _ := strings.Cut(part, ";")
	value = strings.ToLower(strings.TrimSpace(value))
	if value == wildcard {
		value = "*/*"
	}

	typ, sub, ok := strings.Cut(value, "/")
	if !ok || typ == "" || sub == "" || strings.ContainsAny(sub, "/ \t") {
		return MediaType{}, false
	}
	if typ == wildcard && sub != wildcard {
		return MediaType{}, false
	}

	m := MediaType{Type: typ, Subtype: sub, Quality: 1}
	for param := range strings.SplitSeq(params, ";") {
		parseParam(param, &m)
	}
	return m, true
}

// parseParam applies one key=value parameter. The q parameter sets Quality;
// everything else lands in Params with its key lowercased.
func parseParam(param string, m *MediaType) {
	key, value, ok := strings.Cut(param, "=")
	if !ok {
		return
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return
	}
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}

	if key == "q" {
		if q := parseQuality(value); q >= 0 {
			m.Quality = float64(q) / 1000
		} else if q, err := strconv.ParseFloat(value, 64); err == nil && q >= 0 && q <= 1 {
			m.Quality = q
		}
		return
	}
	if m.Params == nil {
		m.Params = make(map[string]string, 2)
	}
	m.Params[key] = value
}

// parseQuality parses a qvalue into thousandths, or -1 when the value does not
// follow the "0.xxx" / "1.000" grammar.
func parseQuality(s string) int {
	if len(s) == 0 || len(s) > 5 {
		return -1
	}
	switch s[0] {
	case '1':
		if len(s) == 1 {
			return 1000
		}
		if len(s) < 3 || s[1] != '.' {
			return -1
		}
		for i := 2; i < len(s); i++ {
			if s[i] != '0' {
				return -1
			}
		}
		return 1000
	case '0':
		if len(s) == 1 {
			return 0
		}
		if len(s) < 3 || s[1] != '.' {
			return -1
		}
		q, mul := 0, 100
		for i := 2; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return -1
			}
			q += int(s[i]-'0') * mul
			mul /= 10
		}
		return q
	default:
		return -1
	}
}

// Match scores offer against a list of accepted ranges. The most specific
// range that includes the offer decides the quality; a wildcard offer is
// scored against the ranges it includes. ok is false when nothing matches or
// the deciding range has q=0.
func Match(accepts []MediaType, offer MediaType) (quality float64, specificity int, ok bool) {
	bestSpec := 0
	for _, a := range accepts {
		var spec int
		switch {
		case a.Includes(offer):
			spec = a.Specificity()
		case offer.Includes(a):
			spec = offer.Specificity()
		default:
			continue
		}
		if spec > bestSpec || (spec == bestSpec && a.Quality > quality) {
			bestSpec = spec
			quality = a.Quality
		}
	}
	if bestSpec == 0 || quality <= 0 {
		return 0, 0, false
	}
	return quality, bestSpec, true
}

// Negotiate picks the offer that best satisfies accepts: highest quality,
// then highest specificity, then earliest offer. When the winning offer is a
// wildcard the concrete accepted type it covers is returned instead.
func Negotiate(accepts []MediaType, offers []MediaType) (MediaType, bool) {
	if len(accepts) == 0 {
		accepts = []MediaType{All}
	}

	best := -1
	bestQ, bestSpec := -1.0, -1
	for i, offer := range offers {
		q, spec, ok := Match(accepts, offer)
		if !ok {
			continue
		}
		if q > bestQ || (q == bestQ && spec > bestSpec) {
			best, bestQ, bestSpec = i, q, spec
		}
	}
	if best < 0 {
		return MediaType{}, false
	}
	return Narrow(accepts, offers[best]), true
}

// Narrow resolves a wildcard offer to the preferred concrete accepted type it
// includes. Concrete offers are returned unchanged with quality reset to 1.
// The result is still a wildcard when no accepted type is concrete.
func Narrow(accepts []MediaType, offer MediaType) MediaType {
	offer.Quality = 1
	if offer.IsConcrete() {
		return offer
	}
	ordered := slices.Clone(accepts)
	slices.SortStableFunc(ordered, func(a, b MediaType) int {
		switch {
		case a.Quality > b.Quality:
			return -1
		case a.Quality < b.Quality:
			return 1
		default:
			return b.Specificity() - a.Specificity()
		}
	})
	for _, a := range ordered {
		if a.Quality > 0 && a.IsConcrete() && offer.Includes(a) {
			a.Quality = 1
			return a
		}
	}
	return offer
}
