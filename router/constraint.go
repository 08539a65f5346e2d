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
	"regexp"
	"strings"
)

// ConstraintKind is the semantic type of a path variable constraint.
type ConstraintKind uint8

const (
	ConstraintRegex ConstraintKind = iota
	ConstraintInt
	ConstraintFloat
	ConstraintUUID
	ConstraintEnum
	ConstraintDate     // RFC3339 full-date
	ConstraintDateTime // RFC3339 date-time
)

var constraintPatterns = map[ConstraintKind]string{
	ConstraintInt:      `-?\d+`,
	ConstraintFloat:    `-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`,
	ConstraintUUID:     `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
	ConstraintDate:     `\d{4}-\d{2}-\d{2}`,
	ConstraintDateTime: `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`,
}

// Constraint restricts the values a path variable matches.
type Constraint struct {
	Kind    ConstraintKind
	Pattern string
	Enum    []string
	re      *regexp.Regexp
}

func newConstraint(kind ConstraintKind, pattern string, enum []string) (*Constraint, error) {
	c := &Constraint{Kind: kind, Pattern: pattern, Enum: enum}
	switch kind {
	case ConstraintRegex:
	case ConstraintEnum:
		if len(enum) == 0 {
			return nil, fmt.Errorf("%w: empty enum", ErrInvalidConstraint)
		}
		quoted := make([]string, 0, len(enum))
		for _, v := range enum {
			quoted = append(quoted, regexp.QuoteMeta(v))
		}
		c.Pattern = "(?:" + strings.Join(quoted, "|") + ")"
	default:
		c.Pattern = constraintPatterns[kind]
	}
	re, err := regexp.Compile("^(?:" + c.Pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConstraint, err)
	}
	c.re = re
	return c, nil
}

// Match reports whether value satisfies the constraint.
func (c *Constraint) Match(value string) bool {
	return c.re.MatchString(value)
}

// String returns the regular expression.
func (c *Constraint) String() string {
	return c.Pattern
}
