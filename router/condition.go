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
	"net/http"
	"net/url"
	"strings"
)

// ConditionOp is the test a [Condition] applies.
type ConditionOp uint8

const (
	// OpPresent requires the name to be present.
	OpPresent ConditionOp = iota
	// OpAbsent requires the name to be absent.
	OpAbsent
	// OpEquals requires a value equal to Value.
	OpEquals
	// OpNotEquals requires the name to be absent or to have no value equal to Value.
	OpNotEquals
)

// Condition is a predicate over request headers or query parameters,
// written as "name", "!name", "name=value" or "name!=value".
type Condition struct {
	Name  string
	Op    ConditionOp
	Value string
}

// ParseCondition parses a condition expression.
func ParseCondition(expr string) (Condition, error) {
	expr = strings.TrimSpace(expr)
	var c Condition
	switch {
	case strings.Contains(expr, "!="):
		name, value, _ := strings.Cut(expr, "!=")
		c = Condition{Name: strings.TrimSpace(name), Op: OpNotEquals, Value: strings.TrimSpace(value)}
	case strings.Contains(expr, "="):
		name, value, _ := strings.Cut(expr, "=")
		c = Condition{Name: strings.TrimSpace(name), Op: OpEquals, Value: strings.TrimSpace(value)}
	case strings.HasPrefix(expr, "!"):
		c = Condition{Name: strings.TrimSpace(expr[1:]), Op: OpAbsent}
	default:
		c = Condition{Name: expr, Op: OpPresent}
	}
	if c.Name == "" {
		return Condition{}, fmt.Errorf("%w: %q", ErrInvalidCondition, expr)
	}
	return c, nil
}

// String returns the expression form.
func (c Condition) String() string {
	switch c.Op {
	case OpAbsent:
		return "!" + c.Name
	case OpEquals:
		return c.Name + "=" + c.Value
	case OpNotEquals:
		return c.Name + "!=" + c.Value
	default:
		return c.Name
	}
}

// Test applies the condition to the values found for its name.
func (c Condition) Test(values []string, present bool) bool {
	switch c.Op {
	case OpPresent:
		return present
	case OpAbsent:
		return !present
	case OpEquals:
		for _, v := range values {
			if v == c.Value {
				return true
			}
		}
		return false
	case OpNotEquals:
		for _, v := range values {
			if v == c.Value {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func canonicalHeaders(conds []Condition) []Condition {
	for i := range conds {
		conds[i].Name = http.CanonicalHeaderKey(conds[i].Name)
	}
	return conds
}

func testHeaders(conds []Condition, h http.Header) bool {
	for _, c := range conds {
		values := h.Values(c.Name)
		if !c.Test(values, len(values) > 0) {
			return false
		}
	}
	return true
}

func testParams(conds []Condition, q url.Values) bool {
	for _, c := range conds {
		values, present := q[c.Name]
		if !c.Test(values, present) {
			return false
		}
	}
	return true
}
