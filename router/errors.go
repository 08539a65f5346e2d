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
	"errors"
	"fmt"
)

var (
	// ErrConflict indicates that a route with the same identity is already registered.
	ErrConflict = errors.New("route conflict")

	// ErrInvalidPattern indicates a malformed path pattern.
	ErrInvalidPattern = errors.New("invalid path pattern")

	// ErrInvalidCondition indicates a malformed header or param condition.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrInvalidMediaType indicates a malformed consumes or produces entry.
	ErrInvalidMediaType = errors.New("invalid media type")

	// ErrInvalidConstraint indicates a constraint that cannot be compiled or
	// names an unknown variable.
	ErrInvalidConstraint = errors.New("invalid constraint")

	// ErrNilHandler indicates a route without a handler.
	ErrNilHandler = errors.New("route handler is nil")
)

// ConflictError reports an attempt to register a route twice.
type ConflictError struct {
	Route    *Route
	Existing *Route
}

// Error returns the message.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %s already registered as %s", ErrConflict, e.Route, e.Existing)
}

// Unwrap returns [ErrConflict].
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
