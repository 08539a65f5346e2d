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

package errors_test

import (
	"fmt"

	derrors "rivaas.dev/dispatch/errors"
)

func ExampleRFC9457() {
	formatter := derrors.NewRFC9457("https://api.example.com/problems")
	resp := formatter.Format("/users", derrors.MethodNotAllowed("DELETE", "/users", []string{"GET", "POST"}))

	fmt.Println(resp.Status)
	fmt.Println(resp.ContentType)
	fmt.Println(resp.Headers.Get("Allow"))
	// Output:
	// 405
	// application/problem+json; charset=utf-8
	// GET, POST
}

func ExampleKindOf() {
	err := fmt.Errorf("dispatch: %w", derrors.UnsupportedMediaType("text/csv"))

	fmt.Println(derrors.KindOf(err), derrors.StatusOf(err))
	// Output: unsupported_media_type 415
}
