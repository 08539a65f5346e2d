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

// Package scheduler names the execution contexts dispatch work runs on.
//
// A route without a scheduler runs its handler on the goroutine that
// received the request ([Inline]). Routes that block, for example on
// database calls, name a bounded [Pool] instead; the dispatcher hands the
// rest of the request to that pool exactly once, right after routing.
package scheduler
