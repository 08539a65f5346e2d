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

// Package resolver converts request data into handler arguments and handler
// return values into response bytes.
//
// Each conversion is a chain (see package chain) compiled once per handler at
// deployment time:
//
//   - A parameter chain per argument: the highest-precedence
//     [ParamResolverFactory] supporting the [Param] supplies the terminal,
//     every supporting [ParamAdviceFactory] contributes an advice.
//   - An entity chain per body argument, wrapped by the body parameter's
//     resolver: the terminal selects a [RequestEntityResolver] by the request
//     Content-Type and decodes the body.
//   - A response chain per handler: the terminal negotiates a
//     [ResponseEntityResolver] and media type against Accept and writes the
//     encoded value to a [ResponseEntityChannel].
//
// Resolution failures are returned unchanged to the caller; nothing in this
// package retries or recovers.
package resolver
