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

// Package accesslog writes a structured record for every dispatched
// request.
//
// Records are written with the "access" message and carry status,
// duration_ms, bytes_sent, client_ip and the matched route pattern, plus
// request_id and trace ids when the requestid and tracing observers run
// before it. Server errors are logged at error level, client errors and
// slow requests at warn level, the rest at info level.
package accesslog
