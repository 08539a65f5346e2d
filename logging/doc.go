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

// Package logging builds the structured loggers used across the module.
//
// A [Logger] wraps a [log/slog] logger configured with functional options:
//
//	logger := logging.MustNew(
//		logging.WithJSONHandler(),
//		logging.WithLevel(logging.LevelDebug),
//		logging.WithServiceName("orders"),
//	)
//	d := dispatch.MustNew(dispatch.WithLogger(logger.Logger()))
//
// Three formats are available: JSON for production, text, and a console
// format for development that is colored when writing to a terminal.
// Values of sensitive keys such as "password" and "authorization" are
// replaced in every format.
//
// The level can be changed while running with [Logger.SetLevel].
//
// # Request correlation
//
// [ForRequest] derives a logger for one dispatch carrying the method, path,
// request id and OpenTelemetry trace ids:
//
//	logging.ForRequest(ctx, logger.Logger(), rc).Info("order created")
package logging
