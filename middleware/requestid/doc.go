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

// Package requestid assigns each dispatched request a unique id for log
// and trace correlation.
//
// The observer runs when a request enters the dispatcher:
//
//	d := dispatch.MustNew(
//		dispatch.WithObserver(requestid.New(requestid.WithULID())),
//	)
//
// Handlers read the id with [Get]; [logging.ForRequest] adds it to log
// records as "request_id".
package requestid
