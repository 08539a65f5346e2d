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

// Package config loads the settings of a dispatch server from files,
// in-memory content and environment variables.
//
// Sources are applied in order, later ones overriding earlier ones key by
// key. Keys are case-insensitive. The merged map may be checked against a
// JSON Schema before it is decoded into [Settings], after which empty
// fields take the value of their `default` tag:
//
//	s, err := config.Load(ctx,
//		config.WithFile("/etc/dispatch/dispatch.yaml"),
//		config.WithEnv("APP_"),
//	)
//	logger, err := s.Logger()
//	pools, err := s.BuildSchedulers(logger.Logger())
//	d := dispatch.MustNew(dispatch.WithSchedulers(pools...))
//	srv := transport.MustNew(d, s.ServerOptions(logger.Logger())...)
//
// Environment variables map their first segment after the prefix to a
// section: APP_SERVER_SHUTDOWN_GRACE=10s sets server.shutdown_grace.
//
// [Bind] decodes into any struct using the same rules, for application
// settings that live next to the server's.
package config
