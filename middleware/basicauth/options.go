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

package basicauth

// Option configures the interceptor.
type Option func(*config)

type config struct {
	users     map[string]string
	realm     string
	validator func(username, password string) bool
	skipPaths map[string]bool
	order     int
}

func defaultConfig() *config {
	return &config{
		users:     make(map[string]string),
		realm:     "Restricted",
		skipPaths: make(map[string]bool),
		order:     DefaultOrder,
	}
}

// WithUsers sets the accepted user name and password pairs. Passwords are
// compared in constant time.
func WithUsers(users map[string]string) Option {
	return func(cfg *config) {
		for u, p := range users {
			cfg.users[u] = p
		}
	}
}

// WithRealm sets the realm sent in the challenge. Default: "Restricted".
func WithRealm(realm string) Option {
	return func(cfg *config) {
		cfg.realm = realm
	}
}

// WithValidator checks credentials with fn instead of the users map.
func WithValidator(fn func(username, password string) bool) Option {
	return func(cfg *config) {
		cfg.validator = fn
	}
}

// WithSkipPaths lets requests to these paths through unauthenticated.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
	}
}

// WithOrder sets the interceptor's precedence. Default: [DefaultOrder].
func WithOrder(order int) Option {
	return func(cfg *config) {
		cfg.order = order
	}
}
