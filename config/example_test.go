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

package config_test

import (
	"context"
	"fmt"

	"rivaas.dev/dispatch/config"
)

func ExampleLoad() {
	yaml := []byte(`
service:
  name: orders
server:
  addr: ":9000"
  shutdown_grace: 10s
schedulers:
  - name: io
    workers: 32
`)
	s, err := config.Load(context.Background(), config.WithContent(yaml, config.FormatYAML))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(s.Service.Name, s.Server.Addr, s.Server.ShutdownGrace)
	fmt.Println(s.Schedulers[0].Name, s.Schedulers[0].Workers)
	fmt.Println(s.Errors.Format)
	// Output:
	// orders :9000 10s
	// io 32
	// rfc9457
}
