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

package dispatch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/reqctx"
	"rivaas.dev/dispatch/router"
)

type greeting struct {
	Message string `json:"message"`
}

func greet(name string, loud bool) greeting {
	msg := "hello, " + name
	if loud {
		msg += "!"
	}
	return greeting{Message: msg}
}

func Example() {
	d := dispatch.MustNew()
	_, err := d.GET("/greet/:name",
		handler.MustNew(greet, handler.Path("name"), handler.Query("loud")),
		router.WithProduces("json"),
	)
	if err != nil {
		panic(err)
	}

	rec := httptest.NewRecorder()
	req := reqctx.NewRequest(http.MethodGet, "/greet/gopher?loud=true", nil, nil)
	d.Dispatch(reqctx.New(context.Background(), req, rec))

	fmt.Println(rec.Code)
	fmt.Print(rec.Body.String())
	// Output:
	// 200
	// {"message":"hello, gopher!"}
}

func ExampleObserverFuncs() {
	d := dispatch.MustNew(dispatch.WithObserver(dispatch.ObserverFuncs{
		Transition: func(_ *reqctx.Context, _ *router.Route, from, to dispatch.State) {
			fmt.Println(from, "->", to)
		},
	}))
	_, _ = d.DELETE("/items/:id", handler.MustNew(func(id string) {}, handler.Path("id")))

	req := reqctx.NewRequest(http.MethodDelete, "/items/1", nil, nil)
	d.Dispatch(reqctx.New(context.Background(), req, httptest.NewRecorder()))
	// Output:
	// RECEIVED -> MATCHED
	// MATCHED -> RESOLVING_ARGS
	// RESOLVING_ARGS -> INVOKING
	// INVOKING -> RESOLVING_RETURN
	// RESOLVING_RETURN -> COMPLETE
}
