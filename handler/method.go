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

package handler

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"

	"rivaas.dev/dispatch/resolver"
)

// Static errors for handler construction.
var (
	ErrNotFunc         = errors.New("handler: not a function")
	ErrTooManyMarkers  = errors.New("handler: more markers than arguments")
	ErrUnsupportedFunc = errors.New("handler: unsupported signature")
)

var (
	errorType  = reflect.TypeFor[error]()
	futureType = reflect.TypeFor[Future]()
)

// Method is a handler function with its parameters described. It is safe
// for concurrent use.
type Method struct {
	fn       reflect.Value
	name     string
	params   []*resolver.Param
	ret      *resolver.Return
	hasValue bool
	hasError bool
	async    bool
}

// New builds a Method from fn. Markers are matched to the arguments that
// are not bound implicitly, in order; arguments left without a marker keep
// [resolver.SourceNone].
func New(fn any, markers ...Marker) (*Method, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T", ErrNotFunc, fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic %s", ErrUnsupportedFunc, t)
	}

	m := &Method{fn: v, name: funcName(v)}
	if err := m.describeResults(t); err != nil {
		return nil, err
	}

	next := 0
	for i := range t.NumIn() {
		p := &resolver.Param{Index: i, Type: t.In(i)}
		if resolver.IsRequestType(p.Type) {
			p.Source = resolver.SourceRequest
		} else if next < len(markers) {
			markers[next].apply(p)
			next++
		}
		m.params = append(m.params, p)
	}
	if next < len(markers) {
		return nil, fmt.Errorf("%w: %d markers for %s", ErrTooManyMarkers, len(markers), t)
	}
	return m, nil
}

// MustNew is like [New] but panics on error.
func MustNew(fn any, markers ...Marker) *Method {
	m, err := New(fn, markers...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Method) describeResults(t reflect.Type) error {
	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			m.hasError = true
		} else {
			m.hasValue = true
		}
	case 2:
		if t.Out(1) != errorType {
			return fmt.Errorf("%w: second result of %s must be error", ErrUnsupportedFunc, t)
		}
		m.hasValue, m.hasError = true, true
	default:
		return fmt.Errorf("%w: %s returns %d values", ErrUnsupportedFunc, t, t.NumOut())
	}

	m.ret = &resolver.Return{}
	if m.hasValue {
		out := t.Out(0)
		if out.Implements(futureType) {
			m.async = true
		} else {
			m.ret.Type = out
		}
	}
	return nil
}

// Name returns the function name.
func (m *Method) Name() string {
	return m.name
}

// Params returns the argument descriptions. Callers must not modify them
// after the method is registered.
func (m *Method) Params() []*resolver.Param {
	return m.params
}

// Return describes the result. Its Type is nil for futures and functions
// without a value result.
func (m *Method) Return() *resolver.Return {
	return m.ret
}

// HasValue reports whether the function returns a value besides an error.
func (m *Method) HasValue() bool {
	return m.hasValue
}

// Async reports whether the function returns a [Future].
func (m *Method) Async() bool {
	return m.async
}

// Call invokes the function. A nil argument stands for the zero value of its
// parameter type. A panic is returned as a [*PanicError].
func (m *Method) Call(args []any) (result any, err error) {
	if len(args) != len(m.params) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrUnsupportedFunc, m.name, len(m.params), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := m.params[i].Type
		if a == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(a)
		if !v.Type().AssignableTo(pt) {
			if !v.Type().ConvertibleTo(pt) {
				return nil, fmt.Errorf("%w: argument %d of %s is %s, want %s", ErrUnsupportedFunc, i, m.name, v.Type(), pt)
			}
			v = v.Convert(pt)
		}
		in[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, newPanicError(r)
		}
	}()
	return m.results(m.fn.Call(in))
}

func (m *Method) results(out []reflect.Value) (any, error) {
	var err error
	if m.hasError {
		if e := out[len(out)-1]; !e.IsNil() {
			err, _ = e.Interface().(error)
		}
	}
	if !m.hasValue {
		return nil, err
	}
	v := out[0]
	if isNil(v) {
		return nil, err
	}
	return v.Interface(), err
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// String returns the function name and signature.
func (m *Method) String() string {
	return m.name + strings.TrimPrefix(m.fn.Type().String(), "func")
}

func funcName(v reflect.Value) string {
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "func"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

// Error returns the panic value.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
