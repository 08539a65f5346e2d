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

package binding

import (
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	timeType            = reflect.TypeFor[time.Time]()
	durationType        = reflect.TypeFor[time.Duration]()
	urlType             = reflect.TypeFor[url.URL]()
	ipType              = reflect.TypeFor[net.IP]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Options tunes string conversion.
type Options struct {
	// TimeLayouts are tried after the built-in formats.
	TimeLayouts []string
	// IntBaseAuto accepts 0x, 0o and 0b prefixes on integers.
	IntBaseAuto bool
	// SplitCSV splits a single value on commas when the target is a slice.
	SplitCSV bool
	// MaxSliceLen limits slice targets; zero means unlimited.
	MaxSliceLen int
}

// Option configures [Options].
type Option func(*Options)

// WithTimeLayouts adds time layouts.
func WithTimeLayouts(layouts ...string) Option {
	return func(o *Options) { o.TimeLayouts = append(o.TimeLayouts, layouts...) }
}

// WithIntBaseAuto enables prefixed integer literals.
func WithIntBaseAuto() Option {
	return func(o *Options) { o.IntBaseAuto = true }
}

// WithCSV splits comma-separated values for slice targets.
func WithCSV() Option {
	return func(o *Options) { o.SplitCSV = true }
}

// WithMaxSliceLen limits the length of slice targets.
func WithMaxSliceLen(n int) Option {
	return func(o *Options) { o.MaxSliceLen = n }
}

func applyOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Supported reports whether Convert can produce values of type t.
func Supported(t reflect.Type) bool {
	switch t {
	case timeType, durationType, urlType, ipType:
		return true
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Pointer:
		return Supported(t.Elem())
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Slice && Supported(t.Elem())
	case reflect.String, reflect.Bool, reflect.Float32, reflect.Float64, reflect.Interface,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// Convert converts raw values to t. Slice targets take every value; other
// targets take the first. Pointer targets stay nil for an empty input.
func Convert(values []string, t reflect.Type, opts ...Option) (reflect.Value, error) {
	return convert(values, t, applyOptions(opts))
}

// ConvertString converts a single value to T.
func ConvertString[T any](value string, opts ...Option) (T, error) {
	var zero T
	v, err := Convert([]string{value}, reflect.TypeFor[T](), opts...)
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

func convert(values []string, t reflect.Type, o *Options) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if t.Kind() == reflect.Slice && !reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return out, setSlice(out, values, o)
	}
	if len(values) == 0 {
		return out, nil
	}
	if t.Kind() == reflect.Pointer {
		if values[0] == "" {
			return out, nil
		}
		ptr := reflect.New(t.Elem())
		if err := setValue(ptr.Elem(), values[0], o); err != nil {
			return out, err
		}
		out.Set(ptr)
		return out, nil
	}
	return out, setValue(out, values[0], o)
}

func setSlice(field reflect.Value, values []string, o *Options) error {
	if len(values) == 0 {
		return nil
	}
	if o.SplitCSV && len(values) == 1 {
		values = strings.Split(values[0], ",")
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
	}
	if o.MaxSliceLen > 0 && len(values) > o.MaxSliceLen {
		return fmt.Errorf("%w: %d > %d", ErrSliceExceedsMaxLength, len(values), o.MaxSliceLen)
	}

	slice := reflect.MakeSlice(field.Type(), len(values), len(values))
	for i, v := range values {
		if err := setValue(slice.Index(i), v, o); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	field.Set(slice)
	return nil
}

// setValue converts one string into field. Well-known types come first so
// time.Time gets the lenient layouts instead of its UnmarshalText.
func setValue(field reflect.Value, value string, o *Options) error {
	switch field.Type() {
	case timeType:
		t, err := parseTime(value, o)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
		return nil
	case durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	case urlType:
		u, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
		field.Set(reflect.ValueOf(*u))
		return nil
	case ipType:
		ip := net.ParseIP(value)
		if ip == nil {
			return fmt.Errorf("%w: %s", ErrInvalidIPAddress, value)
		}
		field.Set(reflect.ValueOf(ip))
		return nil
	}

	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(value))
		}
	}

	switch field.Kind() {
	case reflect.Interface:
		field.Set(reflect.ValueOf(value))
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, intBase(o), field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, intBase(o), field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %w", err)
		}
		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Pointer:
		ptr := reflect.New(field.Type().Elem())
		if err := setValue(ptr.Elem(), value, o); err != nil {
			return err
		}
		field.Set(ptr)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedType, field.Type())
	}
	return nil
}

func intBase(o *Options) int {
	if o.IntBaseAuto {
		return 0
	}
	return 10
}

// parseBool accepts true/false, 1/0, yes/no, on/off, t/f and y/n.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, nil
	case "false", "0", "no", "off", "f", "n", "":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidBooleanValue, s)
	}
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.DateOnly,
	time.DateTime,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02T15:04:05",
}

func parseTime(value string, o *Options) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyTimeValue
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range o.TimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrUnableToParseTime, value)
}
