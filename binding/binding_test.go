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
	"errors"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level int

func (l *level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*l = 1
	case "high":
		*l = 2
	default:
		return errors.New("unknown level")
	}
	return nil
}

func TestConvert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		values  []string
		typ     reflect.Type
		opts    []Option
		want    any
		wantErr error
	}{
		{name: "string", values: []string{"go"}, typ: reflect.TypeFor[string](), want: "go"},
		{name: "int", values: []string{"42"}, typ: reflect.TypeFor[int](), want: 42},
		{name: "int8 overflow", values: []string{"300"}, typ: reflect.TypeFor[int8](), wantErr: strconvErr},
		{name: "hex with auto base", values: []string{"0x1f"}, typ: reflect.TypeFor[uint16](), opts: []Option{WithIntBaseAuto()}, want: uint16(31)},
		{name: "float32", values: []string{"1.5"}, typ: reflect.TypeFor[float32](), want: float32(1.5)},
		{name: "generous bool", values: []string{"yes"}, typ: reflect.TypeFor[bool](), want: true},
		{name: "bad bool", values: []string{"maybe"}, typ: reflect.TypeFor[bool](), wantErr: ErrInvalidBooleanValue},
		{name: "duration", values: []string{"1m30s"}, typ: reflect.TypeFor[time.Duration](), want: 90 * time.Second},
		{name: "ip", values: []string{"10.0.0.1"}, typ: reflect.TypeFor[net.IP](), want: net.ParseIP("10.0.0.1")},
		{name: "bad ip", values: []string{"nope"}, typ: reflect.TypeFor[net.IP](), wantErr: ErrInvalidIPAddress},
		{name: "text unmarshaler", values: []string{"high"}, typ: reflect.TypeFor[level](), want: level(2)},
		{name: "slice", values: []string{"1", "2"}, typ: reflect.TypeFor[[]int](), want: []int{1, 2}},
		{name: "csv slice", values: []string{"a, b"}, typ: reflect.TypeFor[[]string](), opts: []Option{WithCSV()}, want: []string{"a", "b"}},
		{name: "slice limit", values: []string{"1", "2"}, typ: reflect.TypeFor[[]int](), opts: []Option{WithMaxSliceLen(1)}, wantErr: ErrSliceExceedsMaxLength},
		{name: "empty pointer stays nil", values: []string{""}, typ: reflect.TypeFor[*int](), want: (*int)(nil)},
		{name: "no value is zero", values: nil, typ: reflect.TypeFor[int](), want: 0},
		{name: "interface", values: []string{"raw"}, typ: reflect.TypeFor[any](), want: "raw"},
		{name: "unsupported", values: []string{"x"}, typ: reflect.TypeFor[chan int](), wantErr: ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Convert(tt.values, tt.typ, tt.opts...)
			if tt.wantErr != nil {
				require.Error(t, err)
				if tt.wantErr != strconvErr {
					require.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Interface())
		})
	}
}

var strconvErr = errors.New("any strconv error")

func TestConvertString(t *testing.T) {
	t.Parallel()

	ts, err := ConvertString[time.Time]("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2025, ts.Year())

	n, err := ConvertString[*int]("7")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 7, *n)

	_, err = ConvertString[time.Time]("yesterday")
	require.ErrorIs(t, err, ErrUnableToParseTime)
}

func TestSupported(t *testing.T) {
	t.Parallel()

	assert.True(t, Supported(reflect.TypeFor[int]()))
	assert.True(t, Supported(reflect.TypeFor[[]time.Time]()))
	assert.True(t, Supported(reflect.TypeFor[*level]()))
	assert.False(t, Supported(reflect.TypeFor[map[string]int]()))
	assert.False(t, Supported(reflect.TypeFor[struct{ A int }]()))
}

type Paging struct {
	Limit int `query:"limit" default:"20"`
	Page  int `query:"page"`
}

type getUser struct {
	Paging
	ID      int       `path:"id"`
	Tags    []string  `query:"tag"`
	Token   string    `header:"X-Token"`
	Session string    `cookie:"sid"`
	Since   time.Time `query:"since"`
	Ignored string    `query:"-"`
	plain   string
}

func sources(path map[string]string, query string, header http.Header, cookies map[string]string) Sources {
	q, _ := url.ParseQuery(query)
	return Sources{
		SourcePath:   MapGetter(path),
		SourceQuery:  QueryGetter(q),
		SourceHeader: HeaderGetter(header),
		SourceCookie: MapGetter(cookies),
	}
}

func TestBind(t *testing.T) {
	t.Parallel()

	header := http.Header{}
	header.Set("X-Token", "secret")

	var req getUser
	err := Bind(&req, sources(
		map[string]string{"id": "7"},
		"tag=a&tag=b&page=2&Ignored=x",
		header,
		map[string]string{"sid": "abc"},
	))
	require.NoError(t, err)

	assert.Equal(t, 7, req.ID)
	assert.Equal(t, []string{"a", "b"}, req.Tags)
	assert.Equal(t, "secret", req.Token)
	assert.Equal(t, "abc", req.Session)
	assert.Equal(t, 20, req.Limit, "default applies when absent")
	assert.Equal(t, 2, req.Page)
	assert.Empty(t, req.Ignored)
	assert.Empty(t, req.plain)
	assert.True(t, req.Since.IsZero())
}

func TestBind_Errors(t *testing.T) {
	t.Parallel()

	var req getUser
	err := Bind(&req, sources(map[string]string{"id": "seven"}, "", nil, nil))

	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "ID", bindErr.Field)
	assert.Equal(t, SourcePath, bindErr.Source)
	assert.Equal(t, "seven", bindErr.Value)
	assert.Equal(t, 400, bindErr.HTTPStatus())
	assert.Contains(t, bindErr.Error(), `binding "ID" (path)`)

	require.ErrorIs(t, Bind(req, nil), ErrOutMustBePointer)
	var nilPtr *getUser
	require.ErrorIs(t, Bind(nilPtr, nil), ErrOutMustBePointer)
}

func TestBindValue(t *testing.T) {
	t.Parallel()

	v, err := BindValue(reflect.TypeFor[*Paging](), sources(nil, "page=3", nil, nil))
	require.NoError(t, err)
	p, ok := v.Interface().(*Paging)
	require.True(t, ok)
	assert.Equal(t, Paging{Limit: 20, Page: 3}, *p)

	_, err = BindValue(reflect.TypeFor[int](), nil)
	require.ErrorIs(t, err, ErrOutMustBePointer)
}

func TestBindable(t *testing.T) {
	t.Parallel()

	assert.True(t, Bindable(reflect.TypeFor[getUser]()))
	assert.True(t, Bindable(reflect.TypeFor[*Paging]()))
	assert.False(t, Bindable(reflect.TypeFor[struct{ Name string }]()))
	assert.False(t, Bindable(reflect.TypeFor[string]()))
}
