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

package codec

import (
	"bytes"
	"encoding/xml"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch/mediatype"
)

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestJSON(t *testing.T) {
	t.Parallel()

	c := JSON()
	var u user
	require.NoError(t, c.Decode(strings.NewReader(`{"name":"ada","age":36,"extra":1}`), &u))
	assert.Equal(t, user{Name: "ada", Age: 36}, u)

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, u))
	assert.JSONEq(t, `{"name":"ada","age":36}`, buf.String())

	require.ErrorIs(t, c.Decode(strings.NewReader(""), &u), ErrEmptyBody)

	strict := JSON(WithDisallowUnknownFields())
	require.Error(t, strict.Decode(strings.NewReader(`{"extra":1}`), &u))

	assert.True(t, Handles(c, mediatype.ProblemJSON))
	assert.False(t, Handles(c, mediatype.XML))
}

type xmlUser struct {
	XMLName xml.Name `xml:"user"`
	Name    string   `xml:"name"`
	Age     int      `xml:"age"`
}

func TestXML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, XML(true).Encode(&buf, xmlUser{Name: "ada", Age: 36}))
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))
	assert.Contains(t, buf.String(), "<user><name>ada</name><age>36</age></user>")

	var u xmlUser
	require.NoError(t, XML(false).Decode(strings.NewReader("<user><name>bob</name><age>7</age></user>"), &u))
	assert.Equal(t, "bob", u.Name)
	assert.Equal(t, 7, u.Age)
	require.ErrorIs(t, XML(false).Decode(strings.NewReader(""), &u), ErrEmptyBody)
}

func TestText(t *testing.T) {
	t.Parallel()

	c := Text()
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string", in: "hello", want: "hello"},
		{name: "bytes", in: []byte("raw"), want: "raw"},
		{name: "text marshaler", in: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), want: "2025-01-02T00:00:00Z"},
		{name: "stringer", in: 90 * time.Second, want: "1m30s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, tt.in))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	var s string
	require.NoError(t, c.Decode(strings.NewReader("body"), &s))
	assert.Equal(t, "body", s)
	require.ErrorIs(t, c.Encode(&bytes.Buffer{}, user{}), ErrUnsupportedValue)

	assert.True(t, Supports(c, reflect.TypeFor[string]()))
	assert.True(t, Supports(c, reflect.TypeFor[*time.Time]()))
	assert.False(t, Supports(c, reflect.TypeFor[user]()))
}

func TestBytes(t *testing.T) {
	t.Parallel()

	c := Bytes()
	var b []byte
	require.NoError(t, c.Decode(strings.NewReader("\x00\x01"), &b))
	assert.Equal(t, []byte{0, 1}, b)
	assert.False(t, Supports(c, reflect.TypeFor[string]()))
	require.ErrorIs(t, c.Encode(&bytes.Buffer{}, "x"), ErrUnsupportedValue)
}

func TestFind(t *testing.T) {
	t.Parallel()

	codecs := Defaults()

	c, ok := Find(codecs, mediatype.TextPlain, reflect.TypeFor[string]())
	require.True(t, ok)
	assert.Equal(t, []mediatype.MediaType{mediatype.TextPlain}, c.MediaTypes())

	_, ok = Find(codecs, mediatype.TextPlain, reflect.TypeFor[user]())
	assert.False(t, ok)

	c, ok = Find(codecs, mediatype.MustParse("application/vnd.api+json"), reflect.TypeFor[user]())
	require.True(t, ok)
	assert.True(t, Handles(c, mediatype.JSON))
}

func TestDecodeError(t *testing.T) {
	t.Parallel()

	err := &DecodeError{MediaType: "application/json", Err: ErrEmptyBody}
	require.ErrorIs(t, err, ErrEmptyBody)
	assert.Equal(t, 400, err.HTTPStatus())
	assert.Equal(t, "decode application/json: codec: empty body", err.Error())
}
