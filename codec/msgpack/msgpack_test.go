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

package msgpack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch/codec"
	"rivaas.dev/dispatch/mediatype"
)

type event struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{name: "default"},
		{name: "json tags", opts: []Option{WithJSONTag(), WithCompactInts()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(tt.opts...)
			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, event{ID: "e1", Count: 3}))

			var got event
			require.NoError(t, c.Decode(&buf, &got))
			assert.Equal(t, event{ID: "e1", Count: 3}, got)
		})
	}
}

func TestCodec_Empty(t *testing.T) {
	t.Parallel()

	var got event
	require.ErrorIs(t, New().Decode(&bytes.Buffer{}, &got), codec.ErrEmptyBody)
	assert.True(t, codec.Handles(New(), mediatype.XMsgPack))
}
