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
	"encoding/xml"
	"errors"
	"io"

	"rivaas.dev/dispatch/mediatype"
)

type xmlCodec struct {
	header bool
}

// XML returns a codec for application/xml and text/xml. When header is true
// responses start with the standard XML declaration.
func XML(header bool) Codec {
	return &xmlCodec{header: header}
}

func (c *xmlCodec) MediaTypes() []mediatype.MediaType {
	return []mediatype.MediaType{mediatype.XML, mediatype.TextXML, mediatype.MustParse("application/*+xml")}
}

func (c *xmlCodec) Decode(r io.Reader, v any) error {
	if err := xml.NewDecoder(r).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return nil
}

func (c *xmlCodec) Encode(w io.Writer, v any) error {
	if c.header {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
	}
	return xml.NewEncoder(w).Encode(v)
}
