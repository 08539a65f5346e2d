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

// Package codec defines the serializer contract used for request and response
// entities, with JSON, XML, plain text and octet-stream implementations.
//
// Additional formats live in subpackages: codec/yaml, codec/toml,
// codec/msgpack and codec/proto. A codec declares the media types it reads
// and writes; a codec that only handles some Go types also implements
// [TypeSupporter].
//
//	d := dispatch.MustNew(dispatch.WithCodecs(codec.JSON(), yaml.New()))
package codec
