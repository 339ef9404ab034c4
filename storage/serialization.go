// Copyright 2025 Poiesic Systems
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


package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/vectorize/core"
)

// recordFormat is written first so the layout can evolve.
const recordFormat int64 = 1

// MarshalVectorRecord serializes a VectorRecord to bytes.
// SourceMetadata is stored as JSON, so numbers decode as float64.
func MarshalVectorRecord(record *core.VectorRecord) ([]byte, error) {
	meta, err := json.Marshal(record.Metadata.SourceMetadata)
	if err != nil {
		return nil, fmt.Errorf("%w: source metadata: %w", ErrSerializationFailed, err)
	}
	m := &record.Metadata
	created := record.CreatedAt.UnixMicro()

	size := varint.Int64.Size(recordFormat) +
		varint.Int64.Size(int64(len(record.Vector))) +
		len(record.Vector)*raw.Float32.Size(0) +
		ord.String.Size(m.IngestionID) +
		ord.String.Size(m.ChunkID) +
		varint.Int64.Size(int64(m.ChunkIndex)) +
		ord.String.Size(m.ChunkStrategy) +
		ord.String.Size(m.ChunkText) +
		ord.String.Size(string(meta)) +
		ord.String.Size(m.Provider) +
		varint.Int64.Size(created)

	buf := make([]byte, size)
	n := varint.Int64.Marshal(recordFormat, buf)
	n += varint.Int64.Marshal(int64(len(record.Vector)), buf[n:])
	for _, v := range record.Vector {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	n += ord.String.Marshal(m.IngestionID, buf[n:])
	n += ord.String.Marshal(m.ChunkID, buf[n:])
	n += varint.Int64.Marshal(int64(m.ChunkIndex), buf[n:])
	n += ord.String.Marshal(m.ChunkStrategy, buf[n:])
	n += ord.String.Marshal(m.ChunkText, buf[n:])
	n += ord.String.Marshal(string(meta), buf[n:])
	n += ord.String.Marshal(m.Provider, buf[n:])
	varint.Int64.Marshal(created, buf[n:])
	return buf, nil
}

// recordReader decodes fields in order, keeping the first error.
type recordReader struct {
	bs  []byte
	err error
}

func (r *recordReader) readInt() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs)
	r.advance(n, err)
	return v
}

func (r *recordReader) readString() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs)
	r.advance(n, err)
	return v
}

func (r *recordReader) readFloat() float32 {
	if r.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(r.bs)
	r.advance(n, err)
	return v
}

func (r *recordReader) advance(n int, err error) {
	if err != nil {
		r.err = err
		return
	}
	r.bs = r.bs[n:]
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (*core.VectorRecord, error) {
	if len(data) == 0 {
		return nil, ErrTruncatedData
	}
	r := &recordReader{bs: data}

	if format := r.readInt(); r.err == nil && format != recordFormat {
		return nil, fmt.Errorf("%w: unknown record format %d", ErrSerializationFailed, format)
	}
	count := r.readInt()
	if r.err == nil && (count < 0 || count > int64(len(r.bs)/4)) {
		return nil, fmt.Errorf("%w: vector length %d", ErrTruncatedData, count)
	}

	record := &core.VectorRecord{}
	if count > 0 {
		record.Vector = make([]float32, count)
		for i := range record.Vector {
			record.Vector[i] = r.readFloat()
		}
	}
	m := &record.Metadata
	m.IngestionID = r.readString()
	m.ChunkID = r.readString()
	m.ChunkIndex = int(r.readInt())
	m.ChunkStrategy = r.readString()
	m.ChunkText = r.readString()
	meta := r.readString()
	m.Provider = r.readString()
	created := r.readInt()
	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}

	if meta != "" && meta != "null" {
		if err := json.Unmarshal([]byte(meta), &m.SourceMetadata); err != nil {
			return nil, fmt.Errorf("%w: source metadata: %w", ErrSerializationFailed, err)
		}
	}
	record.CreatedAt = time.UnixMicro(created).UTC()
	return record, nil
}
