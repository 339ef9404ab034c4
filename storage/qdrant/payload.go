package qdrant

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/vectorize/core"
	"github.com/qdrant/go-client/qdrant"
)

// Payload field names.
const (
	fieldIngestionID    = "ingestion_id"
	fieldChunkID        = "chunk_id"
	fieldChunkIndex     = "chunk_index"
	fieldChunkStrategy  = "chunk_strategy"
	fieldChunkText      = "chunk_text"
	fieldSourceMetadata = "source_metadata"
	fieldProvider       = "provider"
	fieldCreatedAt      = "created_at"
	fieldInsertOrder    = "insert_order"
)

var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("github.com/poiesic/vectorize/points"))

// pointID derives a stable UUIDv5 from the record's ingestion and chunk ids.
func pointID(m core.VectorMetadata) string {
	return uuid.NewSHA1(pointNamespace, []byte(m.IngestionID+"\x00"+m.ChunkID)).String()
}

// normalizeMetadata round-trips through JSON so only types qdrant values
// can hold remain.
func normalizeMetadata(in map[string]any) (map[string]any, error) {
	if len(in) == 0 {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func buildPayload(r *core.VectorRecord, createdAt time.Time, order int64) (map[string]*qdrant.Value, error) {
	meta, err := normalizeMetadata(r.Metadata.SourceMetadata)
	if err != nil {
		return nil, fmt.Errorf("source metadata of %s: %w", r.Metadata.ChunkID, err)
	}
	return qdrant.TryValueMap(map[string]any{
		fieldIngestionID:    r.Metadata.IngestionID,
		fieldChunkID:        r.Metadata.ChunkID,
		fieldChunkIndex:     int64(r.Metadata.ChunkIndex),
		fieldChunkStrategy:  r.Metadata.ChunkStrategy,
		fieldChunkText:      r.Metadata.ChunkText,
		fieldSourceMetadata: meta,
		fieldProvider:       r.Metadata.Provider,
		fieldCreatedAt:      createdAt.UnixMicro(),
		fieldInsertOrder:    order,
	})
}

// recordFromPayload rebuilds a record. Vectors are not fetched; qdrant
// stores cosine vectors normalized, so they would not match the input.
func recordFromPayload(payload map[string]*qdrant.Value) (*core.VectorRecord, int64) {
	rec := &core.VectorRecord{
		Metadata: core.VectorMetadata{
			IngestionID:   payload[fieldIngestionID].GetStringValue(),
			ChunkID:       payload[fieldChunkID].GetStringValue(),
			ChunkIndex:    int(payload[fieldChunkIndex].GetIntegerValue()),
			ChunkStrategy: payload[fieldChunkStrategy].GetStringValue(),
			ChunkText:     payload[fieldChunkText].GetStringValue(),
			Provider:      payload[fieldProvider].GetStringValue(),
		},
	}
	if meta, ok := convertValue(payload[fieldSourceMetadata]).(map[string]any); ok {
		rec.Metadata.SourceMetadata = meta
	} else {
		rec.Metadata.SourceMetadata = map[string]any{}
	}
	if micros := payload[fieldCreatedAt].GetIntegerValue(); micros != 0 {
		rec.CreatedAt = time.UnixMicro(micros).UTC()
	}
	return rec, payload[fieldInsertOrder].GetIntegerValue()
}

func convertValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		out := make([]any, len(val.ListValue.Values))
		for i, lv := range val.ListValue.Values {
			out[i] = convertValue(lv)
		}
		return out
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(val.StructValue.Fields))
		for k, nv := range val.StructValue.Fields {
			out[k] = convertValue(nv)
		}
		return out
	}
	return nil
}
