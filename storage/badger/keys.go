package badger

import (
	"encoding/binary"
	"errors"
)

// Key prefixes for different data types
const (
	vectorRecordPrefix    = "vecrec:"
	vectorIngestionPrefix = "vecing:"
	vectorIDSeq           = "vecseq"
	vectorDimensionKey    = "vecmeta:dimension"
)

// makeRecordKey generates a key for a record by sequence number.
// Format: prefix + 8-byte big-endian seq, so iteration follows insertion order.
func makeRecordKey(seq uint64) []byte {
	buf := make([]byte, len(vectorRecordPrefix)+8)
	offset := copy(buf, vectorRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makePartialIngestionKey generates the prefix shared by all index keys of an ingestion.
// Format: prefix + ingestionID + 0x00
func makePartialIngestionKey(ingestionID string) []byte {
	buf := make([]byte, 0, len(vectorIngestionPrefix)+len(ingestionID)+1)
	buf = append(buf, vectorIngestionPrefix...)
	buf = append(buf, ingestionID...)
	return append(buf, 0)
}

// makeIngestionKey generates an index key linking an ingestion to a record.
// Format: prefix + ingestionID + 0x00 + 8-byte big-endian seq
func makeIngestionKey(ingestionID string, seq uint64) []byte {
	partial := makePartialIngestionKey(ingestionID)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// seqFromKey extracts the trailing sequence number of a record or index key.
func seqFromKey(key []byte) (uint64, error) {
	if len(key) < 8 {
		return 0, errors.New("key too short")
	}
	return binary.BigEndian.Uint64(key[len(key)-8:]), nil
}

func encodeDimension(dim int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(dim))
	return buf
}

func decodeDimension(val []byte) (int, error) {
	if len(val) != 8 {
		return 0, errors.New("malformed dimension value")
	}
	return int(binary.BigEndian.Uint64(val)), nil
}
