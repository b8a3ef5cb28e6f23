package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const recordVersionV1 = 1

// ErrRecordCorrupt is returned when a stored ring entry cannot be decoded.
var ErrRecordCorrupt = errors.New("refresh record corrupt")

// Record is one entry of a credential's refresh-token ring. The token
// itself is never stored; entries are addressed by the token's SHA-256
// digest.
type Record struct {
	ExpiresAt     int64
	CreatedAt     int64
	DeviceInfo    string
	SourceAddress string
}

// Expired reports whether the record's expiry has passed at the given time.
func (r *Record) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

// Encode renders a [Record] into the binary blob stored in Redis. The
// expiry sits at a fixed offset (byte 1, big-endian int64) so the ring's
// Lua script can prune expired entries without a full decode.
func Encode(rec *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.CreatedAt); err != nil {
		return nil, err
	}

	if len(rec.DeviceInfo) > 65535 || len(rec.SourceAddress) > 65535 {
		return nil, errors.New("refresh record field too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(rec.DeviceInfo))); err != nil {
		return nil, err
	}
	buf.WriteString(rec.DeviceInfo)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(rec.SourceAddress))); err != nil {
		return nil, err
	}
	buf.WriteString(rec.SourceAddress)

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode].
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrRecordCorrupt
	}
	if version != recordVersionV1 {
		return nil, ErrRecordCorrupt
	}

	rec := &Record{}
	if err := binary.Read(reader, binary.BigEndian, &rec.ExpiresAt); err != nil {
		return nil, ErrRecordCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &rec.CreatedAt); err != nil {
		return nil, ErrRecordCorrupt
	}

	var deviceLen uint16
	if err := binary.Read(reader, binary.BigEndian, &deviceLen); err != nil {
		return nil, ErrRecordCorrupt
	}
	device := make([]byte, deviceLen)
	if _, err := io.ReadFull(reader, device); err != nil {
		return nil, ErrRecordCorrupt
	}
	rec.DeviceInfo = string(device)

	var sourceLen uint16
	if err := binary.Read(reader, binary.BigEndian, &sourceLen); err != nil {
		return nil, ErrRecordCorrupt
	}
	source := make([]byte, sourceLen)
	if _, err := io.ReadFull(reader, source); err != nil {
		return nil, ErrRecordCorrupt
	}
	rec.SourceAddress = string(source)

	return rec, nil
}
