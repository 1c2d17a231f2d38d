package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"maps"
	"math"
	"slices"
)

const (
	recordFormatVersionCurrent = 1

	maxShortField = math.MaxUint8
	maxLongField  = math.MaxUint16
	maxAttributes = math.MaxUint8
)

// ErrIncompletePair is returned when a record would carry only one credential.
var ErrIncompletePair = errors.New("credential pair incomplete")

// Encode serializes a [Record] into the current binary format.
//
// Layout (version 1): version byte, user id / username / email as u8-length
// strings, attribute count (u8) followed by u8-length key and u16-length value
// pairs, access and refresh token as u16-length strings, updated-at as int64.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}
	if !r.Credentials.Complete() {
		return nil, ErrIncompletePair
	}

	var buf bytes.Buffer
	buf.WriteByte(recordFormatVersionCurrent)

	if err := writeShort(&buf, r.Identity.UserID, "userID"); err != nil {
		return nil, err
	}
	if err := writeShort(&buf, r.Identity.Username, "username"); err != nil {
		return nil, err
	}
	if err := writeShort(&buf, r.Identity.Email, "email"); err != nil {
		return nil, err
	}

	if len(r.Identity.Attributes) > maxAttributes {
		return nil, errors.New("too many identity attributes")
	}
	buf.WriteByte(byte(len(r.Identity.Attributes)))
	for _, k := range slices.Sorted(maps.Keys(r.Identity.Attributes)) {
		if err := writeShort(&buf, k, "attribute key"); err != nil {
			return nil, err
		}
		if err := writeLong(&buf, r.Identity.Attributes[k], "attribute value"); err != nil {
			return nil, err
		}
	}

	if err := writeLong(&buf, r.Credentials.AccessToken, "access token"); err != nil {
		return nil, err
	}
	if err := writeLong(&buf, r.Credentials.RefreshToken, "refresh token"); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, r.UpdatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a binary record. Trailing bytes are rejected.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionCurrent {
		return nil, errors.New("invalid record version")
	}

	r := &Record{}

	if r.Identity.UserID, err = readShort(reader); err != nil {
		return nil, err
	}
	if r.Identity.Username, err = readShort(reader); err != nil {
		return nil, err
	}
	if r.Identity.Email, err = readShort(reader); err != nil {
		return nil, err
	}

	attrCount, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if attrCount > 0 {
		r.Identity.Attributes = make(map[string]string, attrCount)
		for i := 0; i < int(attrCount); i++ {
			k, err := readShort(reader)
			if err != nil {
				return nil, err
			}
			v, err := readLong(reader)
			if err != nil {
				return nil, err
			}
			r.Identity.Attributes[k] = v
		}
	}

	if r.Credentials.AccessToken, err = readLong(reader); err != nil {
		return nil, err
	}
	if r.Credentials.RefreshToken, err = readLong(reader); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.UpdatedAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in record")
	}
	if !r.Credentials.Complete() {
		return nil, ErrIncompletePair
	}
	return r, nil
}

func writeShort(buf *bytes.Buffer, s, field string) error {
	if len(s) > maxShortField {
		return errors.New(field + " too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func writeLong(buf *bytes.Buffer, s, field string) error {
	if len(s) > maxLongField {
		return errors.New(field + " too long")
	}
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
	return nil
}

func readShort(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readLong(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int(n) > reader.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
