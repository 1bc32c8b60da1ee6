package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/foodontracks/trackd/rbac"
)

const sessionFormatVersionCurrent = 1

// refreshHashOffset is the byte position of the refresh hash within the
// encoded blob. The hash sits at a fixed offset right after the version
// byte so the rotation script can swap it without parsing the record.
const refreshHashOffset = 1

// Encode serializes a session into the versioned binary record stored in
// Redis. Layout: version byte, refresh hash, length-prefixed user ID and
// role, permission and account versions, status, permission mask, created
// and expiry timestamps. All multi-byte integers are big-endian.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)
	buf.Write(s.RefreshHash[:])

	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	if len(s.Role) > 255 {
		return nil, errors.New("role too long")
	}
	buf.WriteByte(byte(len(s.Role)))
	buf.WriteString(s.Role)

	if err := binary.Write(&buf, binary.BigEndian, s.PermissionVersion); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.AccountVersion); err != nil {
		return nil, err
	}
	buf.WriteByte(s.Status)

	buf.Write(rbac.EncodeMask(s.Mask))

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a record produced by Encode. Records with an unknown
// version byte or truncated fields are rejected.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	if _, err := io.ReadFull(reader, s.RefreshHash[:]); err != nil {
		return nil, err
	}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	s.UserID = string(userID)

	roleLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	role := make([]byte, roleLen)
	if _, err := io.ReadFull(reader, role); err != nil {
		return nil, err
	}
	s.Role = string(role)

	if err := binary.Read(reader, binary.BigEndian, &s.PermissionVersion); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.AccountVersion); err != nil {
		return nil, err
	}

	status, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Status = status

	maskBytes := make([]byte, 8)
	if _, err := io.ReadFull(reader, maskBytes); err != nil {
		return nil, err
	}
	mask, err := rbac.DecodeMask(maskBytes)
	if err != nil {
		return nil, err
	}
	s.Mask = mask

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	return s, nil
}
