package rbac

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
)

// ErrInvalidMask indicates a mask payload of the wrong size or encoding.
var ErrInvalidMask = errors.New("invalid mask encoding")

// EncodeMask serializes the mask as 8 big-endian bytes.
func EncodeMask(mask Mask64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(mask))
	return b
}

// DecodeMask parses an 8-byte big-endian mask.
func DecodeMask(data []byte) (Mask64, error) {
	if len(data) != 8 {
		return 0, ErrInvalidMask
	}
	return Mask64(binary.BigEndian.Uint64(data)), nil
}

// EncodeMaskString returns the mask as an unpadded base64url string, the
// form carried inside access token claims.
func EncodeMaskString(mask Mask64) string {
	return base64.RawURLEncoding.EncodeToString(EncodeMask(mask))
}

// DecodeMaskString parses a mask produced by [EncodeMaskString].
func DecodeMaskString(s string) (Mask64, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, ErrInvalidMask
	}
	return DecodeMask(data)
}
