// Package codec converts raw audio payloads to and from the text form kept
// in the persistence store.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("invalid encoded payload")

// Encode returns the standard padded base64 form of b. An empty payload
// encodes to the empty string.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode reverses Encode byte for byte.
func Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return b, nil
}
