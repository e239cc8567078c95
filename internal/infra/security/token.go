package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

const sessionIDRandomBytes = 24

// NewSessionID returns a hex nanosecond timestamp prefix followed by 192 random bits.
func NewSessionID(at time.Time) (string, error) {
	buf := make([]byte, 8+sessionIDRandomBytes)
	binary.BigEndian.PutUint64(buf[:8], uint64(at.UnixNano()))
	if _, err := rand.Read(buf[8:]); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(buf[:8]) + base64.RawURLEncoding.EncodeToString(buf[8:]), nil
}
