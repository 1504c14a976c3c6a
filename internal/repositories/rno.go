package repositories

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const (
	rnoPrefix = "RUD"
	rnoSpace  = 10_000_000

	// rnoMaxAttempts bounds the retry-until-unique loop. With a space of
	// ten million numbers the expected attempt count stays at ~1 until
	// the user table is a sizeable fraction of the space.
	rnoMaxAttempts = 50
)

// newRno generates a candidate configuration number in the form
// RUD-NNNNNNN. Uniqueness is the caller's responsibility.
func newRno() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate configuration number: %w", err)
	}
	n := binary.BigEndian.Uint32(buf[:]) % rnoSpace
	return fmt.Sprintf("%s-%07d", rnoPrefix, n), nil
}
