// internal/daily/daily.go
//
// Day keys and deterministic daily word selection. One word is active per
// UTC calendar day; the index is HMAC(salt, YYYY-MM-DD) reduced mod the
// answer-list length, so every instance sharing a salt agrees on the
// day's word without coordination or storage.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns the UTC day key, YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WordIndex returns the deterministic answer index for a date.
func WordIndex(date time.Time, salt string, answersLen int) int {
	if answersLen <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for an even modulus distribution
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n % uint64(answersLen))
}

// NextRotation returns the next UTC midnight strictly after t.
func NextRotation(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
