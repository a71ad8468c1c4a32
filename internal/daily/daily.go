// internal/daily/daily.go
//
// Daily games: every player who starts a daily game on the same UTC date
// gets the same random sequence, so streak starts and option draws repeat
// as long as the choices do.
//
// The seed is HMAC-SHA256(salt, "YYYY-MM-DD"); without the salt the day's
// sequence cannot be predicted from the date alone.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the random seed for the date of t.
func Seed(t time.Time, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(t)))
	sum := h.Sum(nil)
	// first 8 bytes are plenty for a PCG seed
	return binary.BigEndian.Uint64(sum[:8])
}
