package booking

import (
	"crypto/rand"
	"fmt"
	"time"
)

// base36Alphabet is the character set for confirmation code suffixes.
const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// suffixLength is the number of random characters appended to a code.
// The space is deliberately small (36^4) because codes are for human
// display and phone support, not security; uniqueness is enforced by
// the database constraint plus bounded regeneration on collision.
const suffixLength = 4

// newConfirmationCode builds a display code of the form
// PREFIX-YYYYMMDD-XXXX, where the suffix is drawn from the base-36
// alphabet using crypto/rand.  The code carries no access rights by
// itself.
func newConfirmationCode(prefix string, now time.Time) (string, error) {
	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = base36Alphabet[int(buf[i])%len(base36Alphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), buf), nil
}
