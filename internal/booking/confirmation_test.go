package booking

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationCodeFormat(t *testing.T) {
	now := time.Date(2026, 10, 31, 21, 30, 0, 0, time.UTC)

	code, err := newConfirmationCode("HHM", now)
	require.NoError(t, err)

	parts := strings.Split(code, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "HHM", parts[0])
	assert.Equal(t, "20261031", parts[1])
	require.Len(t, parts[2], suffixLength)
	for _, r := range parts[2] {
		assert.Contains(t, base36Alphabet, string(r))
	}
}

func TestConfirmationCodeUsesGivenPrefix(t *testing.T) {
	now := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	code, err := newConfirmationCode("CRYPT", now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "CRYPT-20261101-"))
}

func TestConfirmationCodeSuffixVaries(t *testing.T) {
	now := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := newConfirmationCode("HHM", now)
		require.NoError(t, err)
		seen[code] = true
	}
	// 4 base-36 characters give ~1.6M combinations; 50 draws colliding
	// down to a handful would mean a broken generator.
	assert.Greater(t, len(seen), 40)
}
