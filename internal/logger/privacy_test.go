package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashUserID(t *testing.T) {
	t.Run("produces consistent hash for same user ID", func(t *testing.T) {
		require.Equal(t, HashUserID("u-123"), HashUserID("u-123"))
	})

	t.Run("produces different hashes for different user IDs", func(t *testing.T) {
		require.NotEqual(t, HashUserID("u-123"), HashUserID("u-456"))
	})

	t.Run("produces 8 character hash", func(t *testing.T) {
		require.Len(t, HashUserID("u-123"), 8)
	})

	t.Run("marks empty ID as anonymous", func(t *testing.T) {
		require.Equal(t, "<anonymous>", HashUserID(""))
	})

	t.Run("changes hash when salt changes", func(t *testing.T) {
		original := hashSalt
		defer func() { hashSalt = original }()

		before := HashUserID("u-123")
		InitHashSalt("another-salt")
		require.NotEqual(t, before, HashUserID("u-123"))
	})

	t.Run("empty salt restores default", func(t *testing.T) {
		original := hashSalt
		defer func() { hashSalt = original }()

		InitHashSalt("")
		require.Equal(t, defaultHashSalt, hashSalt)
	})
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "a***@example.com"},
		{"b@x.io", "b***@x.io"},
		{"not-an-email", "<invalid-email>"},
		{"@example.com", "<invalid-email>"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, RedactEmail(tt.in))
		})
	}
}

func TestSanitizeText(t *testing.T) {
	require.Equal(t, "<empty>", SanitizeText(""))
	require.Equal(t, "<redacted: 2 words, 11 chars>", SanitizeText("hello world"))
}

func TestHashText(t *testing.T) {
	require.Equal(t, "<empty>", HashText(""))
	require.Len(t, HashText("bus to work"), 12)
	require.Equal(t, HashText("bus to work"), HashText("bus to work"))
	require.NotEqual(t, HashText("bus to work"), HashText("bus to home"))
	require.NotContains(t, HashText("bus"), "bus")
}
