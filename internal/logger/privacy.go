package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const defaultHashSalt = "trackify-default-salt"

var hashSalt = defaultHashSalt

// InitHashSalt sets the salt used for log pseudonyms. An empty salt keeps the default,
// which is fine for development but makes hashes guessable.
func InitHashSalt(salt string) {
	if salt == "" {
		Log.Warn().Msg("LOG_HASH_SALT not set, using default salt")
		hashSalt = defaultHashSalt
		return
	}
	hashSalt = salt
}

// HashUserID creates a privacy-preserving pseudonym of a user ID.
func HashUserID(userID string) string {
	if userID == "" {
		return "<anonymous>"
	}
	hash := sha256.Sum256([]byte(userID + ":" + hashSalt))
	return hex.EncodeToString(hash[:])[:8]
}

// RedactEmail keeps the first character of the local part and the domain.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "<invalid-email>"
	}
	return local[:1] + "***@" + domain
}

// SanitizeText is a general-purpose sanitizer for user-provided free text such as remarks.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(text)), len(text))
}

// HashText returns a short salted digest of free text so log lines about the
// same input can be correlated without revealing it.
func HashText(text string) string {
	if text == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(hashSalt + ":" + text))
	return hex.EncodeToString(hash[:])[:12]
}
