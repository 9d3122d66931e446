package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HMACToken hashes tok with the process-wide auth pepper via HMAC-SHA256,
// returning 64 lowercase hex characters. This is the only hash new tokens
// are issued against.
func HMACToken(tok string) (string, error) {
	pepper, err := GetAuthPepper()
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(tok))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// SHA256Token hashes tok with plain, unkeyed SHA-256. Kept only to verify
// tokens issued before this gateway adopted HMAC hashing (the teacher's
// HashAPIKey does the same unkeyed hash); never used for newly issued tokens.
func SHA256Token(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// ValidateToken reports whether tok hashes to storedHash, trying the HMAC
// form first and falling back to the legacy unkeyed SHA-256 form so that
// tokens issued before HMAC hashing was adopted keep validating. Always
// performs both comparisons so the elapsed time doesn't reveal which form,
// if either, matched.
func ValidateToken(tok, storedHash string) bool {
	hmacHash, err := HMACToken(tok)
	if err != nil {
		hmacHash = ""
	}
	legacyHash := SHA256Token(tok)

	hmacMatch := secureCompare(hmacHash, storedHash)
	legacyMatch := secureCompare(legacyHash, storedHash)
	return hmacMatch || legacyMatch
}

// SecureCompareLegacyToken constant-time compares a presented token against
// a tenant's legacy plaintext apiToken. Unlike hashed keys, the legacy
// token is compared directly, per spec §4.2.
func SecureCompareLegacyToken(presented, stored string) bool {
	return secureCompare(presented, stored)
}

// secureCompare compares two hex strings in constant time regardless of
// whether their lengths match, so a length mismatch can't be timed.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		// Compare a against itself so the call takes the same shape as the
		// equal-length path, then report false regardless of the result.
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
