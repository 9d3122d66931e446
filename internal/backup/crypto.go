package backup

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/libervia/gateway/internal/security"
)

// sign returns HMAC-SHA256(pepper, contentHash) as 64 lowercase hex chars.
func sign(contentHash string) (string, error) {
	pepper, err := security.GetBackupPepper()
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(contentHash))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerificationError collects every integrity check failure found while
// verifying a snapshot. Never a partial success: any entry means the
// snapshot is rejected.
type VerificationError struct {
	Errors []string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("backup integrity verification failed: %v", e.Errors)
}

// VerifyIntegrity checks, in order: every entity's recomputed dataHash,
// the recomputed contentHash, and the signature. All checks run even after
// an earlier one fails, so the caller sees every problem at once. A
// missing pepper is reported as a verification error, not a crash.
func VerifyIntegrity(snap *Snapshot) error {
	var errs []string

	for _, e := range snap.Entities {
		want, err := hashCanonical(e.Data)
		if err != nil {
			errs = append(errs, fmt.Sprintf("entity %s: %v", e.EntityType, err))
			continue
		}
		if !constantTimeHexEqual(want, e.DataHash) {
			errs = append(errs, fmt.Sprintf("entity %s: dataHash mismatch", e.EntityType))
		}
	}

	wantContentHash, err := computeContentHash(snap.Metadata, snap.Entities)
	if err != nil {
		errs = append(errs, fmt.Sprintf("contentHash: %v", err))
	} else if !constantTimeHexEqual(wantContentHash, snap.ContentHash) {
		errs = append(errs, "contentHash mismatch")
	}

	wantSignature, err := sign(snap.ContentHash)
	if err != nil {
		errs = append(errs, fmt.Sprintf("signature: %v", err))
	} else if !constantTimeHexEqual(wantSignature, snap.Signature) {
		errs = append(errs, "signature mismatch")
	}

	if len(errs) > 0 {
		return &VerificationError{Errors: errs}
	}
	return nil
}

func constantTimeHexEqual(a, b string) bool {
	if len(a) != len(b) {
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
