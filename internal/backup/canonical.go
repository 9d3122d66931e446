package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	jsoncanon "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// canonicalize produces RFC 8785 canonical JSON (keys sorted
// lexicographically at every object level, arrays preserved in order) for
// v, which must already be JSON-marshalable.
func canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling for canonicalization: %w", err)
	}
	canon, err := jsoncanon.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing json: %w", err)
	}
	return canon, nil
}

// hashCanonical returns the SHA-256 of v's canonical serialization, as
// 64 lowercase hex characters.
func hashCanonical(v any) (string, error) {
	canon, err := canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// contentHashInput is the {metadata, entities[i]={type,dataHash}}
// shape hashed to produce a snapshot's contentHash, per spec §3.5.
type contentHashInput struct {
	Metadata Metadata                `json:"metadata"`
	Entities []contentHashEntityItem `json:"entities"`
}

type contentHashEntityItem struct {
	EntityType EntityType `json:"entityType"`
	DataHash   string     `json:"dataHash"`
}

func computeContentHash(metadata Metadata, entities []EntityRecord) (string, error) {
	items := make([]contentHashEntityItem, len(entities))
	for i, e := range entities {
		items[i] = contentHashEntityItem{EntityType: e.EntityType, DataHash: e.DataHash}
	}
	return hashCanonical(contentHashInput{Metadata: metadata, Entities: items})
}
