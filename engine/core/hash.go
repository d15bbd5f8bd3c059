package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashAny returns a stable sha256 fingerprint of v. encoding/json writes
// object keys in sorted order, so equal values hash identically regardless
// of map insertion order.
func HashAny(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint value: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
