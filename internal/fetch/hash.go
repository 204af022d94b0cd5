package fetch

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns a short hash of a document body, stored with each cache
// entry so a refetch can tell whether the upstream document actually changed.
func ContentHash(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:16])
}
