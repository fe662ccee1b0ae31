package domain

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Fingerprint hashes the canonical JSON form of the snapshot. Equal snapshots
// produce equal fingerprints, so it serves as an ETag and a reload dedupe key.
func (s ContentSnapshot) Fingerprint() string {
	payload, err := json.Marshal(s.withEmptyLists())
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.Hash(payload))
}
