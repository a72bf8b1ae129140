package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	FileChecksum      Hash
	ConfigFingerprint Hash
)

// Constructors
func NewFileChecksum(data []byte) FileChecksum           { return FileChecksum(NewHash(data)) }
func NewConfigFingerprint(data []byte) ConfigFingerprint { return ConfigFingerprint(NewHash(data)) }

// String conversions
func (h FileChecksum) String() string      { return Hash(h).String() }
func (h ConfigFingerprint) String() string { return Hash(h).String() }

// ComputeConfigFingerprint hashes a settings map with deterministic key order
func ComputeConfigFingerprint(settings map[string]interface{}) ConfigFingerprint {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("%v", settings[key]))
	}

	return NewConfigFingerprint([]byte(data.String()))
}
