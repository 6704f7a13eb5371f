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

// Short returns the first 12 hex characters, enough for report headers
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ParameterHash fingerprints a model parameter set
type ParameterHash Hash

func (h ParameterHash) String() string { return Hash(h).String() }
func (h ParameterHash) Short() string  { return Hash(h).Short() }

// ComputeParameterHash hashes named values in key order so the
// fingerprint does not depend on map iteration.
func ComputeParameterHash(values map[string]interface{}) ParameterHash {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString("=")
		data.WriteString(fmt.Sprintf("%v", values[key]))
		data.WriteString(";")
	}

	return ParameterHash(NewHash([]byte(data.String())))
}
