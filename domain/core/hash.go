package core

import (
	"crypto/sha256"
	"encoding/hex"
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

// Domain-specific hash types
type (
	DesignFingerprint Hash
	SpecHash          Hash
)

// Constructors
func NewDesignFingerprint(data []byte) DesignFingerprint { return DesignFingerprint(NewHash(data)) }
func NewSpecHash(data []byte) SpecHash                   { return SpecHash(NewHash(data)) }

// String conversions
func (h DesignFingerprint) String() string { return Hash(h).String() }
func (h SpecHash) String() string          { return Hash(h).String() }
