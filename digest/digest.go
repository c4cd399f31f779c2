// Package digest computes content identifiers for uploaded payloads.
//
// An identifier is the lowercase hex encoding of a 256-bit hash of the raw
// payload bytes. It is deterministic and local-only: the remote service
// retrieves files by their upload-time name, never by identifier, so the
// identifier is used for deduplication and manifest keys on the client side.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"log/slog"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Algorithm names accepted by New.
const (
	AlgBLAKE2b256 = "blake2b-256"
	AlgSHA256     = "sha-256"
)

// Addresser computes content identifiers with a hash algorithm fixed at
// construction. A single Addresser never mixes algorithms, so every
// identifier it produces is comparable with every other one it produced.
type Addresser struct {
	alg     string
	newHash func() hash.Hash
}

var warnOnce sync.Once

// New returns an Addresser for the named algorithm. The zero value of alg
// selects BLAKE2b-256, the default for this library. Choosing SHA-256 logs a
// one-time warning: identifiers computed under the two algorithms are not
// comparable, so SHA-256 should only be selected to interoperate with
// manifests written by SHA-256-only clients.
func New(alg string) (*Addresser, error) {
	switch alg {
	case "", AlgBLAKE2b256:
		return &Addresser{
			alg: AlgBLAKE2b256,
			newHash: func() hash.Hash {
				h, _ := blake2b.New256(nil)
				return h
			},
		}, nil
	case AlgSHA256:
		warnOnce.Do(func() {
			slog.Warn("digest: SHA-256 addresser selected; identifiers are not comparable with BLAKE2b-256 ones")
		})
		return &Addresser{alg: AlgSHA256, newHash: sha256.New}, nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// Algorithm returns the algorithm name this Addresser was constructed with.
func (a *Addresser) Algorithm() string { return a.alg }

// Identifier returns the hex content identifier of data. Hashing a byte
// sequence always succeeds; an empty payload hashes like any other.
func (a *Addresser) Identifier(data []byte) string {
	h := a.newHash()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// defaultAddresser backs the package-level Identifier helper.
var defaultAddresser = func() *Addresser {
	a, err := New(AlgBLAKE2b256)
	if err != nil {
		panic(err) // unreachable: the default algorithm is always available
	}
	return a
}()

// Identifier computes a content identifier with the default BLAKE2b-256
// addresser.
func Identifier(data []byte) string {
	return defaultAddresser.Identifier(data)
}
