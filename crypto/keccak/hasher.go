// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

package keccak

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// Hasher is a repetitive hasher allowing the same hash data structures to be
// reused between hash runs instead of requiring new ones to be created. The
// digest is written into dest, which must be large enough to hold it.
type Hasher func(dest []byte, data []byte)

// state wraps sha3.state. In addition to the usual hash methods, it also supports
// Read to get a variable amount of data from the hash state. Read is faster than Sum
// because it doesn't copy the internal state, but also modifies the internal state.
type state interface {
	hash.Hash
	Read([]byte) (int, error)
}

// makeHasher creates a repetitive hasher around the given legacy Keccak hash.
func makeHasher(h hash.Hash) Hasher {
	kh, ok := h.(state)
	if !ok {
		panic("keccak: sha3 hash does not expose Read")
	}
	outputLen := kh.Size()
	return func(dest []byte, data []byte) {
		kh.Reset()
		kh.Write(data)
		kh.Read(dest[:outputLen])
	}
}

// NewKeccak512Hasher returns a reusable legacy Keccak-512 hasher. It is not
// safe for concurrent use.
func NewKeccak512Hasher() Hasher {
	return makeHasher(sha3.NewLegacyKeccak512())
}

// Keccak256 calculates and returns the legacy Keccak-256 hash of the input data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256().(state)
	for _, b := range data {
		d.Write(b)
	}
	out := make([]byte, 32)
	d.Read(out)
	return out
}

// Keccak512 calculates and returns the legacy Keccak-512 hash of the input data.
func Keccak512(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak512().(state)
	for _, b := range data {
		d.Write(b)
	}
	out := make([]byte, 64)
	d.Read(out)
	return out
}
