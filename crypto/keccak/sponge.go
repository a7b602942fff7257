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
	"encoding/binary"
	"fmt"
)

const (
	// StateSize800 is the width of the Keccak-f[800] state in bytes.
	StateSize800 = 100

	// StateSize1600 is the width of the Keccak-f[1600] state in bytes.
	StateSize1600 = 200
)

// Absorb800 loads data into a zeroed Keccak-f[800] state as little-endian
// 32-bit lanes and applies the permutation once. No padding is added, the
// caller supplies the whole block. A trailing partial lane is zero filled.
func Absorb800(data []byte) [25]uint32 {
	if len(data) > StateSize800 {
		panic(fmt.Sprintf("keccak: %d bytes exceed the 800-bit state", len(data)))
	}
	var (
		a   [25]uint32
		buf [StateSize800]byte
	)
	copy(buf[:], data)
	for i := range a {
		a[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	KeccakF800(&a)
	return a
}

// Squeeze800 returns the leading n bytes of the state, lanes encoded
// little-endian.
func Squeeze800(a *[25]uint32, n int) []byte {
	if n < 0 || n > StateSize800 {
		panic(fmt.Sprintf("keccak: cannot squeeze %d bytes from the 800-bit state", n))
	}
	var buf [StateSize800]byte
	for i, lane := range a {
		binary.LittleEndian.PutUint32(buf[i*4:], lane)
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out
}

// Absorb1600 loads data into a zeroed Keccak-f[1600] state as little-endian
// 64-bit lanes and applies the permutation once, without padding.
func Absorb1600(data []byte) [25]uint64 {
	if len(data) > StateSize1600 {
		panic(fmt.Sprintf("keccak: %d bytes exceed the 1600-bit state", len(data)))
	}
	var (
		a   [25]uint64
		buf [StateSize1600]byte
	)
	copy(buf[:], data)
	for i := range a {
		a[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	KeccakF1600(&a)
	return a
}

// Squeeze1600 returns the leading n bytes of the state, lanes encoded
// little-endian.
func Squeeze1600(a *[25]uint64, n int) []byte {
	if n < 0 || n > StateSize1600 {
		panic(fmt.Sprintf("keccak: cannot squeeze %d bytes from the 1600-bit state", n))
	}
	var buf [StateSize1600]byte
	for i, lane := range a {
		binary.LittleEndian.PutUint64(buf[i*8:], lane)
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out
}
