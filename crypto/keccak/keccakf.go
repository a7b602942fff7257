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

// Package keccak implements the Keccak-f[800] and Keccak-f[1600] permutations
// together with the fixed-size sponges and padded hashes built on them.
package keccak

import "math/bits"

// roundConstants are the iota constants of Keccak-f[1600]. The 800-bit
// variant uses the low 32 bits of the first 22 of them.
var roundConstants = [24]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808a, 0x8000000080008000,
	0x000000000000808b, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008a, 0x0000000000000088, 0x0000000080008009, 0x000000008000000a,
	0x000000008000808b, 0x800000000000008b, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800a, 0x800000008000000a,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

var (
	// rotations holds the rho offsets in pi traversal order. The offsets are
	// reduced modulo the lane width by the rotate helpers.
	rotations = [24]int{1, 3, 6, 10, 15, 21, 28, 36, 45, 55, 2, 14, 27, 41, 56, 8, 25, 43, 62, 18, 39, 61, 20, 44}

	// lanes is the pi lane traversal order starting from lane 1.
	lanes = [24]int{10, 7, 11, 17, 18, 3, 5, 16, 8, 21, 24, 4, 15, 23, 19, 13, 12, 2, 20, 14, 22, 9, 6, 1}
)

const (
	rounds800  = 22
	rounds1600 = 24
)

// KeccakF800 applies the 22 round Keccak-f[800] permutation to the state.
func KeccakF800(a *[25]uint32) {
	var bc [5]uint32
	for r := 0; r < rounds800; r++ {
		// Theta
		for i := 0; i < 5; i++ {
			bc[i] = a[i] ^ a[i+5] ^ a[i+10] ^ a[i+15] ^ a[i+20]
		}
		for i := 0; i < 5; i++ {
			t := bc[(i+4)%5] ^ bits.RotateLeft32(bc[(i+1)%5], 1)
			for j := 0; j < 25; j += 5 {
				a[j+i] ^= t
			}
		}
		// Rho and pi
		t := a[1]
		for i, j := range lanes {
			bc[0] = a[j]
			a[j] = bits.RotateLeft32(t, rotations[i])
			t = bc[0]
		}
		// Chi
		for j := 0; j < 25; j += 5 {
			copy(bc[:], a[j:j+5])
			for i := 0; i < 5; i++ {
				a[j+i] ^= ^bc[(i+1)%5] & bc[(i+2)%5]
			}
		}
		// Iota
		a[0] ^= uint32(roundConstants[r])
	}
}

// KeccakF1600 applies the 24 round Keccak-f[1600] permutation to the state.
func KeccakF1600(a *[25]uint64) {
	var bc [5]uint64
	for r := 0; r < rounds1600; r++ {
		// Theta
		for i := 0; i < 5; i++ {
			bc[i] = a[i] ^ a[i+5] ^ a[i+10] ^ a[i+15] ^ a[i+20]
		}
		for i := 0; i < 5; i++ {
			t := bc[(i+4)%5] ^ bits.RotateLeft64(bc[(i+1)%5], 1)
			for j := 0; j < 25; j += 5 {
				a[j+i] ^= t
			}
		}
		// Rho and pi
		t := a[1]
		for i, j := range lanes {
			bc[0] = a[j]
			a[j] = bits.RotateLeft64(t, rotations[i])
			t = bc[0]
		}
		// Chi
		for j := 0; j < 25; j += 5 {
			copy(bc[:], a[j:j+5])
			for i := 0; i < 5; i++ {
				a[j+i] ^= ^bc[(i+1)%5] & bc[(i+2)%5]
			}
		}
		// Iota
		a[0] ^= roundConstants[r]
	}
}
