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

package kawpow

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	fuzz "github.com/google/gofuzz"
	"github.com/r5-labs/r5-kawpow/consensus/kawpow"
)

// engine is shared between runs, generating the tiny test epochs once.
var engine = kawpow.NewTester()

type work struct {
	Header common.Hash
	Nonce  uint64
	Height uint16
	Flip   uint16
}

// To run a fuzzer, do
// $ CGO_ENABLED=0 go-fuzz-build -func Fuzz
// $ go-fuzz

// Fuzz is the basic entry point for the go-fuzz tool
//
// This returns 1 for inputs that decoded into a work item, 0 otherwise. It
// panics if the hashing paths disagree or verification misjudges a result.
func Fuzz(input []byte) int {
	if len(input) < 8 || len(input) > 1024 {
		return 0
	}
	var w work
	fuzz.NewFromGoFuzz(input).Fuzz(&w)

	height := uint64(w.Height)
	fullMix, fullDigest, err := engine.ComputeFull(w.Header, w.Nonce, height)
	if err != nil {
		panic(fmt.Sprintf("full compute failed: %v", err))
	}
	lightMix, lightDigest := engine.ComputeLight(w.Header, w.Nonce, height)
	if fullMix != lightMix || fullDigest != lightDigest {
		panic(fmt.Sprintf("paths disagree at height %d nonce %d: full (%x, %x), light (%x, %x)",
			height, w.Nonce, fullMix, fullDigest, lightMix, lightDigest))
	}
	if !engine.Verify(w.Header, w.Nonce, height, fullMix, fullDigest) {
		panic("valid result rejected")
	}
	bit := int(w.Flip) % (16 * common.HashLength)
	if bit < 8*common.HashLength {
		fullMix[bit/8] ^= 1 << (bit % 8)
	} else {
		bit -= 8 * common.HashLength
		fullDigest[bit/8] ^= 1 << (bit % 8)
	}
	if engine.Verify(w.Header, w.Nonce, height, fullMix, fullDigest) {
		panic("tampered result accepted")
	}
	return 1
}
