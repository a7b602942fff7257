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
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Compute returns the mix digest and the final hash of a header hash and nonce
// at the given height. The full dataset is used when the engine keeps datasets
// in memory, the verification cache otherwise. Both paths yield the same result.
func (k *KawPow) Compute(header common.Hash, nonce uint64, height uint64) (mix, digest common.Hash, err error) {
	if k.config.DatasetsInMem > 0 {
		return k.ComputeFull(header, nonce, height)
	}
	mix, digest = k.ComputeLight(header, nonce, height)
	return mix, digest, nil
}

// ComputeLight runs the hash on the verification cache only, deriving every
// dataset item it touches on the fly.
func (k *KawPow) ComputeLight(header common.Hash, nonce uint64, height uint64) (mix, digest common.Hash) {
	start := time.Now()
	defer computeLightTimer.UpdateSince(start)

	c := k.cache(height)
	mix, digest = kawpow(k.program(height), header, nonce, c.l1, c.lookup(), c.items)
	runtime.KeepAlive(c)
	return mix, digest
}

// ComputeFull runs the hash on the full dataset, generating it first if needed.
// It fails with ErrOutOfMemory when the dataset cannot be allocated.
func (k *KawPow) ComputeFull(header common.Hash, nonce uint64, height uint64) (mix, digest common.Hash, err error) {
	d, err := k.dataset(height, false)
	if err != nil {
		return common.Hash{}, common.Hash{}, err
	}
	start := time.Now()
	defer computeFullTimer.UpdateSince(start)

	mix, digest = kawpow(k.program(height), header, nonce, d.l1, d.lookup(), d.items)
	runtime.KeepAlive(d)
	return mix, digest, nil
}

// Verify reports whether mix and digest are the KawPow result of the header
// hash and nonce at the given height. Only the verification cache is used,
// the full dataset is never touched.
func (k *KawPow) Verify(header common.Hash, nonce uint64, height uint64, mix, digest common.Hash) bool {
	// If we're running a fake PoW, accept any seal as valid
	if k.config.PowMode == ModeFake {
		time.Sleep(k.fakeDelay)
		return k.fakeFail == nil || *k.fakeFail != height
	}
	start := time.Now()
	defer verifyTimer.UpdateSince(start)

	// The closing pass is cheap, reject mismatching digests before mixing
	carry := seedState(header, nonce)
	if finalHash(carry, mix) != digest {
		verifyFailMeter.Mark(1)
		return false
	}
	c := k.cache(height)
	want := wordsToHash(hashMix(k.program(height), [2]uint32{carry[0], carry[1]}, c.l1, c.lookup(), c.items))
	runtime.KeepAlive(c)

	if want != mix {
		verifyFailMeter.Mark(1)
		return false
	}
	return true
}

// HashBytes is Compute over byte slices. The header hash must be 32 bytes.
func (k *KawPow) HashBytes(header []byte, nonce uint64, height uint64) (mix, digest []byte, err error) {
	if len(header) != common.HashLength {
		return nil, nil, fmt.Errorf("%w: header hash is %d bytes, want %d", ErrInvalidLength, len(header), common.HashLength)
	}
	m, d, err := k.Compute(common.BytesToHash(header), nonce, height)
	if err != nil {
		return nil, nil, err
	}
	return m.Bytes(), d.Bytes(), nil
}

// VerifyBytes is Verify over byte slices. The header hash, mix digest and final
// hash must all be 32 bytes.
func (k *KawPow) VerifyBytes(header []byte, nonce uint64, height uint64, mix, digest []byte) (bool, error) {
	for _, arg := range []struct {
		name string
		data []byte
	}{{"header hash", header}, {"mix digest", mix}, {"final hash", digest}} {
		if len(arg.data) != common.HashLength {
			return false, fmt.Errorf("%w: %s is %d bytes, want %d", ErrInvalidLength, arg.name, len(arg.data), common.HashLength)
		}
	}
	return k.Verify(common.BytesToHash(header), nonce, height, common.BytesToHash(mix), common.BytesToHash(digest)), nil
}
