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
	"errors"
	"math/big"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Error values used for seal validation.
var (
	ErrInvalidDifficulty = errors.New("non-positive difficulty")
	ErrInvalidMixDigest  = errors.New("invalid mix digest")
	ErrInvalidPoW        = errors.New("invalid proof-of-work")
	ErrSearchAborted     = errors.New("nonce search aborted")
)

// VerifySeal checks whether a sealed header hash satisfies the PoW requirements
// of the given difficulty. With fulldag set, a resident dataset is used when it
// is already generated, otherwise its generation is kicked off in the background
// and the verification cache is used meanwhile.
func (k *KawPow) VerifySeal(header common.Hash, nonce uint64, height uint64, mix common.Hash, difficulty *big.Int, fulldag bool) error {
	// If we're running a fake PoW, accept any seal as valid
	if k.config.PowMode == ModeFake {
		time.Sleep(k.fakeDelay)
		if k.fakeFail != nil && *k.fakeFail == height {
			return ErrInvalidPoW
		}
		return nil
	}
	// Ensure that we have a valid difficulty for the block
	boundary, err := Boundary(difficulty)
	if err != nil {
		return err
	}
	// Recompute the digest and PoW values
	var have, digest common.Hash
	if fulldag {
		dataset, err := k.dataset(height, true)
		if err == nil && dataset.generated() {
			have, digest = kawpow(k.program(height), header, nonce, dataset.l1, dataset.lookup(), dataset.items)

			// Datasets are unmapped in a finalizer. Ensure that the dataset stays alive
			// until after the call to kawpow so it's not unmapped while being used.
			runtime.KeepAlive(dataset)
		} else {
			// Dataset not yet generated, don't hang, use a cache instead
			fulldag = false
		}
	}
	if !fulldag {
		have, digest = k.ComputeLight(header, nonce, height)
	}
	// Verify the calculated values against the ones provided in the header
	if have != mix {
		return ErrInvalidMixDigest
	}
	if !CheckBoundary(digest, boundary) {
		return ErrInvalidPoW
	}
	return nil
}

// Search looks for a nonce, starting at start, whose final hash satisfies the
// boundary. It runs on the calling goroutine until a solution is found or stop
// is closed, feeding the engine's hashrate meter as it goes.
func (k *KawPow) Search(header common.Hash, height uint64, start uint64, boundary *uint256.Int, stop <-chan struct{}) (nonce uint64, mix, digest common.Hash, err error) {
	var (
		prog   = k.program(height)
		l1     []uint32
		lookup lookupFn
		items  uint32
		source interface{}
	)
	if k.config.DatasetsInMem > 0 {
		d, err := k.dataset(height, false)
		if err != nil {
			return 0, common.Hash{}, common.Hash{}, err
		}
		l1, lookup, items, source = d.l1, d.lookup(), d.items, d
	} else {
		c := k.cache(height)
		l1, lookup, items, source = c.l1, c.lookup(), c.items, c
	}
	defer runtime.KeepAlive(source)

	var (
		attempts = int64(0)
		logger   = k.config.Log.New("height", height)
	)
	logger.Trace("Started kawpow search for new nonces", "seed", start)

	for nonce = start; ; nonce++ {
		select {
		case <-stop:
			logger.Trace("KawPow nonce search aborted", "attempts", nonce-start)
			k.hashrate.Mark(attempts)
			return 0, common.Hash{}, common.Hash{}, ErrSearchAborted
		default:
		}
		attempts++
		if attempts%(1<<6) == 0 {
			k.hashrate.Mark(attempts)
			attempts = 0
		}
		mix, digest = kawpow(prog, header, nonce, l1, lookup, items)
		if CheckBoundary(digest, boundary) {
			logger.Trace("KawPow nonce found and reported", "attempts", nonce-start, "nonce", nonce)
			k.hashrate.Mark(attempts)
			return nonce, mix, digest, nil
		}
	}
}
