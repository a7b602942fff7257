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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestVerifySeal(t *testing.T) {
	k := NewTester()
	defer k.Close()

	header := common.HexToHash("0x5ea1")
	mix, _, err := k.Compute(header, 11, 500)
	require.NoError(t, err)

	for _, fulldag := range []bool{false, true} {
		require.NoError(t, k.VerifySeal(header, 11, 500, mix, big.NewInt(1), fulldag))
		require.ErrorIs(t, k.VerifySeal(header, 11, 500, common.Hash{}, big.NewInt(1), fulldag), ErrInvalidMixDigest)
		require.ErrorIs(t, k.VerifySeal(header, 11, 500, mix, two256, fulldag), ErrInvalidPoW)
		require.ErrorIs(t, k.VerifySeal(header, 11, 500, mix, big.NewInt(0), fulldag), ErrInvalidDifficulty)
	}
}

// Tests that seal verification with a cold dataset falls back to the cache
// instead of waiting for the dataset.
func TestVerifySealColdDataset(t *testing.T) {
	k := NewTester()
	defer k.Close()

	header := common.HexToHash("0x5ea2")
	mix, _ := k.ComputeLight(header, 3, 2*EpochLength)
	require.NoError(t, k.VerifySeal(header, 3, 2*EpochLength, mix, big.NewInt(1), true))

	d, err := k.dataset(2*EpochLength, false)
	require.NoError(t, err)
	require.True(t, d.generated())
}

func TestVerifySealFake(t *testing.T) {
	failer := NewFakeFailer(3)
	require.NoError(t, failer.VerifySeal(common.Hash{}, 0, 2, common.Hash{}, big.NewInt(1), false))
	require.ErrorIs(t, failer.VerifySeal(common.Hash{}, 0, 3, common.Hash{}, big.NewInt(1), false), ErrInvalidPoW)
}

func TestSearch(t *testing.T) {
	for _, datasets := range []int{0, 1} {
		k := New(Config{CachesInMem: 1, DatasetsInMem: datasets, PowMode: ModeTest})

		boundary, err := Boundary(big.NewInt(32))
		require.NoError(t, err)

		header := common.HexToHash("0x5ea3c4")
		nonce, mix, digest, err := k.Search(header, 900, 1000, boundary, make(chan struct{}))
		require.NoError(t, err)
		require.GreaterOrEqual(t, nonce, uint64(1000))
		require.True(t, CheckBoundary(digest, boundary))
		require.True(t, k.Verify(header, nonce, 900, mix, digest))
		require.NoError(t, k.VerifySeal(header, nonce, 900, mix, big.NewInt(32), false))

		k.Close()
	}
}

func TestSearchAbort(t *testing.T) {
	k := NewTester()
	defer k.Close()

	stop := make(chan struct{})
	close(stop)

	// No hash can reach a zero boundary, only the stop channel ends the search
	_, _, _, err := k.Search(common.Hash{}, 0, 0, uint256.NewInt(0), stop)
	require.ErrorIs(t, err, ErrSearchAborted)
}
