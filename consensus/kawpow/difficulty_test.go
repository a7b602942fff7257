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

func TestBoundary(t *testing.T) {
	tests := []struct {
		difficulty *big.Int
		want       *uint256.Int
	}{
		{big.NewInt(1), new(uint256.Int).SetAllOne()},
		{big.NewInt(2), new(uint256.Int).Lsh(uint256.NewInt(1), 255)},
		{big.NewInt(1 << 32), new(uint256.Int).Lsh(uint256.NewInt(1), 224)},
		{two256, uint256.NewInt(1)},
	}
	for _, tt := range tests {
		have, err := Boundary(tt.difficulty)
		require.NoError(t, err)
		require.Equal(t, tt.want, have, "difficulty %v", tt.difficulty)
	}
	for _, bad := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		_, err := Boundary(bad)
		require.ErrorIs(t, err, ErrInvalidDifficulty)
	}
}

func TestDifficultyRoundTrip(t *testing.T) {
	for _, d := range []int64{2, 3, 1000, 123456789} {
		boundary, err := Boundary(big.NewInt(d))
		require.NoError(t, err)
		back, err := Difficulty(boundary)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(d), back)
	}
	_, err := Difficulty(uint256.NewInt(0))
	require.ErrorIs(t, err, ErrInvalidDifficulty)
}

func TestCheckBoundary(t *testing.T) {
	boundary := uint256.NewInt(0x1000)

	// The hash is read big-endian, the most significant byte comes first
	require.True(t, CheckBoundary(common.HexToHash("0x1000"), boundary))
	require.True(t, CheckBoundary(common.HexToHash("0x0fff"), boundary))
	require.False(t, CheckBoundary(common.HexToHash("0x1001"), boundary))
	require.False(t, CheckBoundary(common.HexToHash("0x0100000000000000000000000000000000000000000000000000000000000000"), boundary))
}
