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

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// two256 is a big integer representing 2^256
var two256 = new(big.Int).Exp(big.NewInt(2), big.NewInt(256), big.NewInt(0))

// Boundary converts a difficulty into the largest final hash that satisfies
// it, 2^256 / difficulty. A difficulty of one saturates at 2^256 - 1.
func Boundary(difficulty *big.Int) (*uint256.Int, error) {
	if difficulty == nil || difficulty.Sign() <= 0 {
		return nil, ErrInvalidDifficulty
	}
	target := new(big.Int).Div(two256, difficulty)
	boundary, overflow := uint256.FromBig(target)
	if overflow {
		return new(uint256.Int).SetAllOne(), nil
	}
	return boundary, nil
}

// Difficulty converts a boundary back into the difficulty it was derived from,
// rounding down.
func Difficulty(boundary *uint256.Int) (*big.Int, error) {
	if boundary == nil || boundary.IsZero() {
		return nil, ErrInvalidDifficulty
	}
	return new(big.Int).Div(two256, boundary.ToBig()), nil
}

// CheckBoundary reports whether the final hash, read as a big-endian 256 bit
// number, does not exceed the boundary.
func CheckBoundary(digest common.Hash, boundary *uint256.Int) bool {
	return !new(uint256.Int).SetBytes32(digest[:]).Gt(boundary)
}
