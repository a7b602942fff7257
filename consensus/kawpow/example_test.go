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

package kawpow_test

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/r5-labs/r5-kawpow/consensus/kawpow"
)

func ExampleKawPow_Verify() {
	// The tester works on a tiny cache and dataset, production code uses
	// kawpow.New(kawpow.DefaultConfig).
	engine := kawpow.NewTester()
	defer engine.Close()

	header := common.HexToHash("0x63543d3913fe56e6720c5e61e8d208d05582875822628f483279a3e8d9c9a8b3")
	mix, digest, err := engine.Compute(header, 0x88a23b0033eb959b, 262523)
	if err != nil {
		fmt.Println("compute failed:", err)
		return
	}
	fmt.Println(engine.Verify(header, 0x88a23b0033eb959b, 262523, mix, digest))

	mix[0] ^= 0x80
	fmt.Println(engine.Verify(header, 0x88a23b0033eb959b, 262523, mix, digest))
	// Output:
	// true
	// false
}

func ExampleDatasetSize() {
	fmt.Println(kawpow.CacheSize(0), kawpow.DatasetSize(0))
	fmt.Println(kawpow.CacheSize(kawpow.EpochLength), kawpow.DatasetSize(kawpow.EpochLength))
	// Output:
	// 16776896 1073739904
	// 16907456 1082130304
}
