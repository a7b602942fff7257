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

package main

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

type outputHash struct {
	Height uint64         `json:"height"`
	Nonce  hexutil.Uint64 `json:"nonce"`
	Mix    hexutil.Bytes  `json:"mix"`
	Hash   hexutil.Bytes  `json:"hash"`
}

type outputVerify struct {
	Valid bool `json:"valid"`
}

var commandHash = &cli.Command{
	Name:      "hash",
	Usage:     "compute the KawPow hash of a header",
	ArgsUsage: "<header> <nonce> <height>",
	Description: `
Compute the mix hash and final hash of a 32 byte header hash for the given
nonce and block height. The nonce is decimal or 0x prefixed hexadecimal.

The verification cache of the height's epoch is generated on first use; with
--kawpow.dagsinmem set, the mining dataset is used instead.`,
	Flags:  append([]cli.Flag{jsonFlag}, engineFlags...),
	Action: hashCmd,
}

var commandVerify = &cli.Command{
	Name:      "verify",
	Usage:     "verify a KawPow result",
	ArgsUsage: "<header> <nonce> <height> <mix> <hash>",
	Description: `
Check that the mix hash and final hash are the KawPow result of the header
hash, nonce and block height.`,
	Flags:  append([]cli.Flag{jsonFlag}, engineFlags...),
	Action: verifyCmd,
}

// parseWork decodes the header, nonce and height arguments shared by the
// hashing commands.
func parseWork(ctx *cli.Context) (header []byte, nonce uint64, height uint64) {
	args := ctx.Args()
	header, err := hexutil.Decode(args.Get(0))
	if err != nil {
		Fatalf("Invalid header hash %q: %v", args.Get(0), err)
	}
	if nonce, err = strconv.ParseUint(args.Get(1), 0, 64); err != nil {
		Fatalf("Invalid nonce %q: %v", args.Get(1), err)
	}
	if height, err = strconv.ParseUint(args.Get(2), 0, 64); err != nil {
		Fatalf("Invalid block height %q: %v", args.Get(2), err)
	}
	return header, nonce, height
}

func hashCmd(ctx *cli.Context) error {
	if ctx.NArg() != 3 {
		Fatalf("Usage: kawpow hash <header> <nonce> <height>")
	}
	header, nonce, height := parseWork(ctx)

	engine := makeEngine(ctx)
	defer engine.Close()

	mix, digest, err := engine.HashBytes(header, nonce, height)
	if err != nil {
		Fatalf("Failed to hash: %v", err)
	}
	out := outputHash{
		Height: height,
		Nonce:  hexutil.Uint64(nonce),
		Mix:    mix,
		Hash:   digest,
	}
	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(out)
	} else {
		fmt.Println("Mix hash:  ", out.Mix)
		fmt.Println("Final hash:", out.Hash)
	}
	return nil
}

func verifyCmd(ctx *cli.Context) error {
	if ctx.NArg() != 5 {
		Fatalf("Usage: kawpow verify <header> <nonce> <height> <mix> <hash>")
	}
	header, nonce, height := parseWork(ctx)

	mix, err := hexutil.Decode(ctx.Args().Get(3))
	if err != nil {
		Fatalf("Invalid mix hash: %v", err)
	}
	digest, err := hexutil.Decode(ctx.Args().Get(4))
	if err != nil {
		Fatalf("Invalid final hash: %v", err)
	}
	engine := makeEngine(ctx)
	defer engine.Close()

	valid, err := engine.VerifyBytes(header, nonce, height, mix, digest)
	if err != nil {
		Fatalf("Failed to verify: %v", err)
	}
	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(outputVerify{Valid: valid})
	} else if valid {
		fmt.Println("Valid")
	} else {
		fmt.Println("Invalid")
	}
	return nil
}
