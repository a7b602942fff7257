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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/r5-labs/r5-kawpow/consensus/kawpow"
	"github.com/urfave/cli/v2"
)

var (
	commandMakeCache = &cli.Command{
		Action:    makecache,
		Name:      "makecache",
		Usage:     "Generate kawpow verification cache (for testing)",
		ArgsUsage: "<blockNum> <outputFile>",
		Description: `
The makecache command generates a kawpow cache for the epoch of the given
block and writes it to the output file as little-endian 32 bit words.`,
	}
	commandMakeDAG = &cli.Command{
		Action:    makedag,
		Name:      "makedag",
		Usage:     "Generate kawpow mining DAG (for testing)",
		ArgsUsage: "<blockNum> <outputFile>",
		Description: `
The makedag command generates a kawpow DAG for the epoch of the given block
and writes it to the output file as little-endian 32 bit words.`,
	}
	commandSizes = &cli.Command{
		Action:    sizes,
		Name:      "sizes",
		Usage:     "Print the cache and DAG sizes of a range of epochs",
		ArgsUsage: "[firstEpoch] [count]",
	}
)

func makecache(ctx *cli.Context) error {
	return makeEpochFile(ctx, "makecache", kawpow.MakeCache)
}

func makedag(ctx *cli.Context) error {
	return makeEpochFile(ctx, "makedag", kawpow.MakeDataset)
}

func makeEpochFile(ctx *cli.Context, name string, generate func(uint64, io.Writer) error) error {
	args := ctx.Args().Slice()
	if len(args) != 2 {
		Fatalf(`Usage: kawpow %s <block number> <outputfile>`, name)
	}
	block, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		Fatalf("Invalid block number: %v", err)
	}
	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := generate(block, w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	log.Info("Wrote epoch file", "epoch", block/kawpow.EpochLength, "path", args[1])
	return f.Close()
}

func sizes(ctx *cli.Context) error {
	var (
		first = uint64(0)
		count = uint64(8)
		err   error
	)
	if ctx.NArg() > 0 {
		if first, err = strconv.ParseUint(ctx.Args().Get(0), 0, 64); err != nil {
			Fatalf("Invalid epoch: %v", err)
		}
	}
	if ctx.NArg() > 1 {
		if count, err = strconv.ParseUint(ctx.Args().Get(1), 0, 64); err != nil {
			Fatalf("Invalid epoch count: %v", err)
		}
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Epoch", "First block", "Seed", "Cache", "DAG"})
	for epoch := first; epoch < first+count; epoch++ {
		height := epoch * kawpow.EpochLength
		table.Append([]string{
			strconv.FormatUint(epoch, 10),
			strconv.FormatUint(height, 10),
			kawpow.SeedHash(height).TerminalString(),
			common.StorageSize(kawpow.CacheSize(height)).String(),
			common.StorageSize(kawpow.DatasetSize(height)).String(),
		})
	}
	table.Render()
	fmt.Println()
	return nil
}
