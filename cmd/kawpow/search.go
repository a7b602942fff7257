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
	"os"
	"os/signal"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/log"
	"github.com/r5-labs/r5-kawpow/consensus/kawpow"
	"github.com/r5-labs/r5-kawpow/internal/sysstat"
	"github.com/urfave/cli/v2"
)

var (
	difficultyFlag = &cli.StringFlag{
		Name:  "difficulty",
		Usage: "Target difficulty, the final hash must not exceed 2^256/difficulty",
		Value: "1000000",
	}
	startFlag = &cli.Uint64Flag{
		Name:  "start",
		Usage: "First nonce to try",
	}
	reportFlag = &cli.DurationFlag{
		Name:  "report",
		Usage: "Interval between hashrate reports",
		Value: 10 * time.Second,
	}
)

var commandSearch = &cli.Command{
	Name:      "search",
	Usage:     "search for a nonce satisfying a difficulty",
	ArgsUsage: "<header> <height>",
	Description: `
Search the nonce space for a KawPow result of the header hash at the given
block height whose final hash meets the target difficulty, starting at the
--start nonce. Interrupt to abort.`,
	Flags: append([]cli.Flag{
		difficultyFlag,
		startFlag,
		reportFlag,
		jsonFlag,
	}, engineFlags...),
	Action: searchCmd,
}

type outputSearch struct {
	Nonce hexutil.Uint64 `json:"nonce"`
	Mix   common.Hash    `json:"mix"`
	Hash  common.Hash    `json:"hash"`
}

type searchResult struct {
	nonce     uint64
	mix, hash common.Hash
	err       error
}

func searchCmd(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		Fatalf("Usage: kawpow search <header> <height>")
	}
	raw, err := hexutil.Decode(ctx.Args().Get(0))
	if err != nil || len(raw) != common.HashLength {
		Fatalf("Invalid header hash %q", ctx.Args().Get(0))
	}
	header := common.BytesToHash(raw)

	height, ok := math.ParseUint64(ctx.Args().Get(1))
	if !ok {
		Fatalf("Invalid block height %q", ctx.Args().Get(1))
	}
	difficulty, ok := math.ParseBig256(ctx.String(difficultyFlag.Name))
	if !ok {
		Fatalf("Invalid difficulty %q", ctx.String(difficultyFlag.Name))
	}
	boundary, err := kawpow.Boundary(difficulty)
	if err != nil {
		Fatalf("Invalid difficulty: %v", err)
	}
	engine := makeEngine(ctx)
	defer engine.Close()

	var (
		stop    = make(chan struct{})
		found   = make(chan searchResult, 1)
		started = time.Now()
	)
	go func(seed uint64) {
		nonce, mix, hash, err := engine.Search(header, height, seed, boundary, stop)
		found <- searchResult{nonce, mix, hash, err}
	}(ctx.Uint64(startFlag.Name))
	log.Info("Started kawpow search", "height", height, "difficulty", difficulty)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	report := time.NewTicker(ctx.Duration(reportFlag.Name))
	defer report.Stop()

	var (
		stats  sysstat.CPUStats
		result searchResult
	)
	sysstat.ReadCPUStats(&stats)
	prev := stats

wait:
	for {
		select {
		case result = <-found:
			break wait
		case <-interrupt:
			log.Warn("Interrupted, aborting search")
			close(stop)
			result = <-found
			break wait
		case <-report.C:
			sysstat.ReadCPUStats(&stats)
			log.Info("Searching for nonce", "hashrate", engine.Hashrate(),
				"cpu", stats.LocalTime-prev.LocalTime, "elapsed", common.PrettyDuration(time.Since(started)))
			prev = stats
		}
	}
	if result.err != nil {
		return result.err
	}
	log.Info("Found kawpow nonce", "nonce", result.nonce, "elapsed", common.PrettyDuration(time.Since(started)))

	out := outputSearch{
		Nonce: hexutil.Uint64(result.nonce),
		Mix:   result.mix,
		Hash:  result.hash,
	}
	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(out)
	} else {
		fmt.Println("Nonce:     ", out.Nonce)
		fmt.Println("Mix hash:  ", out.Mix.Hex())
		fmt.Println("Final hash:", out.Hash.Hex())
	}
	return nil
}
