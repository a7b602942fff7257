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

// kawpow is a command line tool for hashing, verifying and mining with the
// KawPow proof-of-work algorithm.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	VerbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to the given file as well, rotated when it grows too large",
	}
	logMaxSizeFlag = &cli.IntFlag{
		Name:  "log.maxsize",
		Usage: "Maximum size in MBs of a single log file",
		Value: 100,
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
)

var app = &cli.App{
	Name:  "kawpow",
	Usage: "KawPow proof-of-work utility",
	Flags: []cli.Flag{
		VerbosityFlag,
		logFileFlag,
		logMaxSizeFlag,
		configFileFlag,
	},
	Commands: []*cli.Command{
		commandHash,
		commandVerify,
		commandSearch,
		commandMakeCache,
		commandMakeDAG,
		commandSizes,
		commandDumpConfig,
	},
	Before: setupLogging,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the root log handler: colored terminal output on
// stderr, plus an optional rotated logfmt file.
func setupLogging(ctx *cli.Context) error {
	var (
		usecolor = isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
		output   = io.Writer(os.Stderr)
	)
	if usecolor {
		output = colorable.NewColorableStderr()
	}
	handler := log.StreamHandler(output, log.TerminalFormat(usecolor))

	if file := ctx.String(logFileFlag.Name); file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    ctx.Int(logMaxSizeFlag.Name),
			MaxBackups: 10,
			Compress:   true,
		}
		handler = log.MultiHandler(handler, log.StreamHandler(rotator, log.LogfmtFormat()))
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.Lvl(ctx.Int(VerbosityFlag.Name)))
	log.Root().SetHandler(glogger)
	return nil
}

// Fatalf formats a message to standard error and exits the program.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// mustPrintJSON prints the JSON encoding of the given object and
// exits the program with an error message when the marshaling fails.
func mustPrintJSON(jsonObject interface{}) {
	str, err := json.MarshalIndent(jsonObject, "", "  ")
	if err != nil {
		Fatalf("Failed to marshal JSON object: %v", err)
	}
	fmt.Println(string(str))
}
