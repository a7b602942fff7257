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
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/r5-labs/r5-kawpow/consensus/kawpow"
	"github.com/urfave/cli/v2"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	cachesFlag = &cli.IntFlag{
		Name:  "kawpow.cachesinmem",
		Usage: "Number of recent kawpow caches to keep in memory",
	}
	datasetsFlag = &cli.IntFlag{
		Name:  "kawpow.dagsinmem",
		Usage: "Number of recent kawpow mining datasets to keep in memory",
	}
	lockMmapFlag = &cli.BoolFlag{
		Name:  "kawpow.dagslockmmap",
		Usage: "Lock memory maps for recent kawpow mining datasets",
	}
	itemCacheFlag = &cli.IntFlag{
		Name:  "kawpow.itemcache",
		Usage: "Megabytes of memory used to memoize light verification items",
	}
	testModeFlag = &cli.BoolFlag{
		Name:  "kawpow.test",
		Usage: "Use the tiny test sized cache and dataset",
	}
)

// engineFlags are the flags of the commands that construct an engine.
var engineFlags = []cli.Flag{
	cachesFlag,
	datasetsFlag,
	lockMmapFlag,
	itemCacheFlag,
	testModeFlag,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// defaultConfig is the engine configuration of the tool. One-shot commands
// only need the verification cache, the mining dataset is opt-in.
var defaultConfig = kawpow.Config{
	CachesInMem:   1,
	DatasetsInMem: 0,
}

type kawpowConfig struct {
	KawPow kawpow.Config
}

func loadConfig(file string, cfg *kawpowConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig assembles the engine configuration from the defaults, the
// config file and the command line, in increasing order of precedence.
func makeConfig(ctx *cli.Context) kawpowConfig {
	cfg := kawpowConfig{KawPow: defaultConfig}

	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			Fatalf("%v", err)
		}
	}
	if ctx.IsSet(cachesFlag.Name) {
		cfg.KawPow.CachesInMem = ctx.Int(cachesFlag.Name)
	}
	if ctx.IsSet(datasetsFlag.Name) {
		cfg.KawPow.DatasetsInMem = ctx.Int(datasetsFlag.Name)
	}
	if ctx.IsSet(lockMmapFlag.Name) {
		cfg.KawPow.DatasetsLockMmap = ctx.Bool(lockMmapFlag.Name)
	}
	if ctx.IsSet(itemCacheFlag.Name) {
		cfg.KawPow.ItemCacheSize = ctx.Int(itemCacheFlag.Name) * 1024 * 1024
	}
	if ctx.Bool(testModeFlag.Name) {
		cfg.KawPow.PowMode = kawpow.ModeTest
	}
	return cfg
}

// makeEngine creates the engine configured by the command line.
func makeEngine(ctx *cli.Context) *kawpow.KawPow {
	cfg := makeConfig(ctx)
	return kawpow.New(cfg.KawPow)
}

var commandDumpConfig = &cli.Command{
	Name:   "dumpconfig",
	Usage:  "Show configuration values",
	Flags:  engineFlags,
	Action: dumpConfig,
	Description: `
The dumpconfig command shows the engine configuration assembled from the
defaults, the --config file and the command line flags, in TOML.`,
}

func dumpConfig(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
