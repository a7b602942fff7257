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
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/r5-labs/r5-kawpow/consensus/kawpow"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[KawPow]
CachesInMem = 4
DatasetsInMem = 0
ItemCacheSize = 1048576
PowMode = "test"
`)
	cfg := kawpowConfig{KawPow: kawpow.DefaultConfig}
	require.NoError(t, loadConfig(path, &cfg))
	require.Equal(t, kawpow.Config{
		CachesInMem:   4,
		ItemCacheSize: 1 << 20,
		PowMode:       kawpow.ModeTest,
	}, cfg.KawPow)
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := writeConfig(t, `
[KawPow]
DatasetsOnDisk = 3
`)
	var cfg kawpowConfig
	err := loadConfig(path, &cfg)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), path), "error %q lacks the file name", err)
	require.Contains(t, err.Error(), "DatasetsOnDisk")
}

func TestDumpConfigRoundTrip(t *testing.T) {
	in := kawpowConfig{KawPow: kawpow.Config{CachesInMem: 3, DatasetsInMem: 1, DatasetsLockMmap: true}}
	out, err := tomlSettings.Marshal(&in)
	require.NoError(t, err)

	var back kawpowConfig
	require.NoError(t, loadConfig(writeConfig(t, string(out)), &back))
	require.Equal(t, in, back)
}

// newContext builds a command context with the engine flags parsed from args.
func newContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range append([]cli.Flag{configFileFlag}, engineFlags...) {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(app, set, nil)
}

// Tests that one-shot commands run on the verification cache unless the
// mining dataset is explicitly requested.
func TestMakeConfigDefaults(t *testing.T) {
	cfg := makeConfig(newContext(t))
	require.Zero(t, cfg.KawPow.DatasetsInMem)
	require.Equal(t, 1, cfg.KawPow.CachesInMem)
	require.Equal(t, kawpow.ModeNormal, cfg.KawPow.PowMode)

	cfg = makeConfig(newContext(t, "--kawpow.dagsinmem", "1", "--kawpow.itemcache", "2", "--kawpow.test"))
	require.Equal(t, 1, cfg.KawPow.DatasetsInMem)
	require.Equal(t, 2*1024*1024, cfg.KawPow.ItemCacheSize)
	require.Equal(t, kawpow.ModeTest, cfg.KawPow.PowMode)
}

func TestMakeConfigFileOverride(t *testing.T) {
	path := writeConfig(t, `
[KawPow]
CachesInMem = 3
DatasetsInMem = 1
`)
	cfg := makeConfig(newContext(t, "--config", path, "--kawpow.dagsinmem", "0"))
	require.Equal(t, 3, cfg.KawPow.CachesInMem)
	require.Zero(t, cfg.KawPow.DatasetsInMem)
}
