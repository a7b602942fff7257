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
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/r5-labs/r5-kawpow/crypto/keccak"
)

// Tests that verification caches and mining datasets are sized according to
// the prime constrained growth rule.
func TestSizes(t *testing.T) {
	tests := []struct {
		epoch   uint64
		cache   uint64
		dataset uint64
	}{
		{0, 16776896, 1073739904},
		{1, 16907456, 1082130304},
	}
	for _, tt := range tests {
		if size := calcCacheSize(tt.epoch); size != tt.cache {
			t.Errorf("cache %d: cache size mismatch: have %d, want %d", tt.epoch, size, tt.cache)
		}
		if size := calcDatasetSize(tt.epoch); size != tt.dataset {
			t.Errorf("dataset %d: dataset size mismatch: have %d, want %d", tt.epoch, size, tt.dataset)
		}
	}
}

func TestSizesMonotonic(t *testing.T) {
	prevCache, prevDataset := uint64(0), uint64(0)
	for epoch := uint64(0); epoch < 64; epoch++ {
		csize, dsize := calcCacheSize(epoch), calcDatasetSize(epoch)
		if csize <= prevCache {
			t.Fatalf("epoch %d: cache size not increasing: have %d, previous %d", epoch, csize, prevCache)
		}
		if dsize <= prevDataset {
			t.Fatalf("epoch %d: dataset size not increasing: have %d, previous %d", epoch, dsize, prevDataset)
		}
		if limit := uint64(cacheInitBytes + cacheGrowthBytes*epoch); csize > limit {
			t.Fatalf("epoch %d: cache size %d above bound %d", epoch, csize, limit)
		}
		if limit := uint64(datasetInitBytes + datasetGrowthBytes*epoch); dsize > limit {
			t.Fatalf("epoch %d: dataset size %d above bound %d", epoch, dsize, limit)
		}
		prevCache, prevDataset = csize, dsize
	}
	if CacheSize(EpochLength-1) != calcCacheSize(0) || CacheSize(EpochLength) != calcCacheSize(1) {
		t.Fatal("cache size does not switch at the epoch boundary")
	}
	if DatasetSize(EpochLength-1) != calcDatasetSize(0) || DatasetSize(EpochLength) != calcDatasetSize(1) {
		t.Fatal("dataset size does not switch at the epoch boundary")
	}
}

func TestSeedHash(t *testing.T) {
	if have := SeedHash(0); have != (common.Hash{}) {
		t.Fatalf("genesis seed mismatch: have %x, want zero", have)
	}
	want := common.HexToHash("0x290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563")
	if have := SeedHash(EpochLength); have != want {
		t.Fatalf("epoch 1 seed mismatch: have %x, want %x", have, want)
	}
	// Every seed must chain off the previous one
	for epoch := uint64(1); epoch < 8; epoch++ {
		prev := seedHash(epoch - 1)
		if have, want := seedHash(epoch), keccak.Keccak256(prev); !bytes.Equal(have, want) {
			t.Fatalf("epoch %d: seed not chained: have %x, want %x", epoch, have, want)
		}
	}
}

func TestWordOffset(t *testing.T) {
	// Items of a 16 GiB dataset sit past the 32 bit word range
	if have, want := wordOffset(1<<26, 4*hashWords), uint64(1)<<32; have != want {
		t.Fatalf("lookup item offset mismatch: have %d, want %d", have, want)
	}
	if have, want := wordOffset(0xffffffff, hashWords), uint64(0xffffffff)*hashWords; have != want {
		t.Fatalf("dataset item offset mismatch: have %d, want %d", have, want)
	}
}

func TestNextSeed(t *testing.T) {
	seed := make([]byte, 32)
	for i := 0; i < 4; i++ {
		seed[i*7] = byte(i + 1)
		if have, want := nextSeed(seed), keccak.Keccak256(seed); !bytes.Equal(have, want) {
			t.Fatalf("seed %x: next seed mismatch: have %x, want %x", seed, have, want)
		}
	}
}

// Tests that the cache generation follows the chained hash and randmemohash
// construction by rebuilding a small cache step by step.
func TestGenerateCache(t *testing.T) {
	const rows = 16
	seed := hexutil.MustDecode("0x290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563")

	want := make([][]byte, rows)
	want[0] = keccak.Keccak512(seed)
	for i := 1; i < rows; i++ {
		want[i] = keccak.Keccak512(want[i-1])
	}
	for round := 0; round < cacheRounds; round++ {
		for i := 0; i < rows; i++ {
			v := int(uint32(want[i][0])|uint32(want[i][1])<<8|uint32(want[i][2])<<16|uint32(want[i][3])<<24) % rows
			w := (i - 1 + rows) % rows
			x := make([]byte, hashBytes)
			for j := range x {
				x[j] = want[v][j] ^ want[w][j]
			}
			want[i] = keccak.Keccak512(x)
		}
	}
	have := make([]byte, rows*hashBytes)
	generateCache(have, 1, seed)
	if !bytes.Equal(have, bytes.Join(want, nil)) {
		t.Fatalf("cache mismatch:\nhave %x\nwant %x", have, bytes.Join(want, nil))
	}
}

// Tests that the parallel dataset generation agrees with deriving every item
// on its own, and that the L1 cache is the dataset's prefix.
func TestGenerateDataset(t *testing.T) {
	buf := make([]byte, testCacheBytes)
	generateCache(buf, 0, seedHash(0))
	cache := cacheWords(buf)

	dataset := make([]uint32, testDatasetBytes/4)
	generateDataset(dataset, 0, cache)

	gen := newItemGenerator(cache)
	item := make([]uint32, hashWords)
	for i := uint32(0); i < uint32(len(dataset)/hashWords); i++ {
		gen.item(i, item)
		for j, word := range item {
			if have := dataset[i*hashWords+uint32(j)]; have != word {
				t.Fatalf("item %d word %d mismatch: have %#x, want %#x", i, j, have, word)
			}
		}
	}
	l1 := generateL1Cache(cache)
	for i, word := range l1 {
		if dataset[i] != word {
			t.Fatalf("l1 word %d mismatch: have %#x, want %#x", i, word, dataset[i])
		}
	}
	big := make([]uint32, 4*hashWords)
	gen.item2048(3, big)
	for i := range big {
		if big[i] != dataset[3*4*hashWords+i] {
			t.Fatalf("2048 bit item word %d mismatch: have %#x, want %#x", i, big[i], dataset[3*4*hashWords+i])
		}
	}
}

func TestFnv(t *testing.T) {
	if have, want := fnv(1, 2), uint32(0x01000193^2); have != want {
		t.Fatalf("fnv mismatch: have %#x, want %#x", have, want)
	}
	if have, want := fnv1a(1, 2), uint32(3*0x01000193); have != want {
		t.Fatalf("fnv1a mismatch: have %#x, want %#x", have, want)
	}
}

func BenchmarkCacheGeneration(b *testing.B) {
	buf := make([]byte, 1<<20)
	seed := seedHash(0)
	for i := 0; i < b.N; i++ {
		generateCache(buf, 0, seed)
	}
}

func BenchmarkDatasetItem(b *testing.B) {
	buf := make([]byte, 1<<20)
	generateCache(buf, 0, seedHash(0))
	gen := newItemGenerator(cacheWords(buf))
	item := make([]uint32, 4*hashWords)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gen.item2048(uint32(i), item)
	}
}
