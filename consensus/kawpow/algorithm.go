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
	"encoding/binary"
	"math/big"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/bitutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/r5-labs/r5-kawpow/crypto/keccak"
	"golang.org/x/sync/errgroup"
)

const (
	datasetInitBytes   = 1 << 30 // Bytes in dataset at genesis
	datasetGrowthBytes = 1 << 23 // Dataset growth per epoch
	cacheInitBytes     = 1 << 24 // Bytes in cache at genesis
	cacheGrowthBytes   = 1 << 17 // Cache growth per epoch
	EpochLength        = 7500    // Blocks per epoch
	mixBytes           = 128     // Dataset sizing unit
	hashBytes          = 64      // Hash length in bytes
	hashWords          = 16      // Number of 32 bit ints in a hash
	datasetParents     = 512     // Number of parents of each dataset element
	cacheRounds        = 3       // Number of rounds in cache production
	datasetBatch       = 4096    // Dataset items generated per worker task
	seedRate           = 136     // Keccak-256 block size
)

// calcCacheSize calculates the cache size for epoch. The cache size grows
// linearly, however, we always take the highest prime below the linearly
// growing threshold in order to reduce the risk of accidental regularities
// leading to cyclic behavior.
func calcCacheSize(epoch uint64) uint64 {
	size := cacheInitBytes + cacheGrowthBytes*epoch - hashBytes
	for !new(big.Int).SetUint64(size / hashBytes).ProbablyPrime(1) { // Always accurate for n < 2^64
		size -= 2 * hashBytes
	}
	return size
}

// calcDatasetSize calculates the dataset size for epoch. The dataset size grows
// linearly, however, we always take the highest prime below the linearly
// growing threshold in order to reduce the risk of accidental regularities
// leading to cyclic behavior.
func calcDatasetSize(epoch uint64) uint64 {
	size := datasetInitBytes + datasetGrowthBytes*epoch - mixBytes
	for !new(big.Int).SetUint64(size / mixBytes).ProbablyPrime(1) { // Always accurate for n < 2^64
		size -= 2 * mixBytes
	}
	return size
}

// seedHash is the seed to use for generating a verification cache and the mining
// dataset. The value is valid for the whole epoch.
func seedHash(epoch uint64) []byte {
	seed := make([]byte, 32)
	if epoch == 0 {
		return seed
	}
	for i := 0; i < int(epoch); i++ {
		seed = nextSeed(seed)
	}
	return seed
}

// nextSeed returns the Keccak-256 digest of a 32 byte seed. The input always
// fits one block of the sponge, so the padding is laid out by hand and a single
// Keccak-f1600 pass does the hashing.
func nextSeed(seed []byte) []byte {
	var block [seedRate]byte
	copy(block[:], seed)
	block[len(seed)] = 0x01
	block[seedRate-1] |= 0x80

	state := keccak.Absorb1600(block[:])
	return keccak.Squeeze1600(&state, 32)
}

// CacheSize returns the size of the verification cache that belongs to a certain
// block height.
func CacheSize(height uint64) uint64 {
	return calcCacheSize(height / EpochLength)
}

// DatasetSize returns the size of the mining dataset that belongs to a certain
// block height.
func DatasetSize(height uint64) uint64 {
	return calcDatasetSize(height / EpochLength)
}

// SeedHash returns the seed hash of the epoch the block height belongs to.
func SeedHash(height uint64) common.Hash {
	return common.BytesToHash(seedHash(height / EpochLength))
}

// generateCache creates a verification cache of a given size for an input seed.
// The cache production process involves first sequentially filling up the whole
// buffer with chained hashes, then performing three passes of Sergio Demian Lerner's RandMemoHash
// algorithm from Strict Memory Hard Hashing Functions (2014). The output is a
// set of 64 byte values.
func generateCache(dest []byte, epoch uint64, seed []byte) {
	// Print some debug logs to allow analysis on low end devices
	logger := log.New("epoch", epoch)

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)

		logFn := logger.Debug
		if elapsed > 3*time.Second {
			logFn = logger.Info
		}
		logFn("Generated kawpow verification cache", "elapsed", common.PrettyDuration(elapsed))
	}()
	// Calculate the number of theoretical rows (we'll store in one buffer nonetheless)
	size := uint64(len(dest))
	rows := int(size) / hashBytes

	// Start a monitoring goroutine to report progress on low end devices
	var progress atomic.Uint32

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(3 * time.Second):
				logger.Info("Generating kawpow verification cache", "percentage", progress.Load()*100/uint32(rows)/(cacheRounds+1), "elapsed", common.PrettyDuration(time.Since(start)))
			}
		}
	}()
	// Create a hasher to reuse between invocations
	keccak512 := keccak.NewKeccak512Hasher()

	// Sequentially produce the initial dataset
	keccak512(dest, seed)
	for offset := uint64(hashBytes); offset < size; offset += hashBytes {
		keccak512(dest[offset:], dest[offset-hashBytes:offset])
		progress.Add(1)
	}
	// Use a low-round version of randmemohash
	temp := make([]byte, hashBytes)

	for i := 0; i < cacheRounds; i++ {
		for j := 0; j < rows; j++ {
			var (
				srcOff = ((j - 1 + rows) % rows) * hashBytes
				dstOff = j * hashBytes
				xorOff = (binary.LittleEndian.Uint32(dest[dstOff:]) % uint32(rows)) * hashBytes
			)
			bitutil.XORBytes(temp, dest[srcOff:srcOff+hashBytes], dest[xorOff:xorOff+hashBytes])
			keccak512(dest[dstOff:], temp)

			progress.Add(1)
		}
	}
}

// cacheWords decodes the little-endian cache bytes into 32 bit words so that
// item derivation does not need to shift bytes around.
func cacheWords(cache []byte) []uint32 {
	words := make([]uint32, len(cache)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(cache[i*4:])
	}
	return words
}

// fnv is an algorithm inspired by the FNV hash, which in some cases is used as
// a non-associative substitute for XOR. Note that we multiply the prime with
// the full 32-bit input, in contrast with the FNV-1 definition which multiplies the
// prime with one byte (octet) in turn.
func fnv(a, b uint32) uint32 {
	return a*fnvPrime ^ b
}

// fnvHash mixes in data into mix using the ethash fnv method.
func fnvHash(mix []uint32, data []uint32) {
	for i := 0; i < len(mix); i++ {
		mix[i] = mix[i]*fnvPrime ^ data[i]
	}
}

// itemGenerator derives dataset items from a verification cache. It owns a
// hasher and scratch buffers, so it must not be shared between goroutines.
type itemGenerator struct {
	cache     []uint32
	rows      uint32
	keccak512 keccak.Hasher
	buf       [hashBytes]byte
}

func newItemGenerator(cache []uint32) *itemGenerator {
	return &itemGenerator{
		cache:     cache,
		rows:      uint32(len(cache) / hashWords),
		keccak512: keccak.NewKeccak512Hasher(),
	}
}

// hash replaces the words of mix with their Keccak-512 digest.
func (g *itemGenerator) hash(mix *[hashWords]uint32) {
	for i, word := range mix {
		binary.LittleEndian.PutUint32(g.buf[i*4:], word)
	}
	g.keccak512(g.buf[:], g.buf[:])
	for i := range mix {
		mix[i] = binary.LittleEndian.Uint32(g.buf[i*4:])
	}
}

// item writes the 512 bit dataset item at index into dest.
func (g *itemGenerator) item(index uint32, dest []uint32) {
	var mix [hashWords]uint32

	off := (index % g.rows) * hashWords
	copy(mix[:], g.cache[off:off+hashWords])
	mix[0] ^= index
	g.hash(&mix)

	// fnv it with a lot of random cache nodes based on index
	for i := uint32(0); i < datasetParents; i++ {
		parent := fnv(index^i, mix[i%hashWords]) % g.rows
		fnvHash(mix[:], g.cache[parent*hashWords:])
	}
	g.hash(&mix)
	copy(dest[:hashWords], mix[:])
}

// item2048 writes the 2048 bit lookup item at index, made of the four
// consecutive 512 bit items starting at 4*index, into dest.
func (g *itemGenerator) item2048(index uint32, dest []uint32) {
	for i := uint32(0); i < 4; i++ {
		g.item(index*4+i, dest[i*hashWords:])
	}
}

// generateDataset generates the entire dataset used for mining.
func generateDataset(dest []uint32, epoch uint64, cache []uint32) {
	// Print some debug logs to allow analysis on low end devices
	logger := log.New("epoch", epoch)

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)

		logFn := logger.Debug
		if elapsed > 3*time.Second {
			logFn = logger.Info
		}
		logFn("Generated kawpow dataset", "elapsed", common.PrettyDuration(elapsed))
	}()
	items := uint32(len(dest) / hashWords)
	percent := items / 100
	if percent == 0 {
		percent = 1
	}
	// Generate the dataset on many goroutines since it takes a while
	var (
		group    errgroup.Group
		progress atomic.Uint32
	)
	group.SetLimit(runtime.NumCPU())

	for first := uint32(0); first < items; first += datasetBatch {
		first, limit := first, first+datasetBatch
		if limit > items {
			limit = items
		}
		group.Go(func() error {
			gen := newItemGenerator(cache)
			for index := first; index < limit; index++ {
				gen.item(index, dest[wordOffset(index, hashWords):])

				if status := progress.Add(1); status%percent == 0 {
					logger.Info("Generating DAG in progress", "percentage", uint64(status)*100/uint64(items), "elapsed", common.PrettyDuration(time.Since(start)))
				}
			}
			return nil
		})
	}
	// Item derivation cannot fail, the group only bounds the workers
	group.Wait()
}

// wordOffset returns the position of the item at index in a word slice of
// items size words long. Full datasets outgrow 32 bit word offsets.
func wordOffset(index uint32, size uint64) uint64 {
	return uint64(index) * size
}

// generateL1Cache derives the leading 16 KiB of the dataset from the
// verification cache. Both the light and the full path mix against it.
func generateL1Cache(cache []uint32) []uint32 {
	l1 := make([]uint32, l1CacheWords)
	gen := newItemGenerator(cache)
	for i := uint32(0); i < l1CacheWords/hashWords; i++ {
		gen.item(i, l1[i*hashWords:])
	}
	return l1
}
