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

// Package kawpow implements the KawPow proof-of-work algorithm.
package kawpow

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/VictoriaMetrics/fastcache"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/edsrzf/mmap-go"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/r5-labs/r5-kawpow/internal/sysstat"
	"golang.org/x/exp/slices"
)

var (
	// ErrOutOfMemory is returned when a full dataset cannot be allocated. The
	// light path keeps working, callers may fall back to it.
	ErrOutOfMemory = errors.New("insufficient memory for kawpow dataset")

	// ErrInvalidLength is returned when a byte slice argument has the wrong size.
	ErrInvalidLength = errors.New("invalid input length")
)

const (
	testCacheBytes   = 1024      // Verification cache size in test mode
	testDatasetBytes = 32 * 1024 // Dataset size in test mode
)

// epochItem is a cache or dataset kept in an epoch lru.
type epochItem interface {
	*cache | *dataset
}

// epochLRU tracks caches or datasets by their last use time, keeping at most N of them.
type epochLRU[T epochItem] struct {
	what  string
	new   func(epoch uint64) T
	mu    sync.Mutex
	limit int

	cache    lru.BasicLRU[uint64, T]
	inflight map[uint64]T       // Items not yet generated, resident or evicted
	building mapset.Set[uint64] // Epochs with a generation in flight
}

// newlru create a new least-recently-used cache for either the verification caches
// or the mining datasets.
func newlru[T epochItem](what string, maxItems int, new func(epoch uint64) T) *epochLRU[T] {
	if maxItems <= 0 {
		maxItems = 1
	}
	return &epochLRU[T]{
		what:     what,
		new:      new,
		limit:    maxItems,
		cache:    lru.NewBasicLRU[uint64, T](maxItems),
		inflight: make(map[uint64]T),
		building: mapset.NewSet[uint64](),
	}
}

// get retrieves or creates an item for the given epoch. The return value is always
// non-nil. Creating the item is cheap, the expensive generation happens outside
// of the lock. An item evicted before its generation finished is handed out
// again instead of starting a second build.
func (l *epochLRU[T]) get(epoch uint64) T {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.cache.Get(epoch)
	if !ok {
		if l.cache.Len() >= l.limit {
			if old, _, ok := l.cache.RemoveOldest(); ok {
				log.Trace("Evicted kawpow "+l.what, "epoch", old)
				evictionMeter(l.what).Mark(1)
			}
		}
		if pending, ok := l.inflight[epoch]; ok {
			log.Trace("Reusing unfinished kawpow "+l.what, "epoch", epoch)
			item = pending
		} else {
			log.Trace("Requiring new kawpow "+l.what, "epoch", epoch)
			item = l.new(epoch)
			l.inflight[epoch] = item
		}
		l.cache.Add(epoch, item)
	}
	return item
}

// generated marks the generation of an item finished, successful or not.
func (l *epochLRU[T]) generated(epoch uint64, item T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.inflight[epoch]; ok && cur == item {
		delete(l.inflight, epoch)
	}
}

// remove drops a failed item so that the next access builds it afresh. Items
// that were already replaced are left alone.
func (l *epochLRU[T]) remove(epoch uint64, item T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.cache.Peek(epoch); ok && cur == item {
		l.cache.Remove(epoch)
		log.Trace("Dropped failed kawpow "+l.what, "epoch", epoch)
	}
}

// epochs returns the resident epochs in ascending order.
func (l *epochLRU[T]) epochs() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := l.cache.Keys()
	slices.Sort(keys)
	return keys
}

func (l *epochLRU[T]) purge() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Purge()
	l.inflight = make(map[uint64]T)
}

// cache wraps a kawpow cache with some metadata to allow easier concurrent use.
type cache struct {
	epoch uint64           // Epoch for which this cache is relevant
	seed  []byte           // Seed hash of the epoch
	cache []uint32         // The actual cache data content
	l1    []uint32         // Leading 16 KiB of the dataset
	items uint32           // Number of 2048 bit lookup items of the dataset
	hot   *fastcache.Cache // Optional memo of derived lookup items
	once  sync.Once        // Ensures the cache is generated only once
}

// newCache creates a new kawpow verification cache.
func newCache(epoch uint64) *cache {
	return &cache{epoch: epoch}
}

// generate ensures that the cache content is generated before use.
func (c *cache) generate(k *KawPow) {
	c.once.Do(func() {
		k.caches.building.Add(c.epoch)
		defer k.caches.building.Remove(c.epoch)
		defer k.caches.generated(c.epoch, c)
		if k.onGenerate != nil {
			k.onGenerate("cache", c.epoch)
		}
		start := time.Now()

		size := calcCacheSize(c.epoch)
		dsize := calcDatasetSize(c.epoch)
		if k.config.PowMode == ModeTest {
			size, dsize = testCacheBytes, testDatasetBytes
		}
		c.seed = seedHash(c.epoch)

		buf := make([]byte, size)
		generateCache(buf, c.epoch, c.seed)
		c.cache = cacheWords(buf)
		c.l1 = generateL1Cache(c.cache)
		c.items = uint32(dsize / (2 * mixBytes))

		if k.config.ItemCacheSize > 0 {
			c.hot = fastcache.New(k.config.ItemCacheSize)
			runtime.SetFinalizer(c, (*cache).finalizer)
		}
		cacheGenerateTimer.UpdateSince(start)
	})
}

// finalizer drops the memoized lookup items.
func (c *cache) finalizer() {
	if c.hot != nil {
		c.hot.Reset()
		c.hot = nil
	}
}

// lookup returns a light path item source. The returned function reuses one
// buffer and must not be shared between goroutines.
func (c *cache) lookup() lookupFn {
	var (
		gen  = newItemGenerator(c.cache)
		item = make([]uint32, 4*hashWords)
		key  = make([]byte, 4)
		blob = make([]byte, 4*len(item))
	)
	return func(index uint32) []uint32 {
		if c.hot == nil {
			gen.item2048(index, item)
			return item
		}
		binary.BigEndian.PutUint32(key, index)
		if enc, ok := c.hot.HasGet(blob[:0], key); ok && len(enc) == len(blob) {
			for i := range item {
				item[i] = binary.LittleEndian.Uint32(enc[i*4:])
			}
			itemHitMeter.Mark(1)
			return item
		}
		gen.item2048(index, item)
		for i, word := range item {
			binary.LittleEndian.PutUint32(blob[i*4:], word)
		}
		c.hot.Set(key, blob)
		itemMissMeter.Mark(1)
		return item
	}
}

// dataset wraps a kawpow dataset with some metadata to allow easier concurrent use.
type dataset struct {
	epoch   uint64    // Epoch for which this cache is relevant
	mmap    mmap.MMap // Anonymous memory map holding the dataset
	dataset []uint32  // The actual dataset content
	l1      []uint32  // Leading 16 KiB of the dataset
	items   uint32    // Number of 2048 bit lookup items
	once    sync.Once // Ensures the dataset is generated only once
	done    uint32    // Atomic flag to determine generation status
	err     error     // Generation failure, set before done
}

// newDataset creates a new, not yet generated kawpow mining dataset.
func newDataset(epoch uint64) *dataset {
	return &dataset{epoch: epoch}
}

// generate ensures that the dataset content is generated before use.
func (d *dataset) generate(k *KawPow) {
	d.once.Do(func() {
		// Mark the dataset generated after we're done, failed or not
		defer atomic.StoreUint32(&d.done, 1)

		k.datasets.building.Add(d.epoch)
		defer k.datasets.building.Remove(d.epoch)
		defer k.datasets.generated(d.epoch, d)
		if k.onGenerate != nil {
			k.onGenerate("dataset", d.epoch)
		}
		logger := log.New("epoch", d.epoch)
		start := time.Now()

		dsize := calcDatasetSize(d.epoch)
		if k.config.PowMode == ModeTest {
			dsize = testDatasetBytes
		}
		if avail, err := k.availMemory(); err != nil {
			logger.Debug("Could not read available memory", "err", err)
		} else if avail < dsize {
			d.err = fmt.Errorf("%w: need %v, available %v", ErrOutOfMemory, common.StorageSize(dsize), common.StorageSize(avail))
			return
		}
		mem, err := mmap.MapRegion(nil, int(dsize), mmap.RDWR, mmap.ANON, 0)
		if err != nil {
			d.err = fmt.Errorf("%w: %v", ErrOutOfMemory, err)
			return
		}
		if k.config.DatasetsLockMmap {
			if err := mem.Lock(); err != nil {
				logger.Warn("Failed to lock kawpow dataset in memory", "err", err)
			}
		}
		// We're about to mmap, ensure that the mapping is cleaned up when the
		// dataset becomes unused.
		d.mmap = mem
		runtime.SetFinalizer(d, (*dataset).finalizer)

		// Generate the dataset straight into the mapping
		c := k.cache(d.epoch * EpochLength)
		d.dataset = unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), len(mem)/4)
		generateDataset(d.dataset, d.epoch, c.cache)
		runtime.KeepAlive(c)

		d.l1 = d.dataset[:l1CacheWords]
		d.items = uint32(dsize / (2 * mixBytes))
		datasetGenerateTimer.UpdateSince(start)
	})
}

// generated returns whether this particular dataset finished generating
// successfully (it may not have been started at all). This is useful for
// verifiers to default to verification caches instead of blocking on DAG
// generations.
func (d *dataset) generated() bool {
	return atomic.LoadUint32(&d.done) == 1 && d.err == nil
}

// finalizer unlocks and unmaps the dataset memory.
func (d *dataset) finalizer() {
	if d.mmap != nil {
		d.mmap.Unlock()
		d.mmap.Unmap()
		d.mmap, d.dataset, d.l1 = nil, nil, nil
	}
}

// lookup returns the full dataset item source.
func (d *dataset) lookup() lookupFn {
	return func(index uint32) []uint32 {
		off := wordOffset(index, 4*hashWords)
		return d.dataset[off : off+4*hashWords]
	}
}

// MakeCache generates the kawpow verification cache of the epoch the height
// belongs to and writes it to w as little-endian words.
func MakeCache(height uint64, w io.Writer) error {
	k := New(Config{CachesInMem: 1})
	defer k.Close()

	c := k.cache(height)
	defer runtime.KeepAlive(c)
	return writeWords(w, c.cache)
}

// MakeDataset generates the kawpow mining dataset of the epoch the height
// belongs to and writes it to w as little-endian words.
func MakeDataset(height uint64, w io.Writer) error {
	k := New(Config{CachesInMem: 1, DatasetsInMem: 1})
	defer k.Close()

	d, err := k.dataset(height, false)
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(d)
	return writeWords(w, d.dataset)
}

// writeWords streams words to w in little-endian chunks.
func writeWords(w io.Writer, words []uint32) error {
	buf := make([]byte, 64*1024)
	for len(words) > 0 {
		n := len(buf) / 4
		if n > len(words) {
			n = len(words)
		}
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(buf[i*4:], words[i])
		}
		if _, err := w.Write(buf[:n*4]); err != nil {
			return err
		}
		words = words[n:]
	}
	return nil
}

// Mode defines the type and amount of PoW verification a kawpow engine makes.
type Mode uint

const (
	ModeNormal Mode = iota
	ModeTest
	ModeFake
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeTest:
		return "test"
	case ModeFake:
		return "fake"
	default:
		return fmt.Sprintf("mode(%d)", uint(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case ModeNormal, ModeTest, ModeFake:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("unknown pow mode %d", uint(m))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal":
		*m = ModeNormal
	case "test":
		*m = ModeTest
	case "fake":
		*m = ModeFake
	default:
		return fmt.Errorf(`unknown pow mode %q, want "normal", "test" or "fake"`, text)
	}
	return nil
}

// Config are the configuration parameters of the kawpow engine.
type Config struct {
	CachesInMem      int  // Verification caches kept in memory
	DatasetsInMem    int  // Mining datasets kept in memory, zero disables the full path
	DatasetsLockMmap bool // Lock dataset mappings into RAM
	ItemCacheSize    int  // Bytes of light path items memoized per cache, zero disables
	PowMode          Mode

	// When set, notifications sent by the engine will use this logger.
	Log log.Logger `toml:"-"`
}

// DefaultConfig holds the production settings: the current and the previous
// epoch stay resident.
var DefaultConfig = Config{
	CachesInMem:   2,
	DatasetsInMem: 2,
}

// KawPow is an epoch-aware KawPow engine. It owns the verification caches and
// mining datasets of the recently used epochs.
type KawPow struct {
	config Config

	caches   *epochLRU[*cache]   // In memory caches to avoid regenerating too often
	datasets *epochLRU[*dataset] // In memory datasets to avoid regenerating too often

	prog     atomic.Pointer[program] // Program of the most recently hashed period
	hashrate metrics.Meter           // Meter tracking the average search hashrate

	// The fields below are hooks for testing
	fakeFail    *uint64       // Block number which fails PoW check even in fake mode
	fakeDelay   time.Duration // Time delay to sleep for before returning from verify
	onGenerate  func(what string, epoch uint64)
	availMemory func() (uint64, error) // Free memory check run before mapping a dataset

	closeOnce sync.Once // Ensures the epoch caches are purged only once
}

// New creates a full sized kawpow engine.
func New(config Config) *KawPow {
	if config.Log == nil {
		config.Log = log.Root()
	}
	if config.CachesInMem <= 0 {
		config.Log.Warn("One kawpow cache must always be in memory", "requested", config.CachesInMem)
		config.CachesInMem = 1
	}
	if config.DatasetsInMem > 0 {
		config.Log.Info("Full kawpow datasets enabled", "count", config.DatasetsInMem, "lock", config.DatasetsLockMmap)
	}
	return &KawPow{
		config:      config,
		caches:      newlru("cache", config.CachesInMem, newCache),
		datasets:    newlru("dataset", config.DatasetsInMem, newDataset),
		hashrate:    metrics.NewMeterForced(),
		availMemory: sysstat.AvailableMemory,
	}
}

// NewTester creates a small sized kawpow engine useful only for testing
// purposes. Both paths are enabled over a tiny cache and dataset.
func NewTester() *KawPow {
	return New(Config{CachesInMem: 1, DatasetsInMem: 1, PowMode: ModeTest})
}

// NewFaker creates a kawpow consensus engine with a fake PoW scheme that accepts
// all seals as valid, without checking them.
func NewFaker() *KawPow {
	return New(Config{CachesInMem: 1, PowMode: ModeFake})
}

// NewFakeFailer creates a kawpow consensus engine with a fake PoW scheme that
// accepts all seals as valid apart from the single one specified, though they
// still have to conform to the verification rules.
func NewFakeFailer(fail uint64) *KawPow {
	k := New(Config{CachesInMem: 1, PowMode: ModeFake})
	k.fakeFail = &fail
	return k
}

// NewFakeDelayer creates a kawpow consensus engine with a fake PoW scheme that
// accepts all seals as valid, but delays verifications by some time, though
// they still have to conform to the verification rules.
func NewFakeDelayer(delay time.Duration) *KawPow {
	k := New(Config{CachesInMem: 1, PowMode: ModeFake})
	k.fakeDelay = delay
	return k
}

// Close drops the resident caches and datasets. Mappings are released once no
// in-flight hash references them.
func (k *KawPow) Close() error {
	k.closeOnce.Do(func() {
		k.caches.purge()
		k.datasets.purge()
	})
	return nil
}

// cache tries to retrieve a verification cache for the specified block height
// by first checking against a list of in-memory caches, then generating it.
func (k *KawPow) cache(height uint64) *cache {
	epoch := height / EpochLength
	c := k.caches.get(epoch)
	c.generate(k)
	return c
}

// dataset tries to retrieve a mining dataset for the specified block height
// by first checking against a list of in-memory datasets, then generating it.
//
// If async is specified, generation runs on a background thread and the possibly
// unfinished dataset is returned right away.
func (k *KawPow) dataset(height uint64, async bool) (*dataset, error) {
	epoch := height / EpochLength
	d := k.datasets.get(epoch)

	if async && !d.generated() {
		go func() {
			d.generate(k)
			if d.err != nil {
				k.config.Log.Warn("Background kawpow dataset generation failed", "epoch", epoch, "err", d.err)
				k.datasets.remove(epoch, d)
			}
		}()
		return d, nil
	}
	d.generate(k)
	if d.err != nil {
		k.datasets.remove(epoch, d)
		return nil, d.err
	}
	return d, nil
}

// program returns the random program of the period the height belongs to.
func (k *KawPow) program(height uint64) *program {
	period := height / PeriodLength
	if p := k.prog.Load(); p != nil && p.period == period {
		return p
	}
	p := newProgram(period)
	k.prog.Store(p)
	return p
}

// Generating reports whether a cache or dataset of the epoch is currently
// being built.
func (k *KawPow) Generating(epoch uint64) bool {
	return k.caches.building.Contains(epoch) || k.datasets.building.Contains(epoch)
}

// Epochs returns the epochs of the resident caches and datasets.
func (k *KawPow) Epochs() (caches []uint64, datasets []uint64) {
	return k.caches.epochs(), k.datasets.epochs()
}

// Hashrate returns the measured rate of nonces searched per second.
func (k *KawPow) Hashrate() float64 {
	return k.hashrate.Rate1()
}
