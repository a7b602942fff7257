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
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/r5-labs/r5-kawpow/crypto/keccak"
)

const (
	PeriodLength = 3 // Blocks sharing one random program

	lanes        = 16        // Parallel lanes coordinating the computation
	regs         = 32        // Registers per lane
	dagLoads     = 4         // Words loaded per lane from each dataset item
	cacheBytes   = 16 * 1024 // Size of the L1 cache
	cntDag       = 64        // Dataset accesses, one per round
	cntCache     = 11        // Cache accesses per round
	cntMath      = 18        // Math operations per round
	l1CacheWords = cacheBytes / 4

	fnvPrime       = 0x01000193
	fnvOffsetBasis = 0x811c9dc5
)

// kawpowPadding is the "rAVENCOINKAWPOW" marker absorbed into both Keccak-f800
// passes, one character per state word.
var kawpowPadding = [15]uint32{
	0x00000072, 0x00000041, 0x00000056, 0x00000045, 0x0000004E,
	0x00000043, 0x0000004F, 0x00000049, 0x0000004E, 0x0000004B,
	0x00000041, 0x00000057, 0x00000050, 0x0000004F, 0x00000057,
}

func fnv1a(h, d uint32) uint32 {
	return (h ^ d) * fnvPrime
}

// kiss99 is George Marsaglia's KISS99 generator. It is simple, fast and
// passes the TestU01 suite, which is all the program generator needs.
type kiss99 struct {
	z, w, jsr, jcong uint32
}

func newKiss99() *kiss99 {
	return &kiss99{z: 362436069, w: 521288629, jsr: 123456789, jcong: 380116160}
}

func (k *kiss99) next() uint32 {
	k.z = 36969*(k.z&0xffff) + (k.z >> 16)
	k.w = 18000*(k.w&0xffff) + (k.w >> 16)
	k.jcong = 69069*k.jcong + 1234567
	k.jsr ^= k.jsr << 17
	k.jsr ^= k.jsr >> 13
	k.jsr ^= k.jsr << 5
	return (((k.z << 16) + k.w) ^ k.jcong) + k.jsr
}

type cacheOp struct {
	src, dst, sel uint32
}

type mathOp struct {
	src1, src2, sel1 uint32
	dst, sel2        uint32
}

// program is the random sequence of operations executed in every round of
// the mix loop. It depends only on the period, so all nonces of a period and
// all rounds of a hash share it.
type program struct {
	period uint64
	cache  [cntCache]cacheOp
	math   [cntMath]mathOp
	dagDst [dagLoads]uint32
	dagSel [dagLoads]uint32
}

// newProgram generates the random program of a period. Registers are read
// and written through two shuffled sequences so every register is touched
// before any is reused.
func newProgram(period uint64) *program {
	var (
		lo = uint32(period)
		hi = uint32(period >> 32)
	)
	rng := &kiss99{}
	rng.z = fnv1a(fnvOffsetBasis, lo)
	rng.w = fnv1a(rng.z, hi)
	rng.jsr = fnv1a(rng.w, lo)
	rng.jcong = fnv1a(rng.jsr, hi)

	var dstSeq, srcSeq [regs]uint32
	for i := uint32(0); i < regs; i++ {
		dstSeq[i], srcSeq[i] = i, i
	}
	// Fisher-Yates shuffle of both sequences
	for i := uint32(regs); i > 1; i-- {
		j := rng.next() % i
		dstSeq[i-1], dstSeq[j] = dstSeq[j], dstSeq[i-1]
		j = rng.next() % i
		srcSeq[i-1], srcSeq[j] = srcSeq[j], srcSeq[i-1]
	}
	var dstCnt, srcCnt int
	nextDst := func() uint32 {
		dst := dstSeq[dstCnt%regs]
		dstCnt++
		return dst
	}
	nextSrc := func() uint32 {
		src := srcSeq[srcCnt%regs]
		srcCnt++
		return src
	}
	prog := &program{period: period}
	for i := 0; i < cntCache || i < cntMath; i++ {
		if i < cntCache {
			op := &prog.cache[i]
			op.src = nextSrc()
			op.dst = nextDst()
			op.sel = rng.next()
		}
		if i < cntMath {
			op := &prog.math[i]

			// Two distinct source registers
			srcRnd := rng.next() % (regs * (regs - 1))
			op.src1 = srcRnd % regs
			op.src2 = srcRnd / regs
			if op.src2 >= op.src1 {
				op.src2++
			}
			op.sel1 = rng.next()
			op.dst = nextDst()
			op.sel2 = rng.next()
		}
	}
	for i := 0; i < dagLoads; i++ {
		if i == 0 {
			prog.dagDst[i] = 0
		} else {
			prog.dagDst[i] = nextDst()
		}
		prog.dagSel[i] = rng.next()
	}
	return prog
}

// randomMath applies one of the eleven math operations picked by sel.
func randomMath(a, b, sel uint32) uint32 {
	switch sel % 11 {
	case 1:
		return a * b
	case 2:
		hi, _ := bits.Mul32(a, b)
		return hi
	case 3:
		if a < b {
			return a
		}
		return b
	case 4:
		return bits.RotateLeft32(a, int(b&31))
	case 5:
		return bits.RotateLeft32(a, -int(b&31))
	case 6:
		return a & b
	case 7:
		return a | b
	case 8:
		return a ^ b
	case 9:
		return uint32(bits.LeadingZeros32(a) + bits.LeadingZeros32(b))
	case 10:
		return uint32(bits.OnesCount32(a) + bits.OnesCount32(b))
	default:
		return a + b
	}
}

// randomMerge folds b into a, keeping entropy in a whatever b holds.
func randomMerge(a, b, sel uint32) uint32 {
	x := int((sel>>16)%31 + 1)
	switch sel % 4 {
	case 0:
		return a*33 + b
	case 1:
		return (a ^ b) * 33
	case 2:
		return bits.RotateLeft32(a, x) ^ b
	default:
		return bits.RotateLeft32(a, -x) ^ b
	}
}

type mixState [lanes][regs]uint32

// initMix fills every lane's registers from a KISS99 stream seeded with the
// hash seed and the lane index.
func initMix(seed [2]uint32) *mixState {
	var (
		mix = new(mixState)
		z   = fnv1a(fnvOffsetBasis, seed[0])
		w   = fnv1a(z, seed[1])
	)
	for l := uint32(0); l < lanes; l++ {
		jsr := fnv1a(w, l)
		rng := &kiss99{z: z, w: w, jsr: jsr, jcong: fnv1a(jsr, l)}
		for r := range mix[l] {
			mix[l][r] = rng.next()
		}
	}
	return mix
}

// lookupFn returns the 2048 bit dataset item at index as 64 words. The slice
// is only valid until the next call.
type lookupFn func(index uint32) []uint32

// round executes the program once over all lanes and merges in the dataset
// item addressed by the current mix.
func (prog *program) round(r uint32, mix *mixState, l1 []uint32, lookup lookupFn, items uint32) {
	item := lookup(mix[r%lanes][0] % items)

	for i := 0; i < cntCache || i < cntMath; i++ {
		if i < cntCache {
			op := prog.cache[i]
			for l := range mix {
				offset := mix[l][op.src] % l1CacheWords
				mix[l][op.dst] = randomMerge(mix[l][op.dst], l1[offset], op.sel)
			}
		}
		if i < cntMath {
			op := prog.math[i]
			for l := range mix {
				data := randomMath(mix[l][op.src1], mix[l][op.src2], op.sel1)
				mix[l][op.dst] = randomMerge(mix[l][op.dst], data, op.sel2)
			}
		}
	}
	for l := uint32(0); l < lanes; l++ {
		offset := ((l ^ r) % lanes) * dagLoads
		for i := uint32(0); i < dagLoads; i++ {
			dst := prog.dagDst[i]
			mix[l][dst] = randomMerge(mix[l][dst], item[offset+i], prog.dagSel[i])
		}
	}
}

// hashMix runs the ProgPoW loop for one hash seed and reduces the lanes to
// the 256 bit mix digest.
func hashMix(prog *program, seed [2]uint32, l1 []uint32, lookup lookupFn, items uint32) [8]uint32 {
	mix := initMix(seed)
	for r := uint32(0); r < cntDag; r++ {
		prog.round(r, mix, l1, lookup, items)
	}
	// Reduce mix data to a single per-lane result
	var laneHash [lanes]uint32
	for l := range mix {
		laneHash[l] = fnvOffsetBasis
		for _, word := range mix[l] {
			laneHash[l] = fnv1a(laneHash[l], word)
		}
	}
	// Reduce all lanes to a single 256-bit result
	var digest [8]uint32
	for i := range digest {
		digest[i] = fnvOffsetBasis
	}
	for l, h := range laneHash {
		digest[l%8] = fnv1a(digest[l%8], h)
	}
	return digest
}

// seedState runs the initial Keccak-f800 pass over the header hash and the
// nonce. Its first two words seed the mix, all eight are carried into the
// final pass.
func seedState(header common.Hash, nonce uint64) [8]uint32 {
	var block [keccak.StateSize800]byte
	copy(block[:], header[:])
	binary.LittleEndian.PutUint64(block[32:], nonce)
	for i, word := range kawpowPadding {
		binary.LittleEndian.PutUint32(block[40+i*4:], word)
	}
	state := keccak.Absorb800(block[:])

	var carry [8]uint32
	copy(carry[:], state[:8])
	return carry
}

// finalHash runs the closing Keccak-f800 pass over the carried seed state and
// the mix digest.
func finalHash(carry [8]uint32, mix common.Hash) common.Hash {
	var block [keccak.StateSize800]byte
	for i, word := range carry {
		binary.LittleEndian.PutUint32(block[i*4:], word)
	}
	copy(block[32:], mix[:])
	for i, word := range kawpowPadding[:9] {
		binary.LittleEndian.PutUint32(block[64+i*4:], word)
	}
	state := keccak.Absorb800(block[:])
	return common.BytesToHash(keccak.Squeeze800(&state, common.HashLength))
}

// wordsToHash flattens the mix digest words into their little-endian bytes.
func wordsToHash(words [8]uint32) common.Hash {
	var h common.Hash
	for i, word := range words {
		binary.LittleEndian.PutUint32(h[i*4:], word)
	}
	return h
}

// kawpow computes the mix digest and the final hash of a header hash and
// nonce, reading dataset items through lookup.
func kawpow(prog *program, header common.Hash, nonce uint64, l1 []uint32, lookup lookupFn, items uint32) (common.Hash, common.Hash) {
	carry := seedState(header, nonce)
	mix := wordsToHash(hashMix(prog, [2]uint32{carry[0], carry[1]}, l1, lookup, items))
	return mix, finalHash(carry, mix)
}
