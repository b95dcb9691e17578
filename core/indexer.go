package core

import (
	"github.com/bits-and-blooms/bitset"
)

// The reference parser classifies bytes with AVX2 shuffle lookups over
// two 16-entry nibble tables and tracks quote parity with a
// carry-less multiply against an all-ones operand, both per 32-byte
// SIMD lane. Go has no portable CLMUL intrinsic, so this port keeps
// the lane width and the classification tables bit-exact and replaces
// the CLMUL step with its closed-form equivalent: a running XOR
// prefix, computed in clmulPrefixParity below.

// tLow and tHigh are indexed by the low and high nibble of each input
// byte respectively. Their bitwise AND gives a per-byte class code:
// bit 4 marks a structural separator, bits 8 and 16 together mark
// whitespace-like bytes.
var tLow = [16]byte{16, 0, 0, 0, 0, 0, 0, 0, 0, 8, 10, 4, 1, 12, 0, 0}
var tHigh = [16]byte{8, 0, 17, 2, 0, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

const classSeparator = 4
const classWhitespace = 24

// classifyLane computes the quote mask, separator mask, and
// whitespace mask for one 32-byte lane.
func classifyLane(lane [32]byte) (q, s, w uint32) {
	for i := 0; i < 32; i++ {
		b := lane[i]
		if b == '"' {
			q |= 1 << uint(i)
		}
		class := tLow[b&0x0F] & tHigh[(b>>4)&0x0F]
		if class&classSeparator != 0 {
			s |= 1 << uint(i)
		}
		if class&classWhitespace != 0 {
			w |= 1 << uint(i)
		}
	}
	return q, s, w
}

// clmulPrefixParity returns the low 32 bits of a carry-less
// multiplication of mask by an all-ones operand. Bit i of the result
// is the XOR of mask's bits 0..i inclusive: the cumulative quote
// parity up to and including lane position i.
func clmulPrefixParity(mask uint32) uint32 {
	var r uint32
	var parity uint32
	for i := 0; i < 32; i++ {
		parity ^= (mask >> uint(i)) & 1
		r |= parity << uint(i)
	}
	return r
}

// appendMaskIndices appends offset+i for every set bit i of mask, low
// to high, to index.
func appendMaskIndices(index []uint32, mask uint32, offset uint32) []uint32 {
	bs := bitset.From([]uint64{uint64(mask)})
	for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
		index = append(index, offset+uint32(i))
	}
	return index
}

// BuildStructuralIndex scans buf 32 bytes at a time and returns the
// strictly increasing offsets of every separator byte that lies
// outside a string literal. With the tLow/tHigh tables above only `[`
// and `]` classify as separators; braces, commas and colons are not
// emitted. It tolerates malformed UTF-8 and unclosed strings: such
// input simply yields fewer matches downstream.
func BuildStructuralIndex(buf []byte) []uint32 {
	n := len(buf)
	index := make([]uint32, 0, n/14+256)

	var prevRCarry uint32 // 0 or 0xFFFFFFFF; toggled by XOR-complement, never by arithmetic negation
	var prevSWLast uint32 // terminal S-or-W bit carried across batches; inert for index emission but kept for parity with the reference

	offset := 0
	fastLen := n &^ 31

	for offset < fastLen {
		var lane [32]byte
		copy(lane[:], buf[offset:offset+32])

		q, s, w := classifyLane(lane)
		rLocal := clmulPrefixParity(q)
		r := rLocal ^ prevRCarry
		s = s &^ r
		sw := s | w
		_ = (sw<<1 | prevSWLast) &^ w &^ r // P: computed by the reference, never consumed downstream

		index = appendMaskIndices(index, s, uint32(offset))

		if (rLocal>>31)&1 == 1 {
			prevRCarry = ^prevRCarry
		}
		prevSWLast = (sw >> 31) & 1
		offset += 32
	}

	for offset < n {
		bytesToCopy := n - offset
		var lane [32]byte
		copy(lane[:], buf[offset:offset+bytesToCopy])

		lenMask := (uint32(1) << uint(bytesToCopy)) - 1

		q, s, w := classifyLane(lane)
		rLocal := clmulPrefixParity(q)
		r := rLocal ^ prevRCarry
		s = s &^ r
		sw := s | w
		_ = (sw<<1 | prevSWLast) &^ w &^ r
		s &= lenMask

		index = appendMaskIndices(index, s, uint32(offset))

		qMasked := q & lenMask
		rLocalMasked := clmulPrefixParity(qMasked)
		if (rLocalMasked>>31)&1 == 1 {
			prevRCarry = ^prevRCarry
		}
		prevSWLast = (sw >> uint(bytesToCopy-1)) & 1

		offset += bytesToCopy
	}

	return index
}
