package upbeat

import (
	"fmt"
)

type BitSet struct {
	size uint32
	data []uint64
}

type BitIndex uint32

//bitsets have to be multiples of 64.  the storage provided should be at
//least size/64 words long; it is cleared before use.
func NewBitSet(size uint32, storage []uint64) (*BitSet, error) {
	mask := ^(uint32(0x3f))
	if size&mask != size {
		return nil, fmt.Errorf("bitset size is not a multiple of 64: %d", size)
	}
	if uint32(len(storage)) < size>>6 {
		return nil, fmt.Errorf("bitset storage too small for %d bits: %d words", size, len(storage))
	}
	result := &BitSet{
		data: storage[:size>>6],
		size: size,
	}
	result.ClearAll()
	return result, nil
}

func (b *BitSet) Size() uint32 {
	return b.size
}

func (b *BitSet) On(bit BitIndex) bool {
	boff := bit >> 6                //which uint64
	mask := uint64(1) << (bit % 64) //which bit in that word
	return b.data[boff]&mask != 0
}

func (b *BitSet) Set(bit BitIndex) {
	boff := bit >> 6
	mask := uint64(1) << (bit % 64)
	b.data[boff] |= mask
}

func (b *BitSet) Clear(bit BitIndex) {
	boff := bit >> 6
	mask := ^(uint64(1) << (bit % 64))
	b.data[boff] &= mask
}

func (b *BitSet) ClearAll() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// FirstClear returns the lowest clear bit below limit, or false if every bit
// in [0,limit) is set.
func (b *BitSet) FirstClear(limit uint32) (BitIndex, bool) {
	if limit > b.size {
		limit = b.size
	}
	for i := uint32(0); i < limit; i++ {
		if !b.On(BitIndex(i)) {
			return BitIndex(i), true
		}
	}
	return 0, false
}
