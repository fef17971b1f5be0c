// This file was automatically generated by genny.
// Any changes will be lost if this file is regenerated.
// see https://github.com/cheekybits/genny

package joy

import "serenity/src/lib/upbeat"

// maxPoolSize is the largest pool we can track with the inline bit storage.
const maxPoolSize = 64

// ProcessFixedPool is a fixed number of Process slots allocated once, when the
// pool is created.  Slots are identified by their index and handed out lowest
// index first, so callers can use the index as an identity.
type ProcessFixedPool struct {
	rawBits  [maxPoolSize / 64]uint64
	elements []Process
	bitset   *upbeat.BitSet
	num      int
	inUse    int
}

// NewProcessFixedPool returns a pool of numElements slots. It panics if the
// size is zero or larger than the pool can track.
func NewProcessFixedPool(numElements int) *ProcessFixedPool {
	if numElements <= 0 || numElements > maxPoolSize {
		panic("requested size is not valid for a fixed pool")
	}
	result := &ProcessFixedPool{
		elements: make([]Process, numElements),
		num:      numElements,
	}
	bs, err := upbeat.NewBitSet(maxPoolSize, result.rawBits[:])
	if err != nil {
		panic(err)
	}
	result.bitset = bs
	return result
}

// Alloc marks the lowest free slot in use and returns its index and a pointer
// to the (zeroed) element.  ok is false when every slot is taken.
func (g *ProcessFixedPool) Alloc() (int, *Process, bool) {
	idx, ok := g.bitset.FirstClear(uint32(g.num))
	if !ok {
		return -1, nil, false
	}
	g.bitset.Set(idx)
	g.inUse++
	var zero Process
	g.elements[idx] = zero
	return int(idx), &g.elements[idx], true
}

// Free returns the slot at index to the pool.  It reports false if the index
// is out of range or the slot was not in use.
func (g *ProcessFixedPool) Free(index int) bool {
	if !g.InUse(index) {
		return false
	}
	var zero Process
	g.elements[index] = zero
	g.bitset.Clear(upbeat.BitIndex(index))
	g.inUse--
	return true
}

// Get returns the element at index if that slot is in use.
func (g *ProcessFixedPool) Get(index int) (*Process, bool) {
	if !g.InUse(index) {
		return nil, false
	}
	return &g.elements[index], true
}

func (g *ProcessFixedPool) InUse(index int) bool {
	if index < 0 || index >= g.num {
		return false
	}
	return g.bitset.On(upbeat.BitIndex(index))
}

// Len is the number of slots currently in use.
func (g *ProcessFixedPool) Len() int {
	return g.inUse
}

// Cap is the fixed number of slots.
func (g *ProcessFixedPool) Cap() int {
	return g.num
}

func (g *ProcessFixedPool) Full() bool {
	return g.inUse == g.num
}

func (g *ProcessFixedPool) Empty() bool {
	return g.inUse == 0
}
