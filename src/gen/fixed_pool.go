package gen

import (
	"github.com/cheekybits/genny/generic"

	"serenity/src/lib/upbeat"
)

//go:generate genny -in=$GOFILE -out=../joy/family_pool.go -pkg=joy gen "Generic=Process"

type Generic generic.Type

// maxPoolSize is the largest pool we can track with the inline bit storage.
const maxPoolSize = 64

// GenericFixedPool is a fixed number of Generic slots allocated once, when the
// pool is created.  Slots are identified by their index and handed out lowest
// index first, so callers can use the index as an identity.
type GenericFixedPool struct {
	rawBits  [maxPoolSize / 64]uint64
	elements []Generic
	bitset   *upbeat.BitSet
	num      int
	inUse    int
}

// NewGenericFixedPool returns a pool of numElements slots. It panics if the
// size is zero or larger than the pool can track.
func NewGenericFixedPool(numElements int) *GenericFixedPool {
	if numElements <= 0 || numElements > maxPoolSize {
		panic("requested size is not valid for a fixed pool")
	}
	result := &GenericFixedPool{
		elements: make([]Generic, numElements),
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
func (g *GenericFixedPool) Alloc() (int, *Generic, bool) {
	idx, ok := g.bitset.FirstClear(uint32(g.num))
	if !ok {
		return -1, nil, false
	}
	g.bitset.Set(idx)
	g.inUse++
	var zero Generic
	g.elements[idx] = zero
	return int(idx), &g.elements[idx], true
}

// Free returns the slot at index to the pool.  It reports false if the index
// is out of range or the slot was not in use.
func (g *GenericFixedPool) Free(index int) bool {
	if !g.InUse(index) {
		return false
	}
	var zero Generic
	g.elements[index] = zero
	g.bitset.Clear(upbeat.BitIndex(index))
	g.inUse--
	return true
}

// Get returns the element at index if that slot is in use.
func (g *GenericFixedPool) Get(index int) (*Generic, bool) {
	if !g.InUse(index) {
		return nil, false
	}
	return &g.elements[index], true
}

func (g *GenericFixedPool) InUse(index int) bool {
	if index < 0 || index >= g.num {
		return false
	}
	return g.bitset.On(upbeat.BitIndex(index))
}

// Len is the number of slots currently in use.
func (g *GenericFixedPool) Len() int {
	return g.inUse
}

// Cap is the fixed number of slots.
func (g *GenericFixedPool) Cap() int {
	return g.num
}

func (g *GenericFixedPool) Full() bool {
	return g.inUse == g.num
}

func (g *GenericFixedPool) Empty() bool {
	return g.inUse == 0
}
