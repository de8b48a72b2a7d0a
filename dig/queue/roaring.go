package queue

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/RoaringBitmap/roaring/roaring64"
)

// AddressSet is a Set of non-negative addresses backed by a 64-bit roaring
// bitmap. Pointer targets cluster in runs, which roaring compresses well.
type AddressSet struct {
	bm *roaring64.Bitmap
}

// NewAddressSet returns an empty AddressSet.
func NewAddressSet() *AddressSet { return &AddressSet{bm: roaring64.New()} }

func (s *AddressSet) Add(k int)           { s.bm.Add(uint64(k)) }
func (s *AddressSet) Contains(k int) bool { return k >= 0 && s.bm.Contains(uint64(k)) }
func (s *AddressSet) Len() int            { return int(s.bm.GetCardinality()) }

// Bitmap exposes the underlying bitmap.
func (s *AddressSet) Bitmap() *roaring64.Bitmap { return s.bm }

// NewAddressQueue returns a queue of addresses backed by an AddressSet.
func NewAddressQueue() *Queue[int] {
	return NewWithSet[int](NewAddressSet())
}

// IDSet is a Set of 32-bit identifiers backed by a roaring bitmap. K may be
// any named type over uint32.
type IDSet[K ~uint32] struct {
	bm *roaring.Bitmap
}

// NewIDSet returns an empty IDSet.
func NewIDSet[K ~uint32]() *IDSet[K] { return &IDSet[K]{bm: roaring.New()} }

func (s *IDSet[K]) Add(k K)           { s.bm.Add(uint32(k)) }
func (s *IDSet[K]) Contains(k K) bool { return s.bm.Contains(uint32(k)) }
func (s *IDSet[K]) Len() int          { return int(s.bm.GetCardinality()) }

// Bitmap exposes the underlying bitmap.
func (s *IDSet[K]) Bitmap() *roaring.Bitmap { return s.bm }
