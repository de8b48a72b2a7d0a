package source

import (
	"fmt"
	"sort"

	"github.com/joshuapare/digkit/internal/buf"
	"github.com/joshuapare/digkit/pkg/types"
)

// Fragment is one borrowed piece of a scatter-gather source. Lo and Hi are
// the fragment's position in the merged view; Key is an opaque label from
// the medium (for example a cylinder/head/sector triple).
type Fragment struct {
	Lo, Hi int
	Key    any
	Data   []byte
}

// Len returns Hi - Lo.
func (f Fragment) Len() int { return f.Hi - f.Lo }

// Source holds the bytes of one artifact.
type Source struct {
	frags  []Fragment // always at least one; a plain buffer is one fragment
	length int

	merged  []byte // contiguous view; aliases frags[0].Data for plain buffers
	digest  Digest
	hashed  bool
	records []Record
}

// New wraps b as a single-buffer source. The source takes ownership of b;
// callers must not modify it afterwards.
func New(b []byte) (*Source, error) {
	if len(b) == 0 {
		return nil, types.ErrEmptyInput
	}
	return &Source{
		frags:  []Fragment{{Lo: 0, Hi: len(b), Data: b}},
		length: len(b),
		merged: b,
	}, nil
}

// Concat builds a scatter-gather source from borrowed pieces. Only each
// piece's Data and Key are used; positions in the merged view are assigned
// in order so the fragments are contiguous with no gaps or overlaps.
// Zero-length pieces are skipped.
func Concat(pieces ...Fragment) (*Source, error) {
	frags := make([]Fragment, 0, len(pieces))
	pos := 0
	for _, p := range pieces {
		if len(p.Data) == 0 {
			continue
		}
		next, ok := buf.AddOverflowSafe(pos, len(p.Data))
		if !ok {
			return nil, fmt.Errorf("concat: %w", types.ErrOutOfRange)
		}
		frags = append(frags, Fragment{Lo: pos, Hi: next, Key: p.Key, Data: p.Data})
		pos = next
	}
	if pos == 0 {
		return nil, types.ErrEmptyInput
	}
	s := &Source{frags: frags, length: pos}
	if len(frags) == 1 {
		s.merged = frags[0].Data
	}
	return s, nil
}

// Len returns the number of bytes in the source.
func (s *Source) Len() int { return s.length }

// BitLen returns the number of bits in the source.
func (s *Source) BitLen() int { return s.length * 8 }

// Fragments returns the pieces backing the source in order. A plain buffer
// returns a single fragment. The slice must not be modified.
func (s *Source) Fragments() []Fragment { return s.frags }

// IsScattered reports whether the source is built from more than one fragment.
func (s *Source) IsScattered() bool { return len(s.frags) > 1 }

// Bytes returns a contiguous view of the whole source. For scatter-gather
// sources the first call assembles (and caches) a copy.
func (s *Source) Bytes() []byte {
	if s.merged == nil {
		out := make([]byte, 0, s.length)
		for _, f := range s.frags {
			out = append(out, f.Data...)
		}
		s.merged = out
	}
	return s.merged
}

// Slice returns bytes [lo,hi). The result aliases the backing storage when
// the range lies inside one fragment and must be treated as read-only.
func (s *Source) Slice(lo, hi int) ([]byte, error) {
	if err := buf.CheckRange(lo, hi, s.length); err != nil {
		return nil, types.ErrOutOfRange.Wrap(err)
	}
	if s.merged != nil {
		return s.merged[lo:hi:hi], nil
	}
	i := s.fragmentAt(lo)
	f := s.frags[i]
	if b, ok := buf.Slice(f.Data, lo-f.Lo, hi-lo); ok {
		return b, nil
	}
	out := make([]byte, 0, hi-lo)
	for pos := lo; pos < hi; i++ {
		f = s.frags[i]
		end := min(hi, f.Hi)
		out = append(out, f.Data[pos-f.Lo:end-f.Lo]...)
		pos = end
	}
	return out, nil
}

// Byte returns the byte at off.
func (s *Source) Byte(off int) (byte, error) {
	if off < 0 || off >= s.length {
		return 0, types.ErrOutOfRange.Wrap(fmt.Errorf("byte %d of %d", off, s.length))
	}
	if s.merged != nil {
		return s.merged[off], nil
	}
	f := s.frags[s.fragmentAt(off)]
	return f.Data[off-f.Lo], nil
}

// Bit returns width bits (1..64) starting at bit address lo. Bits are
// numbered most significant first and the range may cross byte boundaries.
func (s *Source) Bit(lo, width int) (uint64, error) {
	if width <= 0 || width > 64 {
		return 0, types.ErrBadWidth.Wrap(fmt.Errorf("%d bits", width))
	}
	hi, ok := buf.AddOverflowSafe(lo, width)
	if !ok || lo < 0 || hi > s.BitLen() {
		return 0, types.ErrOutOfRange.Wrap(fmt.Errorf("bits [%d,%d) of %d", lo, hi, s.BitLen()))
	}
	firstByte := lo / 8
	lastByte := (hi + 7) / 8
	b, err := s.Slice(firstByte, lastByte)
	if err != nil {
		return 0, err
	}
	v, _ := buf.Bits(b, lo-firstByte*8, width)
	return v, nil
}

// Uint decodes width bytes at lo using order.
func (s *Source) Uint(lo, width int, order buf.ByteOrder) (uint64, error) {
	if width <= 0 || width > buf.MaxUintBytes {
		return 0, types.ErrBadWidth.Wrap(fmt.Errorf("%d bytes", width))
	}
	b, err := s.Slice(lo, lo+width)
	if err != nil {
		return 0, err
	}
	v, ok := buf.Uint(b, order)
	if !ok {
		return 0, types.ErrBadWidth.Wrap(fmt.Errorf("%d bytes in %s order", width, order))
	}
	return v, nil
}

// Digest returns the BLAKE3-256 hash of the content, computed on first use.
func (s *Source) Digest() Digest {
	if !s.hashed {
		if s.merged != nil {
			s.digest = Sum(s.merged)
		} else {
			s.digest = sumFragments(s.frags)
		}
		s.hashed = true
	}
	return s.digest
}

// fragmentAt returns the index of the fragment containing off.
// off must be within [0, Len()).
func (s *Source) fragmentAt(off int) int {
	return sort.Search(len(s.frags), func(i int) bool { return s.frags[i].Hi > off })
}
