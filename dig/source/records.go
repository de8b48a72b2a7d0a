package source

import (
	"fmt"
	"sort"

	"github.com/joshuapare/digkit/internal/buf"
	"github.com/joshuapare/digkit/pkg/types"
)

// Record is a caller-registered addressing unit on a source, such as one
// disk sector. Records carry no structural meaning; they let examiners find
// "sector (c,h,s)" without recomputing geometry.
type Record struct {
	Lo, Hi int
	Key    any
}

// Len returns Hi - Lo.
func (r Record) Len() int { return r.Hi - r.Lo }

// CHS is a conventional record key for cylinder/head/sector geometry.
type CHS struct {
	Cylinder, Head, Sector int
}

func (c CHS) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Cylinder, c.Head, c.Sector)
}

// SetRecords registers the geometry of the source, replacing any previous
// registration. Records must be non-empty, in bounds, sorted by Lo and must
// not overlap; they need not cover the whole source. Keys must be
// comparable if Record lookups by key are used.
func (s *Source) SetRecords(recs []Record) error {
	prevHi := 0
	for i, r := range recs {
		if r.Hi <= r.Lo {
			return fmt.Errorf("record %d: %w", i, types.ErrEmptyInput)
		}
		if err := buf.CheckRange(r.Lo, r.Hi, s.length); err != nil {
			return fmt.Errorf("record %d: %w", i, types.ErrOutOfRange.Wrap(err))
		}
		if r.Lo < prevHi {
			return fmt.Errorf("record %d at %d overlaps previous ending at %d: %w",
				i, r.Lo, prevHi, types.ErrOutOfRange)
		}
		prevHi = r.Hi
	}
	s.records = append([]Record(nil), recs...)
	return nil
}

// FixedRecords registers records of size bytes covering the source from
// offset 0, keyed by their index. A short trailing remainder becomes a final,
// smaller record.
func (s *Source) FixedRecords(size int) error {
	if size <= 0 {
		return types.ErrBadWidth.Wrap(fmt.Errorf("record size %d", size))
	}
	recs := make([]Record, 0, (s.length+size-1)/size)
	for lo, n := 0, 0; lo < s.length; lo, n = lo+size, n+1 {
		recs = append(recs, Record{Lo: lo, Hi: min(lo+size, s.length), Key: n})
	}
	return s.SetRecords(recs)
}

// Records returns the registered records in address order.
func (s *Source) Records() []Record { return s.records }

// Record returns the first record whose key equals key.
func (s *Source) Record(key any) (Record, bool) {
	for _, r := range s.records {
		if r.Key == key {
			return r, true
		}
	}
	return Record{}, false
}

// RecordAt returns the record containing address off.
func (s *Source) RecordAt(off int) (Record, bool) {
	i := sort.Search(len(s.records), func(i int) bool { return s.records[i].Hi > off })
	if i < len(s.records) && s.records[i].Lo <= off {
		return s.records[i], true
	}
	return Record{}, false
}

// RecordFragments returns the byte ranges of the records with the given keys,
// in the order given, as Fragments ready for Concat. This is the usual way to
// reassemble a file from the sectors named by a directory entry.
func (s *Source) RecordFragments(keys ...any) ([]Fragment, error) {
	out := make([]Fragment, 0, len(keys))
	for _, k := range keys {
		r, ok := s.Record(k)
		if !ok {
			return nil, fmt.Errorf("record %v: %w", k, types.ErrOutOfRange)
		}
		b, err := s.Slice(r.Lo, r.Hi)
		if err != nil {
			return nil, err
		}
		out = append(out, Fragment{Lo: r.Lo, Hi: r.Hi, Key: r.Key, Data: b})
	}
	return out, nil
}
