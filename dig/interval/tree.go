package interval

import (
	"fmt"
	"iter"
	"sort"

	"github.com/joshuapare/digkit/pkg/types"
)

// Leaf is one claimed interval. Implementations carry their own payload
// (a parsed field, a struct, a sentinel); the tree only needs the bounds.
type Leaf interface {
	Lo() int
	Hi() int
}

// Range is a half-open address range [Lo,Hi).
type Range struct {
	Lo, Hi int
}

// Len returns Hi - Lo.
func (r Range) Len() int { return r.Hi - r.Lo }

func (r Range) String() string { return fmt.Sprintf("[0x%x,0x%x)", r.Lo, r.Hi) }

// Overlap records that an inserted leaf intersects a leaf already in the
// tree. Lo and Hi bound the intersection.
type Overlap struct {
	Owner    string // label of the tree, typically the artifact's short digest
	Lo, Hi   int
	Existing Leaf
	Inserted Leaf
}

func (o Overlap) String() string {
	return fmt.Sprintf("%s overlap [0x%x,0x%x) existing [0x%x,0x%x) inserted [0x%x,0x%x)",
		o.Owner, o.Lo, o.Hi, o.Existing.Lo(), o.Existing.Hi(), o.Inserted.Lo(), o.Inserted.Hi())
}

// entry pairs a leaf with its insertion sequence number.
type entry struct {
	leaf Leaf
	seq  uint64
}

type node struct {
	lo, mid, hi int
	less, more  *node
	cuts        []entry
	bucket      bool
}

func newNode(lo, hi, minWidth int) *node {
	n := &node{lo: lo, hi: hi, mid: lo + (hi-lo)/2}
	n.bucket = hi-lo < minWidth || hi-lo < 2
	return n
}

// Tree is an interval tree over [lo,hi).
type Tree struct {
	root     *node
	minWidth int
	seq      uint64
	count    int
	owner    string
}

// New creates a tree covering [lo,hi). minWidth <= 0 selects
// types.DefaultMinBranchWidth.
//
// Nodes narrower than minWidth are flat buckets, and Insert scans every leaf
// in the buckets it touches to report overlaps. With the default width a
// densely claimed region (a long chain of small records) costs O(n) per
// insert; pass a minWidth near the typical record size for such artifacts.
func New(lo, hi, minWidth int) *Tree {
	if minWidth <= 0 {
		minWidth = types.DefaultMinBranchWidth
	}
	if hi < lo {
		hi = lo
	}
	return &Tree{
		root:     newNode(lo, hi, minWidth),
		minWidth: minWidth,
	}
}

// SetOwner labels the tree; the label is copied into every Overlap.
func (t *Tree) SetOwner(owner string) { t.owner = owner }

// Bounds returns the address space covered by the tree.
func (t *Tree) Bounds() Range { return Range{t.root.lo, t.root.hi} }

// Len returns the number of leaves in the tree.
func (t *Tree) Len() int { return t.count }

// Insert adds leaf to the tree and reports every existing leaf it
// intersects. Empty leaves and leaves outside the tree's bounds are rejected
// with ErrOutOfRange; overlapping leaves never are.
func (t *Tree) Insert(leaf Leaf) ([]Overlap, error) {
	lo, hi := leaf.Lo(), leaf.Hi()
	if hi <= lo {
		return nil, types.ErrOutOfRange.Wrap(fmt.Errorf("empty leaf [%d,%d)", lo, hi))
	}
	if lo < t.root.lo || hi > t.root.hi {
		return nil, types.ErrOutOfRange.Wrap(fmt.Errorf("leaf [%d,%d) outside tree [%d,%d)",
			lo, hi, t.root.lo, t.root.hi))
	}

	var overlaps []Overlap
	for existing := range t.Find(lo, hi) {
		overlaps = append(overlaps, Overlap{
			Owner:    t.owner,
			Lo:       max(lo, existing.Lo()),
			Hi:       min(hi, existing.Hi()),
			Existing: existing,
			Inserted: leaf,
		})
	}

	n := t.root
descend:
	for !n.bucket {
		switch {
		case hi <= n.mid:
			if n.less == nil {
				n.less = newNode(n.lo, n.mid, t.minWidth)
			}
			n = n.less
		case lo >= n.mid:
			if n.more == nil {
				n.more = newNode(n.mid, n.hi, t.minWidth)
			}
			n = n.more
		default:
			break descend
		}
	}
	t.seq++
	n.cuts = append(n.cuts, entry{leaf: leaf, seq: t.seq})
	t.count++
	return overlaps, nil
}

// Find yields every leaf intersecting [lo,hi), in no particular order.
func (t *Tree) Find(lo, hi int) iter.Seq[Leaf] {
	return func(yield func(Leaf) bool) {
		for _, e := range t.find(lo, hi) {
			if !yield(e.leaf) {
				return
			}
		}
	}
}

// find collects intersecting entries using an explicit stack.
func (t *Tree) find(lo, hi int) []entry {
	if hi <= lo {
		return nil
	}
	var out []entry
	stack := []*node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range n.cuts {
			if e.leaf.Lo() < hi && e.leaf.Hi() > lo {
				out = append(out, e)
			}
		}
		if n.bucket {
			continue
		}
		if n.more != nil && hi > n.mid {
			stack = append(stack, n.more)
		}
		if n.less != nil && lo < n.mid {
			stack = append(stack, n.less)
		}
	}
	return out
}

// At returns the earliest inserted leaf containing addr.
func (t *Tree) At(addr int) (Leaf, bool) {
	var best entry
	for _, e := range t.find(addr, addr+1) {
		if best.leaf == nil || e.seq < best.seq {
			best = e
		}
	}
	return best.leaf, best.leaf != nil
}

// Covers reports whether every address in [lo,hi) is inside some leaf.
func (t *Tree) Covers(lo, hi int) bool {
	entries := t.find(lo, hi)
	sortEntries(entries)
	pos := lo
	for _, e := range entries {
		if e.leaf.Lo() > pos {
			return false
		}
		pos = max(pos, e.leaf.Hi())
		if pos >= hi {
			return true
		}
	}
	return pos >= hi
}

// All returns every leaf ordered by (lo asc, hi asc, insertion order).
func (t *Tree) All() []Leaf {
	entries := t.entries()
	out := make([]Leaf, len(entries))
	for i, e := range entries {
		out[i] = e.leaf
	}
	return out
}

// Gaps returns the ranges of the tree's address space not covered by any
// leaf, in ascending order.
func (t *Tree) Gaps() []Range {
	return complement(t.root.lo, t.root.hi, t.entries())
}

// Walk yields every leaf in All order interleaved with the gaps between them.
// For a gap, leaf is nil and gap holds the range.
func (t *Tree) Walk() iter.Seq2[Leaf, Range] {
	return func(yield func(Leaf, Range) bool) {
		entries := t.entries()
		pos := t.root.lo
		for _, e := range entries {
			if lo := e.leaf.Lo(); lo > pos {
				if !yield(nil, Range{pos, lo}) {
					return
				}
			}
			if !yield(e.leaf, Range{e.leaf.Lo(), e.leaf.Hi()}) {
				return
			}
			pos = max(pos, e.leaf.Hi())
		}
		if pos < t.root.hi {
			yield(nil, Range{pos, t.root.hi})
		}
	}
}

// entries returns every entry in sorted order.
func (t *Tree) entries() []entry {
	out := make([]entry, 0, t.count)
	stack := []*node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n.cuts...)
		if n.less != nil {
			stack = append(stack, n.less)
		}
		if n.more != nil {
			stack = append(stack, n.more)
		}
	}
	sortEntries(out)
	return out
}

func sortEntries(es []entry) {
	sort.Slice(es, func(i, j int) bool {
		a, b := es[i].leaf, es[j].leaf
		if a.Lo() != b.Lo() {
			return a.Lo() < b.Lo()
		}
		if a.Hi() != b.Hi() {
			return a.Hi() < b.Hi()
		}
		return es[i].seq < es[j].seq
	})
}

// complement returns the holes in [lo,hi) left by sorted entries.
func complement(lo, hi int, sorted []entry) []Range {
	var gaps []Range
	pos := lo
	for _, e := range sorted {
		if l := e.leaf.Lo(); l > pos {
			gaps = append(gaps, Range{pos, l})
		}
		pos = max(pos, e.leaf.Hi())
	}
	if pos < hi {
		gaps = append(gaps, Range{pos, hi})
	}
	return gaps
}
