// Package interval tracks which ranges of an artifact have been claimed by a
// structural interpretation.
//
// # Overview
//
// Tree is a binary interval tree over a fixed address space [lo,hi). Each
// node splits its range at the midpoint. A leaf that fits entirely in one
// half descends into it; a leaf that straddles the midpoint stays at that
// node in its "cuts" list. Nodes narrower than the minimum branch width do
// not split further and keep everything in one flat bucket, so small
// artifacts cost one slice and large ones get logarithmic fan-out.
//
// Addresses are plain ints in whatever unit the caller uses (bytes for
// octet views, bits for bit views).
//
// # Overlaps
//
// Insert never rejects a leaf because it overlaps another. Every existing
// leaf that intersects the new one is reported back as an Overlap, and both
// leaves stay in the tree:
//
//	overlaps, err := tree.Insert(field)
//	for _, o := range overlaps {
//	    log.Debug("overlap", "lo", o.Lo, "hi", o.Hi, "existing", o.Existing)
//	}
//
// Range queries (Find) return every intersecting leaf. Point queries (At)
// return the earliest inserted leaf containing the address.
//
// # Ordering and gaps
//
// All returns leaves ordered by start address, narrower before wider at the
// same start (so nested structures come out inner-first), then by insertion
// order. Gaps returns the complement of the claimed ranges across the
// tree's address space; together with the leaves it covers [lo,hi) exactly.
//
// # Thread Safety
//
// Trees are not safe for concurrent use. An artifact's tree has a single
// writer: the examiner currently processing that artifact.
package interval
