package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative values, returning ok = false when
// either is negative or the product would overflow int.
// This is essential for count * elementWidth calculations in array layouts.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CheckListBounds validates that count elements of elementSize units fit in a
// space of spaceLen units starting at offset. Returns the end offset if valid,
// or an error describing the specific failure (overflow or out of bounds).
//
//	end, err := buf.CheckListBounds(length, lo, count, width)
//	if err != nil {
//	    return fmt.Errorf("array: %w", err)
//	}
func CheckListBounds(spaceLen, offset, count, elementSize int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative offset: %d", offset)
	}
	if count < 0 {
		return 0, fmt.Errorf("negative count: %d", count)
	}
	if elementSize < 0 {
		return 0, fmt.Errorf("negative element size: %d", elementSize)
	}

	totalSize, ok := MulOverflowSafe(count, elementSize)
	if !ok {
		return 0, fmt.Errorf("overflow: count=%d * elemSize=%d", count, elementSize)
	}

	endOffset, ok := AddOverflowSafe(offset, totalSize)
	if !ok {
		return 0, fmt.Errorf("overflow: offset=%d + size=%d", offset, totalSize)
	}

	if endOffset > spaceLen {
		return 0, fmt.Errorf("bounds: end=%d > len=%d", endOffset, spaceLen)
	}

	return endOffset, nil
}

// CheckRange reports whether [lo,hi) is a valid range within [0,n).
// Empty ranges (lo == hi) are valid here; callers that reject them do so
// explicitly.
func CheckRange(lo, hi, n int) error {
	switch {
	case lo < 0:
		return fmt.Errorf("negative start: %d", lo)
	case hi < lo:
		return fmt.Errorf("inverted range: [%d,%d)", lo, hi)
	case hi > n:
		return fmt.Errorf("bounds: end=%d > len=%d", hi, n)
	}
	return nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}
