// Package buf contains bounds-checked slicing and byte-order decoding helpers
// shared by the byte sources and structured views.
package buf

import "fmt"

// ByteOrder selects how the bytes of a multi-byte unsigned integer are
// assembled. Historical media use all four of these.
type ByteOrder uint8

const (
	// BigEndian stores the most significant byte first.
	BigEndian ByteOrder = iota
	// LittleEndian stores the least significant byte first.
	LittleEndian
	// MiddleEndian stores 16-bit words most significant first with the
	// bytes inside each word swapped (PDP-11 style): 0x0A0B0C0D is
	// stored as 0B 0A 0D 0C.
	MiddleEndian
	// WordSwapped stores 16-bit words least significant first with the
	// bytes inside each word big-endian: 0x0A0B0C0D is stored as
	// 0C 0D 0A 0B.
	WordSwapped
)

// MaxUintBytes is the widest integer Uint can assemble.
const MaxUintBytes = 8

func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "be"
	case LittleEndian:
		return "le"
	case MiddleEndian:
		return "me"
	case WordSwapped:
		return "ws"
	default:
		return fmt.Sprintf("order(%d)", uint8(o))
	}
}

// Uint assembles b (1..8 bytes) into an unsigned integer using order.
// Mixed orders need an even number of bytes; a trailing odd byte is
// rejected. Returns ok = false for unsupported widths.
func Uint(b []byte, order ByteOrder) (uint64, bool) {
	n := len(b)
	if n == 0 || n > MaxUintBytes {
		return 0, false
	}

	var v uint64
	switch order {
	case BigEndian:
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
	case LittleEndian:
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
	case MiddleEndian:
		if n%2 != 0 {
			return 0, false
		}
		for i := 0; i < n; i += 2 {
			v = v<<16 | uint64(b[i+1])<<8 | uint64(b[i])
		}
	case WordSwapped:
		if n%2 != 0 {
			return 0, false
		}
		for i := n - 2; i >= 0; i -= 2 {
			v = v<<16 | uint64(b[i])<<8 | uint64(b[i+1])
		}
	default:
		return 0, false
	}
	return v, true
}

// Bits extracts width bits (1..64) starting at bit offset off, numbering
// bits most significant first across byte boundaries. Returns ok = false
// when the range falls outside b or width is unsupported.
func Bits(b []byte, off, width int) (uint64, bool) {
	if off < 0 || width <= 0 || width > 64 {
		return 0, false
	}
	end, ok := AddOverflowSafe(off, width)
	if !ok || end > len(b)*8 {
		return 0, false
	}

	var v uint64
	pos := off
	for pos < end {
		byteIdx := pos / 8
		bitIdx := pos % 8
		avail := 8 - bitIdx
		take := min(avail, end-pos)
		// Bits [bitIdx, bitIdx+take) of this byte, MSB first.
		chunk := (uint64(b[byteIdx]) >> (avail - take)) & (1<<take - 1)
		v = v<<take | chunk
		pos += take
	}
	return v, true
}
