package view

import (
	"fmt"
	"math"
	"strings"

	"github.com/joshuapare/digkit/dig/charset"
	"github.com/joshuapare/digkit/internal/buf"
	"github.com/joshuapare/digkit/pkg/types"
)

// ByteOrder selects how multi-byte integers are assembled.
type ByteOrder = buf.ByteOrder

const (
	BigEndian    = buf.BigEndian
	LittleEndian = buf.LittleEndian
	// MiddleEndian is PDP-11 order: little-endian 16-bit words, most
	// significant word first.
	MiddleEndian = buf.MiddleEndian
	// WordSwapped is big-endian 16-bit words, least significant word first.
	WordSwapped = buf.WordSwapped
)

// Kind decodes width units at lo. It returns the decoded value and the end
// of what it consumed, which is lo+width for every fixed-size kind.
type Kind interface {
	String() string
	Decode(v *View, lo, width int) (value any, hi int, err error)
}

// Uint is an unsigned integer. In a BitView, widths that are whole bytes
// honor Order; other widths are read most significant bit first.
type Uint struct {
	Order ByteOrder
}

func (k Uint) String() string { return "uint/" + k.Order.String() }

func (k Uint) Decode(v *View, lo, width int) (any, int, error) {
	val, err := v.uint(lo, width, k.Order)
	if err != nil {
		return nil, lo, err
	}
	return val, lo + width, nil
}

// Text is fixed-width text rendered through the view's character table.
// CharWidth is the units per character: 1 in an OctetView and 8 in a
// BitView when zero. Multi-byte characters are assembled using Order.
type Text struct {
	CharWidth int
	Order     ByteOrder
	// TrimNUL drops trailing NUL characters from the value.
	TrimNUL bool
}

func (k Text) String() string { return "text" }

func (k Text) Decode(v *View, lo, width int) (any, int, error) {
	cw := k.CharWidth
	if cw <= 0 {
		cw = 8 / v.unit
	}
	if width <= 0 || width%cw != 0 {
		return nil, lo, types.ErrBadWidth.Wrap(fmt.Errorf("text of %d units in %d-unit characters", width, cw))
	}
	if err := v.check(lo, width); err != nil {
		return nil, lo, err
	}
	n := width / cw
	codes := make([]uint32, 0, n)
	for i := range n {
		c, err := v.uint(lo+i*cw, cw, k.Order)
		if err != nil {
			return nil, lo, err
		}
		codes = append(codes, uint32(c))
	}
	if k.TrimNUL {
		for len(codes) > 0 && codes[len(codes)-1] == 0 {
			codes = codes[:len(codes)-1]
		}
	}
	return charset.Decode(v.Charset(), codes), lo + width, nil
}

// Span is an opaque run of units. In an OctetView its value is the bytes;
// in a BitView it is the bits as an integer when they fit in 64, otherwise
// the covering bytes.
type Span struct{}

func (Span) String() string { return "span" }

func (Span) Decode(v *View, lo, width int) (any, int, error) {
	if err := v.check(lo, width); err != nil {
		return nil, lo, err
	}
	if v.unit == 8 {
		b, err := v.a.Slice(lo, lo+width)
		if err != nil {
			return nil, lo, err
		}
		return b, lo + width, nil
	}
	if width <= 64 {
		val, err := v.a.Bit(lo, width)
		if err != nil {
			return nil, lo, err
		}
		return val, lo + width, nil
	}
	b, err := v.a.Slice(lo/8, (lo+width+7)/8)
	if err != nil {
		return nil, lo, err
	}
	return b, lo + width, nil
}

// Const is an integer that must hold Value, such as a magic number or a
// signature. Any other value fails with ErrConstMismatch.
type Const struct {
	Value uint64
	Order ByteOrder
}

func (k Const) String() string { return fmt.Sprintf("const/0x%x", k.Value) }

func (k Const) Decode(v *View, lo, width int) (any, int, error) {
	val, err := v.uint(lo, width, k.Order)
	if err != nil {
		return nil, lo, err
	}
	if val != k.Value {
		return val, lo, types.ErrConstMismatch.Wrap(
			fmt.Errorf("at %s: want 0x%x, got 0x%x", v.FormatAddr(lo), k.Value, val))
	}
	return val, lo + width, nil
}

// Magic is a byte string that must appear verbatim. The field width must
// equal len(Bytes). OctetView only.
type Magic struct {
	Bytes []byte
}

func (k Magic) String() string { return fmt.Sprintf("magic/%q", k.Bytes) }

func (k Magic) Decode(v *View, lo, width int) (any, int, error) {
	if v.unit != 8 || width != len(k.Bytes) {
		return nil, lo, types.ErrBadWidth.Wrap(fmt.Errorf("magic of %d bytes in %d units", len(k.Bytes), width))
	}
	if err := v.check(lo, width); err != nil {
		return nil, lo, err
	}
	b, err := v.a.Slice(lo, lo+width)
	if err != nil {
		return nil, lo, err
	}
	if string(b) != string(k.Bytes) {
		return b, lo, types.ErrConstMismatch.Wrap(fmt.Errorf("at %s: want %q, got %q", v.FormatAddr(lo), k.Bytes, b))
	}
	return b, lo + width, nil
}

// ArrayOf repeats Elem. Each element is ElemWidth units; the count is the
// field width divided by ElemWidth. The value is []*Field.
type ArrayOf struct {
	Elem      Kind
	ElemWidth int
}

func (k ArrayOf) String() string { return fmt.Sprintf("[]%s", k.Elem) }

func (k ArrayOf) Decode(v *View, lo, width int) (any, int, error) {
	if k.Elem == nil || k.ElemWidth <= 0 || width <= 0 || width%k.ElemWidth != 0 {
		return nil, lo, types.ErrBadWidth.Wrap(fmt.Errorf("array of %d units in %d-unit elements", width, k.ElemWidth))
	}
	n := width / k.ElemWidth
	if _, err := buf.CheckListBounds(v.length, lo, n, k.ElemWidth); err != nil {
		return nil, lo, types.ErrOutOfRange.Wrap(err)
	}
	elems := make([]*Field, 0, n)
	pos := lo
	for i := range n {
		f, err := v.decode(fmt.Sprintf("[%d]", i), k.Elem, pos, k.ElemWidth)
		if err != nil {
			return nil, lo, err
		}
		elems = append(elems, f)
		pos = f.hi
	}
	return elems, pos, nil
}

// Layout is a nested struct. A field width larger than the content pads the
// struct to that size; zero keeps the natural size. The value is *Struct.
type Layout struct {
	Name  string
	Specs []Spec
}

func (k Layout) String() string {
	if k.Name != "" {
		return "struct " + k.Name
	}
	names := make([]string, len(k.Specs))
	for i, s := range k.Specs {
		names[i] = s.Name
	}
	return "struct{" + strings.Join(names, ",") + "}"
}

func (k Layout) Decode(v *View, lo, width int) (any, int, error) {
	b := v.buildAt(k.Name, lo)
	for _, s := range k.Specs {
		b.Add(s.Name, s.Kind, s.Width)
	}
	st, err := b.done(width, false)
	if err != nil {
		return nil, lo, err
	}
	return st, st.hi, nil
}

// PointerTo is an integer address. The decoded value times Scale (default
// 1) plus Base is an address in the same view. When Target or Expand is set
// the address is requested from the view's discovery queue: Target decodes
// a field of TargetWidth units there and claims it, Expand hands the
// address to custom code.
type PointerTo struct {
	Order       ByteOrder
	Scale       int
	Base        int
	Target      Kind
	TargetWidth int
	TargetName  string
	Expand      func(v *View, addr int)
}

func (k PointerTo) String() string {
	if k.Target != nil {
		return "*" + k.Target.String()
	}
	return "pointer"
}

func (k PointerTo) Decode(v *View, lo, width int) (any, int, error) {
	val, err := v.uint(lo, width, k.Order)
	if err != nil {
		return nil, lo, err
	}
	return val, lo + width, nil
}

// address scales raw and adds Base. It returns -1 when the result does not
// fit in an int; such pointers are never followed.
func (k PointerTo) address(raw uint64) int {
	scale := k.Scale
	if scale == 0 {
		scale = 1
	}
	if raw > math.MaxInt {
		return -1
	}
	off, ok := buf.MulOverflowSafe(int(raw), scale)
	if !ok {
		return -1
	}
	addr, ok := buf.AddOverflowSafe(k.Base, off)
	if !ok {
		return -1
	}
	return addr
}
