package view

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/charset"
	"github.com/joshuapare/digkit/dig/interval"
	"github.com/joshuapare/digkit/dig/queue"
	"github.com/joshuapare/digkit/internal/buf"
	"github.com/joshuapare/digkit/pkg/types"
)

// View is a cursor over one artifact.
type View struct {
	a        *artifact.Artifact
	unit     int // bits per address
	length   int
	index    *interval.Tree
	cur      int
	charset  charset.Table
	queue    *queue.Queue[int]
	pointers []*Field
	log      *slog.Logger
}

// NewOctetView returns a byte-addressed view of a.
func NewOctetView(a *artifact.Artifact) *View {
	return newView(a, 8, a.Len(), a.Index())
}

// NewBitView returns a bit-addressed view of a.
func NewBitView(a *artifact.Artifact) *View {
	return newView(a, 1, a.Source().BitLen(), a.BitIndex())
}

func newView(a *artifact.Artifact, unit, length int, index *interval.Tree) *View {
	q := queue.NewAddressQueue()
	q.SetLimit(a.Graph().Options().Limits.MaxPointerChain)
	return &View{
		a:      a,
		unit:   unit,
		length: length,
		index:  index,
		queue:  q,
		log:    a.Logger(),
	}
}

// Artifact returns the artifact being viewed.
func (v *View) Artifact() *artifact.Artifact { return v.a }

// Unit returns the bits per address: 8 for an OctetView, 1 for a BitView.
func (v *View) Unit() int { return v.unit }

// Len returns the view length in units.
func (v *View) Len() int { return v.length }

// Index returns the interval tree the view claims into.
func (v *View) Index() *interval.Tree { return v.index }

// Pos returns the cursor.
func (v *View) Pos() int { return v.cur }

// Seek moves the cursor to addr.
func (v *View) Seek(addr int) error {
	if addr < 0 || addr > v.length {
		return types.ErrOutOfRange.Wrap(fmt.Errorf("seek to %d of %d", addr, v.length))
	}
	v.cur = addr
	return nil
}

// Skip advances the cursor by n units.
func (v *View) Skip(n int) error { return v.Seek(v.cur + n) }

// Charset returns the character table text fields decode through.
func (v *View) Charset() charset.Table {
	if v.charset != nil {
		return v.charset
	}
	return v.a.Charset()
}

// SetCharset overrides the artifact's character table for this view.
func (v *View) SetCharset(t charset.Table) { v.charset = t }

// Field decodes one field at the cursor and advances past it. The field is
// not claimed.
func (v *View) Field(kind Kind, width int) (*Field, error) {
	f, err := v.decode("", kind, v.cur, width)
	if err != nil {
		return nil, err
	}
	v.cur = f.hi
	return f, nil
}

// FieldAt decodes one field at addr without moving the cursor.
func (v *View) FieldAt(addr int, kind Kind, width int) (*Field, error) {
	return v.decode("", kind, addr, width)
}

// Array decodes count fields of kind at the cursor, each width units.
func (v *View) Array(count int, kind Kind, width int) ([]*Field, error) {
	if count <= 0 || width <= 0 {
		return nil, types.ErrBadWidth.Wrap(fmt.Errorf("array of %d x %d", count, width))
	}
	end, err := buf.CheckListBounds(v.length, v.cur, count, width)
	if err != nil {
		return nil, types.ErrOutOfRange.Wrap(fmt.Errorf("array of %d x %d: %w", count, width, err))
	}
	f, err := v.Field(ArrayOf{Elem: kind, ElemWidth: width}, end-v.cur)
	if err != nil {
		return nil, err
	}
	return f.Elems(), nil
}

// Pointer decodes a width-unit address at the cursor and, when target is
// non-nil, requests that a target field be decoded and claimed there.
// Target kinds that need a width get one from PointerTo.TargetWidth; use
// Field with a PointerTo for that.
func (v *View) Pointer(width int, order ByteOrder, target Kind) (*Field, error) {
	return v.Field(PointerTo{Order: order, Target: target}, width)
}

// Struct decodes specs at the cursor as one struct and advances past it.
func (v *View) Struct(name string, specs ...Spec) (*Struct, error) {
	b := v.Build(name)
	for _, s := range specs {
		b.Add(s.Name, s.Kind, s.Width)
	}
	return b.Done(0)
}

// StructAt decodes specs at addr without moving the cursor.
func (v *View) StructAt(addr int, name string, specs ...Spec) (*Struct, error) {
	b := v.buildAt(name, addr)
	for _, s := range specs {
		b.Add(s.Name, s.Kind, s.Width)
	}
	return b.done(0, false)
}

// Insert claims leaf in the artifact's index and returns the leaves it
// overlaps. A leaf outside the view is noted on the artifact.
func (v *View) Insert(leaf interval.Leaf) []interval.Overlap {
	var (
		overlaps []interval.Overlap
		err      error
	)
	if v.unit == 8 {
		overlaps, err = v.a.Claim(leaf)
	} else {
		overlaps, err = v.a.ClaimBits(leaf)
	}
	if err != nil {
		v.a.Note(err.Error())
	}
	return overlaps
}

// Pointers returns every pointer field decoded through this view.
func (v *View) Pointers() []*Field { return v.pointers }

// Unresolved returns the pointer fields whose target address holds no
// claimed leaf.
func (v *View) Unresolved() []*Field {
	var out []*Field
	for _, p := range v.pointers {
		if !p.Resolved() {
			out = append(out, p)
		}
	}
	return out
}

// Queue returns the view's discovery queue of pointer target addresses.
func (v *View) Queue() *queue.Queue[int] { return v.queue }

// Request asks for expand to run once for addr, through the view's
// discovery queue.
func (v *View) Request(addr int, expand func(v *View, addr int)) {
	before := v.queue.Dropped()
	v.queue.Request(addr, func(addr int) { expand(v, addr) })
	if v.queue.Dropped() > before {
		v.a.Notef("pointer chain limit reached; %s not expanded", v.FormatAddr(addr))
	}
}

// FormatAddr renders addr in the view's unit: hex bytes for an OctetView,
// byte.bit for a BitView.
func (v *View) FormatAddr(addr int) string {
	if v.unit == 8 {
		return fmt.Sprintf("0x%0*x", v.addrDigits(), addr)
	}
	return fmt.Sprintf("0x%0*x.%d", v.addrDigits(), addr/8, addr%8)
}

func (v *View) addrDigits() int {
	n := v.length
	if v.unit == 1 {
		n = (n + 7) / 8
	}
	d := 1
	for n >= 16 {
		n /= 16
		d++
	}
	return d
}

func (v *View) check(lo, width int) error {
	if width <= 0 {
		return types.ErrBadWidth.Wrap(fmt.Errorf("width %d", width))
	}
	hi, ok := buf.AddOverflowSafe(lo, width)
	if !ok || lo < 0 || hi > v.length {
		return types.ErrOutOfRange.Wrap(fmt.Errorf("[%d,%d) of %d units", lo, hi, v.length))
	}
	return nil
}

// uint reads width units at lo as an unsigned integer.
func (v *View) uint(lo, width int, order ByteOrder) (uint64, error) {
	if err := v.check(lo, width); err != nil {
		return 0, err
	}
	if v.unit == 8 {
		return v.a.Uint(lo, width, order)
	}
	if width > 64 {
		return 0, types.ErrBadWidth.Wrap(fmt.Errorf("%d bits", width))
	}
	val, err := v.a.Bit(lo, width)
	if err != nil {
		return 0, err
	}
	if order == BigEndian || width%8 != 0 || width == 8 {
		return val, nil
	}
	n := width / 8
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(val)
		val >>= 8
	}
	out, ok := buf.Uint(b, order)
	if !ok {
		return 0, types.ErrBadWidth.Wrap(fmt.Errorf("%d bits in %s order", width, order))
	}
	return out, nil
}

// decode runs kind at lo and wraps the result in a Field. Pointer fields
// are registered with the discovery queue here so nested pointers (inside
// arrays and layouts) are followed too.
func (v *View) decode(name string, kind Kind, lo, width int) (*Field, error) {
	if kind == nil {
		return nil, &types.Error{Kind: types.ErrKindUsage, Msg: "nil field kind"}
	}
	val, hi, err := kind.Decode(v, lo, width)
	if err != nil {
		if name != "" {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		return nil, err
	}
	f := &Field{Name: name, Kind: kind, Value: val, lo: lo, hi: hi, view: v}
	if p, ok := kind.(PointerTo); ok {
		f.ptr = true
		f.target = p.address(f.Uint())
		v.follow(f, p)
	}
	return f, nil
}

func (v *View) follow(f *Field, p PointerTo) {
	v.pointers = append(v.pointers, f)
	if p.Target == nil && p.Expand == nil {
		return
	}
	if f.target < 0 || f.target >= v.length {
		v.log.Debug("pointer target outside view", "field", f.Name, "target", f.target)
		return
	}
	v.Request(f.target, func(v *View, addr int) {
		if p.Expand != nil {
			p.Expand(v, addr)
			return
		}
		name := p.TargetName
		if name == "" {
			name = "*" + v.FormatAddr(addr)
		}
		tf, err := v.decode(name, p.Target, addr, p.TargetWidth)
		if err != nil {
			v.a.Notef("pointer %s -> %s: %v", v.FormatAddr(f.lo), v.FormatAddr(addr), err)
			return
		}
		v.Insert(tf)
	})
}
