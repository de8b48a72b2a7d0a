package view

import (
	"fmt"

	"github.com/joshuapare/digkit/pkg/types"
)

// Builder decodes a struct one field at a time, so later fields can depend
// on earlier ones (a length prefix, a type tag). The first error sticks and
// makes every later call a no-op.
type Builder struct {
	v     *View
	s     *Struct
	pos   int
	err   error
	owned bool // advance the view cursor on Done
}

// Build starts a struct at the cursor.
func (v *View) Build(name string) *Builder {
	b := v.buildAt(name, v.cur)
	b.owned = true
	return b
}

func (v *View) buildAt(name string, lo int) *Builder {
	return &Builder{v: v, s: &Struct{Name: name, lo: lo, hi: lo}, pos: lo}
}

// Add decodes the next field.
func (b *Builder) Add(name string, kind Kind, width int) *Builder {
	if b.err != nil {
		return b
	}
	f, err := b.v.decode(name, kind, b.pos, width)
	if err != nil {
		b.err = err
		return b
	}
	b.s.add(f)
	b.pos = f.hi
	return b
}

// Pad skips width units, recording them as an anonymous span.
func (b *Builder) Pad(width int) *Builder {
	return b.Add("", Span{}, width)
}

// Get returns a field decoded so far.
func (b *Builder) Get(name string) (*Field, bool) { return b.s.Get(name) }

// Uint returns an integer field decoded so far, or 0.
func (b *Builder) Uint(name string) uint64 { return b.s.Uint(name) }

// Pos returns the address the next field will be decoded at.
func (b *Builder) Pos() int { return b.pos }

// Size returns the units decoded so far.
func (b *Builder) Size() int { return b.pos - b.s.lo }

// Err returns the first error.
func (b *Builder) Err() error { return b.err }

// Done finishes the struct. A positive pad is the struct's total size:
// content shorter than pad is padded with an anonymous span, content longer
// than pad fails with ErrShortStruct, and a pad running past the end of the
// artifact fails with ErrOverlongStruct. Both are noted on the artifact.
// On success the cursor moves past the struct; on failure it stays where
// the struct started.
func (b *Builder) Done(pad int) (*Struct, error) {
	return b.done(pad, b.owned)
}

func (b *Builder) done(pad int, advance bool) (*Struct, error) {
	if b.err != nil {
		return nil, b.err
	}
	size := b.Size()
	if pad > 0 {
		switch {
		case pad < size:
			err := types.ErrShortStruct.Wrap(fmt.Errorf("%s: %d units of content, pad %d", b.s.Name, size, pad))
			b.v.a.Note(err.Error())
			return nil, err
		case b.s.lo+pad > b.v.length:
			err := types.ErrOverlongStruct.Wrap(fmt.Errorf("%s: pad %d at %s passes end %s",
				b.s.Name, pad, b.v.FormatAddr(b.s.lo), b.v.FormatAddr(b.v.length)))
			b.v.a.Note(err.Error())
			return nil, err
		case pad > size:
			b.Pad(pad - size)
			if b.err != nil {
				return nil, b.err
			}
		}
	}
	b.s.hi = b.pos
	if advance {
		b.v.cur = b.s.hi
	}
	return b.s, nil
}
