package view

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Spec names one field of a struct layout. Order in a list of Specs is the
// wire order.
type Spec struct {
	Name  string
	Kind  Kind
	Width int
}

// F builds a Spec.
func F(name string, kind Kind, width int) Spec {
	return Spec{Name: name, Kind: kind, Width: width}
}

// Field is one decoded value and the range it came from.
type Field struct {
	Name  string
	Kind  Kind
	Value any

	lo, hi int
	view   *View
	target int  // pointer target address
	ptr    bool // Kind is PointerTo
}

func (f *Field) Lo() int { return f.lo }
func (f *Field) Hi() int { return f.hi }

// Width returns the number of units the field spans.
func (f *Field) Width() int { return f.hi - f.lo }

// Uint returns an integer value, or 0 for other kinds.
func (f *Field) Uint() uint64 {
	v, _ := f.Value.(uint64)
	return v
}

// Text returns a text value, or "" for other kinds.
func (f *Field) Text() string {
	s, _ := f.Value.(string)
	return s
}

// Bytes returns a span value, or nil for other kinds.
func (f *Field) Bytes() []byte {
	b, _ := f.Value.([]byte)
	return b
}

// Elems returns the elements of an array field.
func (f *Field) Elems() []*Field {
	e, _ := f.Value.([]*Field)
	return e
}

// Struct returns the value of a nested layout field.
func (f *Field) Struct() *Struct {
	s, _ := f.Value.(*Struct)
	return s
}

// IsPointer reports whether the field decodes an address.
func (f *Field) IsPointer() bool { return f.ptr }

// Target returns the address a pointer field names.
func (f *Field) Target() (int, bool) { return f.target, f.ptr }

// Resolved reports whether a pointer's target address holds a claimed leaf.
func (f *Field) Resolved() bool {
	if !f.ptr || f.target < 0 || f.target >= f.view.Len() {
		return false
	}
	_, ok := f.view.index.At(f.target)
	return ok
}

func (f *Field) String() string {
	return fmt.Sprintf("%s = %s", f.Name, formatValue(f.view, f.Value))
}

func formatValue(v *View, val any) string {
	switch x := val.(type) {
	case uint64:
		return fmt.Sprintf("0x%x", x)
	case string:
		return `"` + x + `"`
	case []byte:
		const preview = 16
		if len(x) > preview {
			return hex.EncodeToString(x[:preview]) + fmt.Sprintf("... (%d bytes)", len(x))
		}
		return hex.EncodeToString(x)
	case []*Field:
		const preview = 8
		parts := make([]string, 0, min(len(x), preview)+1)
		for i, e := range x {
			if i == preview {
				parts = append(parts, fmt.Sprintf("... (%d elements)", len(x)))
				break
			}
			parts = append(parts, formatValue(v, e.Value))
		}
		return "[" + strings.Join(parts, " ") + "]"
	case *Struct:
		return "{" + x.Name + "}"
	case nil:
		return "<nil>"
	default:
		return fmt.Sprint(x)
	}
}

// Struct is an ordered, named list of contiguous fields.
type Struct struct {
	Name   string
	lo, hi int
	fields []*Field
	byName map[string]*Field
}

func (s *Struct) Lo() int { return s.lo }
func (s *Struct) Hi() int { return s.hi }

// Width returns the number of units the struct spans, padding included.
func (s *Struct) Width() int { return s.hi - s.lo }

// Fields returns the fields in wire order.
func (s *Struct) Fields() []*Field { return s.fields }

// Get returns the named field.
func (s *Struct) Get(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Uint returns the named integer field, or 0.
func (s *Struct) Uint(name string) uint64 {
	if f, ok := s.byName[name]; ok {
		return f.Uint()
	}
	return 0
}

// Text returns the named text field, or "".
func (s *Struct) Text(name string) string {
	if f, ok := s.byName[name]; ok {
		return f.Text()
	}
	return ""
}

func (s *Struct) add(f *Field) {
	s.fields = append(s.fields, f)
	if f.Name != "" {
		if s.byName == nil {
			s.byName = make(map[string]*Field)
		}
		if _, dup := s.byName[f.Name]; !dup {
			s.byName[f.Name] = f
		}
	}
}
