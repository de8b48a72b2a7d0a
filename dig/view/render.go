package view

import (
	"encoding/hex"
	"fmt"
	"iter"
	"strings"

	"github.com/joshuapare/digkit/dig/interval"
)

const gapPreview = 16

// Render yields a line per claimed leaf in index order with gap lines
// between them. Struct leaves add one indented line per field.
func (v *View) Render() iter.Seq[string] {
	return func(yield func(string) bool) {
		for leaf, r := range v.index.Walk() {
			var lines []string
			if leaf == nil {
				lines = []string{v.gapLine(r)}
			} else {
				lines = v.leafLines(leaf)
			}
			for _, l := range lines {
				if !yield(l) {
					return
				}
			}
		}
	}
}

// RenderString joins Render into one newline-terminated string.
func (v *View) RenderString() string {
	var sb strings.Builder
	for line := range v.Render() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (v *View) span(lo, hi int) string {
	return v.FormatAddr(lo) + "-" + v.FormatAddr(hi)
}

func (v *View) gapLine(r interval.Range) string {
	line := fmt.Sprintf("%s gap (%d units)", v.span(r.Lo, r.Hi), r.Len())
	if v.unit != 8 {
		return line
	}
	b, err := v.a.Slice(r.Lo, min(r.Hi, r.Lo+gapPreview))
	if err != nil {
		return line
	}
	line += " " + hex.EncodeToString(b)
	if r.Len() > gapPreview {
		line += "..."
	}
	return line
}

func (v *View) leafLines(leaf interval.Leaf) []string {
	switch l := leaf.(type) {
	case *Struct:
		return v.structLines(l, v.span(l.lo, l.hi)+" struct "+l.Name, "  ")
	case *Field:
		if st := l.Struct(); st != nil {
			return v.structLines(st, v.span(l.lo, l.hi)+" "+l.Name+" "+l.Kind.String(), "  ")
		}
		return []string{v.span(l.lo, l.hi) + " " + v.fieldText(l)}
	default:
		return []string{fmt.Sprintf("%s %v", v.span(leaf.Lo(), leaf.Hi()), leaf)}
	}
}

func (v *View) structLines(s *Struct, header, indent string) []string {
	lines := []string{header}
	type frame struct {
		f     *Field
		depth int
	}
	stack := make([]frame, 0, len(s.fields))
	for i := len(s.fields) - 1; i >= 0; i-- {
		stack = append(stack, frame{s.fields[i], 1})
	}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pad := strings.Repeat(indent, fr.depth)
		if nested := fr.f.Struct(); nested != nil {
			lines = append(lines, fmt.Sprintf("%s%s %s %s", pad, v.FormatAddr(fr.f.lo), fr.f.Name, fr.f.Kind))
			for i := len(nested.fields) - 1; i >= 0; i-- {
				stack = append(stack, frame{nested.fields[i], fr.depth + 1})
			}
			continue
		}
		lines = append(lines, pad+v.FormatAddr(fr.f.lo)+" "+v.fieldText(fr.f))
	}
	return lines
}

func (v *View) fieldText(f *Field) string {
	name := f.Name
	if name == "" {
		name = "-"
	}
	text := fmt.Sprintf("%s %s = %s", name, f.Kind, formatValue(v, f.Value))
	if f.ptr {
		if f.target < 0 {
			text += " -> invalid"
		} else {
			text += " -> " + v.FormatAddr(f.target)
		}
		if !f.Resolved() {
			text += " (unresolved)"
		}
	}
	return text
}
