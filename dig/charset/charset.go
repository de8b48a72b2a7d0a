// Package charset maps character codes found in excavated media to printable
// glyphs.
//
// Old media rarely speaks ASCII. Mainframe tapes use EBCDIC, PDP-10 dumps
// pack six-bit characters, and DOS disks carry code pages. A Table is
// attached to an artifact (and inherited by its children) so text fields
// decode in the character set the medium was written in. Tables must render
// every code, printable or not, so rendering never fails.
package charset

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

// Table converts one character code into its display form.
type Table interface {
	Glyph(code uint32) string
}

// Func adapts a plain function to Table.
type Func func(code uint32) string

// Glyph calls f(code).
func (f Func) Glyph(code uint32) string { return f(code) }

// Escape renders a code that has no printable glyph.
func Escape(code uint32) string {
	if code <= 0xff {
		return fmt.Sprintf("\\x%02x", code)
	}
	return fmt.Sprintf("\\u%04x", code)
}

func printable(r rune, code uint32) string {
	if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
		return Escape(code)
	}
	return string(r)
}

// ASCII renders 7-bit printable ASCII and escapes everything else. It is the
// default table.
var ASCII Table = Func(func(code uint32) string {
	if code >= 0x20 && code < 0x7f {
		return string(rune(code))
	}
	return Escape(code)
})

// SIXBIT is DEC six-bit character code: 0..63 map to ASCII 0x20..0x5f.
var SIXBIT Table = Func(func(code uint32) string {
	if code < 64 {
		return string(rune(0x20 + code))
	}
	return Escape(code)
})

// Charmap wraps a single-byte x/text code page.
type Charmap struct {
	cm *charmap.Charmap
}

// FromCharmap returns a Table for cm.
func FromCharmap(cm *charmap.Charmap) Charmap { return Charmap{cm: cm} }

func (c Charmap) Glyph(code uint32) string {
	if code > 0xff {
		return Escape(code)
	}
	return printable(c.cm.DecodeByte(byte(code)), code)
}

// String returns the code page name.
func (c Charmap) String() string { return c.cm.String() }

var (
	// EBCDIC is IBM code page 037 (US/Canada).
	EBCDIC Table = FromCharmap(charmap.CodePage037)
	// Windows1252 is the Western European Windows code page.
	Windows1252 Table = FromCharmap(charmap.Windows1252)
	// Latin1 is ISO-8859-1.
	Latin1 Table = FromCharmap(charmap.ISO8859_1)
	// CP437 is the original IBM PC code page.
	CP437 Table = FromCharmap(charmap.CodePage437)
)

var byName = map[string]Table{
	"ascii":       ASCII,
	"sixbit":      SIXBIT,
	"ebcdic":      EBCDIC,
	"cp037":       EBCDIC,
	"cp437":       CP437,
	"windows1252": Windows1252,
	"latin1":      Latin1,
	"iso8859-1":   Latin1,
}

// ByName looks a table up by a case-insensitive name such as "ebcdic" or
// "latin1".
func ByName(name string) (Table, error) {
	t, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown charset %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// Names lists the names ByName accepts.
func Names() []string {
	out := make([]string, 0, len(byName))
	for n := range byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Decode renders a run of codes through t.
func Decode(t Table, codes []uint32) string {
	if t == nil {
		t = ASCII
	}
	var sb strings.Builder
	for _, c := range codes {
		sb.WriteString(t.Glyph(c))
	}
	return sb.String()
}

// DecodeBytes renders one byte per code through t.
func DecodeBytes(t Table, b []byte) string {
	if t == nil {
		t = ASCII
	}
	var sb strings.Builder
	for _, c := range b {
		sb.WriteString(t.Glyph(uint32(c)))
	}
	return sb.String()
}
