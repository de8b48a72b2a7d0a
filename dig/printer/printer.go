// Package printer renders an excavation: the artifact tree, claimed-range
// views, discovered name spaces, and machine-readable manifests.
package printer

import (
	"fmt"
	"io"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/view"
)

const (
	DefaultIndentSize = 2
	DefaultMaxDepth   = 0
)

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs a human-readable tree.
	FormatText Format = "text"

	// FormatJSON outputs the manifest as JSON.
	FormatJSON Format = "json"

	// FormatCBOR outputs the manifest as deterministic CBOR.
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatCBOR:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or cbor)", s)
	}
}

// Options controls printing behavior.
type Options struct {
	// Format specifies output format.
	// Default: FormatText
	Format Format

	// IndentSize is the number of spaces per tree level (text format only).
	// Default: 2
	IndentSize int

	// MaxDepth limits how deep the artifact tree is printed (0 = unlimited).
	MaxDepth int

	// ShowNotes includes artifact notes and diagnostics.
	// Default: true
	ShowNotes bool

	// ShowDigests prints full digests instead of the short form.
	ShowDigests bool

	// ShowNameSpace prints hierarchies discovered inside artifacts.
	// Default: true
	ShowNameSpace bool
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:        FormatText,
		IndentSize:    DefaultIndentSize,
		MaxDepth:      DefaultMaxDepth,
		ShowNotes:     true,
		ShowNameSpace: true,
	}
}

// Printer writes formatted excavation output.
type Printer struct {
	opts   Options
	writer io.Writer
}

// New creates a Printer writing to w.
//
// Example:
//
//	p := printer.New(os.Stdout, printer.DefaultOptions())
//	p.PrintGraph(g)
func New(w io.Writer, opts Options) *Printer {
	if opts.IndentSize <= 0 {
		opts.IndentSize = DefaultIndentSize
	}
	if opts.Format == "" {
		opts.Format = FormatText
	}
	return &Printer{writer: w, opts: opts}
}

// PrintGraph prints every artifact reachable from the root.
func (p *Printer) PrintGraph(g *artifact.Graph) error {
	switch p.opts.Format {
	case FormatJSON:
		return WriteJSON(p.writer, BuildManifest(g))
	case FormatCBOR:
		return WriteCBOR(p.writer, BuildManifest(g))
	default:
		return p.printGraphText(g)
	}
}

// PrintView prints the claimed ranges and gaps of one view.
func (p *Printer) PrintView(v *view.View) error {
	a := v.Artifact()
	if _, err := fmt.Fprintf(p.writer, "%s\n", p.artifactLine(a, nil)); err != nil {
		return err
	}
	indent := p.indent(1)
	for line := range v.Render() {
		if _, err := fmt.Fprintf(p.writer, "%s%s\n", indent, line); err != nil {
			return err
		}
	}
	if un := v.Unresolved(); len(un) > 0 {
		if _, err := fmt.Fprintf(p.writer, "%s%d unresolved pointers\n", indent, len(un)); err != nil {
			return err
		}
	}
	return nil
}

// PrintNameSpace prints a discovered hierarchy, one component per line.
func (p *Printer) PrintNameSpace(ns *artifact.NameSpace) error {
	var werr error
	ns.Walk(func(n *artifact.NameSpace, depth int) bool {
		if werr != nil {
			return false
		}
		if depth == 0 && n.Name() == "" {
			return true
		}
		line := p.indent(depth) + n.Name()
		if a := n.Artifact(); a != nil {
			line += fmt.Sprintf(" -> #%d", a.ID())
		}
		_, werr = fmt.Fprintln(p.writer, line)
		return p.opts.MaxDepth == 0 || depth < p.opts.MaxDepth
	})
	return werr
}
