package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/digkit/dig/artifact"
)

func (p *Printer) indent(depth int) string {
	return strings.Repeat(" ", depth*p.opts.IndentSize)
}

func (p *Printer) digest(a *artifact.Artifact) string {
	if p.opts.ShowDigests {
		return a.Digest().String()
	}
	return a.Digest().Short()
}

// artifactLine formats one artifact. slice is the range it occupies in the
// parent it is printed under, if any.
func (p *Printer) artifactLine(a *artifact.Artifact, slice *artifact.Child) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d", a.ID())
	if slice != nil {
		fmt.Fprintf(&sb, " [0x%x-0x%x)", slice.Start, slice.Stop)
	}
	fmt.Fprintf(&sb, " %s %s %s", a.Label(), humanize.Bytes(uint64(a.Len())), p.digest(a))
	if tags := a.Tags(); len(tags) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(tags, ","))
	}
	if by := a.ExaminedBy(); by != "" {
		fmt.Fprintf(&sb, " (%s)", by)
	}
	return sb.String()
}

func sliceOf(parent artifact.Node, child *artifact.Artifact) *artifact.Child {
	pa, ok := parent.(*artifact.Artifact)
	if !ok {
		return nil
	}
	for _, s := range pa.Slices() {
		if s.Artifact == child {
			return &s
		}
	}
	return nil
}

// printGraphText walks the DAG depth-first with an explicit stack. An
// artifact reachable through several parents is printed in full once and
// referenced afterwards.
func (p *Printer) printGraphText(g *artifact.Graph) error {
	root := g.Root()
	if _, err := fmt.Fprintf(p.writer, "%s (%d artifacts)\n", root.Label(), g.Len()); err != nil {
		return err
	}

	type frame struct {
		parent artifact.Node
		a      *artifact.Artifact
		depth  int
	}
	var stack []frame
	push := func(parent artifact.Node, depth int) {
		kids := parent.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{parent, kids[i], depth})
		}
	}
	push(root, 1)

	printed := make(map[artifact.ID]bool, g.Len())
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		indent := p.indent(f.depth)
		line := p.artifactLine(f.a, sliceOf(f.parent, f.a))
		if printed[f.a.ID()] {
			if _, err := fmt.Fprintf(p.writer, "%s%s (see above)\n", indent, line); err != nil {
				return err
			}
			continue
		}
		printed[f.a.ID()] = true
		if _, err := fmt.Fprintf(p.writer, "%s%s\n", indent, line); err != nil {
			return err
		}
		if err := p.printDetails(f.a, f.depth+1); err != nil {
			return err
		}
		if p.opts.MaxDepth > 0 && f.depth >= p.opts.MaxDepth {
			continue
		}
		push(f.a, f.depth+1)
	}

	if !p.opts.ShowNotes {
		return nil
	}
	if report := Diagnostics(g); len(report.Diagnostics) > 0 {
		sum := report.Summary
		_, err := fmt.Fprintf(p.writer, "diagnostics: %d critical, %d errors, %d warnings, %d info\n",
			sum.Critical, sum.Errors, sum.Warnings, sum.Info)
		return err
	}
	return nil
}

func (p *Printer) printDetails(a *artifact.Artifact, depth int) error {
	indent := p.indent(depth)
	if p.opts.ShowNotes {
		for _, n := range a.Notes() {
			if _, err := fmt.Fprintf(p.writer, "%snote: %s\n", indent, n); err != nil {
				return err
			}
		}
		for _, d := range a.Diagnostics() {
			if _, err := fmt.Fprintf(p.writer, "%s%s\n", indent, d.String()); err != nil {
				return err
			}
		}
	}
	if ns := a.NameSpace(); p.opts.ShowNameSpace && ns != nil {
		if _, err := fmt.Fprintf(p.writer, "%snamespace (%d entries):\n", indent, ns.Len()); err != nil {
			return err
		}
		sub := &Printer{opts: p.opts, writer: &prefixWriter{w: p.writer, prefix: indent}}
		return sub.PrintNameSpace(ns)
	}
	return nil
}

// prefixWriter indents every line written through it.
type prefixWriter struct {
	w      io.Writer
	prefix string
}

func (pw *prefixWriter) Write(b []byte) (int, error) {
	lines := strings.SplitAfter(string(b), "\n")
	for _, l := range lines {
		if l == "" {
			continue
		}
		if _, err := pw.w.Write([]byte(pw.prefix + l)); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}
