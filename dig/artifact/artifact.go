package artifact

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/joshuapare/digkit/dig/charset"
	"github.com/joshuapare/digkit/dig/interval"
	"github.com/joshuapare/digkit/dig/source"
	"github.com/joshuapare/digkit/internal/buf"
	"github.com/joshuapare/digkit/pkg/types"
)

// Artifact is one content-addressed blob in the graph. Its bytes never
// change; only its tags, notes, names and claims grow as examiners learn
// more about it.
type Artifact struct {
	graph  *Graph
	id     ID
	src    *source.Source
	digest source.Digest

	parents  []Node
	children []*Artifact
	slices   []Child

	tags  map[string]struct{}
	notes []string
	names []string
	diags []types.Diagnostic

	charset   charset.Table
	namespace *NameSpace

	index    *interval.Tree
	bitIndex *interval.Tree

	taken      bool
	examinedBy string
}

func (a *Artifact) Kind() Kind { return KindArtifact }
func (a *Artifact) ID() ID     { return a.id }

// Label returns the artifact's first name, or its short digest.
func (a *Artifact) Label() string {
	if len(a.names) > 0 {
		return a.names[0]
	}
	return a.digest.Short()
}

func (a *Artifact) String() string {
	return fmt.Sprintf("#%d %s (%d bytes)", a.id, a.Label(), a.Len())
}

// Graph returns the graph that owns a.
func (a *Artifact) Graph() *Graph { return a.graph }

// Logger returns the graph logger annotated with the artifact.
func (a *Artifact) Logger() *slog.Logger {
	return a.graph.log.With("artifact", a.id, "digest", a.digest.Short())
}

// Digest returns the content digest.
func (a *Artifact) Digest() source.Digest { return a.digest }

// Source returns the backing byte source.
func (a *Artifact) Source() *source.Source { return a.src }

// Len returns the content length in bytes.
func (a *Artifact) Len() int { return a.src.Len() }

// Bytes returns the whole content.
func (a *Artifact) Bytes() []byte { return a.src.Bytes() }

// Slice returns content[lo:hi) without copying where possible.
func (a *Artifact) Slice(lo, hi int) ([]byte, error) { return a.src.Slice(lo, hi) }

// Uint decodes an unsigned integer of width bytes at off.
func (a *Artifact) Uint(off, width int, order buf.ByteOrder) (uint64, error) {
	return a.src.Uint(off, width, order)
}

// Bit decodes width bits starting at bit offset lo.
func (a *Artifact) Bit(lo, width int) (uint64, error) { return a.src.Bit(lo, width) }

// Parents returns every node a is reachable from, in discovery order.
func (a *Artifact) Parents() []Node { return a.parents }

// Children returns every artifact derived from or created under a.
func (a *Artifact) Children() []*Artifact { return a.children }

// Slices returns the (start, stop, child) triples recorded on a.
func (a *Artifact) Slices() []Child { return a.slices }

// Tag adds type tags such as "gzip" or "regf".
func (a *Artifact) Tag(tags ...string) {
	if a.tags == nil {
		a.tags = make(map[string]struct{}, len(tags))
	}
	for _, t := range tags {
		if t != "" {
			a.tags[t] = struct{}{}
		}
	}
}

// HasTag reports whether tag was added.
func (a *Artifact) HasTag(tag string) bool {
	_, ok := a.tags[tag]
	return ok
}

// Tags returns the tags in sorted order.
func (a *Artifact) Tags() []string {
	out := make([]string, 0, len(a.tags))
	for t := range a.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Note records a free-form observation. Repeated notes are kept once.
func (a *Artifact) Note(msg string) { a.notes = appendUnique(a.notes, msg) }

// Notef formats and records a note.
func (a *Artifact) Notef(format string, args ...any) { a.Note(fmt.Sprintf(format, args...)) }

// Notes returns the notes in the order they were first recorded.
func (a *Artifact) Notes() []string { return a.notes }

// AddName records a name the artifact is known by (a file name, a
// description given at ingestion).
func (a *Artifact) AddName(name string) { a.names = appendUnique(a.names, name) }

// Names returns every name in the order it was first recorded.
func (a *Artifact) Names() []string { return a.names }

// Diagnose attaches a structured diagnostic.
func (a *Artifact) Diagnose(d types.Diagnostic) {
	a.diags = append(a.diags, d)
	a.Logger().Debug("diagnostic", "severity", d.Severity.String(), "issue", d.Issue, "offset", d.Offset)
}

// Diagnostics returns every diagnostic attached to a.
func (a *Artifact) Diagnostics() []types.Diagnostic { return a.diags }

// Charset returns the character table used to render text in a. Artifacts
// inherit their first parent's table at creation; the default is ASCII.
func (a *Artifact) Charset() charset.Table {
	if a.charset == nil {
		return charset.ASCII
	}
	return a.charset
}

// SetCharset overrides the character table.
func (a *Artifact) SetCharset(t charset.Table) { a.charset = t }

// NameSpace returns the hierarchy discovered inside a, if any.
func (a *Artifact) NameSpace() *NameSpace { return a.namespace }

// SetNameSpace attaches a discovered hierarchy.
func (a *Artifact) SetNameSpace(ns *NameSpace) { a.namespace = ns }

// Take marks a as claimed by the running examiner. An examiner may call Take
// instead of returning true.
func (a *Artifact) Take() { a.taken = true }

// Taken reports whether an examiner claimed a.
func (a *Artifact) Taken() bool { return a.taken }

// ExaminedBy returns the name of the examiner that claimed a.
func (a *Artifact) ExaminedBy() string { return a.examinedBy }

// Index returns the byte-granular interval tree of claimed ranges.
func (a *Artifact) Index() *interval.Tree {
	if a.index == nil {
		a.index = interval.New(0, a.Len(), a.graph.opts.MinBranchWidth)
		a.index.SetOwner(a.digest.Short())
	}
	return a.index
}

// BitIndex returns the bit-granular interval tree of claimed ranges.
func (a *Artifact) BitIndex() *interval.Tree {
	if a.bitIndex == nil {
		a.bitIndex = interval.New(0, a.src.BitLen(), a.graph.opts.MinBranchWidth*8)
		a.bitIndex.SetOwner(a.digest.Short())
	}
	return a.bitIndex
}

// Claim inserts leaf into the byte index and logs any overlaps.
func (a *Artifact) Claim(leaf interval.Leaf) ([]interval.Overlap, error) {
	return a.claim(a.Index(), leaf)
}

// ClaimBits inserts leaf into the bit index and logs any overlaps.
func (a *Artifact) ClaimBits(leaf interval.Leaf) ([]interval.Overlap, error) {
	return a.claim(a.BitIndex(), leaf)
}

func (a *Artifact) claim(t *interval.Tree, leaf interval.Leaf) ([]interval.Overlap, error) {
	overlaps, err := t.Insert(leaf)
	if err != nil {
		return nil, fmt.Errorf("claim [%d,%d) in %s: %w", leaf.Lo(), leaf.Hi(), a.digest.Short(), err)
	}
	for _, o := range overlaps {
		a.graph.log.Debug("overlapping claim",
			"artifact", a.id,
			"lo", o.Lo, "hi", o.Hi,
			"existing_lo", o.Existing.Lo(), "existing_hi", o.Existing.Hi())
	}
	return overlaps, nil
}

// Derive is shorthand for a.Graph().Derive(a, start, stop).
func (a *Artifact) Derive(start, stop int) (*Artifact, error) {
	return a.graph.Derive(a, start, stop)
}

// DeriveFragments is shorthand for a.Graph().DeriveFragments(a, ranges).
func (a *Artifact) DeriveFragments(ranges []interval.Range) (*Artifact, error) {
	return a.graph.DeriveFragments(a, ranges)
}

// Create is shorthand for a.Graph().Create(a, data, description).
func (a *Artifact) Create(data []byte, description string) (*Artifact, error) {
	return a.graph.Create(a, data, description)
}

func (a *Artifact) addParent(p Node) bool {
	for _, q := range a.parents {
		if q == p {
			return false
		}
	}
	a.parents = append(a.parents, p)
	return true
}

func (a *Artifact) addChild(c *Artifact) {
	for _, x := range a.children {
		if x == c {
			return
		}
	}
	a.children = append(a.children, c)
}

func (a *Artifact) addSlice(start, stop int, c *Artifact) {
	for _, s := range a.slices {
		if s.Start == start && s.Stop == stop && s.Artifact == c {
			return
		}
	}
	a.slices = append(a.slices, Child{Start: start, Stop: stop, Artifact: c})
}

// isAncestorOf reports whether a is reachable by walking up from n.
func (a *Artifact) isAncestorOf(n Node) bool {
	stack := []Node{n}
	seen := map[ID]bool{}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == Node(a) {
			return true
		}
		c, ok := cur.(*Artifact)
		if !ok || seen[c.id] {
			continue
		}
		seen[c.id] = true
		stack = append(stack, c.parents...)
	}
	return false
}
