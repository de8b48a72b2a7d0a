package artifact

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/digkit/dig/interval"
	"github.com/joshuapare/digkit/dig/queue"
	"github.com/joshuapare/digkit/dig/source"
	"github.com/joshuapare/digkit/internal/buf"
	"github.com/joshuapare/digkit/pkg/types"
)

// Graph is the content-addressed store of one excavation.
type Graph struct {
	opts     types.Options
	log      *slog.Logger
	root     *Root
	byDigest map[source.Digest]*Artifact
	byID     []*Artifact // index i holds ID i+1
	exam     *queue.Queue[ID]
}

// IngestOptions controls Ingest and IngestSource.
type IngestOptions struct {
	// Description becomes the artifact's first name.
	Description string
	// AllowDuplicate returns the existing artifact when identical content
	// was already ingested, instead of failing with ErrDuplicateTopLevel.
	AllowDuplicate bool
}

// New returns an empty graph.
func New(opts types.Options) *Graph {
	opts = opts.Normalize()
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Graph{
		opts:     opts,
		log:      log,
		root:     &Root{},
		byDigest: make(map[source.Digest]*Artifact),
		exam:     queue.NewWithSet[ID](queue.NewIDSet[ID]()),
	}
}

// Options returns the normalized options the graph was built with.
func (g *Graph) Options() types.Options { return g.opts }

// Logger returns the graph logger.
func (g *Graph) Logger() *slog.Logger { return g.log }

// Root returns the excavation root.
func (g *Graph) Root() *Root { return g.root }

// Len returns the number of artifacts.
func (g *Graph) Len() int { return len(g.byID) }

// Artifacts returns every artifact in creation order.
func (g *Graph) Artifacts() []*Artifact { return g.byID }

// Get returns the artifact with the given id.
func (g *Graph) Get(id ID) (*Artifact, bool) {
	if id == RootID || int(id) > len(g.byID) {
		return nil, false
	}
	return g.byID[id-1], true
}

// Lookup returns the artifact with the given digest.
func (g *Graph) Lookup(d source.Digest) (*Artifact, bool) {
	a, ok := g.byDigest[d]
	return a, ok
}

// Ingest registers data as a top-level artifact.
func (g *Graph) Ingest(data []byte, opts IngestOptions) (*Artifact, error) {
	src, err := source.New(data)
	if err != nil {
		return nil, fmt.Errorf("ingest %q: %w", opts.Description, err)
	}
	return g.IngestSource(src, opts)
}

// IngestSource registers a prepared source, with any geometry records
// already set, as a top-level artifact.
func (g *Graph) IngestSource(src *source.Source, opts IngestOptions) (*Artifact, error) {
	if src == nil || src.Len() == 0 {
		return nil, types.ErrEmptyInput
	}
	d := src.Digest()
	if a, ok := g.byDigest[d]; ok {
		if !g.root.hasChild(a) {
			g.attach(g.root, a)
			a.AddName(opts.Description)
			return a, nil
		}
		if !opts.AllowDuplicate && !g.opts.AllowDuplicateTopLevel {
			return nil, types.ErrDuplicateTopLevel.Wrap(fmt.Errorf("%q matches %s", opts.Description, a))
		}
		a.AddName(opts.Description)
		return a, nil
	}
	a := g.register(src, nil)
	g.attach(g.root, a)
	a.AddName(opts.Description)
	g.log.Info("ingested", "artifact", a.id, "digest", d.Short(), "size", a.Len(), "description", opts.Description)
	return a, nil
}

// Derive returns the artifact for parent[start:stop), creating it if no
// artifact with that content exists yet, and records the triple on parent.
// A range covering all of parent returns parent itself.
func (g *Graph) Derive(parent *Artifact, start, stop int) (*Artifact, error) {
	a, _, err := g.derive(parent, start, stop)
	return a, err
}

func (g *Graph) derive(parent *Artifact, start, stop int) (*Artifact, bool, error) {
	if err := g.checkParent(parent); err != nil {
		return nil, false, err
	}
	if err := buf.CheckRange(start, stop, parent.Len()); err != nil {
		return nil, false, fmt.Errorf("derive [%d,%d) of %s: %w", start, stop, parent, types.ErrOutOfRange.Wrap(err))
	}
	if start == 0 && stop == parent.Len() {
		return parent, false, nil
	}
	data, err := parent.Slice(start, stop)
	if err != nil {
		return nil, false, fmt.Errorf("derive [%d,%d) of %s: %w", start, stop, parent, err)
	}
	src, err := source.New(data)
	if err != nil {
		return nil, false, err
	}
	child, created := g.adopt(parent, src)
	parent.addSlice(start, stop, child)
	return child, created, nil
}

// DeriveFragments returns the scatter-gather artifact made of the given
// ranges of parent, in order. One triple is recorded per range.
func (g *Graph) DeriveFragments(parent *Artifact, ranges []interval.Range) (*Artifact, error) {
	if err := g.checkParent(parent); err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, types.ErrEmptyInput
	}
	if len(ranges) == 1 {
		return g.Derive(parent, ranges[0].Lo, ranges[0].Hi)
	}
	frags := make([]source.Fragment, 0, len(ranges))
	for _, r := range ranges {
		if err := buf.CheckRange(r.Lo, r.Hi, parent.Len()); err != nil {
			return nil, fmt.Errorf("fragment %s of %s: %w", r, parent, types.ErrOutOfRange.Wrap(err))
		}
		data, err := parent.Slice(r.Lo, r.Hi)
		if err != nil {
			return nil, fmt.Errorf("fragment %s of %s: %w", r, parent, err)
		}
		frags = append(frags, source.Fragment{Key: r, Data: data})
	}
	src, err := source.Concat(frags...)
	if err != nil {
		return nil, fmt.Errorf("fragments of %s: %w", parent, err)
	}
	child, _ := g.adopt(parent, src)
	for _, r := range ranges {
		if r.Hi > r.Lo {
			parent.addSlice(r.Lo, r.Hi, child)
		}
	}
	return child, nil
}

// Create attaches data as a child of parent without recording a byte range,
// for content that was transformed rather than sliced (decompressed,
// decoded, reassembled from another medium).
func (g *Graph) Create(parent *Artifact, data []byte, description string) (*Artifact, error) {
	if err := g.checkParent(parent); err != nil {
		return nil, err
	}
	src, err := source.New(data)
	if err != nil {
		return nil, fmt.Errorf("create %q under %s: %w", description, parent, err)
	}
	child, _ := g.adopt(parent, src)
	child.AddName(description)
	return child, nil
}

func (g *Graph) checkParent(parent *Artifact) error {
	if parent == nil || parent.graph != g {
		return &types.Error{Kind: types.ErrKindUsage, Msg: "parent does not belong to this graph"}
	}
	return nil
}

// adopt returns the artifact for src under parent, deduplicating by digest.
// A parent link that would make the graph cyclic is skipped and noted.
func (g *Graph) adopt(parent *Artifact, src *source.Source) (*Artifact, bool) {
	if a, ok := g.byDigest[src.Digest()]; ok {
		if a == parent || a.isAncestorOf(parent) {
			parent.Notef("content at %s repeats ancestor %s", src.Digest().Short(), a)
			return a, false
		}
		g.attach(parent, a)
		return a, false
	}
	a := g.register(src, parent)
	g.attach(parent, a)
	return a, true
}

func (g *Graph) register(src *source.Source, parent *Artifact) *Artifact {
	a := &Artifact{
		graph:  g,
		id:     ID(len(g.byID) + 1),
		src:    src,
		digest: src.Digest(),
	}
	if parent != nil {
		a.charset = parent.charset
	}
	g.byID = append(g.byID, a)
	g.byDigest[a.digest] = a
	g.exam.Push(a.id, nil)
	return a
}

func (g *Graph) attach(parent Node, child *Artifact) {
	if !child.addParent(parent) {
		return
	}
	switch p := parent.(type) {
	case *Root:
		p.addChild(child)
	case *Artifact:
		p.addChild(child)
	}
}

func (r *Root) hasChild(a *Artifact) bool {
	for _, c := range r.children {
		if c == a {
			return true
		}
	}
	return false
}
