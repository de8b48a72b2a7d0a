package artifact

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/digkit/dig/charset"
	"github.com/joshuapare/digkit/dig/interval"
	"github.com/joshuapare/digkit/pkg/types"
)

func counting(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func newGraph(t *testing.T) *Graph {
	t.Helper()
	return New(types.DefaultOptions())
}

func TestIngest(t *testing.T) {
	g := newGraph(t)
	a, err := g.Ingest(counting(32), IngestOptions{Description: "disk.img"})
	require.NoError(t, err)
	require.Equal(t, ID(1), a.ID())
	require.Equal(t, KindArtifact, a.Kind())
	require.Equal(t, "disk.img", a.Label())
	require.Equal(t, []Node{g.Root()}, a.Parents())
	require.Equal(t, []*Artifact{a}, g.Root().Children())

	got, ok := g.Lookup(a.Digest())
	require.True(t, ok)
	require.Same(t, a, got)

	_, err = g.Ingest(nil, IngestOptions{})
	require.True(t, errors.Is(err, types.ErrEmptyInput))
}

func TestIngestDuplicate(t *testing.T) {
	g := newGraph(t)
	a, err := g.Ingest(counting(16), IngestOptions{Description: "first"})
	require.NoError(t, err)

	_, err = g.Ingest(counting(16), IngestOptions{Description: "second"})
	require.Error(t, err)
	require.True(t, errors.Is(err, types.ErrDuplicateTopLevel))

	b, err := g.Ingest(counting(16), IngestOptions{Description: "second", AllowDuplicate: true})
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, []string{"first", "second"}, a.Names())
	require.Len(t, g.Root().Children(), 1)
	require.Equal(t, 1, g.Len())

	g2 := New(types.Options{AllowDuplicateTopLevel: true})
	_, err = g2.Ingest(counting(16), IngestOptions{})
	require.NoError(t, err)
	_, err = g2.Ingest(counting(16), IngestOptions{})
	require.NoError(t, err)
}

func TestDeriveDedup(t *testing.T) {
	g := newGraph(t)
	data := []byte("ABCDxxxxABCDyyyy")
	parent, err := g.Ingest(data, IngestOptions{})
	require.NoError(t, err)

	a, err := parent.Derive(0, 4)
	require.NoError(t, err)
	b, err := parent.Derive(8, 12)
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, []byte("ABCD"), a.Bytes())
	require.Len(t, parent.Children(), 1)
	require.Len(t, parent.Slices(), 2)
	require.Len(t, a.Parents(), 1)

	c, err := parent.Derive(4, 8)
	require.NoError(t, err)
	require.NotSame(t, a, c)
	require.NotEqual(t, a.Digest(), c.Digest())

	// Deriving the same range twice records it once.
	_, err = parent.Derive(0, 4)
	require.NoError(t, err)
	require.Len(t, parent.Slices(), 3)
}

func TestDeriveSharesParents(t *testing.T) {
	g := newGraph(t)
	p1, err := g.Ingest([]byte("..ABCD.."), IngestOptions{})
	require.NoError(t, err)
	p2, err := g.Ingest([]byte("ABCD----"), IngestOptions{})
	require.NoError(t, err)

	a, err := p1.Derive(2, 6)
	require.NoError(t, err)
	b, err := p2.Derive(0, 4)
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, []Node{p1, p2}, a.Parents())
}

func TestDeriveIdentityAndBounds(t *testing.T) {
	g := newGraph(t)
	parent, err := g.Ingest(counting(8), IngestOptions{})
	require.NoError(t, err)

	same, err := parent.Derive(0, 8)
	require.NoError(t, err)
	require.Same(t, parent, same)
	require.Empty(t, parent.Slices())

	_, err = parent.Derive(4, 9)
	require.True(t, errors.Is(err, types.ErrOutOfRange))
	_, err = parent.Derive(-1, 2)
	require.True(t, errors.Is(err, types.ErrOutOfRange))
	_, err = parent.Derive(3, 3)
	require.True(t, errors.Is(err, types.ErrEmptyInput))

	other := newGraph(t)
	_, err = other.Derive(parent, 0, 2)
	require.Error(t, err)
}

func TestDeriveIsZeroCopy(t *testing.T) {
	g := newGraph(t)
	data := counting(64)
	parent, err := g.Ingest(data, IngestOptions{})
	require.NoError(t, err)
	child, err := parent.Derive(16, 32)
	require.NoError(t, err)
	require.Same(t, &data[16], &child.Bytes()[0])
}

func TestDeriveFragments(t *testing.T) {
	g := newGraph(t)
	parent, err := g.Ingest([]byte("AAbbCCddEEff"), IngestOptions{})
	require.NoError(t, err)

	frag, err := parent.DeriveFragments([]interval.Range{{Lo: 0, Hi: 2}, {Lo: 4, Hi: 6}, {Lo: 8, Hi: 10}})
	require.NoError(t, err)
	require.Equal(t, []byte("AACCEE"), frag.Bytes())
	require.True(t, frag.Source().IsScattered())
	require.Len(t, parent.Slices(), 3)

	// The same bytes created any other way are the same artifact.
	made, err := parent.Create([]byte("AACCEE"), "reassembled")
	require.NoError(t, err)
	require.Same(t, frag, made)
	require.Contains(t, made.Names(), "reassembled")

	_, err = parent.DeriveFragments(nil)
	require.True(t, errors.Is(err, types.ErrEmptyInput))
	_, err = parent.DeriveFragments([]interval.Range{{Lo: 0, Hi: 2}, {Lo: 10, Hi: 20}})
	require.True(t, errors.Is(err, types.ErrOutOfRange))
}

func TestCreateSkipsCycles(t *testing.T) {
	g := newGraph(t)
	outer, err := g.Ingest([]byte("outer bytes"), IngestOptions{})
	require.NoError(t, err)
	inner, err := outer.Create([]byte("inner"), "decoded")
	require.NoError(t, err)

	// inner decodes back to outer.
	back, err := inner.Create([]byte("outer bytes"), "loop")
	require.NoError(t, err)
	require.Same(t, outer, back)
	require.Equal(t, []Node{g.Root()}, outer.Parents())
	require.Empty(t, inner.Children())
	require.NotEmpty(t, inner.Notes())
}

func TestTwoSlicesAndGap(t *testing.T) {
	g := newGraph(t)
	parent, err := g.Ingest(counting(20), IngestOptions{})
	require.NoError(t, err)

	a, err := parent.Derive(0, 10)
	require.NoError(t, err)
	b, err := parent.Derive(5, 15)
	require.NoError(t, err)
	require.NotSame(t, a, b)
	require.Equal(t, []Node{parent}, a.Parents())
	require.Equal(t, []Node{parent}, b.Parents())
	require.Equal(t, []Child{
		{Start: 0, Stop: 10, Artifact: a},
		{Start: 5, Stop: 15, Artifact: b},
	}, parent.Slices())

	stats := g.RunToFixpoint()
	require.Equal(t, 1, stats.Gaps)
	require.Equal(t, 2, stats.Passes)
	require.False(t, stats.Exhausted)

	require.Len(t, parent.Slices(), 3)
	gap := parent.Slices()[2]
	require.Equal(t, 15, gap.Start)
	require.Equal(t, 20, gap.Stop)
	require.True(t, gap.Artifact.HasTag(GapTag))
	require.Equal(t, counting(20)[15:], gap.Artifact.Bytes())

	// A second run has nothing left to do.
	again := g.RunToFixpoint()
	require.Zero(t, again.Gaps)
	require.Zero(t, again.Examined)
}

func TestRunOffersInOrderUntilClaimed(t *testing.T) {
	g := newGraph(t)
	_, err := g.Ingest([]byte("GZ....payload"), IngestOptions{})
	require.NoError(t, err)

	var calls []string
	never := Named("never", func(a *Artifact) bool {
		calls = append(calls, "never")
		return false
	})
	taker := Named("taker", func(a *Artifact) bool {
		calls = append(calls, "taker")
		if a.Len() == 13 && bytes.HasPrefix(a.Bytes(), []byte("GZ")) {
			child, err := a.Derive(6, 13)
			require.NoError(t, err)
			child.Tag("payload")
			a.Take()
		}
		return false
	})
	last := Named("last", func(a *Artifact) bool {
		calls = append(calls, "last")
		return true
	})

	stats := g.RunToFixpoint(never, taker, last)
	// Parent: never, taker (takes). Payload child: never, taker, last.
	// Gap [0,6): never, taker, last.
	require.Equal(t, []string{
		"never", "taker",
		"never", "taker", "last",
		"never", "taker", "last",
	}, calls)
	require.Equal(t, 3, stats.Examined)
	require.Equal(t, 3, stats.Claimed)
	require.Equal(t, 1, stats.ByName["taker"])
	require.Equal(t, 2, stats.ByName["last"])

	a, ok := g.Get(1)
	require.True(t, ok)
	require.Equal(t, "taker", a.ExaminedBy())
	require.True(t, a.Taken())
}

func TestExaminerPanicIsRecovered(t *testing.T) {
	g := newGraph(t)
	a, err := g.Ingest(counting(4), IngestOptions{})
	require.NoError(t, err)

	boom := Named("boom", func(*Artifact) bool { panic("bad header") })
	ok := ExaminerFunc(func(*Artifact) bool { return true })

	stats := g.RunToFixpoint(boom, ok)
	require.Equal(t, 1, stats.Panics)
	require.Equal(t, 1, stats.Claimed)
	require.Equal(t, "func", a.ExaminedBy())
	require.Len(t, a.Notes(), 1)
	require.Contains(t, a.Notes()[0], "bad header")
	require.Len(t, a.Diagnostics(), 1)
	require.Equal(t, types.DiagExaminer, a.Diagnostics()[0].Category)
}

func TestMaxGapPasses(t *testing.T) {
	opts := types.DefaultOptions()
	opts.MaxGapPasses = 1
	g := New(opts)
	parent, err := g.Ingest(counting(10), IngestOptions{})
	require.NoError(t, err)
	_, err = parent.Derive(0, 5)
	require.NoError(t, err)

	stats := g.RunToFixpoint()
	require.Equal(t, 1, stats.Passes)
	require.Zero(t, stats.Gaps)
	require.True(t, stats.Exhausted)
}

func TestCharsetInherited(t *testing.T) {
	g := newGraph(t)
	parent, err := g.Ingest(counting(8), IngestOptions{})
	require.NoError(t, err)
	require.Equal(t, charset.ASCII.Glyph('A'), parent.Charset().Glyph('A'))

	parent.SetCharset(charset.EBCDIC)
	child, err := parent.Derive(0, 4)
	require.NoError(t, err)
	require.Equal(t, "A", child.Charset().Glyph(0xc1))
}

type leaf struct{ lo, hi int }

func (l leaf) Lo() int { return l.lo }
func (l leaf) Hi() int { return l.hi }

func TestClaim(t *testing.T) {
	g := New(types.Options{MinBranchWidth: 4})
	a, err := g.Ingest(counting(16), IngestOptions{})
	require.NoError(t, err)

	overlaps, err := a.Claim(leaf{0, 8})
	require.NoError(t, err)
	require.Empty(t, overlaps)
	overlaps, err = a.Claim(leaf{4, 12})
	require.NoError(t, err)
	require.Len(t, overlaps, 1)
	require.Equal(t, a.Digest().Short(), overlaps[0].Owner)

	_, err = a.Claim(leaf{12, 17})
	require.True(t, errors.Is(err, types.ErrOutOfRange))

	_, err = a.ClaimBits(leaf{3, 17})
	require.NoError(t, err)
	require.Equal(t, 128, a.BitIndex().Bounds().Hi)
	require.Equal(t, []interval.Range{{Lo: 12, Hi: 16}}, a.Index().Gaps())
}

func TestNodeKinds(t *testing.T) {
	g := newGraph(t)
	var n Node = g.Root()
	require.Equal(t, KindRoot, n.Kind())
	require.Equal(t, RootID, n.ID())
	require.Equal(t, "excavation", n.Label())
	g.Root().SetLabel("tape.tap")
	require.Equal(t, "tape.tap", n.Label())

	_, ok := g.Get(RootID)
	require.False(t, ok)
	_, ok = g.Get(7)
	require.False(t, ok)
}
