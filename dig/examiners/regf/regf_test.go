package regf_test

import (
	"encoding/binary"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/examiners/regf"
	"github.com/joshuapare/digkit/pkg/types"
)

const noList = 0xFFFFFFFF

func align8(n int) int { return (n + 7) &^ 7 }

// testHive is a two-page hive: the base block and one hive bin holding
//
//	ROOT
//	├── Software (li) ── Vendor
//	└── System   (ri -> lh) ── Select, plus an entry pointing back at ROOT
func testHive() []byte {
	b := make([]byte, 0x2000)
	le := binary.LittleEndian

	copy(b, "regf")
	le.PutUint32(b[0x14:], 1)
	le.PutUint32(b[0x18:], 5)
	le.PutUint32(b[0x24:], 0x20)
	le.PutUint32(b[0x28:], 0x1000)
	for i, r := range "test.hiv" {
		le.PutUint16(b[0x30+2*i:], uint16(r))
	}

	copy(b[0x1000:], "hbin")
	le.PutUint32(b[0x1008:], 0x1000)

	putNK(b, 0x20, "ROOT", false, 2, 0x100)
	putList(b, 0x100, "lf", 0x180, 0x200)
	putNK(b, 0x180, "Software", false, 1, 0x300)
	putNK(b, 0x200, "System", true, 1, 0x280)
	putList(b, 0x280, "ri", 0x2a0)
	putList(b, 0x2a0, "lh", 0x400, 0x20)
	putList(b, 0x300, "li", 0x380)
	putNK(b, 0x380, "Vendor", false, 0, noList)
	putNK(b, 0x400, "Select", false, 0, noList)

	fixChecksum(b)
	return b
}

func putNK(b []byte, cell int, name string, wide bool, subkeys, list uint32) {
	le := binary.LittleEndian
	off := 0x1000 + cell
	raw := []byte(name)
	flags := uint16(0x20)
	if wide {
		raw = raw[:0:0]
		for _, r := range name {
			raw = le.AppendUint16(raw, uint16(r))
		}
		flags = 0
	}
	size := int32(align8(4 + 0x4c + len(raw)))
	le.PutUint32(b[off:], uint32(-size))
	p := off + 4
	copy(b[p:], "nk")
	le.PutUint16(b[p+0x02:], flags)
	le.PutUint32(b[p+0x14:], subkeys)
	le.PutUint32(b[p+0x1c:], list)
	le.PutUint32(b[p+0x20:], noList)
	le.PutUint32(b[p+0x28:], noList)
	le.PutUint16(b[p+0x48:], uint16(len(raw)))
	copy(b[p+0x4c:], raw)
}

func putList(b []byte, cell int, sig string, entries ...uint32) {
	le := binary.LittleEndian
	off := 0x1000 + cell
	width := 4
	if sig == "lf" || sig == "lh" {
		width = 8
	}
	size := int32(align8(4 + 4 + len(entries)*width))
	le.PutUint32(b[off:], uint32(-size))
	copy(b[off+4:], sig)
	le.PutUint16(b[off+6:], uint16(len(entries)))
	for i, e := range entries {
		le.PutUint32(b[off+8+i*width:], e)
	}
}

func fixChecksum(b []byte) {
	var sum uint32
	for i := range 127 {
		sum ^= binary.LittleEndian.Uint32(b[i*4:])
	}
	binary.LittleEndian.PutUint32(b[0x1fc:], sum)
}

func ingest(t *testing.T, data []byte) (*artifact.Graph, *artifact.Artifact) {
	t.Helper()
	g := artifact.New(types.DefaultOptions())
	a, err := g.Ingest(data, artifact.IngestOptions{Description: "test.hiv"})
	require.NoError(t, err)
	return g, a
}

func names(ns *artifact.NameSpace) []string {
	var out []string
	for _, c := range ns.Children() {
		out = append(out, c.Name())
	}
	return out
}

func hasNote(a *artifact.Artifact, sub string) bool {
	return slices.ContainsFunc(a.Notes(), func(n string) bool { return strings.Contains(n, sub) })
}

func TestExamineHive(t *testing.T) {
	_, a := ingest(t, testHive())
	require.True(t, regf.New().Examine(a))
	require.True(t, a.HasTag(regf.Tag))
	require.Empty(t, a.Notes())
	require.Empty(t, a.Diagnostics())

	ns := a.NameSpace()
	require.NotNil(t, ns)
	require.Equal(t, []string{"ROOT"}, names(ns))
	root, ok := ns.Lookup("ROOT")
	require.True(t, ok)
	require.Equal(t, []string{"Software", "System"}, names(root))

	vendor, ok := ns.Lookup("ROOT", "Software", "Vendor")
	require.True(t, ok)
	require.Equal(t, "ROOT/Software/Vendor", vendor.Path("/"))
	cell, ok := vendor.Attr("cell")
	require.True(t, ok)
	require.Equal(t, "0x1380", cell)

	// The lh entry pointing back at ROOT is not expanded twice.
	system, ok := ns.Lookup("ROOT", "System")
	require.True(t, ok)
	require.Equal(t, []string{"Select"}, names(system))
	require.Equal(t, 5, ns.Len())
}

func TestClaimsAndBins(t *testing.T) {
	_, a := ingest(t, testHive())
	require.True(t, regf.New().Examine(a))

	require.True(t, a.Index().Covers(0, regf.HeaderSize))
	require.True(t, a.Index().Covers(0x1000, 0x1020))
	_, ok := a.Index().At(0x1020)
	require.True(t, ok)
	_, ok = a.Index().At(0x1100)
	require.True(t, ok)

	triples := a.Slices()
	require.Len(t, triples, 2)
	require.Equal(t, 0, triples[0].Start)
	require.Equal(t, regf.HeaderSize, triples[0].Stop)
	require.Equal(t, "base block", triples[0].Artifact.Label())

	bin := triples[1].Artifact
	require.Equal(t, 0x1000, triples[1].Start)
	require.Equal(t, 0x2000, triples[1].Stop)
	require.True(t, bin.HasTag(regf.HBINTag))
	require.Equal(t, "hbin 0x1000", bin.Label())
}

func TestChecksumMismatch(t *testing.T) {
	data := testHive()
	data[0x100] ^= 0xff
	_, a := ingest(t, data)
	require.True(t, regf.New().Examine(a))

	diags := a.Diagnostics()
	require.Len(t, diags, 1)
	require.Equal(t, types.SevWarning, diags[0].Severity)
	require.Equal(t, types.DiagIntegrity, diags[0].Category)
	require.True(t, hasNote(a, "checksum"))
}

func TestFreeCellReference(t *testing.T) {
	data := testHive()
	binary.LittleEndian.PutUint32(data[0x1380:], 88)
	_, a := ingest(t, data)
	require.True(t, regf.New().Examine(a))

	_, ok := a.NameSpace().Lookup("ROOT", "Software", "Vendor")
	require.False(t, ok)
	require.True(t, hasNote(a, "reference to a free cell"))
	require.True(t, hasNote(a, "1 unresolved cell references"))
}

func TestUnknownListSignature(t *testing.T) {
	data := testHive()
	copy(data[0x1304:], "zz")
	_, a := ingest(t, data)
	require.True(t, regf.New().Examine(a))
	require.True(t, hasNote(a, `unknown signature "zz"`))
	require.Equal(t, types.DiagStructure, a.Diagnostics()[0].Category)
}

func TestHBINPastEnd(t *testing.T) {
	data := testHive()
	binary.LittleEndian.PutUint32(data[0x1008:], 0x2000)
	_, a := ingest(t, data)
	require.True(t, regf.New().Examine(a))
	require.True(t, hasNote(a, "runs past end of hive"))
	require.Len(t, a.Slices(), 2)
	require.Equal(t, 0x2000, a.Slices()[1].Stop)
}

func TestNotAHive(t *testing.T) {
	_, a := ingest(t, make([]byte, 0x2000))
	require.False(t, regf.New().Examine(a))
	require.Empty(t, a.Notes())
	require.Empty(t, a.Diagnostics())

	_, b := ingest(t, testHive()[:regf.HeaderSize])
	require.False(t, regf.New().Examine(b))
	require.Empty(t, b.Tags())
	require.Empty(t, b.Notes())
	require.Empty(t, b.Slices())
}

func TestFixpointFillsTrailingGap(t *testing.T) {
	data := append(testHive(), []byte("trailing slack after the last bin")...)
	g, a := ingest(t, data)

	stats := g.RunToFixpoint(regf.New())
	require.Equal(t, 1, stats.ByName["regf"])
	require.Equal(t, 1, stats.Gaps)
	require.Equal(t, "regf", a.ExaminedBy())

	gap := a.Slices()[2].Artifact
	require.True(t, gap.HasTag(artifact.GapTag))
	require.Equal(t, 0x2000, a.Slices()[2].Start)
}
