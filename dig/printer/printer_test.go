package printer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/view"
	"github.com/joshuapare/digkit/pkg/types"
)

// carvedGraph ingests 16 bytes, carves two slices and lets the gap pass
// fill the hole between them.
func carvedGraph(t *testing.T) (*artifact.Graph, *artifact.Artifact) {
	t.Helper()
	g := artifact.New(types.DefaultOptions())
	g.Root().SetLabel("image.bin")
	a, err := g.Ingest([]byte("HEADxxxxpayload!"), artifact.IngestOptions{Description: "image.bin"})
	require.NoError(t, err)
	_, err = a.Derive(0, 4)
	require.NoError(t, err)
	_, err = a.Derive(8, 16)
	require.NoError(t, err)
	a.Note("carved by hand")
	g.RunToFixpoint()
	require.Equal(t, 4, g.Len())
	return g, a
}

func TestPrinter_PrintGraph_Text(t *testing.T) {
	g, _ := carvedGraph(t)

	var buf bytes.Buffer
	p := New(&buf, DefaultOptions())
	require.NoError(t, p.PrintGraph(g))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Equal(t, "image.bin (4 artifacts)", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "  #1 image.bin 16 B "), lines[1])
	require.Equal(t, "    note: carved by hand", lines[2])
	require.True(t, strings.HasPrefix(lines[3], "    #2 [0x0-0x4) "), lines[3])
	require.True(t, strings.HasPrefix(lines[4], "    #3 [0x8-0x10) "), lines[4])
	require.True(t, strings.HasPrefix(lines[5], "    #4 [0x4-0x8) gap [0x4,0x8) 4 B "), lines[5])
	require.True(t, strings.HasSuffix(lines[5], "[gap]"), lines[5])
}

func TestPrinter_SharedArtifactPrintedOnce(t *testing.T) {
	g := artifact.New(types.DefaultOptions())
	inner, err := g.Ingest([]byte("abcdefgh"), artifact.IngestOptions{Description: "inner"})
	require.NoError(t, err)
	outer, err := g.Ingest([]byte("xxabcdefgh"), artifact.IngestOptions{Description: "outer"})
	require.NoError(t, err)
	shared, err := outer.Derive(2, 10)
	require.NoError(t, err)
	require.Same(t, inner, shared)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, DefaultOptions()).PrintGraph(g))
	out := buf.String()
	require.Equal(t, 2, strings.Count(out, "#1 "))
	require.Equal(t, 1, strings.Count(out, "(see above)"))
	require.Contains(t, out, "    #1 [0x2-0xa) inner")
}

func TestPrinter_MaxDepth(t *testing.T) {
	g, _ := carvedGraph(t)
	opts := DefaultOptions()
	opts.MaxDepth = 1
	opts.ShowNotes = false

	var buf bytes.Buffer
	require.NoError(t, New(&buf, opts).PrintGraph(g))
	require.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestPrinter_FullDigests(t *testing.T) {
	g, a := carvedGraph(t)
	opts := DefaultOptions()
	opts.ShowDigests = true

	var buf bytes.Buffer
	require.NoError(t, New(&buf, opts).PrintGraph(g))
	require.Contains(t, buf.String(), a.Digest().String())
}

func TestPrinter_PrintView(t *testing.T) {
	g := artifact.New(types.DefaultOptions())
	a, err := g.Ingest([]byte{0xca, 0xfe, 0, 0, 'h', 'i', 0, 0}, artifact.IngestOptions{Description: "hdr.bin"})
	require.NoError(t, err)
	v := view.NewOctetView(a)
	s, err := v.Struct("hdr", view.F("magic", view.Const{Value: 0xcafe}, 2), view.F("pad", view.Span{}, 2))
	require.NoError(t, err)
	v.Insert(s)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, DefaultOptions()).PrintView(v))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.True(t, strings.HasPrefix(lines[0], "#1 hdr.bin 8 B "), lines[0])
	require.Equal(t, []string{
		"  0x0-0x4 struct hdr",
		"    0x0 magic const/0xcafe = 0xcafe",
		"    0x2 pad span = 0000",
		"  0x4-0x8 gap (4 units) 68690000",
	}, lines[1:])
}

func TestPrinter_PrintNameSpace(t *testing.T) {
	g := artifact.New(types.DefaultOptions())
	a, err := g.Ingest([]byte("tape"), artifact.IngestOptions{Description: "tape"})
	require.NoError(t, err)

	ns := artifact.NewNameSpace()
	ns.Child("SOFTWARE").Child("Vendor")
	ns.Child("SYSTEM").Bind(a)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, DefaultOptions()).PrintNameSpace(ns))
	require.Equal(t, "  SOFTWARE\n    Vendor\n  SYSTEM -> #1\n", buf.String())
}

func TestManifest_JSON(t *testing.T) {
	g, a := carvedGraph(t)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJSON
	require.NoError(t, New(&buf, opts).PrintGraph(g))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "image.bin", decoded["label"])
	arts := decoded["artifacts"].([]any)
	require.Len(t, arts, 4)
	first := arts[0].(map[string]any)
	require.Equal(t, a.Digest().String(), first["digest"])
	require.Equal(t, []any{float64(0)}, first["parents"])
	require.Len(t, first["slices"], 3)
}

func TestManifest_CBORRoundTrip(t *testing.T) {
	g, a := carvedGraph(t)
	m := BuildManifest(g)

	var buf bytes.Buffer
	require.NoError(t, WriteCBOR(&buf, m))
	got, err := ReadCBOR(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, m.Roots, got.Roots)
	require.Equal(t, a.Digest(), got.Artifacts[0].Digest)
	require.Equal(t, m.Artifacts[3].Tags, got.Artifacts[3].Tags)

	// Deterministic encoding.
	var again bytes.Buffer
	require.NoError(t, WriteCBOR(&again, BuildManifest(g)))
	require.Equal(t, buf.Bytes(), again.Bytes())
}

func TestManifest_NameSpacePaths(t *testing.T) {
	g, a := carvedGraph(t)
	ns := artifact.NewNameSpace()
	ns.Child("ROOT").Child("Software")
	a.SetNameSpace(ns)

	m := BuildManifest(g)
	require.Equal(t, []string{"ROOT", "ROOT/Software"}, m.Artifacts[0].NameSpace)
	require.Equal(t, 0, m.Summary.Errors)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("cbor")
	require.NoError(t, err)
	require.Equal(t, FormatCBOR, f)
	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func TestPrinter_DiagnosticsSummary(t *testing.T) {
	g, a := carvedGraph(t)
	a.Diagnose(types.Diagnostic{Severity: types.SevWarning, Category: types.DiagData, Offset: 4, Structure: "gap", Issue: "odd filler"})
	child := g.Artifacts()[1]
	child.Diagnose(types.Diagnostic{Severity: types.SevError, Category: types.DiagStructure, Offset: 0, Structure: "hdr", Issue: "bad magic"})

	var buf bytes.Buffer
	require.NoError(t, New(&buf, DefaultOptions()).PrintGraph(g))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Equal(t, "diagnostics: 0 critical, 1 errors, 1 warnings, 0 info", lines[len(lines)-1])

	report := Diagnostics(g)
	require.True(t, report.HasErrors())
	require.Equal(t, "0x00000000 [ERROR/#2:hdr/STRUCTURE] bad magic\n0x00000004 [WARNING/#1:gap/DATA] odd filler\n",
		report.FormatTextCompact())

	opts := DefaultOptions()
	opts.ShowNotes = false
	buf.Reset()
	require.NoError(t, New(&buf, opts).PrintGraph(g))
	require.NotContains(t, buf.String(), "diagnostics:")
}
