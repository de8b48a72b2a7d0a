package compressed_test

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/examiners/compressed"
	"github.com/joshuapare/digkit/dig/source"
	"github.com/joshuapare/digkit/pkg/types"
)

var payload = bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 64)

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func lz4ed(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func hasNote(a *artifact.Artifact, sub string) bool {
	return slices.ContainsFunc(a.Notes(), func(n string) bool { return strings.Contains(n, sub) })
}

func ingest(t *testing.T, data []byte, opts types.Options) (*artifact.Graph, *artifact.Artifact) {
	t.Helper()
	g := artifact.New(opts)
	a, err := g.Ingest(data, artifact.IngestOptions{Description: t.Name()})
	require.NoError(t, err)
	return g, a
}

func TestDecompress(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*testing.T, []byte) []byte
		format compressed.Format
	}{
		{"gzip", gzipped, compressed.FormatGzip},
		{"zstd", zstded, compressed.FormatZstd},
		{"lz4", lz4ed, compressed.FormatLZ4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.encode(t, payload)
			f, ok := compressed.Detect(data)
			require.True(t, ok)
			require.Equal(t, tt.format, f)

			g, a := ingest(t, data, types.DefaultOptions())
			stats := g.RunToFixpoint(compressed.New())
			require.Equal(t, 1, stats.ByName["compressed"])

			child, ok := g.Lookup(source.Sum(payload))
			require.True(t, ok)
			require.Equal(t, []*artifact.Artifact{child}, a.Children())
			require.True(t, child.HasTag(compressed.Tag))
			require.Equal(t, tt.name+" payload", child.Label())
			require.True(t, a.HasTag(tt.name))
			require.Empty(t, a.Index().Gaps())
			require.Empty(t, a.Slices())
		})
	}
}

func TestNotCompressed(t *testing.T) {
	_, a := ingest(t, []byte("plain text, nothing to see"), types.DefaultOptions())
	require.False(t, compressed.New().Examine(a))
	require.Empty(t, a.Children())

	_, ok := compressed.Detect([]byte{0x1f})
	require.False(t, ok)
}

func TestBadHeaderNotClaimed(t *testing.T) {
	// gzip magic with the rest of the header missing.
	_, a := ingest(t, []byte{0x1f, 0x8b, 0x08, 0, 0}, types.DefaultOptions())
	require.False(t, compressed.New().Examine(a))
	require.Empty(t, a.Notes())
	require.Empty(t, a.Tags())
	require.Empty(t, a.Diagnostics())
}

func TestDecompressedSizeLimit(t *testing.T) {
	opts := types.DefaultOptions()
	opts.Limits.MaxDecompressedSize = 100
	g, a := ingest(t, gzipped(t, make([]byte, 1000)), opts)

	require.True(t, compressed.New().Examine(a))
	child, ok := g.Lookup(source.Sum(make([]byte, 100)))
	require.True(t, ok)
	require.Equal(t, 100, child.Len())
	require.True(t, hasNote(a, "exceeds 100 B, truncated"))
	require.Len(t, a.Diagnostics(), 1)

	// An explicit limit overrides the graph's.
	_, b := ingest(t, gzipped(t, make([]byte, 999)), types.DefaultOptions())
	require.True(t, compressed.Examiner{Limit: 10}.Examine(b))
	require.Equal(t, 10, b.Children()[0].Len())
}

func TestTruncatedStream(t *testing.T) {
	noisy := make([]byte, 4096)
	for i := range noisy {
		noisy[i] = byte(i*7) ^ byte(i>>3)
	}
	data := gzipped(t, noisy)
	_, a := ingest(t, data[:len(data)/2], types.DefaultOptions())

	require.True(t, compressed.New().Examine(a))
	require.True(t, hasNote(a, "truncated or corrupt"))
	diags := a.Diagnostics()
	require.Len(t, diags, 1)
	require.Equal(t, types.SevError, diags[0].Severity)
	require.Equal(t, "gzip", diags[0].Structure)
}

func TestTrailingDataSplit(t *testing.T) {
	trailer := []byte("TRAILING DATA!!")
	member := gzipped(t, payload)
	g, a := ingest(t, append(slices.Clone(member), trailer...), types.DefaultOptions())

	stats := g.RunToFixpoint(compressed.New())
	require.Zero(t, stats.Gaps)
	require.True(t, hasNote(a, "15 bytes of trailing data after gzip member"))

	triples := a.Slices()
	require.Len(t, triples, 2)
	require.Equal(t, len(member), triples[0].Stop)
	require.Equal(t, source.Sum(trailer), triples[1].Artifact.Digest())

	m := triples[0].Artifact
	require.Equal(t, "gzip member", m.Label())
	child, ok := g.Lookup(source.Sum(payload))
	require.True(t, ok)
	require.Equal(t, []*artifact.Artifact{child}, m.Children())
}
