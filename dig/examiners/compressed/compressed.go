// Package compressed recognizes gzip, zstd and lz4 frame streams and
// attaches their decompressed content as child artifacts.
package compressed

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/view"
	"github.com/joshuapare/digkit/pkg/types"
)

// Format identifies a compressed stream format.
type Format uint8

const (
	FormatGzip Format = iota + 1
	FormatZstd
	FormatLZ4
)

func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	case FormatLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", f)
	}
}

// Tag marks decompressed children.
const Tag = "decompressed"

var magics = []struct {
	format Format
	magic  []byte
}{
	{FormatGzip, []byte{0x1f, 0x8b, 0x08}},
	{FormatZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{FormatLZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
}

// Detect returns the format whose magic b starts with.
func Detect(b []byte) (Format, bool) {
	for _, m := range magics {
		if bytes.HasPrefix(b, m.magic) {
			return m.format, true
		}
	}
	return 0, false
}

// Examiner decompresses recognized streams.
type Examiner struct {
	// Limit caps decompressed output. Zero uses the graph's
	// Limits.MaxDecompressedSize.
	Limit int64
}

// New returns an examiner bounded by the graph's limits.
func New() Examiner { return Examiner{} }

func (Examiner) Name() string { return "compressed" }

func (e Examiner) limit(a *artifact.Artifact) int64 {
	if e.Limit > 0 {
		return e.Limit
	}
	return a.Graph().Options().Limits.MaxDecompressedSize
}

func (e Examiner) Examine(a *artifact.Artifact) bool {
	head, err := a.Slice(0, min(a.Len(), 4))
	if err != nil {
		return false
	}
	format, ok := Detect(head)
	if !ok {
		return false
	}

	src := bytes.NewReader(a.Bytes())
	r, closer, err := open(format, src)
	if err != nil {
		a.Logger().Debug("magic without a readable header", "format", format.String(), "err", err)
		return false
	}
	defer closer()

	limit := e.limit(a)
	data, readErr := io.ReadAll(io.LimitReader(r, limit+1))
	a.Tag(format.String())

	if int64(len(data)) > limit {
		data = data[:limit]
		readErr = nil
		a.Notef("%s output exceeds %s, truncated", format, humanize.Bytes(uint64(limit)))
		a.Diagnose(types.Diagnostic{
			Severity:  types.SevWarning,
			Category:  types.DiagData,
			Structure: format.String(),
			Issue:     "decompressed size limit reached",
			Expected:  limit,
		})
	}
	if readErr != nil {
		a.Notef("%s stream truncated or corrupt after %d bytes: %v", format, len(data), readErr)
		a.Diagnose(types.Diagnostic{
			Severity:  types.SevError,
			Category:  types.DiagData,
			Offset:    int(src.Size()) - src.Len(),
			Structure: format.String(),
			Issue:     readErr.Error(),
		})
	}

	// Only gzip members end at a known input offset.
	consumed := a.Len()
	if format == FormatGzip && readErr == nil && int64(len(data)) < limit {
		consumed = int(src.Size()) - src.Len()
	}
	if consumed < a.Len() {
		return e.split(a, format, consumed)
	}

	v := view.NewOctetView(a)
	if f, err := v.FieldAt(0, view.Span{}, a.Len()); err == nil {
		v.Insert(f)
	}
	if len(data) == 0 {
		return true
	}
	child, err := a.Create(data, fmt.Sprintf("%s payload", format))
	if err != nil {
		a.Notef("%s payload: %v", format, err)
		return true
	}
	child.Tag(Tag)
	a.Logger().Debug("decompressed", "format", format.String(), "size", len(data))
	return true
}

// split carves a gzip member off trailing data. The member is decompressed
// when it is examined in turn.
func (e Examiner) split(a *artifact.Artifact, format Format, consumed int) bool {
	member, err := a.Derive(0, consumed)
	if err != nil {
		a.Notef("%s member: %v", format, err)
		return true
	}
	member.AddName(fmt.Sprintf("%s member", format))
	if _, err := a.Derive(consumed, a.Len()); err != nil {
		a.Notef("trailing data: %v", err)
	}
	a.Notef("%d bytes of trailing data after %s member", a.Len()-consumed, format)
	return true
}

// open returns a decompressing reader for format and a function releasing it.
func open(format Format, src io.Reader) (io.Reader, func(), error) {
	switch format {
	case FormatGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, nil, err
		}
		zr.Multistream(false)
		return zr, func() { _ = zr.Close() }, nil
	case FormatZstd:
		zr, err := zstd.NewReader(src, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case FormatLZ4:
		return lz4.NewReader(src), func() {}, nil
	default:
		return nil, nil, errors.New("unsupported format")
	}
}
