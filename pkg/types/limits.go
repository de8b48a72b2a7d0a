package types

import "log/slog"

const (
	// DefaultMinBranchWidth is the interval-tree width below which a node
	// stops splitting and becomes a flat bucket. Images smaller than this get
	// a single bucket; larger ones get logarithmic fan-out.
	DefaultMinBranchWidth = 1 << 16

	// DefaultMaxGapPasses bounds how many examine/gap-fill rounds a run may
	// take. Each round only fills holes left by the previous one, so real
	// excavations settle in two or three; the bound guards against examiners
	// that keep deriving fresh content from gap artifacts.
	DefaultMaxGapPasses = 64

	// DecompressedSize1GB is the default ceiling for a single decompressed
	// child artifact.
	DecompressedSize1GB = 1 << 30

	// DecompressedSize64MB is a conservative ceiling for constrained runs.
	DecompressedSize64MB = 64 << 20

	// DefaultMaxPointerChain bounds how many pointer targets one view may
	// expand. Chained sectors on real media run into the thousands.
	DefaultMaxPointerChain = 1 << 20

	// StrictMaxPointerChain is the bound used by StrictLimits.
	StrictMaxPointerChain = 1 << 14
)

// Options tunes an artifact graph.
type Options struct {
	// MinBranchWidth is the smallest interval-tree node that still splits.
	// Zero selects DefaultMinBranchWidth. Lower it for images claimed in
	// many small fields; each insert scans whole buckets.
	MinBranchWidth int

	// AllowDuplicateTopLevel makes Ingest return the existing artifact when
	// byte-identical content is ingested twice instead of failing with
	// ErrDuplicateTopLevel. Per-call IngestOptions can also allow it.
	AllowDuplicateTopLevel bool

	// MaxGapPasses bounds the examine/gap-fill rounds of a run.
	// Zero selects DefaultMaxGapPasses.
	MaxGapPasses int

	// Limits guards resource usage of examiners.
	Limits Limits

	// Logger receives structured diagnostics. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		MinBranchWidth: DefaultMinBranchWidth,
		MaxGapPasses:   DefaultMaxGapPasses,
		Limits:         DefaultLimits(),
	}
}

// Normalize fills zero fields with their defaults.
func (o Options) Normalize() Options {
	if o.MinBranchWidth <= 0 {
		o.MinBranchWidth = DefaultMinBranchWidth
	}
	if o.MaxGapPasses <= 0 {
		o.MaxGapPasses = DefaultMaxGapPasses
	}
	if o.Limits == (Limits{}) {
		o.Limits = DefaultLimits()
	}
	return o
}

// Limits defines resource bounds examiners and views honor.
type Limits struct {
	// MaxDecompressedSize is the largest child a decompressing examiner
	// may create. Larger streams are truncated and noted.
	MaxDecompressedSize int64

	// MaxPointerChain is the most pointer targets a single view expands.
	// Further requests are dropped and noted.
	MaxPointerChain int
}

// DefaultLimits returns the limits used for ordinary images.
func DefaultLimits() Limits {
	return Limits{
		MaxDecompressedSize: DecompressedSize1GB,
		MaxPointerChain:     DefaultMaxPointerChain,
	}
}

// StrictLimits returns conservative limits for untrusted or constrained runs.
func StrictLimits() Limits {
	return Limits{
		MaxDecompressedSize: DecompressedSize64MB,
		MaxPointerChain:     StrictMaxPointerChain,
	}
}
