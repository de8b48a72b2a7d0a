// Package artifact implements the content-addressed artifact graph that an
// excavation builds.
//
// # Overview
//
// Every blob of bytes the excavation knows about is an Artifact, identified
// by the BLAKE3 digest of its content. Two artifacts with the same digest are
// the same node: if a file is found both through a directory entry and as a
// gap between other files, it is one artifact with two parents.
//
// Top-level images enter through Graph.Ingest and hang off the graph's Root.
// Examiners then carve them up:
//
//	g := artifact.New(types.DefaultOptions())
//	img, err := g.Ingest(data, artifact.IngestOptions{Description: "tape.tap"})
//	...
//	stats := g.RunToFixpoint(blank.New(), compressed.New(limits), regf.New())
//
// Derive and DeriveFragments create children from byte ranges of a parent
// and record the (start, stop, child) triple on the parent. Create attaches a
// child whose bytes are not a slice, such as a decompressed stream.
//
// # Fixpoint
//
// RunToFixpoint offers each unexamined artifact, in FIFO order, to every
// examiner until one claims it. Once the queue drains, every artifact that
// had children carved out of it gets gap artifacts for the byte ranges no
// triple covers; those enter the queue and the loop repeats until a pass
// creates nothing new. An examiner that panics is recorded as a note and a
// diagnostic on the artifact and the loop continues.
//
// # Claims
//
// Each artifact lazily owns two interval trees: Index in byte units and
// BitIndex in bit units. Views (package view) insert parsed fields there.
// Overlapping claims are logged at debug level and returned to the caller.
//
// # Thread Safety
//
// A Graph and all of its artifacts are single-threaded. Examiners never run
// concurrently.
package artifact
