// Package source holds the raw bytes of one artifact.
//
// A Source either owns a single contiguous buffer or stitches together an
// ordered list of borrowed fragments (scatter-gather), which is how a file
// reassembled from discontiguous sectors is represented without copying the
// sectors. Sources are immutable once built.
//
// Access is bounds checked and zero-copy where possible:
//
//	src, _ := source.New(image)
//	hdr, err := src.Slice(0, 512)        // aliases image
//	flag, err := src.Bit(4096*8+3, 1)    // bit-level access, MSB first
//	d := src.Digest()                    // BLAKE3-256 of every byte
//
// A Source is not safe for concurrent mutation, but nothing mutates it after
// construction; the only lazily computed state is the digest and the merged
// byte view, which are filled on first use by the single goroutine driving
// an excavation.
package source
