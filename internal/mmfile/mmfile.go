// Package mmfile maps image files into memory read-only.
package mmfile

import "sync"

// Mapping is a read-only view of a file's contents.
type Mapping struct {
	path   string
	data   []byte
	mapped bool // data came from mmap and must be unmapped
	once   sync.Once
	unmap  func([]byte) error
	err    error
}

// Path returns the file the mapping was opened from.
func (m *Mapping) Path() string { return m.path }

// Bytes returns the file contents. The slice is invalid after Close and
// must not be written to.
func (m *Mapping) Bytes() []byte { return m.data }

// Len returns the file size.
func (m *Mapping) Len() int { return len(m.data) }

// Mapped reports whether the contents are memory-mapped rather than read.
func (m *Mapping) Mapped() bool { return m.mapped }

// Close releases the mapping. Calling it more than once is safe.
func (m *Mapping) Close() error {
	m.once.Do(func() {
		if m.mapped && m.unmap != nil {
			m.err = m.unmap(m.data)
		}
		m.data = nil
	})
	return m.err
}
