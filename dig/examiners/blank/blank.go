// Package blank recognizes artifacts made of a single repeated byte, such as
// zero-filled slack, erased flash (0xFF) or tape filler.
package blank

import (
	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/view"
)

// Tag marks artifacts claimed by this examiner.
const Tag = "blank"

// Examiner claims artifacts whose every byte has the same value.
type Examiner struct {
	// MinLen is the shortest artifact considered blank. Shorter runs are
	// left for other examiners.
	MinLen int
}

// New returns an examiner that considers runs of 16 bytes or more.
func New() Examiner { return Examiner{MinLen: 16} }

func (Examiner) Name() string { return "blank" }

func (e Examiner) Examine(a *artifact.Artifact) bool {
	n := a.Len()
	if n == 0 || n < e.MinLen {
		return false
	}
	fill, ok := filler(a)
	if !ok {
		return false
	}

	v := view.NewOctetView(a)
	f, err := v.FieldAt(0, view.Span{}, n)
	if err != nil {
		a.Notef("blank: %v", err)
		return false
	}
	v.Insert(f)
	a.Tag(Tag)
	a.Notef("%d bytes of 0x%02x", n, fill)
	return true
}

// filler returns the repeated byte, reading fragment by fragment so
// scattered artifacts are not copied.
func filler(a *artifact.Artifact) (byte, bool) {
	var fill byte
	first := true
	for _, frag := range a.Source().Fragments() {
		for _, b := range frag.Data {
			if first {
				fill, first = b, false
				continue
			}
			if b != fill {
				return 0, false
			}
		}
	}
	return fill, !first
}
