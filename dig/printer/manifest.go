package printer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/source"
	"github.com/joshuapare/digkit/internal/codec"
	"github.com/joshuapare/digkit/pkg/types"
)

// Manifest is the machine-readable form of an excavation.
type Manifest struct {
	Label     string            `json:"label"`
	Roots     []uint32          `json:"roots"`
	Artifacts []ManifestEntry   `json:"artifacts"`
	Summary   types.DiagSummary `json:"summary"`
}

// ManifestEntry describes one artifact.
type ManifestEntry struct {
	ID          uint32          `json:"id"`
	Digest      source.Digest   `json:"digest"`
	Size        int             `json:"size"`
	Fragments   int             `json:"fragments,omitempty"`
	Parents     []uint32        `json:"parents"`
	Slices      []ManifestSlice `json:"slices,omitempty"`
	Names       []string        `json:"names,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	ExaminedBy  string          `json:"examined_by,omitempty"`
	Notes       []string        `json:"notes,omitempty"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
	NameSpace   []string        `json:"namespace,omitempty"`
}

// ManifestSlice records a child carved from a range of its parent.
type ManifestSlice struct {
	Start int    `json:"start"`
	Stop  int    `json:"stop"`
	Child uint32 `json:"child"`
}

// BuildManifest snapshots g in artifact ID order.
func BuildManifest(g *artifact.Graph) *Manifest {
	root := g.Root()
	m := &Manifest{Label: root.Label()}
	for _, a := range root.Children() {
		m.Roots = append(m.Roots, uint32(a.ID()))
	}

	for _, a := range g.Artifacts() {
		e := ManifestEntry{
			ID:         uint32(a.ID()),
			Digest:     a.Digest(),
			Size:       a.Len(),
			Names:      a.Names(),
			Tags:       a.Tags(),
			ExaminedBy: a.ExaminedBy(),
			Notes:      a.Notes(),
		}
		if n := len(a.Source().Fragments()); n > 1 {
			e.Fragments = n
		}
		for _, p := range a.Parents() {
			e.Parents = append(e.Parents, uint32(p.ID()))
		}
		for _, s := range a.Slices() {
			e.Slices = append(e.Slices, ManifestSlice{Start: s.Start, Stop: s.Stop, Child: uint32(s.Artifact.ID())})
		}
		for _, d := range a.Diagnostics() {
			e.Diagnostics = append(e.Diagnostics, d.String())
		}
		if ns := a.NameSpace(); ns != nil {
			ns.Walk(func(n *artifact.NameSpace, depth int) bool {
				if depth > 0 {
					e.NameSpace = append(e.NameSpace, n.Path("/"))
				}
				return true
			})
		}
		m.Artifacts = append(m.Artifacts, e)
	}
	m.Summary = Diagnostics(g).Summary
	return m
}

// Diagnostics collects every artifact's diagnostics into one report. Each
// structure name is prefixed with the artifact ID its offset belongs to.
func Diagnostics(g *artifact.Graph) *types.DiagnosticReport {
	report := types.NewDiagnosticReport()
	for _, a := range g.Artifacts() {
		for _, d := range a.Diagnostics() {
			d.Structure = fmt.Sprintf("#%d:%s", a.ID(), d.Structure)
			report.Add(d)
		}
	}
	return report
}

// WriteJSON writes m as indented JSON.
func WriteJSON(w io.Writer, m *Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// WriteCBOR writes m as deterministic CBOR.
func WriteCBOR(w io.Writer, m *Manifest) error {
	return codec.NewEncoder(w).Encode(m)
}

// ReadCBOR decodes a manifest written by WriteCBOR.
func ReadCBOR(data []byte) (*Manifest, error) {
	var m Manifest
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
