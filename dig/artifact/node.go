package artifact

// Kind discriminates the two kinds of graph node.
type Kind uint8

const (
	// KindRoot is the excavation root that top-level images hang off.
	KindRoot Kind = iota
	// KindArtifact is a content-addressed artifact.
	KindArtifact
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindArtifact:
		return "artifact"
	default:
		return "unknown"
	}
}

// ID identifies a node within one graph. The root is always 0; artifacts
// are numbered from 1 in creation order.
type ID uint32

// RootID is the ID of the excavation root.
const RootID ID = 0

// Node is implemented by *Root and *Artifact.
type Node interface {
	Kind() Kind
	ID() ID
	// Label is a short human-readable name for the node.
	Label() string
	// Children lists the node's children in the order they were attached.
	Children() []*Artifact
}

// Root is the parent of every top-level artifact.
type Root struct {
	children []*Artifact
	names    []string
}

func (r *Root) Kind() Kind { return KindRoot }
func (r *Root) ID() ID     { return RootID }

func (r *Root) Label() string {
	if len(r.names) > 0 {
		return r.names[0]
	}
	return "excavation"
}

// SetLabel names the excavation, typically after the image being examined.
func (r *Root) SetLabel(name string) { r.names = appendUnique(r.names, name) }

func (r *Root) Children() []*Artifact { return r.children }

func (r *Root) addChild(a *Artifact) bool {
	for _, c := range r.children {
		if c == a {
			return false
		}
	}
	r.children = append(r.children, a)
	return true
}

// Child is one (start, stop, child) triple recorded on a parent: the child's
// bytes are parent[Start:Stop). Scatter-gather children record one triple
// per fragment.
type Child struct {
	Start, Stop int
	Artifact    *Artifact
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
