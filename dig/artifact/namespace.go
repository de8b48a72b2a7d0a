package artifact

import "strings"

// NameSpace is one component of a hierarchy discovered inside an artifact:
// a directory, a registry key, a tape file label. It may name an artifact
// holding that component's content.
type NameSpace struct {
	name     string
	parent   *NameSpace
	artifact *Artifact
	children []*NameSpace
	byName   map[string]*NameSpace
	attrs    map[string]string
}

// NewNameSpace returns an unnamed root component.
func NewNameSpace() *NameSpace { return &NameSpace{} }

func (n *NameSpace) Name() string           { return n.name }
func (n *NameSpace) Parent() *NameSpace     { return n.parent }
func (n *NameSpace) Artifact() *Artifact    { return n.artifact }
func (n *NameSpace) Children() []*NameSpace { return n.children }

// Bind records the artifact this component names.
func (n *NameSpace) Bind(a *Artifact) { n.artifact = a }

// SetAttr records a display attribute such as a timestamp or a size.
func (n *NameSpace) SetAttr(key, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[key] = value
}

// Attr returns a display attribute.
func (n *NameSpace) Attr(key string) (string, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

// Child returns the child called name, creating it if needed. Children keep
// the order they were first created in.
func (n *NameSpace) Child(name string) *NameSpace {
	if c, ok := n.byName[name]; ok {
		return c
	}
	c := &NameSpace{name: name, parent: n}
	if n.byName == nil {
		n.byName = make(map[string]*NameSpace)
	}
	n.byName[name] = c
	n.children = append(n.children, c)
	return c
}

// Lookup follows path components down from n.
func (n *NameSpace) Lookup(path ...string) (*NameSpace, bool) {
	cur := n
	for _, p := range path {
		c, ok := cur.byName[p]
		if !ok {
			return nil, false
		}
		cur = c
	}
	return cur, true
}

// Path returns the components from the root down to n joined by sep.
func (n *NameSpace) Path(sep string) string {
	var parts []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, sep)
}

// Walk visits n and its descendants depth-first in child order. depth is 0
// for n. Returning false from fn skips that component's children.
func (n *NameSpace) Walk(fn func(ns *NameSpace, depth int) bool) {
	type frame struct {
		ns    *NameSpace
		depth int
	}
	stack := []frame{{n, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.ns, f.depth) {
			continue
		}
		for i := len(f.ns.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.ns.children[i], f.depth + 1})
		}
	}
}

// Len returns the number of components below n.
func (n *NameSpace) Len() int {
	count := -1
	n.Walk(func(*NameSpace, int) bool {
		count++
		return true
	})
	return count
}
