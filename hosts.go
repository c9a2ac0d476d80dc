package sshconfig

import (
	"slices"
	"strings"
)

// Option is one directive inside a host block. Repeated keys are kept as
// separate Options in file order.
type Option struct {
	Key    string   // key as written
	Value  string   // raw value text
	Values []string // parsed arguments
	Span   Span
}

// HostEntry is a Host or Match block as seen by editors. Its provenance is
// the document path plus the spans of the header and every owned directive.
// Spans are indices into the document, the entry never owns the nodes.
type HostEntry struct {
	Kind     NodeKind // KindHost or KindMatch
	Patterns []string
	Options  []Option
	Path     string
	Header   Span
}

// Global is a directive that appears before the first header of a document.
type Global struct {
	Path string
	Option
}

// Get returns the first value of the key. The first obtained value wins in
// ssh, so this is the effective value within this block.
func (h HostEntry) Get(key string) (string, bool) {
	if i := h.index(key); i >= 0 {
		return h.Options[i].Value, true
	}

	return "", false
}

// GetAll returns all values of the key in file order.
func (h HostEntry) GetAll(key string) []string {
	key = canonicalizeKey(key)
	var out []string
	for _, o := range h.Options {
		if canonicalizeKey(o.Key) == key {
			out = append(out, o.Value)
		}
	}

	return out
}

// Has reports whether the key is set at least once.
func (h HostEntry) Has(key string) bool {
	return h.index(key) >= 0
}

// Span returns the lines from the header through the last owned directive.
func (h HostEntry) Span() Span {
	s := h.Header
	if len(h.Options) > 0 {
		s.End = h.Options[len(h.Options)-1].Span.End
	}

	return s
}

func (h HostEntry) String() string {
	kw := "Host"
	if h.Kind == KindMatch {
		kw = "Match"
	}

	return kw + " " + strings.Join(h.Patterns, " ")
}

func (h HostEntry) index(key string) int {
	key = canonicalizeKey(key)

	return slices.IndexFunc(h.Options, func(o Option) bool {
		return canonicalizeKey(o.Key) == key
	})
}

func (h HostEntry) clone() HostEntry {
	c := h
	c.Patterns = slices.Clone(h.Patterns)
	c.Options = make([]Option, len(h.Options))
	for i, o := range h.Options {
		o.Values = slices.Clone(o.Values)
		c.Options[i] = o
	}

	return c
}

func optionFromNode(n *Node) Option {
	return Option{
		Key:    n.key,
		Value:  n.value,
		Values: n.Values(),
		Span:   n.Span,
	}
}

// buildHosts walks the graph depth-first from the root in file order and
// inlines included documents where their Include appears. A document reached
// a second time (shared include or cycle) is not inlined again, so every line
// belongs to at most one entry.
func buildHosts(g *Graph) ([]*HostEntry, []Global) {
	w := &walker{
		g:    g,
		seen: make(map[string]bool, len(g.docs)),
	}
	if root := g.Root(); root != nil {
		w.walk(root)
	}

	return w.hosts, w.globals
}

type walker struct {
	g       *Graph
	seen    map[string]bool
	hosts   []*HostEntry
	globals []Global
}

func (w *walker) walk(d *Document) {
	w.seen[d.path] = true

	var cur *HostEntry
	for _, n := range d.nodes {
		switch {
		case n.Kind.isHeader():
			cur = &HostEntry{
				Kind:     n.Kind,
				Patterns: n.Values(),
				Path:     d.path,
				Header:   n.Span,
			}
			w.hosts = append(w.hosts, cur)
		case n.Kind == KindDirective:
			if cur == nil {
				w.globals = append(w.globals, Global{Path: d.path, Option: optionFromNode(n)})

				continue
			}
			cur.Options = append(cur.Options, optionFromNode(n))
		case n.Kind == KindInclude:
			for _, t := range w.g.targets(n) {
				if !w.seen[t.path] {
					w.walk(t)
				}
			}
		}
	}
}
