package sshconfig

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gopasspw/gopass/pkg/debug"
)

const defaultIndent = "    "

// model is the logical view over a Graph together with the mutation
// operations. Every mutation updates the backing nodes and the entries in the
// same call. It is not safe for concurrent use, the Editor serializes access.
type model struct {
	graph   *Graph
	hosts   []*HostEntry
	globals []Global
	indent  string
}

func newModel(g *Graph, indent string) *model {
	if indent == "" {
		indent = defaultIndent
	}
	m := &model{
		graph:  g,
		indent: indent,
	}
	m.rebuild()

	return m
}

// rebuild recreates all entries from the nodes. Needed after structural
// changes; in-place edits keep the entries up to date themselves.
func (m *model) rebuild() {
	m.hosts, m.globals = buildHosts(m.graph)
}

func (m *model) host(i int) (*HostEntry, *Document, error) {
	if i < 0 || i >= len(m.hosts) {
		return nil, nil, fmt.Errorf("%w: index %d (have %d)", ErrHostNotFound, i, len(m.hosts))
	}
	h := m.hosts[i]
	d, found := m.graph.docs[h.Path]
	if !found {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownDocument, h.Path)
	}

	return h, d, nil
}

// shift moves every span in document path starting at or after line at by
// delta lines.
func (m *model) shift(path string, at, delta int) {
	mv := func(s *Span) {
		if s.Start >= at {
			s.Start += delta
			s.End += delta
		}
	}

	for _, h := range m.hosts {
		if h.Path != path {
			continue
		}
		mv(&h.Header)
		for j := range h.Options {
			mv(&h.Options[j].Span)
		}
	}
	for j := range m.globals {
		if m.globals[j].Path == path {
			mv(&m.globals[j].Span)
		}
	}
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, " \t\r\n=\"#") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	switch canonicalizeKey(key) {
	case "host", "match", "include":
		return fmt.Errorf("%w: %q can not be used as an option", ErrInvalidKey, key)
	}

	return nil
}

func validateValue(value string) error {
	if strings.TrimSpace(value) == "" || strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}
	if v, trail, _ := splitValueComment(value); trail != "" || v != value {
		return fmt.Errorf("%w: %q would be read back as a comment", ErrInvalidValue, value)
	}
	if _, ok := splitValues(value); !ok {
		return fmt.Errorf("%w: unterminated quote in %q", ErrInvalidValue, value)
	}

	return nil
}

func cleanPatterns(patterns []string) ([]string, error) {
	out := slices.Clone(patterns)
	trim(out)
	out = slices.DeleteFunc(out, func(s string) bool { return s == "" })
	if len(out) == 0 {
		return nil, ErrInvalidPattern
	}
	for _, p := range out {
		if strings.ContainsAny(p, "\"\r\n") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}

	return out, nil
}

// insertPoint returns the line a new directive of h goes to and the
// indent and separator it should copy. New directives go directly after the
// last owned directive, so comments trailing the block stay where they are.
func (m *model) insertPoint(h *HostEntry, d *Document) (int, string, string) {
	if len(h.Options) == 0 {
		hdr := d.nodes[h.Header.Start]

		return h.Header.End, hdr.indent + m.indent, " "
	}

	last := h.Options[len(h.Options)-1]
	n := d.nodes[last.Span.Start]
	sep := n.sep
	if sep == "" {
		sep = " "
	}

	return last.Span.End, n.indent, sep
}

// addOption appends a directive to the block without validation.
func (m *model) addOption(h *HostEntry, d *Document, key, value string) {
	at, indent, sep := m.insertPoint(h, d)
	n := newDirectiveNode(indent, key, sep, value, "")

	d.insert(at, n)
	m.shift(d.path, at, 1)
	h.Options = append(h.Options, optionFromNode(n))
	d.dirty = true

	debug.V(2).Log("%s:%d: added %s %s to %s", d.path, at+1, key, value, h)
}

// setOptionAt rewrites the value of the j-th option without validation. It
// reports whether anything changed.
func (m *model) setOptionAt(h *HostEntry, d *Document, j int, value string) bool {
	o := &h.Options[j]
	if o.Value == value {
		debug.V(1).Log("%s: %s already set to %q. Not re-writing.", h, o.Key, value)

		return false
	}

	n := d.nodes[o.Span.Start]
	if n.sep == "" {
		n.sep = " "
	}
	n.setValue(value)
	o.Value = n.value
	o.Values = n.Values()
	d.dirty = true

	debug.V(2).Log("%s:%d: set %s to %q", d.path, o.Span.Start+1, o.Key, value)

	return true
}

func (m *model) removeOptionAt(h *HostEntry, d *Document, j int) {
	s := h.Options[j].Span
	d.remove(s)
	h.Options = slices.Delete(h.Options, j, j+1)
	m.shift(d.path, s.End, -s.Len())
	d.dirty = true

	debug.V(2).Log("%s:%d: removed option from %s", d.path, s.Start+1, h)
}

// AddOption appends a new directive to host i, even if the key exists.
func (m *model) AddOption(i int, key, value string) error {
	h, d, err := m.host(i)
	if err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if err := validateValue(value); err != nil {
		return err
	}

	m.addOption(h, d, key, value)

	return nil
}

// SetOption updates the first occurrence of key in host i or adds it.
func (m *model) SetOption(i int, key, value string) error {
	h, d, err := m.host(i)
	if err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if err := validateValue(value); err != nil {
		return err
	}

	if j := h.index(key); j >= 0 {
		m.setOptionAt(h, d, j, value)

		return nil
	}

	m.addOption(h, d, key, value)

	return nil
}

// SetOptionAt updates the j-th option of host i.
func (m *model) SetOptionAt(i, j int, value string) error {
	h, d, err := m.host(i)
	if err != nil {
		return err
	}
	if j < 0 || j >= len(h.Options) {
		return fmt.Errorf("%w: index %d in %s", ErrOptionNotFound, j, h)
	}
	if err := validateValue(value); err != nil {
		return err
	}

	m.setOptionAt(h, d, j, value)

	return nil
}

// RemoveOptionAt deletes the j-th option of host i.
func (m *model) RemoveOptionAt(i, j int) error {
	h, d, err := m.host(i)
	if err != nil {
		return err
	}
	if j < 0 || j >= len(h.Options) {
		return fmt.Errorf("%w: index %d in %s", ErrOptionNotFound, j, h)
	}

	m.removeOptionAt(h, d, j)

	return nil
}

// UnsetOption deletes every occurrence of key from host i. Unsetting a key
// that is not present is a no-op.
func (m *model) UnsetOption(i int, key string) error {
	h, d, err := m.host(i)
	if err != nil {
		return err
	}

	key = canonicalizeKey(key)
	for j := len(h.Options) - 1; j >= 0; j-- {
		if canonicalizeKey(h.Options[j].Key) == key {
			m.removeOptionAt(h, d, j)
		}
	}

	return nil
}

// SetPatterns rewrites the header of host i. Only the pattern text changes,
// indentation, keyword and trailing comment are kept.
func (m *model) SetPatterns(i int, patterns []string) error {
	h, d, err := m.host(i)
	if err != nil {
		return err
	}
	patterns, err = cleanPatterns(patterns)
	if err != nil {
		return err
	}
	if slices.Equal(patterns, h.Patterns) {
		return nil
	}

	n := d.nodes[h.Header.Start]
	if n.sep == "" {
		n.sep = " "
	}
	n.setValue(joinPatterns(patterns))
	h.Patterns = n.Values()
	d.dirty = true

	debug.V(2).Log("%s:%d: renamed host to %q", d.path, h.Header.Start+1, n.value)

	return nil
}

// RemoveHost deletes host i from the header through its last owned
// directive. Include lines inside that range go with it, which changes the
// graph structure and triggers a rebuild.
func (m *model) RemoveHost(i int) error {
	h, d, err := m.host(i)
	if err != nil {
		return err
	}

	s := h.Span()
	removed := d.remove(s)
	d.dirty = true

	structural := slices.ContainsFunc(removed, func(n *Node) bool { return n.Kind == KindInclude })
	if structural {
		m.graph.pruneEdges()
		m.rebuild()
	} else {
		m.hosts = slices.Delete(m.hosts, i, i+1)
		m.shift(d.path, s.End, -s.Len())
	}

	debug.V(2).Log("%s:%d: removed %s (%d lines)", d.path, s.Start+1, h, s.Len())

	return nil
}

// AddHost appends a new Host block to the document at path (the root if
// empty) and returns the index of the new entry.
func (m *model) AddHost(path string, patterns []string, opts ...Option) (int, error) {
	d := m.graph.Root()
	if path != "" {
		var found bool
		d, found = m.graph.Document(path)
		if !found {
			return -1, fmt.Errorf("%w: %s", ErrUnknownDocument, path)
		}
	}
	if d == nil {
		return -1, ErrNotLoaded
	}
	if !m.reachable(d.path) {
		return -1, fmt.Errorf("%w: %s is not included from the root", ErrUnknownDocument, d.path)
	}

	patterns, err := cleanPatterns(patterns)
	if err != nil {
		return -1, err
	}
	for _, o := range opts {
		if err := validateKey(o.Key); err != nil {
			return -1, err
		}
		if err := validateValue(o.Value); err != nil {
			return -1, err
		}
	}

	nodes := make([]*Node, 0, len(opts)+2)
	if !d.lastLineIsBlank() {
		nodes = append(nodes, newBlankNode(""))
	}
	hdr := newHeaderNode(patterns, "")
	nodes = append(nodes, hdr)
	for _, o := range opts {
		nodes = append(nodes, newDirectiveNode(m.indent, o.Key, " ", o.Value, ""))
	}

	d.insert(len(d.nodes), nodes...)
	d.dirty = true
	m.rebuild()

	debug.V(2).Log("%s:%d: added %s", d.path, hdr.Span.Start+1, hdr.value)

	return slices.IndexFunc(m.hosts, func(h *HostEntry) bool {
		return h.Path == d.path && h.Header == hdr.Span
	}), nil
}

// reachable reports whether entries of the document show up in the model.
func (m *model) reachable(path string) bool {
	if path == m.graph.root {
		return true
	}

	return slices.ContainsFunc(m.graph.edges, func(e Edge) bool { return e.To == path })
}
