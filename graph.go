package sshconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/gopasspw/gopass/pkg/debug"
)

// Edge records that an Include node in one document expanded to another
// document. A document included from several places has several edges but is
// loaded only once.
type Edge struct {
	From string // canonical path of the including document
	Node *Node  // the Include node in From
	To   string // canonical path of the included document
}

// Graph owns every loaded Document, keyed by canonical path, and the include
// edges between them.
type Graph struct {
	root     string
	home     string
	docs     map[string]*Document
	order    []string
	edges    []Edge
	resolved map[string]bool
}

func newGraph(home string) *Graph {
	return &Graph{
		home:     home,
		docs:     make(map[string]*Document, 8),
		resolved: make(map[string]bool, 8),
	}
}

// loadGraph loads the root config and everything it includes. If allowMissing
// is set a root that does not exist yields an empty graph whose root document
// will be created on the first save.
func loadGraph(ctx context.Context, root, home string, allowMissing bool) (*Graph, error) {
	g := newGraph(home)

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", root, ErrInvalidPath, err)
	}

	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			debug.Log("config %s not found, starting empty", abs)
			g.add(&Document{
				path:    abs,
				newline: nativeNewline,
				mode:    0o600,
			})
			g.root = abs

			return g, nil
		}

		return nil, fmt.Errorf("failed to open %s: %w", root, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := g.load(canon)
	if err != nil {
		return nil, err
	}
	g.root = canon

	if err := g.resolve(ctx, d, []string{canon}); err != nil {
		return nil, err
	}

	debug.Log("loaded %s (%d documents, %d include edges)", canon, len(g.order), len(g.edges))

	return g, nil
}

// load reads and parses one file and adds it to the graph.
func (g *Graph) load(path string) (*Document, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidPath)
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close() //nolint:errcheck

	d, err := parseDocument(path, fh)
	if err != nil {
		return nil, err
	}
	d.mode = fi.Mode().Perm()

	g.add(d)
	debug.V(2).Log("loaded %s", path)

	return d, nil
}

func (g *Graph) add(d *Document) {
	g.docs[d.path] = d
	g.order = append(g.order, d.path)
}

// Root returns the root document.
func (g *Graph) Root() *Document {
	return g.docs[g.root]
}

// Document returns the loaded document for a path. The path is canonicalized
// if it is not a known key already.
func (g *Graph) Document(path string) (*Document, bool) {
	if d, found := g.docs[path]; found {
		return d, true
	}
	if canon, err := canonicalPath(path); err == nil {
		if d, found := g.docs[canon]; found {
			return d, true
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		d, found := g.docs[abs]

		return d, found
	}

	return nil, false
}

// Documents returns all documents in load order.
func (g *Graph) Documents() []*Document {
	out := make([]*Document, 0, len(g.order))
	for _, p := range g.order {
		out = append(out, g.docs[p])
	}

	return out
}

// Edges returns a copy of the include edges in resolution order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// targets returns the documents an Include node expanded to, in order.
func (g *Graph) targets(n *Node) []*Document {
	var out []*Document
	for _, e := range g.edges {
		if e.Node == n {
			out = append(out, g.docs[e.To])
		}
	}

	return out
}

// pruneEdges drops edges whose Include node is no longer part of its document.
func (g *Graph) pruneEdges() {
	live := make(map[*Node]bool, len(g.edges))
	for _, d := range g.docs {
		for _, n := range d.includes() {
			live[n] = true
		}
	}

	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		if !live[e.Node] {
			debug.V(2).Log("dropping include edge %s -> %s", e.From, e.To)

			return true
		}

		return false
	})
}
