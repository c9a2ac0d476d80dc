package sshconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gopasspw/gopass/pkg/appdir"
	"github.com/gopasspw/gopass/pkg/debug"
	"github.com/gopasspw/gopass/pkg/set"
)

const defaultConfig = ".ssh/config"

// Editor is the entry point for reading and modifying an ssh client config
// that may be spread over several files linked by Include directives.
//
// Editor owns one Graph of loaded documents and the logical list of host
// entries built from it. Every method takes the same lock, so loading,
// mutating and saving never interleave.
//
// Fields:
// - Home: home directory used for "~" and the default config, defaults to the user's home
// - DefaultConfig: path of the default config relative to Home (".ssh/config")
// - Indent: indent for directives of newly created host blocks (four spaces)
//
// Usage:
//
//	ed := New()
//	if err := ed.OpenDefault(ctx); err != nil { ... }
//	for i, h := range ed.Hosts() { ... }
//	if err := ed.SetOption(0, "User", "root"); err != nil { ... }
//	if _, err := ed.SaveAll(); err != nil { ... }
type Editor struct {
	Home          string
	DefaultConfig string
	Indent        string

	mu    sync.Mutex
	model *model
	gen   uint64 // bumped by every open and Close
}

// New creates an Editor with default settings. Nothing is loaded yet, call
// Open or OpenDefault.
func New() *Editor {
	return &Editor{
		Home:          appdir.UserHome(),
		DefaultConfig: defaultConfig,
		Indent:        defaultIndent,
	}
}

func (e *Editor) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	root := ""
	if e.model != nil {
		root = e.model.graph.root
	}

	return fmt.Sprintf("SSHConfig{Home: %s - Root: %s}", e.Home, root)
}

// DefaultPath returns the location of the default root config.
func (e *Editor) DefaultPath() (string, error) {
	if e.Home == "" {
		return "", ErrNoHome
	}

	return filepath.Join(e.Home, filepath.FromSlash(e.DefaultConfig)), nil
}

// OpenDefault loads the user's default config (~/.ssh/config). A missing
// default config is not an error, the editor then starts with an empty model
// and the file is created on the first save.
func (e *Editor) OpenDefault(ctx context.Context) error {
	p, err := e.DefaultPath()
	if err != nil {
		return err
	}

	return e.open(ctx, p, true)
}

// Open loads the config at path and everything it includes and makes it the
// new root. The previous graph is only replaced on success. If ctx is
// cancelled before loading completes the result is discarded.
//
// Include failures do not make Open fail, they are reported by Diagnostics.
// If several opens overlap, the one started last wins; an earlier one that
// finishes later is dropped.
func (e *Editor) Open(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	return e.open(ctx, path, false)
}

func (e *Editor) open(ctx context.Context, path string, allowMissing bool) error {
	gen := e.nextGen()

	// the graph is built without holding the lock, it is not visible to
	// anybody until it is swapped in below
	g, err := loadGraph(ctx, path, e.Home, allowMissing)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		debug.Log("discarding load of %s: %s", path, err)

		return err
	}

	if !e.swap(gen, newModel(g, e.Indent)) {
		debug.Log("discarding load of %s: superseded by a newer open", path)
	}

	return nil
}

// nextGen starts a new load generation.
func (e *Editor) nextGen() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++

	return e.gen
}

// swap installs m if no other open or Close was started after generation
// gen. It reports whether m was installed.
func (e *Editor) swap(gen uint64, m *model) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		return false
	}
	e.model = m

	return true
}

// Reload reloads the current root from disk, discarding unsaved changes.
func (e *Editor) Reload(ctx context.Context) error {
	e.mu.Lock()
	if e.model == nil {
		e.mu.Unlock()

		return ErrNotLoaded
	}
	root := e.model.graph.root
	exists := e.model.graph.Root().exists
	e.mu.Unlock()

	return e.open(ctx, root, !exists)
}

// Close discards the loaded graph including unsaved changes.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	e.model = nil
}

// locked runs fn with the lock held and a loaded model.
func (e *Editor) locked(fn func(m *model) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return ErrNotLoaded
	}

	return fn(e.model)
}

// Root returns the canonical path of the root config, or "" if nothing is
// loaded.
func (e *Editor) Root() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return ""
	}

	return e.model.graph.root
}

// Documents returns the paths of all loaded documents in load order.
func (e *Editor) Documents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil
	}

	return slices.Clone(e.model.graph.order)
}

// Includes returns the include edges of the loaded graph.
func (e *Editor) Includes() []Edge {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil
	}

	return e.model.graph.Edges()
}

// Hosts returns a snapshot of all host entries in logical order, i.e. the
// order in which ssh evaluates them.
func (e *Editor) Hosts() []HostEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil
	}

	out := make([]HostEntry, 0, len(e.model.hosts))
	for _, h := range e.model.hosts {
		out = append(out, h.clone())
	}

	return out
}

// Host returns a snapshot of host entry i.
func (e *Editor) Host(i int) (HostEntry, error) {
	var out HostEntry
	err := e.locked(func(m *model) error {
		h, _, err := m.host(i)
		if err != nil {
			return err
		}
		out = h.clone()

		return nil
	})

	return out, err
}

// Find returns the index of the first entry that lists pattern verbatim
// among its patterns, or -1. Patterns are not evaluated as wildcards.
func (e *Editor) Find(pattern string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return -1
	}

	return slices.IndexFunc(e.model.hosts, func(h *HostEntry) bool {
		return slices.Contains(h.Patterns, pattern)
	})
}

// Globals returns the directives that appear before the first Host or Match
// block of each document.
func (e *Editor) Globals() []Global {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil
	}

	out := make([]Global, 0, len(e.model.globals))
	for _, g := range e.model.globals {
		g.Values = slices.Clone(g.Values)
		out = append(out, g)
	}

	return out
}

// SetPatterns replaces the patterns of host i.
func (e *Editor) SetPatterns(i int, patterns ...string) error {
	return e.locked(func(m *model) error {
		return m.SetPatterns(i, patterns)
	})
}

// SetOption updates the first occurrence of key in host i or appends it.
//
// Behavior:
// - The key is matched case-insensitively, the original spelling is kept
// - Setting the current value again does not mark anything dirty
// - Only the affected line is rewritten on save
func (e *Editor) SetOption(i int, key, value string) error {
	return e.locked(func(m *model) error {
		return m.SetOption(i, key, value)
	})
}

// AddOption appends key to host i even if it is already set. ssh uses the
// first value for most keys but accumulates some (e.g. IdentityFile).
func (e *Editor) AddOption(i int, key, value string) error {
	return e.locked(func(m *model) error {
		return m.AddOption(i, key, value)
	})
}

// SetOptionAt updates the j-th option of host i.
func (e *Editor) SetOptionAt(i, j int, value string) error {
	return e.locked(func(m *model) error {
		return m.SetOptionAt(i, j, value)
	})
}

// RemoveOptionAt removes the j-th option of host i.
func (e *Editor) RemoveOptionAt(i, j int) error {
	return e.locked(func(m *model) error {
		return m.RemoveOptionAt(i, j)
	})
}

// UnsetOption removes every occurrence of key from host i.
func (e *Editor) UnsetOption(i int, key string) error {
	return e.locked(func(m *model) error {
		return m.UnsetOption(i, key)
	})
}

// AddHost appends a new Host block to the document at path, or to the root
// if path is empty, and returns its index in Hosts.
func (e *Editor) AddHost(path string, patterns []string, opts ...Option) (int, error) {
	idx := -1
	err := e.locked(func(m *model) error {
		var err error
		idx, err = m.AddHost(path, patterns, opts...)

		return err
	})

	return idx, err
}

// RemoveHost deletes host i with all of its directives.
func (e *Editor) RemoveHost(i int) error {
	return e.locked(func(m *model) error {
		return m.RemoveHost(i)
	})
}

// ApplyLegacyOptions enables the legacy algorithm set (see LegacyOptions) on
// host i. Applying it again is a no-op. It returns the number of directives
// that were added or changed.
func (e *Editor) ApplyLegacyOptions(i int) (int, error) {
	var n int
	err := e.locked(func(m *model) error {
		var err error
		n, err = m.ApplyLegacyOptions(i)

		return err
	})

	return n, err
}

// IsDirty reports whether any loaded document has unsaved changes.
func (e *Editor) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return false
	}

	return slices.ContainsFunc(e.model.graph.Documents(), (*Document).Dirty)
}

// DocumentDirty reports whether the document at path has unsaved changes.
func (e *Editor) DocumentDirty(path string) (bool, error) {
	var dirty bool
	err := e.locked(func(m *model) error {
		d, found := m.graph.Document(path)
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownDocument, path)
		}
		dirty = d.dirty

		return nil
	})

	return dirty, err
}

// DirtyDocuments returns the sorted paths of all documents with unsaved
// changes.
func (e *Editor) DirtyDocuments() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil
	}

	var out []string
	for _, d := range e.model.graph.Documents() {
		if d.dirty {
			out = append(out, d.path)
		}
	}

	return set.Sorted(out)
}

// Bytes returns the current rendering of the document at path, i.e. what
// Save would write.
func (e *Editor) Bytes(path string) ([]byte, error) {
	var out []byte
	err := e.locked(func(m *model) error {
		d, found := m.graph.Document(path)
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownDocument, path)
		}
		out = d.Bytes()

		return nil
	})

	return out, err
}

// Save writes the document at path if it is dirty.
func (e *Editor) Save(path string) error {
	return e.locked(func(m *model) error {
		d, found := m.graph.Document(path)
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownDocument, path)
		}
		if !d.dirty {
			debug.V(1).Log("%s has no changes, not writing", d.path)

			return nil
		}

		return saveDocument(d)
	})
}

// SaveAll writes every dirty document in load order. Failures are reported
// per document; a failing document does not keep the others from being
// saved. The returned error joins all failures.
func (e *Editor) SaveAll() ([]SaveResult, error) {
	var (
		results []SaveResult
		saveErr error
	)
	err := e.locked(func(m *model) error {
		results, saveErr = saveAll(m.graph)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, saveErr
}

// Diagnostic is a non-fatal problem found while loading: a recovered parse
// anomaly or an Include that could not be expanded.
type Diagnostic struct {
	Path    string
	Line    int // 1-based
	Text    string
	Anomaly string
	Include *IncludeDiagnostic
}

func (d Diagnostic) String() string {
	if d.Include != nil {
		return fmt.Sprintf("%s:%d: %s", d.Path, d.Line, d.Include)
	}

	return fmt.Sprintf("%s:%d: %s", d.Path, d.Line, d.Anomaly)
}

// Diagnostics returns all parse anomalies and include failures in load
// order.
func (e *Editor) Diagnostics() []Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil
	}

	var out []Diagnostic
	for _, d := range e.model.graph.Documents() {
		for _, n := range d.nodes {
			line := strings.TrimRight(n.text(), "\r\n")
			if n.anomaly != "" {
				out = append(out, Diagnostic{Path: d.path, Line: n.Span.Start + 1, Text: line, Anomaly: n.anomaly})
			}
			for _, id := range n.diags {
				out = append(out, Diagnostic{Path: d.path, Line: n.Span.Start + 1, Text: line, Include: &id})
			}
		}
	}

	return out
}
