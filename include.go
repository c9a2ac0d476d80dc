package sshconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gopasspw/gopass/pkg/debug"
	"github.com/gopasspw/gopass/pkg/set"
)

// DiagKind classifies why an Include could not be expanded.
type DiagKind int

// Include failure kinds.
const (
	DiagNotFound DiagKind = iota + 1
	DiagPermissionDenied
	DiagCircular
	DiagUnreadable
)

func (k DiagKind) String() string {
	switch k {
	case DiagNotFound:
		return "not found"
	case DiagPermissionDenied:
		return "permission denied"
	case DiagCircular:
		return "circular include"
	case DiagUnreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("diag(%d)", int(k))
	}
}

// IncludeDiagnostic is attached to an Include node whose target could not be
// loaded. The node itself stays in the document untouched.
type IncludeDiagnostic struct {
	Kind    DiagKind
	Pattern string   // pattern as written
	Path    string   // resolved target path, if known
	Cycle   []string // for DiagCircular: the expansion path closing the cycle
	Err     error
}

func (d IncludeDiagnostic) String() string {
	if d.Kind == DiagCircular {
		return fmt.Sprintf("%s: %s", d.Kind, strings.Join(d.Cycle, " -> "))
	}
	if d.Err != nil {
		return fmt.Sprintf("%s: %s: %s", d.Kind, d.Pattern, d.Err)
	}

	return fmt.Sprintf("%s: %s", d.Kind, d.Pattern)
}

func classifyIOError(err error) DiagKind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return DiagNotFound
	case errors.Is(err, fs.ErrPermission):
		return DiagPermissionDenied
	default:
		return DiagUnreadable
	}
}

// canonicalPath makes p absolute and resolves all symlinks. It fails if p
// does not exist.
func canonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	return filepath.EvalSymlinks(abs)
}

// resolve expands all Include nodes of d. stack is the list of canonical
// paths currently being expanded, d included. It is only used to detect
// cycles and never stored.
func (g *Graph) resolve(ctx context.Context, d *Document, stack []string) error {
	g.resolved[d.path] = true

	for _, n := range d.includes() {
		n.diags = nil
		for _, pattern := range n.values {
			if err := g.expandInclude(ctx, d, n, pattern, stack); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *Graph) expandInclude(ctx context.Context, d *Document, n *Node, pattern string, stack []string) error {
	attach := func(diag IncludeDiagnostic) {
		diag.Pattern = pattern
		debug.V(1).Log("%s:%d: include %s", d.path, n.Span.Start+1, diag)
		n.diags = append(n.diags, diag)
	}

	p, err := expandHome(pattern, g.home)
	if err != nil {
		attach(IncludeDiagnostic{Kind: DiagUnreadable, Err: err})

		return nil
	}
	// relative to the including file, i.e. ~/.ssh for the default root
	if !filepath.IsAbs(p) {
		p = filepath.Join(filepath.Dir(d.path), p)
	}

	matches := []string{p}
	if hasGlobMeta(p) {
		matches, err = expandGlob(p)
		if err != nil {
			attach(IncludeDiagnostic{Kind: DiagUnreadable, Path: p, Err: err})

			return nil
		}
		if len(matches) == 0 {
			debug.V(2).Log("%s:%d: include pattern %q matched no files", d.path, n.Span.Start+1, pattern)
		}
	}

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}

		canon, err := canonicalPath(m)
		if err != nil {
			attach(IncludeDiagnostic{Kind: classifyIOError(err), Path: m, Err: err})

			continue
		}

		if i := slices.Index(stack, canon); i >= 0 {
			cycle := slices.Concat(stack[i:], []string{canon})
			attach(IncludeDiagnostic{Kind: DiagCircular, Path: canon, Cycle: cycle})

			continue
		}

		target, found := g.docs[canon]
		if !found {
			target, err = g.load(canon)
			if err != nil {
				attach(IncludeDiagnostic{Kind: classifyIOError(err), Path: canon, Err: err})

				continue
			}
		} else {
			debug.V(3).Log("reusing already loaded %s", canon)
		}

		g.edges = append(g.edges, Edge{From: d.path, Node: n, To: canon})

		if g.resolved[canon] {
			continue
		}
		if err := g.resolve(ctx, target, slices.Concat(stack, []string{canon})); err != nil {
			return err
		}
	}

	return nil
}

// expandGlob expands an absolute pattern against the file system one path
// component at a time, like glob(3). Only existing non-directory paths are
// returned, sorted. Names starting with a dot only match wildcard components
// that start with a dot themselves.
func expandGlob(pattern string) ([]string, error) {
	pattern = filepath.Clean(pattern)
	vol := filepath.VolumeName(pattern)
	sep := string(filepath.Separator)
	parts := strings.Split(strings.TrimPrefix(pattern[len(vol):], sep), sep)

	candidates := []string{vol + sep}
	for _, part := range parts {
		next := make([]string, 0, len(candidates))
		for _, dir := range candidates {
			if !hasGlobMeta(part) {
				next = append(next, filepath.Join(dir, part))

				continue
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				debug.V(3).Log("skipping %s while expanding %q: %s", dir, pattern, err)

				continue
			}
			for _, e := range entries {
				name := e.Name()
				if strings.HasPrefix(name, ".") && !strings.HasPrefix(part, ".") {
					continue
				}
				ok, err := globMatch(part, name)
				if err != nil {
					return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
				}
				if ok {
					next = append(next, filepath.Join(dir, name))
				}
			}
		}
		candidates = next
	}

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		fi, err := os.Stat(c)
		if err != nil || fi.IsDir() {
			continue
		}
		out = append(out, c)
	}

	return set.Sorted(out), nil
}
