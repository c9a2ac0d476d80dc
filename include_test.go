package sshconfig

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func includeDiags(ed *Editor) []IncludeDiagnostic {
	var out []IncludeDiagnostic
	for _, d := range ed.Diagnostics() {
		if d.Include != nil {
			out = append(out, *d.Include)
		}
	}

	return out
}

// TestIncludeCircular tests that A -> B -> A terminates with a diagnostic.
func TestIncludeCircular(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	a := writeFile(t, filepath.Join(td, "a.conf"), "Include b.conf\nHost a\n")
	b := writeFile(t, filepath.Join(td, "b.conf"), "Include a.conf\nHost b\n")

	ed := openEditor(t, a)

	assert.Equal(t, []string{a, b}, ed.Documents())
	assert.Equal(t, []string{"Host b", "Host a"}, hostNames(ed.Hosts()))

	diags := includeDiags(ed)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagCircular, diags[0].Kind)
	assert.Equal(t, "a.conf", diags[0].Pattern)
	assert.Equal(t, []string{a, b, a}, diags[0].Cycle)

	// the include line is untouched
	assert.Equal(t, "Include a.conf\nHost b\n", mustBytes(t, ed, b))
}

func TestIncludeSelf(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	a := writeFile(t, filepath.Join(td, "a.conf"), "Host a\nInclude a.conf\n")

	ed := openEditor(t, a)

	assert.Len(t, ed.Documents(), 1)
	diags := includeDiags(ed)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagCircular, diags[0].Kind)
	assert.Equal(t, []string{a, a}, diags[0].Cycle)
}

// TestIncludeShared tests that a file included from two places is loaded once.
func TestIncludeShared(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Include b.conf\nInclude c.conf\n")
	writeFile(t, filepath.Join(td, "b.conf"), "Include d.conf\nHost b\n")
	writeFile(t, filepath.Join(td, "c.conf"), "Include d.conf\nHost c\n")
	d := writeFile(t, filepath.Join(td, "d.conf"), "Host d\n")

	ed := openEditor(t, root)

	assert.Len(t, ed.Documents(), 4)
	assert.Empty(t, includeDiags(ed))

	var toD int
	for _, e := range ed.Includes() {
		if e.To == d {
			toD++
		}
	}
	assert.Equal(t, 2, toD)

	// d is inlined where it is reached first
	assert.Equal(t, []string{"Host d", "Host b", "Host c"}, hostNames(ed.Hosts()))
}

// TestIncludeOrder tests that included hosts appear at the Include line.
func TestIncludeOrder(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Host x\n    User u\nInclude other.conf\nHost z\n")
	other := writeFile(t, filepath.Join(td, "other.conf"), "Host y\n")

	ed := openEditor(t, root)

	hosts := ed.Hosts()
	assert.Equal(t, []string{"Host x", "Host y", "Host z"}, hostNames(hosts))
	assert.Equal(t, root, hosts[0].Path)
	assert.Equal(t, other, hosts[1].Path)
	assert.Equal(t, Span{Start: 0, End: 1}, hosts[1].Header)
	assert.Equal(t, Span{Start: 3, End: 4}, hosts[2].Header)
}

func TestIncludeNotFound(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Include missing.conf\nInclude conf.d/*.conf\nHost a\n")

	ed := openEditor(t, root)

	// the glob matching nothing is not an error, the literal path is
	diags := includeDiags(ed)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagNotFound, diags[0].Kind)
	assert.Equal(t, "missing.conf", diags[0].Pattern)
	assert.Equal(t, []string{"Host a"}, hostNames(ed.Hosts()))

	all := ed.Diagnostics()
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].Line)
	assert.Equal(t, "Include missing.conf", all[0].Text)
}

func TestIncludeGlob(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Include conf.d/*.conf\n")
	writeFile(t, filepath.Join(td, "conf.d", "b.conf"), "Host b\n")
	writeFile(t, filepath.Join(td, "conf.d", "a.conf"), "Host a\n")
	writeFile(t, filepath.Join(td, "conf.d", ".hidden.conf"), "Host hidden\n")
	writeFile(t, filepath.Join(td, "conf.d", "c.conf.bak"), "Host bak\n")
	require.NoError(t, os.MkdirAll(filepath.Join(td, "conf.d", "dir.conf"), 0o755))

	ed := openEditor(t, root)

	assert.Equal(t, []string{"Host a", "Host b"}, hostNames(ed.Hosts()))
	assert.Empty(t, includeDiags(ed))
}

func TestIncludeGlobInDirectory(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Include */ssh.conf\n")
	writeFile(t, filepath.Join(td, "work", "ssh.conf"), "Host work\n")
	writeFile(t, filepath.Join(td, "home", "ssh.conf"), "Host home\n")

	ed := openEditor(t, root)

	assert.Equal(t, []string{"Host home", "Host work"}, hostNames(ed.Hosts()))
}

func TestIncludeMultiplePatterns(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Include two.conf one.conf\n")
	writeFile(t, filepath.Join(td, "one.conf"), "Host one\n")
	writeFile(t, filepath.Join(td, "two.conf"), "Host two\n")

	ed := openEditor(t, root)

	assert.Equal(t, []string{"Host two", "Host one"}, hostNames(ed.Hosts()))
}

func TestIncludeHome(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	home := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Include ~/.ssh/extra.conf\n")
	writeFile(t, filepath.Join(home, ".ssh", "extra.conf"), "Host t\n")

	ed := New()
	ed.Home = home
	require.NoError(t, ed.Open(context.Background(), root))

	assert.Equal(t, []string{"Host t"}, hostNames(ed.Hosts()))
}

func TestIncludeAbsoluteAndSymlink(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}

	td := tempDir(t)
	target := writeFile(t, filepath.Join(td, "real", "hosts.conf"), "Host real\n")
	link := filepath.Join(td, "link.conf")
	require.NoError(t, os.Symlink(target, link))
	root := writeFile(t, filepath.Join(td, "config"), "Include "+link+"\nInclude real/hosts.conf\n")

	ed := openEditor(t, root)

	// both includes resolve to the same canonical document
	assert.Equal(t, []string{root, target}, ed.Documents())
	assert.Equal(t, []string{"Host real"}, hostNames(ed.Hosts()))
	assert.Len(t, ed.Includes(), 2)
}

func TestIncludePermissionDenied(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("Permission test not reliable on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root can read anything")
	}

	td := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Include secret.conf\nHost a\n")
	secret := writeFile(t, filepath.Join(td, "secret.conf"), "Host s\n")
	require.NoError(t, os.Chmod(secret, 0o000))
	t.Cleanup(func() { _ = os.Chmod(secret, 0o644) })

	ed := openEditor(t, root)

	diags := includeDiags(ed)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagPermissionDenied, diags[0].Kind)
	assert.Equal(t, []string{"Host a"}, hostNames(ed.Hosts()))
}

func TestIncludeDirectory(t *testing.T) {
	t.Parallel()

	td := tempDir(t)
	root := writeFile(t, filepath.Join(td, "config"), "Include conf.d\n")
	require.NoError(t, os.MkdirAll(filepath.Join(td, "conf.d"), 0o755))

	ed := openEditor(t, root)

	diags := includeDiags(ed)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagUnreadable, diags[0].Kind)
	assert.ErrorIs(t, diags[0].Err, ErrInvalidPath)
}

func TestDiagKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not found", DiagNotFound.String())
	assert.Equal(t, "circular include", DiagCircular.String())
	assert.Equal(t, "circular include: a -> b -> a", IncludeDiagnostic{Kind: DiagCircular, Cycle: []string{"a", "b", "a"}}.String())
}
