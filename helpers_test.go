package sshconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// tempDir returns a canonical temp dir, so paths compare equal to the
// canonicalized document paths on systems where TMPDIR is a symlink.
func tempDir(t *testing.T) string {
	t.Helper()

	td, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	return td
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	buf, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(buf)
}

func openEditor(t *testing.T, path string) *Editor {
	t.Helper()

	ed := New()
	ed.Home = tempDir(t)
	require.NoError(t, ed.Open(context.Background(), path))

	return ed
}

func hostNames(hosts []HostEntry) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h.String())
	}

	return out
}

func mustBytes(t *testing.T, ed *Editor, path string) string {
	t.Helper()

	buf, err := ed.Bytes(path)
	require.NoError(t, err)

	return string(buf)
}
