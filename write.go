package sshconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopasspw/gopass/pkg/debug"
)

// SaveResult reports the outcome of saving one document.
type SaveResult struct {
	Path string
	Err  error
}

// saveDocument writes d atomically: the new content goes to a temporary file
// in the same directory which then replaces the original. On any failure the
// original file is untouched and d stays dirty.
func saveDocument(d *Document) error {
	if d.path == "" {
		return fmt.Errorf("%w: document has no path", ErrWriteConfig)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w %q for %q: %w", ErrCreateConfigDir, dir, d.path, err)
	}

	content := d.Bytes()
	debug.V(3).Log("writing config to %s: \n--------------\n%s\n--------------", d.path, strings.Join(strings.Split("+ "+string(content), "\n"), "\n+ "))

	fh, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w to %s: %w", ErrWriteConfig, d.path, err)
	}
	tmp := fh.Name()

	if err := writeTemp(fh, content, d.mode); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("%w to %s: %w", ErrWriteConfig, d.path, err)
	}

	if err := os.Rename(tmp, d.path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("%w to %s: %w", ErrWriteConfig, d.path, err)
	}

	d.commit()
	debug.V(1).Log("wrote config to %s", d.path)

	return nil
}

func writeTemp(fh *os.File, content []byte, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o600
	}

	_, err := fh.Write(content)
	if err == nil {
		err = fh.Chmod(mode)
	}
	if err == nil {
		err = fh.Sync()
	}

	return errors.Join(err, fh.Close())
}

// saveAll saves every dirty document in load order. A failure does not stop
// the remaining documents from being saved.
func saveAll(g *Graph) ([]SaveResult, error) {
	var (
		results []SaveResult
		errs    []error
	)

	for _, d := range g.Documents() {
		if !d.dirty {
			continue
		}

		err := saveDocument(d)
		results = append(results, SaveResult{Path: d.path, Err: err})
		if err != nil {
			debug.Log("failed to save %s: %s", d.path, err)
			errs = append(errs, err)
		}
	}

	return results, errors.Join(errs...)
}
