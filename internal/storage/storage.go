// Package storage holds helpers shared by the on-disk artifact packages.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// FileMode is the permission of every data file and side-car.
const FileMode = 0o644

// WriteAtomic replaces path with the bytes produced by write. The content
// goes to a pending file in the same directory and is renamed over path
// once synced, so readers observe either the old file or the complete new
// one. On any error path is left untouched.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	base := filepath.Base(path)
	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithStaticPermissions(FileMode),
	)
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", base, err)
	}
	defer func() { _ = pf.Cleanup() }()

	bw := bufio.NewWriter(pf)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", base, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", base, err)
	}
	return nil
}
