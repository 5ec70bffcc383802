package docroot

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/dittoweb/internal/logger"
)

// ImportDir copies every regular file below src into store. The document
// path of a file is its path relative to src, slash separated, with a leading
// "/". Symlinks and other special files are skipped.
//
// Returns the number of documents written.
func ImportDir(ctx context.Context, store WritableStore, src string) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat import source: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("import source %s is not a directory", src)
	}

	count := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		docPath := "/" + filepath.ToSlash(rel)
		if err := store.Put(ctx, docPath, data); err != nil {
			return fmt.Errorf("store %s: %w", docPath, err)
		}

		logger.Debug("Imported %s (%d bytes)", docPath, len(data))
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	return count, nil
}
