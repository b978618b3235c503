package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/errs"
)

// TempFilePrefix is the prefix of the temporary files used by atomic writes.
// The folder walker never yields files carrying it.
const TempFilePrefix = "strata-tmp-"

// writeFileAtomic writes data next to filename and renames it into place, so
// readers observe either the previous content or the new one.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(filename), TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errs.Combine(fmt.Errorf("write temp file: %w", err), tmp.Close())
	}
	if err = tmp.Sync(); err != nil {
		return errs.Combine(fmt.Errorf("sync temp file: %w", err), tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", filename, err)
	}
	return nil
}
