// Package spill writes packed record batches to local spill files and
// streams them back.
//
// The directory layout follows the shuffle convention: each configured
// local dir fans out into two-digit hex subdirectories, and spill files are
// created with unique temp names inside them. Writers append envelopes
// back-to-back; readers replay them in order through a memory-mapped
// sequential stream.
package spill

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/arloliu/shufflepack/errs"
)

// LocalDirsEnvKey names the environment variable listing the configured
// local spill directories, comma-separated.
const LocalDirsEnvKey = "SHUFFLEPACK_LOCAL_DIRS"

const tempFilePrefix = "temp_shuffle_"

// tempFileAttempts bounds the uuid collision retries in CreateTempFile.
const tempFileAttempts = 10

// LocalDirs returns the configured local spill directories. Fails with
// errs.ErrInvalidArgument when the variable is unset or holds no usable
// entries.
func LocalDirs() ([]string, error) {
	raw := os.Getenv(LocalDirsEnvKey)
	if raw == "" {
		return nil, fmt.Errorf("%w: %s is not set", errs.ErrInvalidArgument, LocalDirsEnvKey)
	}

	parts := strings.Split(raw, ",")
	dirs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			dirs = append(dirs, p)
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: %s holds no directories", errs.ErrInvalidArgument, LocalDirsEnvKey)
	}

	return dirs, nil
}

// SpillDir joins a configured local dir with the two-digit lowercase hex
// subdirectory for subDirID.
func SpillDir(configuredDir string, subDirID int32) string {
	return filepath.Join(configuredDir, fmt.Sprintf("%02x", subDirID))
}

// CreateTempFile creates a uniquely named spill file inside dir, creating
// the directory first when needed. The file is opened with O_EXCL, so a
// name collision retries with a fresh uuid up to a bounded attempt count.
func CreateTempFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating spill dir %s: %v", errs.ErrIO, dir, err)
	}

	for i := 0; i < tempFileAttempts; i++ {
		path := filepath.Join(dir, tempFilePrefix+uuid.NewString())
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: creating spill file %s: %v", errs.ErrIO, path, err)
		}
	}

	return nil, fmt.Errorf("%w: no unique spill file name in %s after %d attempts",
		errs.ErrIO, dir, tempFileAttempts)
}
