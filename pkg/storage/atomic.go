package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
)

// atomicWriteJSON serializes v, writes it to a sibling "*.tmp" file, and
// renames it over path. The rename is the only externally-visible step,
// so a reader never observes a partially written file. Transient
// write/rename failures (e.g. a momentarily exhausted fd table) are
// retried a handful of times with exponential backoff before being
// reported as a storage failure.
func atomicWriteJSON(fs afero.Fs, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}

	tmp := path + ".tmp"
	operation := func() error {
		if err := afero.WriteFile(fs, tmp, data, fileMode); err != nil {
			return fmt.Errorf("writing temp file %s: %w", tmp, err)
		}
		if err := fs.Rename(tmp, path); err != nil {
			return fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	return backoff.Retry(operation, policy)
}
