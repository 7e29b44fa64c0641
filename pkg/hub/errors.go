package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/collabhub/server/pkg/codec"
)

// ErrNotFound is returned by GetProject when a project has no in-memory
// state and no on-disk artifact.
var ErrNotFound = errors.New("project not found")

// ConflictError reports a baseVersion mismatch. It carries the
// authoritative current state of the entity (or project) that the caller
// must surface to clients as HTTP 409.
type ConflictError struct {
	Project        string
	Entity         EntityKind
	EntityID       string
	Version        int64
	ProjectVersion int64
	Deleted        bool
	UpdatedAt      time.Time
	Payload        json.RawMessage
	// Document is populated for the full-snapshot conflict, where the
	// authoritative state is the entire project document rather than a
	// single entity.
	Document *Document
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: current version is %d", e.Version)
}

// InvalidPayloadError is re-exported so callers that only import pkg/hub
// can type-switch on it without also importing pkg/codec.
type InvalidPayloadError = codec.InvalidPayloadError

func invalidPayload(format string, args ...any) error {
	return &InvalidPayloadError{Reason: fmt.Sprintf(format, args...)}
}

// StorageError wraps a failure to persist the aggregate project snapshot.
// The in-memory mutation and version bump stand (matching the grounding
// prototype's save-after-unlock shape) and later reads observe them, but
// no event was published and the caller must report a hard failure, not
// 200.
type StorageError struct {
	Project string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("persist project %q: %v", e.Project, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
