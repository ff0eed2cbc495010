package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wbrown/janus-graph/graph/kv"
)

var (
	// ErrData is the generic mutation failure. Every failed multi-step
	// mutation is rolled back and reported as a *DataError matching it.
	ErrData = errors.New("data exception")

	// ErrDataPreparationFailed reports that the root counters could not be
	// bootstrapped when opening a database
	ErrDataPreparationFailed = errors.New("data preparation failed")

	ErrIndexAlreadyExists  = errors.New("index already exists")
	ErrIndexCreationFailed = errors.New("index creation failed")
	ErrIndexRemovalFailed  = errors.New("index removal failed")

	// ErrNoSuchTraversal reports a hop that is not defined for the iterator's kind
	ErrNoSuchTraversal = errors.New("no such traversal")

	// ErrMissingKey reports an internal consistency violation: a counter or
	// structure the engine maintains was absent
	ErrMissingKey = kv.ErrMissingKey

	// ErrInvalidDataType reports a non-vertex entity where a vertex is required
	ErrInvalidDataType = errors.New("invalid data type")

	// ErrInvalidData reports a property bag with a disallowed shape
	ErrInvalidData = errors.New("invalid data")

	ErrFieldNotFound = errors.New("field not found")
	ErrNotFound      = errors.New("entity not found")
	ErrEntityExists  = errors.New("entity already exists")
	ErrUnknownAlias  = errors.New("unknown alias")
)

// DataError wraps the cause of a failed, rolled-back mutation.
//
// The original error can be accessed via errors.Unwrap.
type DataError struct {
	Op  string // operation name, e.g. "add-edge"
	Ref Ref    // entity the operation targeted, zero if none was allocated
	Err error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Ref, ErrData, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// Is makes every DataError match ErrData
func (e *DataError) Is(target error) bool { return target == ErrData }

// IndexError reports a failed index lifecycle operation.
type IndexError struct {
	Op     string // "create" or "drop"
	Kind   Kind
	Fields []string
	Err    error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %s(%s): %v", e.Op, e.Kind, strings.Join(e.Fields, ","), e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// Is maps the operation onto ErrIndexCreationFailed / ErrIndexRemovalFailed
func (e *IndexError) Is(target error) bool {
	switch target {
	case ErrIndexCreationFailed:
		return e.Op == "create"
	case ErrIndexRemovalFailed:
		return e.Op == "drop"
	}
	return false
}
