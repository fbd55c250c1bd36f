package store

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable is returned when the record backend cannot be read or written
// (permissions, disk full, missing directory, unreachable database).
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrCorruptRecord matches every *CorruptRecordError through errors.Is.
var ErrCorruptRecord = errors.New("corrupt record")

// CorruptRecordError reports persisted data that cannot be parsed into a location.
type CorruptRecordError struct {
	Line   int    // Line is the 1-based line of the offending row, 0 when the backend has no lines.
	Reason string // Reason describes what is wrong with the row.
	Err    error  // Err is the underlying parse error, if any.
}

func (e *CorruptRecordError) Error() string {
	msg := e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return "corrupt record: " + msg
}

func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}
