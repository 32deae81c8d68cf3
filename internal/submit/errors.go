package submit

import (
	"errors"
	"fmt"

	"examgate/internal/validate"
)

// Duplicate rejections. Neither leaves any trace in the index or the vault.
var (
	ErrDuplicateFilename = errors.New("a submission with this filename already exists for this student")
	ErrDuplicateContent  = errors.New("identical content has already been submitted")
)

// ValidationError rejects a file before any hashing or mutation happens.
type ValidationError struct {
	Reason validate.Reason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return string(e.Reason)
}

// StorageError reports a failed copy or index append. The submission was
// aborted and the index and vault remain consistent with each other.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
