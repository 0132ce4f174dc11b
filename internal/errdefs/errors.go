package errdefs

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAlreadyExists    = errors.New("already exists")
	ErrValidation       = errors.New("validation error")
)

// Kind returns the machine-readable name of the first sentinel err wraps.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrAlreadyExists):
		return "AlreadyExists"
	case errors.Is(err, ErrDeadlineExceeded):
		return "DeadlineExceeded"
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrValidation):
		return "InvalidArgument"
	default:
		return "Internal"
	}
}
