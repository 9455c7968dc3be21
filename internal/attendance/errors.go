package attendance

import "errors"

// Repository errors.
var (
	ErrNotFound = errors.New("attendance record not found")
)
