package access

import (
	"errors"
)

var (
	// ErrStoreDirEmpty is returned if the store is opened without a data directory.
	ErrStoreDirEmpty = errors.New("access store data directory can not be empty")
)
