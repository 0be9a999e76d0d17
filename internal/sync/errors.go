package sync

import "errors"

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")

	// ErrDirEmpty is returned when no snapshot directory is configured.
	ErrDirEmpty = errors.New("sync directory cannot be empty")

	// ErrSnapshotMissing is returned when no snapshot file exists to import.
	ErrSnapshotMissing = errors.New("sync snapshot not found")

	// ErrSnapshotStale is returned when the snapshot is older than the
	// configured maximum age and the import was not forced.
	ErrSnapshotStale = errors.New("sync snapshot is too old")
)
