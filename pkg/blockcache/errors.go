package blockcache

import "errors"

var (
	// ErrClosed is returned by operations on a closed Model.
	ErrClosed = errors.New("block cache is closed")

	// ErrNoData is returned when no usable data source is set.
	ErrNoData = errors.New("block cache has no data source")

	// ErrReset is returned by LoadAll when the data source or block size
	// changed before every block was loaded.
	ErrReset = errors.New("block cache was reset")

	// ErrLoadAllRunning is returned when LoadAll is already in progress.
	ErrLoadAllRunning = errors.New("load all already running")

	// ErrNotLoaded is returned by WaitVisible when a visible block failed to
	// load and nothing is loading it anymore.
	ErrNotLoaded = errors.New("visible rows could not be loaded")
)
