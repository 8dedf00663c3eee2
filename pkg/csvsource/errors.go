package csvsource

import "errors"

var (
	// ErrEmptyFile is returned when the file has zero length.
	ErrEmptyFile = errors.New("file is empty")

	// ErrHeaderTooLong is returned when no line terminator is found within
	// the header window.
	ErrHeaderTooLong = errors.New("header too long")

	// ErrMapFailed is returned when a file region can be neither mapped nor read.
	ErrMapFailed = errors.New("cannot map file region")

	// ErrClosed is returned by operations on a closed reader.
	ErrClosed = errors.New("reader is closed")

	// ErrRowUnavailable is returned when a row's bytes cannot be located or read.
	ErrRowUnavailable = errors.New("row unavailable")
)
