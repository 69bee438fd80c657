package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// Scan failures. The checker treats any scanner error as a failed scan;
	// these sentinels only refine logging and metrics.
	ErrScanTimeout      = errors.New("page scan timed out")
	ErrNavigationFailed = errors.New("navigation failed")
	ErrExtractionFailed = errors.New("content extraction failed")

	// Transport failures.
	ErrDownloadFailed = errors.New("document download failed")
	ErrFileMissing    = errors.New("attachment file not found")
	ErrNotifierOpen   = errors.New("notifier circuit open")
)
