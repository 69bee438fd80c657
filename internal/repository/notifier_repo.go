package repository

import "context"

// Notifier sends alerts to the configured destination. Sends are best-effort:
// callers log a returned error and carry on.
type Notifier interface {
	SendText(ctx context.Context, message string) error
	SendPhoto(ctx context.Context, path, caption string) error
	SendDocument(ctx context.Context, path, caption string) error
}

// DocumentFetcher downloads a remote document to local storage.
type DocumentFetcher interface {
	// Fetch downloads url and returns the local file path.
	Fetch(ctx context.Context, url string) (string, error)
}
