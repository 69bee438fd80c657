package repository

import (
	"context"

	"github.com/user/sitewatch-service/internal/entity"
)

// PageScanner defines the contract for loading a page and inspecting it.
type PageScanner interface {
	// Scan loads url, looks for keyword and collects PDF links. Implementations
	// enforce their own navigation timeout and report recognized error pages as
	// a result with ScanErrorPage rather than an error.
	Scan(ctx context.Context, url, keyword string, takeScreenshot bool) (*entity.ScanResult, error)
}
