package entity

// ScanOutcome distinguishes the ways a completed scan can end. A scan that
// could not complete is reported as an error by the scanner instead.
type ScanOutcome string

const (
	ScanMatched   ScanOutcome = "matched"
	ScanNoMatch   ScanOutcome = "no_match"
	ScanErrorPage ScanOutcome = "error_page"
)

// ScanResult is the snapshot produced by one page scan. It is never persisted.
type ScanResult struct {
	Outcome    ScanOutcome
	Context    string   // line containing the keyword, truncated
	PDFLinks   []string // unique absolute URLs, in page order
	Screenshot string   // local path, empty if none was taken
	FinalURL   string   // URL after redirects
	PageHash   string   // fingerprint of the normalized visible text
}

// Found reports whether the keyword was present on the page.
func (r *ScanResult) Found() bool {
	return r != nil && r.Outcome == ScanMatched
}

// ResolvedURL returns the post-redirect URL, falling back to the given one.
func (r *ScanResult) ResolvedURL(fallback string) string {
	if r != nil && r.FinalURL != "" {
		return r.FinalURL
	}
	return fallback
}
