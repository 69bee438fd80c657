package entity

import "time"

// SiteStatus is the outcome of the most recent check of a site.
type SiteStatus string

const (
	SiteStatusUnknown SiteStatus = "unknown"
	SiteStatusUp      SiteStatus = "up"
	SiteStatusDown    SiteStatus = "down"
	SiteStatusError   SiteStatus = "error"
)

// Site mirrors the `sites` table: a monitored page, its polling configuration
// and the mutable status written by the checker.
type Site struct {
	ID       int64
	Name     string
	URL      string
	Keyword  string // empty means hash-change only
	Interval int    // seconds
	Enabled  bool

	LastChecked      time.Time // zero until the first check
	LastStatus       SiteStatus
	LastResponseTime time.Duration
	LastContentHash  string
	KeywordFound     bool
	AlertSent        bool
	FirstRun         bool
}

// NewSite returns a site in its freshly registered state.
func NewSite(name, url, keyword string, interval int) *Site {
	return &Site{
		Name:       name,
		URL:        url,
		Keyword:    keyword,
		Interval:   interval,
		Enabled:    true,
		LastStatus: SiteStatusUnknown,
		FirstRun:   true,
	}
}

// IntervalDuration returns the polling interval as a time.Duration.
func (s *Site) IntervalDuration() time.Duration {
	return time.Duration(s.Interval) * time.Second
}

// IsDue reports whether at least one interval has elapsed since the last check.
func (s *Site) IsDue(now time.Time) bool {
	if s.LastChecked.IsZero() {
		return true
	}
	return now.Sub(s.LastChecked) >= s.IntervalDuration()
}
