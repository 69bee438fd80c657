package response

import (
	"github.com/user/sitewatch-service/internal/entity"
)

// SiteResponse is the API view of a monitored site. Times are unix seconds,
// 0 meaning never checked.
type SiteResponse struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	URL              string  `json:"url"`
	Interval         int     `json:"interval"`
	Keyword          string  `json:"keyword"`
	Enabled          bool    `json:"enabled"`
	LastStatus       string  `json:"last_status"`
	LastResponseTime float64 `json:"last_response_time"` // seconds
	LastChecked      int64   `json:"last_checked"`
	LastHash         *string `json:"last_hash"`
	FirstRun         bool    `json:"first_run"`
	KeywordFound     bool    `json:"keyword_found"`
	AlertSent        bool    `json:"alert_sent"`
}

// SiteLogResponse is the API view of an audit entry.
type SiteLogResponse struct {
	ID        int64   `json:"id"`
	WebsiteID int64   `json:"website_id"`
	EventType string  `json:"event_type"`
	Message   string  `json:"message"`
	OldHash   *string `json:"old_hash"`
	NewHash   *string `json:"new_hash"`
	Timestamp int64   `json:"timestamp"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type EnabledResponse struct {
	Enabled bool `json:"enabled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewSiteResponse(s *entity.Site) SiteResponse {
	resp := SiteResponse{
		ID:               s.ID,
		Name:             s.Name,
		URL:              s.URL,
		Interval:         s.Interval,
		Keyword:          s.Keyword,
		Enabled:          s.Enabled,
		LastStatus:       string(s.LastStatus),
		LastResponseTime: s.LastResponseTime.Seconds(),
		LastHash:         optional(s.LastContentHash),
		FirstRun:         s.FirstRun,
		KeywordFound:     s.KeywordFound,
		AlertSent:        s.AlertSent,
	}
	if !s.LastChecked.IsZero() {
		resp.LastChecked = s.LastChecked.Unix()
	}
	return resp
}

func NewSiteListResponse(sites []*entity.Site) []SiteResponse {
	out := make([]SiteResponse, 0, len(sites))
	for _, s := range sites {
		out = append(out, NewSiteResponse(s))
	}
	return out
}

func NewSiteLogListResponse(logs []*entity.SiteLog) []SiteLogResponse {
	out := make([]SiteLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, SiteLogResponse{
			ID:        l.ID,
			WebsiteID: l.SiteID,
			EventType: string(l.EventType),
			Message:   l.Message,
			OldHash:   optional(l.OldHash),
			NewHash:   optional(l.NewHash),
			Timestamp: l.Timestamp.Unix(),
		})
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
