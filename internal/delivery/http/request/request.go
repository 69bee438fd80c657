package request

// CreateSiteRequest is the body of POST /api/websites.
type CreateSiteRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	URL      string `json:"url" validate:"required,http_url"`
	Interval *int   `json:"interval" validate:"omitempty,gte=1"` // seconds, defaults to 300
	Keyword  string `json:"keyword" validate:"max=200"`
}
