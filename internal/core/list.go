package core

import "fmt"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListParams is the pagination shared by every list endpoint. Zero values
// mean "use the default".
type ListParams struct {
	Page  int
	Limit int
}

func (p ListParams) Validate() error {
	if p.Page < 0 {
		return fieldErr("page", fmt.Errorf("%w (must be >= 1)", ErrOutOfRange))
	}
	if p.Limit < 0 || p.Limit > MaxLimit {
		return fieldErr("limit", fmt.Errorf("%w (must be between 1 and %d)", ErrOutOfRange, MaxLimit))
	}
	return nil
}

// PageMeta is the pagination block in list responses. Older endpoints
// report pages, newer ones total_pages with has_next/has_prev.
type PageMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	Pages      int  `json:"pages,omitempty"`
	TotalPages int  `json:"total_pages,omitempty"`
	HasNext    bool `json:"has_next,omitempty"`
	HasPrev    bool `json:"has_prev,omitempty"`
}

// PageCount reconciles the two page-count fields.
func (m PageMeta) PageCount() int {
	if m.TotalPages > 0 {
		return m.TotalPages
	}
	if m.Pages > 0 {
		return m.Pages
	}
	if m.Limit > 0 {
		return (m.Total + m.Limit - 1) / m.Limit
	}
	return 0
}
