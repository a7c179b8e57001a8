// Package pagination normalizes page/per_page query parameters and shapes the
// list envelope returned by every collection endpoint.
package pagination

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// Standard is the page size config used by most lists.
var Standard = PageSizeConfig{Default: DefaultPerPage, Max: MaxPerPage}

// Params is a validated page request.
type Params struct {
	Page    int
	PerPage int
}

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int, cfg PageSizeConfig) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// FromQuery reads page and per_page. Non-numeric values are invalid input;
// out-of-range values are clamped.
func FromQuery(q url.Values, cfg PageSizeConfig) (Params, error) {
	page, err := intParam(q, "page")
	if err != nil {
		return Params{}, err
	}
	perPage, err := intParam(q, "per_page")
	if err != nil {
		return Params{}, err
	}
	if page < 1 {
		page = 1
	}
	return Params{Page: page, PerPage: ClampPageSize(perPage, cfg)}, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" must be an integer")
	}
	return n, nil
}

// DateParam parses an optional YYYY-MM-DD query parameter.
func DateParam(q url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, name+" must be a date (YYYY-MM-DD)")
	}
	return &t, nil
}

// BoolParam parses an optional boolean query parameter.
func BoolParam(q url.Values, name string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, name+" must be a boolean")
	}
	return &b, nil
}

// Meta describes the returned page.
type Meta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// Page is the list envelope.
type Page[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

// NewPage builds the envelope; a nil slice is rendered as [].
func NewPage[T any](data []T, p Params, total int) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{Data: data, Meta: Meta{Page: p.Page, PerPage: p.PerPage, Total: total}}
}

// Map converts a page of models into a page of responses.
func Map[T, R any](in Page[T], fn func(T) R) Page[R] {
	out := make([]R, 0, len(in.Data))
	for _, item := range in.Data {
		out = append(out, fn(item))
	}
	return Page[R]{Data: out, Meta: in.Meta}
}

// Slice applies p to an in-memory result set.
func Slice[T any](all []T, p Params) []T {
	start := p.Offset()
	if start >= len(all) {
		return nil
	}
	end := min(start+p.PerPage, len(all))
	return all[start:end]
}
