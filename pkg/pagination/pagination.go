package pagination

const (
	// DefaultPageSize is used when the caller does not ask for one.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows a single page may return.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Normalize clamps page to >= 1 and page size into [1, max]. Zero values
// fall back to the defaults.
func (p Params) Normalize(defaultSize, maxSize int) Params {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p
}

// Offset is the number of rows to skip for the current page.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Page is the envelope returned by paginated list endpoints.
type Page[T any] struct {
	Results    []T   `json:"results"`
	Count      int64 `json:"count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage assembles the envelope for results fetched with params.
func NewPage[T any](results []T, count int64, params Params) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{
		Results:    results,
		Count:      count,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: TotalPages(count, params.PageSize),
	}
}

// TotalPages rounds up; an empty result set still reports zero pages.
func TotalPages(count int64, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 0
	}
	return int((count + int64(pageSize) - 1) / int64(pageSize))
}
