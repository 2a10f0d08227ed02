package responses

// Page the uniform paging envelope. Items keep the order the engine
// produced them in, TotalCount may come from a possibly stale count.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
}

// NewPage envelope constructor
func NewPage[T any](items []T, page, pageSize int, totalCount int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
	}
}
