package repository

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination 页码从 1 开始；零值等价于第一页、默认页大小
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPagination 把查询参数钳制到合法范围
func NewPagination(page, pageSize int) Pagination {
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return Pagination{Page: max(page, 1), PageSize: min(pageSize, maxPageSize)}
}

func (p Pagination) Offset() int {
	return (max(p.Page, 1) - 1) * p.Limit()
}

func (p Pagination) Limit() int {
	if p.PageSize < 1 {
		return defaultPageSize
	}
	return p.PageSize
}

// Page 一页结果与满足条件的总数
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}
