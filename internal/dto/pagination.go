package dto

const (
	DefaultPageSize = 20
	// MaxPageSize 活动列表每页上限，超出按上限截断
	MaxPageSize = 50
)

// PaginationRequest 活动列表分页参数，page 从 1 开始
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1"`
}

// Normalize 补齐默认值并截断 page_size，可重复调用
func (p *PaginationRequest) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	switch {
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
}

// Offset 需先调用 Normalize
func (p *PaginationRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}
