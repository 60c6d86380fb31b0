// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// BookStatus 书籍状态
type BookStatus string

const (
	BookStatusDraft      BookStatus = "draft"
	BookStatusGenerating BookStatus = "generating"
	BookStatusGenerated  BookStatus = "generated"
	BookStatusPartial    BookStatus = "partial"
	BookStatusFailed     BookStatus = "failed"
)

// Book 书籍实体
type Book struct {
	ID            string     `json:"id" gorm:"type:uuid;primaryKey"`
	AuthorID      string     `json:"author_id,omitempty" gorm:"type:varchar(64);index"`
	Title         string     `json:"title" gorm:"type:varchar(255);not null"`
	Description   string     `json:"description,omitempty" gorm:"type:text"`
	Genre         string     `json:"genre,omitempty" gorm:"type:varchar(64)"`
	TotalChapters int        `json:"total_chapters" gorm:"not null;default:0"`
	IsFree        bool       `json:"is_free" gorm:"default:false"`
	IsComplete    bool       `json:"is_complete" gorm:"default:false"`
	Status        BookStatus `json:"status" gorm:"type:varchar(32);default:'draft'"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Chapters []*Chapter `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (Book) TableName() string {
	return "books"
}

// NewBook 创建新书籍（草稿状态）
func NewBook(authorID, title, description string, totalChapters int) *Book {
	now := time.Now()
	return &Book{
		ID:            uuid.NewString(),
		AuthorID:      authorID,
		Title:         title,
		Description:   description,
		TotalChapters: totalChapters,
		Status:        BookStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
