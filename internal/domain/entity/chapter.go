// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chapter 章节实体
// (BookID, OrderIndex) 唯一；OrderIndex 由流水线按循环序号分配
type Chapter struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	BookID     string    `json:"book_id" gorm:"type:uuid;not null;uniqueIndex:idx_chapters_book_order"`
	OrderIndex int       `json:"order_index" gorm:"not null;uniqueIndex:idx_chapters_book_order"`
	Title      string    `json:"title" gorm:"type:varchar(255);not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	IsFree     bool      `json:"is_free" gorm:"default:true"`
	WordCount  int       `json:"word_count" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建新章节，字数按统一规则计算
func NewChapter(bookID string, orderIndex int, title, content string) *Chapter {
	now := time.Now()
	c := &Chapter{
		ID:         uuid.NewString(),
		BookID:     bookID,
		OrderIndex: orderIndex,
		IsFree:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.Title = title
	c.SetContent(content)
	return c
}

// SetContent 设置章节内容
func (c *Chapter) SetContent(content string) {
	c.Content = content
	c.WordCount = CountWords(content)
	c.UpdatedAt = time.Now()
}
