package dto

import (
	"time"

	"bookgen-ai-api/internal/application/book"
	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
	wfmodel "bookgen-ai-api/internal/workflow/model"
)

// CreateOutlineRequest 生成大纲请求
type CreateOutlineRequest struct {
	UserQuery     string `json:"user_query" binding:"required,max=4000"`
	TotalChapters int    `json:"total_chapters" binding:"required,gte=1,lte=100"`
}

// GenerateBookRequest 整书生成请求
type GenerateBookRequest struct {
	UserQuery     string `json:"user_query" binding:"required,max=4000"`
	TotalChapters int    `json:"total_chapters" binding:"required,gte=1,lte=100"`
	AuthorID      string `json:"author_id,omitempty" binding:"max=64"`
	Genre         string `json:"genre,omitempty" binding:"max=64"`
}

// ToGenerationRequest 转换为流水线请求
func (r *GenerateBookRequest) ToGenerationRequest() book.GenerationRequest {
	return book.GenerationRequest{
		UserQuery:     r.UserQuery,
		TotalChapters: r.TotalChapters,
		AuthorID:      r.AuthorID,
		Genre:         r.Genre,
	}
}

// GenerateChaptersRequest 按给定规格生成章节请求
type GenerateChaptersRequest struct {
	TotalChapters int                   `json:"total_chapters" binding:"required,gte=1,lte=100"`
	Chapters      []wfmodel.ChapterSpec `json:"chapters" binding:"required"`
}

// BookResponse 书籍响应
type BookResponse struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Genre         string    `json:"genre,omitempty"`
	TotalChapters int       `json:"total_chapters"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToBookResponse 转换书籍实体
func ToBookResponse(b *entity.Book) *BookResponse {
	if b == nil {
		return nil
	}
	return &BookResponse{
		ID:            b.ID,
		AuthorID:      b.AuthorID,
		Title:         b.Title,
		Description:   b.Description,
		Genre:         b.Genre,
		TotalChapters: b.TotalChapters,
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// ChapterSummary 章节目录项
type ChapterSummary struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"order_index"`
	Title      string `json:"title"`
	WordCount  int    `json:"word_count"`
}

// BookDetailResponse 书籍详情
type BookDetailResponse struct {
	*BookResponse
	Chapters   []ChapterSummary `json:"chapters"`
	TotalWords int              `json:"total_words"`
}

func ToBookDetailResponse(b *entity.Book, chapters []*entity.Chapter) *BookDetailResponse {
	resp := &BookDetailResponse{BookResponse: ToBookResponse(b), Chapters: make([]ChapterSummary, 0, len(chapters))}
	for _, ch := range chapters {
		resp.Chapters = append(resp.Chapters, ChapterSummary{
			ID:         ch.ID,
			OrderIndex: ch.OrderIndex,
			Title:      ch.Title,
			WordCount:  ch.WordCount,
		})
		resp.TotalWords += ch.WordCount
	}
	return resp
}

// GenerateBookResponse 整书生成响应
type GenerateBookResponse struct {
	Book    *BookResponse          `json:"book"`
	Outline *wfmodel.BookOutline   `json:"outline"`
	Report  *book.ChapterRunReport `json:"report"`
}

// ToGenerateBookResponse 转换整书生成结果
func ToGenerateBookResponse(res *book.GenerationResult) *GenerateBookResponse {
	return &GenerateBookResponse{
		Book:    ToBookResponse(res.Book),
		Outline: res.Outline,
		Report:  res.Report,
	}
}

// JobAcceptedResponse 异步任务受理响应
type JobAcceptedResponse struct {
	JobID           string `json:"job_id"`
	Type            string `json:"type"`
	StreamMessageID string `json:"stream_message_id"`
}

// BookUsageResponse 书籍 token 用量响应
type BookUsageResponse struct {
	BookID string `json:"book_id"`
	Window string `json:"window,omitempty"`
	repository.UsageSummary
}
