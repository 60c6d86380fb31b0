package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm/clause"

	"bookgen-ai-api/internal/domain/entity"
	"bookgen-ai-api/internal/domain/repository"
)

// bookIndexRow 整书索引表结构
type bookIndexRow struct {
	BookID            string         `gorm:"type:uuid;primaryKey"`
	Summary           string         `gorm:"type:text"`
	Themes            pq.StringArray `gorm:"type:text[]"`
	Characters        pq.StringArray `gorm:"type:text[]"`
	PlotPoints        pq.StringArray `gorm:"type:text[]"`
	Tone              string         `gorm:"type:varchar(64);index"`
	Genre             string         `gorm:"type:varchar(64);index"`
	StructureAnalysis string         `gorm:"type:text"`
	Cliffhangers      pq.StringArray `gorm:"type:text[]"`
	WordCount         int            `gorm:"not null;default:0"`
	AnalysisVersion   string         `gorm:"type:varchar(16);not null"`
	Status            string         `gorm:"type:varchar(16);not null;index"`
	LastAnalyzed      time.Time

	Book *entity.Book `gorm:"foreignKey:BookID;references:ID;constraint:OnDelete:CASCADE"`
}

func (bookIndexRow) TableName() string {
	return "book_indexes"
}

func newBookIndexRow(idx *entity.BookIndex) *bookIndexRow {
	return &bookIndexRow{
		BookID:            idx.BookID,
		Summary:           idx.Summary,
		Themes:            pq.StringArray(nonNil(idx.Themes)),
		Characters:        pq.StringArray(nonNil(idx.Characters)),
		PlotPoints:        pq.StringArray(nonNil(idx.PlotPoints)),
		Tone:              idx.Tone,
		Genre:             idx.Genre,
		StructureAnalysis: idx.StructureAnalysis,
		Cliffhangers:      pq.StringArray(nonNil(idx.Cliffhangers)),
		WordCount:         idx.WordCount,
		AnalysisVersion:   idx.AnalysisVersion,
		Status:            string(idx.Status),
		LastAnalyzed:      idx.LastAnalyzed,
	}
}

func (r *bookIndexRow) toEntity() *entity.BookIndex {
	return &entity.BookIndex{
		BookID:            r.BookID,
		Summary:           r.Summary,
		Themes:            nonNil(r.Themes),
		Characters:        nonNil(r.Characters),
		PlotPoints:        nonNil(r.PlotPoints),
		Tone:              r.Tone,
		Genre:             r.Genre,
		StructureAnalysis: r.StructureAnalysis,
		Cliffhangers:      nonNil(r.Cliffhangers),
		WordCount:         r.WordCount,
		AnalysisVersion:   r.AnalysisVersion,
		Status:            entity.BookIndexStatus(r.Status),
		LastAnalyzed:      r.LastAnalyzed,
	}
}

// BookIndexRepository 整书索引仓储实现
type BookIndexRepository struct {
	client *Client
}

var _ repository.BookIndexRepository = (*BookIndexRepository)(nil)

func NewBookIndexRepository(client *Client) *BookIndexRepository {
	return &BookIndexRepository{client: client}
}

// Upsert 按 book_id 覆盖写入
func (r *BookIndexRepository) Upsert(ctx context.Context, idx *entity.BookIndex) error {
	ctx, span := tracer.Start(ctx, "postgres.BookIndexRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}},
			UpdateAll: true,
		}).
		Create(newBookIndexRow(idx)).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert book index: %w", err)
	}
	return nil
}

// GetByBook 获取整书索引
func (r *BookIndexRepository) GetByBook(ctx context.Context, bookID string) (*entity.BookIndex, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookIndexRepository.GetByBook")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var row bookIndexRow
	if err := db.First(&row, "book_id = ?", bookID).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get book index: %w", err)
	}
	return row.toEntity(), nil
}

// FindByTheme 主题子串匹配
func (r *BookIndexRepository) FindByTheme(ctx context.Context, theme string, pagination repository.Pagination) ([]*entity.BookIndex, error) {
	return r.find(ctx, "FindByTheme",
		"EXISTS (SELECT 1 FROM unnest(themes) AS t WHERE t ILIKE ?)", containsPattern(theme), pagination)
}

// FindByGenre 类型子串匹配
func (r *BookIndexRepository) FindByGenre(ctx context.Context, genre string, pagination repository.Pagination) ([]*entity.BookIndex, error) {
	return r.find(ctx, "FindByGenre", "genre ILIKE ?", containsPattern(genre), pagination)
}

// FindByTone 基调子串匹配
func (r *BookIndexRepository) FindByTone(ctx context.Context, tone string, pagination repository.Pagination) ([]*entity.BookIndex, error) {
	return r.find(ctx, "FindByTone", "tone ILIKE ?", containsPattern(tone), pagination)
}

func (r *BookIndexRepository) find(ctx context.Context, op, cond, arg string, pagination repository.Pagination) ([]*entity.BookIndex, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookIndexRepository."+op)
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rows []*bookIndexRow
	if err := db.Where(cond, arg).
		Order("last_analyzed DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query book indexes: %w", err)
	}

	out := make([]*entity.BookIndex, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}
