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

// chapterIndexRow 章节索引表结构；列表字段存为 text[]
type chapterIndexRow struct {
	ChapterID        string         `gorm:"type:uuid;primaryKey"`
	BookID           string         `gorm:"type:uuid;not null;index"`
	Summary          string         `gorm:"type:text"`
	KeyEvents        pq.StringArray `gorm:"type:text[]"`
	Characters       pq.StringArray `gorm:"type:text[]"`
	Mood             string         `gorm:"type:varchar(64);index"`
	Cliffhanger      bool           `gorm:"not null;default:false"`
	ThematicAnalysis string         `gorm:"type:text"`
	WordCount        int            `gorm:"not null;default:0"`
	AnalysisVersion  string         `gorm:"type:varchar(16);not null"`
	LastAnalyzed     time.Time

	Chapter *entity.Chapter `gorm:"foreignKey:ChapterID;references:ID;constraint:OnDelete:CASCADE"`
}

func (chapterIndexRow) TableName() string {
	return "chapter_indexes"
}

func newChapterIndexRow(idx *entity.ChapterIndex) *chapterIndexRow {
	return &chapterIndexRow{
		ChapterID:        idx.ChapterID,
		BookID:           idx.BookID,
		Summary:          idx.Summary,
		KeyEvents:        pq.StringArray(nonNil(idx.KeyEvents)),
		Characters:       pq.StringArray(nonNil(idx.Characters)),
		Mood:             idx.Mood,
		Cliffhanger:      idx.Cliffhanger,
		ThematicAnalysis: idx.ThematicAnalysis,
		WordCount:        idx.WordCount,
		AnalysisVersion:  idx.AnalysisVersion,
		LastAnalyzed:     idx.LastAnalyzed,
	}
}

func (r *chapterIndexRow) toEntity() *entity.ChapterIndex {
	return &entity.ChapterIndex{
		ChapterID:        r.ChapterID,
		BookID:           r.BookID,
		Summary:          r.Summary,
		KeyEvents:        nonNil(r.KeyEvents),
		Characters:       nonNil(r.Characters),
		Mood:             r.Mood,
		Cliffhanger:      r.Cliffhanger,
		ThematicAnalysis: r.ThematicAnalysis,
		WordCount:        r.WordCount,
		AnalysisVersion:  r.AnalysisVersion,
		LastAnalyzed:     r.LastAnalyzed,
	}
}

func chapterIndexEntities(rows []*chapterIndexRow) []*entity.ChapterIndex {
	out := make([]*entity.ChapterIndex, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ChapterIndexRepository 章节索引仓储实现
type ChapterIndexRepository struct {
	client *Client
}

var _ repository.ChapterIndexRepository = (*ChapterIndexRepository)(nil)

func NewChapterIndexRepository(client *Client) *ChapterIndexRepository {
	return &ChapterIndexRepository{client: client}
}

// Upsert 按 chapter_id 覆盖写入
func (r *ChapterIndexRepository) Upsert(ctx context.Context, idx *entity.ChapterIndex) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterIndexRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	row := newChapterIndexRow(idx)
	if err := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chapter_id"}},
			UpdateAll: true,
		}).
		Create(row).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert chapter index: %w", err)
	}
	return nil
}

// GetByChapter 获取章节索引
func (r *ChapterIndexRepository) GetByChapter(ctx context.Context, chapterID string) (*entity.ChapterIndex, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterIndexRepository.GetByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var row chapterIndexRow
	if err := db.First(&row, "chapter_id = ?", chapterID).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter index: %w", err)
	}
	return row.toEntity(), nil
}

// ListByBook 按章节序号返回书籍下全部章节索引
func (r *ChapterIndexRepository) ListByBook(ctx context.Context, bookID string) ([]*entity.ChapterIndex, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterIndexRepository.ListByBook")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rows []*chapterIndexRow
	if err := db.Select("chapter_indexes.*").
		Joins("JOIN chapters ON chapters.id = chapter_indexes.chapter_id").
		Where("chapter_indexes.book_id = ?", bookID).
		Order("chapters.order_index ASC").
		Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapter indexes: %w", err)
	}
	return chapterIndexEntities(rows), nil
}

// FindByCharacter 出场人物子串匹配
func (r *ChapterIndexRepository) FindByCharacter(ctx context.Context, name string, pagination repository.Pagination) ([]*entity.ChapterIndex, error) {
	return r.find(ctx, "FindByCharacter",
		"EXISTS (SELECT 1 FROM unnest(characters) AS c WHERE c ILIKE ?)", containsPattern(name), pagination)
}

// FindByEvent 关键事件子串匹配
func (r *ChapterIndexRepository) FindByEvent(ctx context.Context, event string, pagination repository.Pagination) ([]*entity.ChapterIndex, error) {
	return r.find(ctx, "FindByEvent",
		"EXISTS (SELECT 1 FROM unnest(key_events) AS e WHERE e ILIKE ?)", containsPattern(event), pagination)
}

// FindByMood 情绪基调子串匹配
func (r *ChapterIndexRepository) FindByMood(ctx context.Context, mood string, pagination repository.Pagination) ([]*entity.ChapterIndex, error) {
	return r.find(ctx, "FindByMood", "mood ILIKE ?", containsPattern(mood), pagination)
}

func (r *ChapterIndexRepository) find(ctx context.Context, op, cond, arg string, pagination repository.Pagination) ([]*entity.ChapterIndex, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterIndexRepository."+op)
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rows []*chapterIndexRow
	if err := db.Where(cond, arg).
		Order("last_analyzed DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query chapter indexes: %w", err)
	}
	return chapterIndexEntities(rows), nil
}
