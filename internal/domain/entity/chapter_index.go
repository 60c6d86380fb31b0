// Package entity 定义领域实体
package entity

import "time"

// ChapterIndex 版本标记
const (
	// ChapterIndexVersionSeed 章节生成时根据大纲写入的种子索引
	ChapterIndexVersionSeed = "seed"
	// ChapterIndexVersionAnalyzed 深度分析后的索引
	ChapterIndexVersionAnalyzed = "2.0"
)

// ChapterIndex 章节派生索引，与 Chapter 一对一
type ChapterIndex struct {
	ChapterID        string    `json:"chapter_id"`
	BookID           string    `json:"book_id"`
	Summary          string    `json:"summary"`
	KeyEvents        []string  `json:"key_events"`
	Characters       []string  `json:"characters"`
	Mood             string    `json:"mood"`
	Cliffhanger      bool      `json:"cliffhanger"`
	ThematicAnalysis string    `json:"thematic_analysis"`
	WordCount        int       `json:"word_count"`
	AnalysisVersion  string    `json:"analysis_version"`
	LastAnalyzed     time.Time `json:"last_analyzed"`
}

// IsSeed 是否仅为种子索引（尚未深度分析）
func (i *ChapterIndex) IsSeed() bool {
	return i.AnalysisVersion == ChapterIndexVersionSeed
}
