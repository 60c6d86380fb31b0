// Package entity 定义领域实体
package entity

import "time"

// BookIndexStatus 整书索引状态；记录不存在即为第四种状态 absent
type BookIndexStatus string

const (
	BookIndexStatusPending  BookIndexStatus = "pending"
	BookIndexStatusDegraded BookIndexStatus = "degraded"
	BookIndexStatusComplete BookIndexStatus = "complete"
)

const (
	// BookIndexVersionPending 门槛未满足时写入的占位版本
	BookIndexVersionPending = "pending"
	// BookIndexVersionCurrent 当前分析版本
	BookIndexVersionCurrent = "2.0"
)

// BookIndex 整书派生索引，与 Book 一对一
type BookIndex struct {
	BookID            string          `json:"book_id"`
	Summary           string          `json:"summary"`
	Themes            []string        `json:"themes"`
	Characters        []string        `json:"characters"`
	PlotPoints        []string        `json:"plot_points"`
	Tone              string          `json:"tone"`
	Genre             string          `json:"genre"`
	StructureAnalysis string          `json:"structure_analysis"`
	Cliffhangers      []string        `json:"cliffhangers"`
	WordCount         int             `json:"word_count"`
	AnalysisVersion   string          `json:"analysis_version"`
	Status            BookIndexStatus `json:"status"`
	LastAnalyzed      time.Time       `json:"last_analyzed"`
}
