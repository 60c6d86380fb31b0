// Package entity 定义领域实体
package entity

import "time"

// LLMUsageEvent 一次 LLM 调用的用量流水
type LLMUsageEvent struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	BookID     string    `json:"book_id,omitempty" gorm:"type:varchar(64);index"`
	Workflow   string    `json:"workflow" gorm:"type:varchar(64);not null"`
	Provider   string    `json:"provider" gorm:"type:varchar(32);not null"`
	Model      string    `json:"model" gorm:"type:varchar(64);not null"`
	TokensUsed int       `json:"tokens_used" gorm:"not null;default:0"`
	Estimated  bool      `json:"estimated" gorm:"default:false"`
	Success    bool      `json:"success"`
	DurationMs int       `json:"duration_ms" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (LLMUsageEvent) TableName() string {
	return "llm_usage_events"
}
