package model

// BookOutline 大纲阶段产出
type BookOutline struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Chapters    []ChapterSpec `json:"chapters"`

	TokenUsed        int    `json:"token_used"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Model            string `json:"model,omitempty"`
}

// ChapterSpec 单章写作规格，字段名与模型输出的 summary 元素保持一致
type ChapterSpec struct {
	// ChapterNumber 按位置分配（从 1 开始），章节阶段据此匹配循环序号
	ChapterNumber int `json:"chapter_number"`
	// ModelChapterNumber 模型自报的章节号，仅供参考
	ModelChapterNumber    int      `json:"model_chapter_number,omitempty"`
	Title                 string   `json:"chapter_title"`
	MainCharacters        []string `json:"main_characters"`
	KeyEvents             []string `json:"key_events"`
	ImportantDialogue     []string `json:"important_dialogue"`
	ObjectivesAndOutcomes string   `json:"objectives_and_outcomes"`
	TransitionToNext      string   `json:"transition_to_next"`
	MoodAndTone           string   `json:"mood_and_tone"`
}
