package model

type OutlineInput struct {
	UserQuery     string
	TotalChapters int
}

// ChapterGenerateInput 只携带当前章节的规格，避免其它章节内容泄露进提示词
type ChapterGenerateInput struct {
	ChapterNumber int
	Spec          ChapterSpec
}

type ChapterAnalysisInput struct {
	BookTitle   string
	BookSummary string
	BookGenre   string
	BookThemes  []string

	ChapterNumber int
	ChapterTitle  string
	Content       string
}

type BookAnalysisInput struct {
	BookTitle       string
	BookDescription string
	// ChapterContext 由各章节索引聚合而成的上下文
	ChapterContext string
}
