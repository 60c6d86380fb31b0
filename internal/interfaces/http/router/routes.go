// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 书籍生成与分析
	books := v1.Group("/books")
	{
		books.GET("", h.Book.ListBooks)
		books.GET("/:bid", h.Book.GetBook)

		books.POST("/outline", h.Generation.CreateOutline)
		books.POST("/generate", h.Generation.GenerateBook)
		books.POST("/:bid/chapters/generate", h.Generation.GenerateChapters)

		books.POST("/:bid/analyze", h.Analysis.AnalyzeBook)
		books.POST("/:bid/analyze/chapters", h.Analysis.AnalyzeBookChapters)

		books.GET("/:bid/index", h.Index.GetBookIndex)
		books.GET("/:bid/chapter-indexes", h.Index.ListBookChapterIndexes)
		books.GET("/:bid/usage", h.Usage.GetBookUsage)
	}

	// 章节分析
	chapters := v1.Group("/chapters")
	{
		chapters.GET("/:cid", h.Book.GetChapter)
		chapters.POST("/:cid/analyze", h.Analysis.AnalyzeChapter)
		chapters.GET("/:cid/index", h.Index.GetChapterIndex)
	}

	// 索引检索
	v1.GET("/chapter-indexes", h.Index.SearchChapterIndexes)
	v1.GET("/book-indexes", h.Index.SearchBookIndexes)
}
