package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/internal/interfaces/http/dto"
	"bookgen-ai-api/pkg/logger"
)

// UsageReader 书籍 token 用量查询接口
type UsageReader interface {
	BookUsage(ctx context.Context, bookID string, window time.Duration) (repository.UsageSummary, error)
}

// UsageHandler 用量查询处理器
type UsageHandler struct {
	usage UsageReader
}

// NewUsageHandler 创建用量查询处理器
func NewUsageHandler(usage UsageReader) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// GetBookUsage 查询书籍 token 用量
// @Summary 书籍 token 用量
// @Tags Usage
// @Produce json
// @Param bid path string true "书籍 ID"
// @Param window query string false "统计窗口，如 24h；缺省统计全部"
// @Success 200 {object} dto.Response[dto.BookUsageResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/books/{bid}/usage [get]
func (h *UsageHandler) GetBookUsage(c *gin.Context) {
	ctx := c.Request.Context()
	bookID := dto.BindBookID(c)

	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			dto.BadRequest(c, "invalid window: "+raw)
			return
		}
		window = d
	}

	sum, err := h.usage.BookUsage(ctx, bookID, window)
	if err != nil {
		logger.Error(ctx, "failed to summarize book usage", err, "book_id", bookID)
		dto.InternalError(c, "failed to get usage")
		return
	}

	resp := dto.BookUsageResponse{BookID: bookID, UsageSummary: sum}
	if window > 0 {
		resp.Window = window.String()
	}
	dto.Success(c, resp)
}
