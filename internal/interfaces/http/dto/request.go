package dto

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bookgen-ai-api/internal/domain/repository"
)

// BindPage 读取 page / page_size 查询参数，越界值由 repository.NewPagination 收敛
func BindPage(c *gin.Context) repository.Pagination {
	return repository.NewPagination(queryInt(c, "page"), queryInt(c, "page_size"))
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return v
}

// BindBookID 路径参数 :bid
func BindBookID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("bid"))
}

// BindChapterID 路径参数 :cid
func BindChapterID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("cid"))
}

// BindBool 解析布尔查询参数，缺省或非法时为 false
func BindBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
