// Package dto HTTP 层请求与响应结构
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookgen-ai-api/internal/domain/repository"
	"bookgen-ai-api/pkg/errors"
)

// Response 统一响应信封。RequestID 用于关联异步任务与日志
type Response[T any] struct {
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Data      T         `json:"data,omitempty"`
	Meta      *PageMeta `json:"meta,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据；Count 为本页条数，Total 仅在能廉价计数时给出
type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Count    int   `json:"count"`
	Total    int64 `json:"total,omitempty"`
}

// NewPageMeta 由分页参数与本页条数构造元数据
func NewPageMeta(p repository.Pagination, count int) *PageMeta {
	return &PageMeta{Page: p.Page, PageSize: p.Limit(), Count: count}
}

// ErrorDetail 错误详情，ErrorCode 对应 pkg/errors 中的业务码
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorResponse 错误响应信封
type ErrorResponse struct {
	Code      int          `json:"code"`
	Message   string       `json:"message"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	TraceID   string       `json:"trace_id,omitempty"`
}

func write[T any](c *gin.Context, status int, message string, data T, meta *PageMeta) {
	c.JSON(status, Response[T]{
		Code:      status,
		Message:   message,
		Data:      data,
		Meta:      meta,
		RequestID: c.GetString("request_id"),
		TraceID:   c.GetString("trace_id"),
	})
}

// Success 200
func Success[T any](c *gin.Context, data T) {
	write(c, http.StatusOK, "success", data, nil)
}

// SuccessWithPage 200，附带分页信息
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	write(c, http.StatusOK, "success", data, meta)
}

// Created 201
func Created[T any](c *gin.Context, data T) {
	write(c, http.StatusCreated, "created", data, nil)
}

// Accepted 202，任务已入队
func Accepted[T any](c *gin.Context, data T) {
	write(c, http.StatusAccepted, "accepted", data, nil)
}

// ErrorWithDetail 写出错误信封并中止后续处理
func ErrorWithDetail(c *gin.Context, status int, message string, detail *ErrorDetail) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:      status,
		Message:   message,
		Error:     detail,
		RequestID: c.GetString("request_id"),
		TraceID:   c.GetString("trace_id"),
	})
}

func BadRequest(c *gin.Context, message string) {
	ErrorWithDetail(c, http.StatusBadRequest, message, &ErrorDetail{ErrorCode: string(errors.CodeInvalidParam)})
}

func InternalError(c *gin.Context, message string) {
	ErrorWithDetail(c, http.StatusInternalServerError, message, &ErrorDetail{ErrorCode: string(errors.CodeInternalError)})
}

func ServiceUnavailable(c *gin.Context, message string) {
	ErrorWithDetail(c, http.StatusServiceUnavailable, message, &ErrorDetail{ErrorCode: string(errors.CodeServiceUnavailable)})
}

// FromError 按 AppError 的业务码映射 HTTP 状态；未知错误统一为 500 且不暴露内部信息
func FromError(c *gin.Context, err error, fallback string) {
	if !errors.IsAppError(err) {
		InternalError(c, fallback)
		return
	}
	appErr := errors.AsAppError(err)
	ErrorWithDetail(c, appErr.HTTPStatus(), appErr.Message, &ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}
