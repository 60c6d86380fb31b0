// Package errors 业务错误码与 HTTP 状态映射
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 对外返回的业务码：1xxx 通用，3xxx 资源，4xxx 生成流程，5xxx 依赖服务
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	CodeBookNotFound      ErrorCode = "3001"
	CodeChapterNotFound   ErrorCode = "3002"
	CodeIndexNotFound     ErrorCode = "3003"
	CodeBookIndexNotFound ErrorCode = "3004"

	CodeOutlineFailed ErrorCode = "4002"

	CodeDatabaseError    ErrorCode = "5001"
	CodeQueueError       ErrorCode = "5003"
	CodeLLMProviderError ErrorCode = "5005"
)

// statusByCode 未列出的业务码按 500 处理
var statusByCode = map[ErrorCode]int{
	CodeInvalidParam:       http.StatusBadRequest,
	CodeBookNotFound:       http.StatusNotFound,
	CodeChapterNotFound:    http.StatusNotFound,
	CodeIndexNotFound:      http.StatusNotFound,
	CodeBookIndexNotFound:  http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeTooManyRequests:    http.StatusTooManyRequests,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
	CodeOutlineFailed:      http.StatusBadGateway,
	CodeLLMProviderError:   http.StatusBadGateway,
}

// HTTPStatus 业务码对应的响应状态
func (c ErrorCode) HTTPStatus() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AppError 携带业务码的错误。预定义的哨兵值不可修改，WithDetail/WithError 返回副本。
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Err }

// Is 按业务码比较，派生副本与哨兵值相等
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// HTTPStatus 等价于 e.Code.HTTPStatus()
func (e *AppError) HTTPStatus() int { return e.Code.HTTPStatus() }

func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

var (
	ErrInvalidParam = New(CodeInvalidParam, "invalid parameter")
	ErrConflict     = New(CodeConflict, "resource conflict")

	ErrBookNotFound      = New(CodeBookNotFound, "book not found")
	ErrChapterNotFound   = New(CodeChapterNotFound, "chapter not found")
	ErrIndexNotFound     = New(CodeIndexNotFound, "chapter index not found")
	ErrBookIndexNotFound = New(CodeBookIndexNotFound, "book index not found")

	ErrOutlineFailed = New(CodeOutlineFailed, "outline generation failed")

	ErrDatabaseError    = New(CodeDatabaseError, "database error")
	ErrQueueError       = New(CodeQueueError, "queue error")
	ErrLLMProviderError = New(CodeLLMProviderError, "LLM provider error")
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 链上没有 AppError 时包装为 CodeUnknown，永不返回 nil
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
