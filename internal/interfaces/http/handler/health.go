// Package handler HTTP 处理器：绑定请求、调用流水线或仓储、写统一响应
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency 就绪检查项；Required 为 false 时失败只标记 degraded
type Dependency struct {
	Name     string
	Checker  HealthChecker
	Required bool
}

type HealthHandler struct {
	version string
	deps    []Dependency
}

// NewHealthHandler Checker 为 nil 的依赖视为未启用，不出现在结果中
func NewHealthHandler(version string, deps ...Dependency) *HealthHandler {
	h := &HealthHandler{version: version}
	for _, d := range deps {
		if d.Checker != nil {
			h.deps = append(h.deps, d)
		}
	}
	return h
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 进程信息
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 并发检查全部依赖；任一必需依赖失败返回 503
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	results := make([]*readinessCheck, len(h.deps))
	var g errgroup.Group
	for i, d := range h.deps {
		g.Go(func() error {
			results[i] = probe(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	resp := readinessResponse{Status: "ok", Checks: make(map[string]*readinessCheck, len(h.deps))}
	status := http.StatusOK
	for i, d := range h.deps {
		resp.Checks[d.Name] = results[i]
		if results[i].Status == "error" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}

func probe(ctx context.Context, d Dependency) *readinessCheck {
	start := time.Now()
	err := d.Checker.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	switch {
	case err == nil:
	case d.Required:
		check.Status, check.Error = "error", err.Error()
	default:
		check.Status, check.Error = "degraded", err.Error()
	}
	return check
}

// Live 存活探针，不检查依赖
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
