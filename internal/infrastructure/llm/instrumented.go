package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bookgen-ai-api/internal/domain/service"
	wfmodel "bookgen-ai-api/internal/workflow/model"
	workflowport "bookgen-ai-api/internal/workflow/port"
	"bookgen-ai-api/pkg/logger"
	"bookgen-ai-api/pkg/metrics"
	"bookgen-ai-api/pkg/tracer"
)

// InstrumentedGenerator 为网关调用统一补齐 span、指标与用量流水
type InstrumentedGenerator struct {
	inner    workflowport.TextGenerator
	provider string
	recorder service.LLMUsageRecorder
}

func NewInstrumentedGenerator(inner workflowport.TextGenerator, provider string, recorder service.LLMUsageRecorder) *InstrumentedGenerator {
	return &InstrumentedGenerator{inner: inner, provider: provider, recorder: recorder}
}

func (g *InstrumentedGenerator) Generate(ctx context.Context, prompt string, opts wfmodel.GenerateOptions) (*wfmodel.GenerateResult, error) {
	workflow := service.WorkflowFromContext(ctx)
	ctx = service.WithProvider(ctx, g.provider)

	ctx, span := tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.workflow", workflow),
		attribute.String("llm.provider", g.provider),
		attribute.Bool("llm.force_json", opts.ForceJSON),
	))
	defer span.End()

	start := time.Now()
	res, err := g.inner.Generate(ctx, prompt, opts)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordLLMCall(g.provider, workflow, "error", 0, elapsed.Seconds())
		return nil, err
	}
	if res.Provider == "" {
		res.Provider = g.provider
	}

	status := "success"
	if !res.Success {
		status = "failure"
		span.SetStatus(codes.Error, res.Error)
	}
	span.SetAttributes(
		attribute.String("llm.model", res.Model),
		attribute.Int("llm.tokens", res.TokenUsed),
		attribute.Bool("llm.tokens_estimated", res.TokensEstimated),
	)
	metrics.RecordLLMCall(g.provider, workflow, status, res.TokenUsed, elapsed.Seconds())

	logger.Debug(ctx, "llm call finished",
		"workflow", workflow,
		"provider", g.provider,
		"model", res.Model,
		"success", res.Success,
		"tokens", res.TokenUsed,
		"duration_ms", elapsed.Milliseconds(),
	)

	if g.recorder != nil {
		// 流水记录失败不影响主流程
		if recErr := g.recorder.Record(ctx, service.LLMUsageInput{
			BookID:     service.BookFromContext(ctx),
			Workflow:   workflow,
			Provider:   g.provider,
			Model:      res.Model,
			TokensUsed: res.TokenUsed,
			Estimated:  res.TokensEstimated,
			Success:    res.Success,
			DurationMs: int(elapsed.Milliseconds()),
		}); recErr != nil {
			logger.Warn(ctx, "failed to record llm usage", "error", recErr.Error())
		}
	}

	return res, nil
}
