package service

import (
	"context"
	"strings"
)

const unknownLabel = "unknown"

// CallLabels 一次 LLM 调用的归属标签，随 context 向下传递
type CallLabels struct {
	Workflow string
	Provider string
	BookID   string
}

type callLabelsKey struct{}

// LabelsFromContext 取出当前标签；未设置的字段为空
func LabelsFromContext(ctx context.Context) CallLabels {
	if ctx == nil {
		return CallLabels{}
	}
	l, _ := ctx.Value(callLabelsKey{}).(CallLabels)
	return l
}

// withLabel 空白值不覆盖已有标签
func withLabel(ctx context.Context, value string, set func(*CallLabels, string)) context.Context {
	if ctx == nil {
		return nil
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return ctx
	}
	l := LabelsFromContext(ctx)
	set(&l, v)
	return context.WithValue(ctx, callLabelsKey{}, l)
}

func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return withLabel(ctx, workflow, func(l *CallLabels, v string) { l.Workflow = v })
}

func WithProvider(ctx context.Context, provider string) context.Context {
	return withLabel(ctx, provider, func(l *CallLabels, v string) { l.Provider = v })
}

// WithBook 用量按书籍归集
func WithBook(ctx context.Context, bookID string) context.Context {
	return withLabel(ctx, bookID, func(l *CallLabels, v string) { l.BookID = v })
}

func WorkflowFromContext(ctx context.Context) string {
	return orUnknown(LabelsFromContext(ctx).Workflow)
}

func ProviderFromContext(ctx context.Context) string {
	return orUnknown(LabelsFromContext(ctx).Provider)
}

func BookFromContext(ctx context.Context) string {
	return LabelsFromContext(ctx).BookID
}

func orUnknown(s string) string {
	if s == "" {
		return unknownLabel
	}
	return s
}
