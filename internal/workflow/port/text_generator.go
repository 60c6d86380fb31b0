package port

import (
	"context"

	wfmodel "bookgen-ai-api/internal/workflow/model"
)

// TextGenerator 文本生成网关（port）。
// 提供商/传输层失败通过 Success=false 返回，不以 error 形式抛出；
// error 只用于契约错误（如空提示词）和 context 取消。
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts wfmodel.GenerateOptions) (*wfmodel.GenerateResult, error)
}
