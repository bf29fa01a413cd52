package pipeline

import (
	"context"

	"github.com/jinford/ragkit/internal/core/rag"
)

// Step はパイプラインの1段階
// 入力コンテキストを変更せず、更新済みの新しいコンテキストを返す
type Step interface {
	Run(ctx context.Context, rc *rag.RagContext) (*rag.RagContext, error)
	Name() string
}

// Pipeline はステップを順に実行する線形パイプライン
// いずれかのステップが失敗した場合は後続を実行せずエラーをそのまま返す
type Pipeline struct {
	steps []Step
}

// NewPipeline は新しい Pipeline を作成する
func NewPipeline(steps []Step) *Pipeline {
	return &Pipeline{steps: append([]Step(nil), steps...)}
}

// Run は全ステップを実行し、最終コンテキストの回答を返す
func (p *Pipeline) Run(ctx context.Context, rc *rag.RagContext) (rag.Answer, error) {
	current := rc
	for _, step := range p.steps {
		next, err := step.Run(ctx, current)
		if err != nil {
			return rag.Answer{}, err
		}
		current = next
	}
	return current.Parsed, nil
}

// Builder はパイプラインを段階的に組み立てる
type Builder struct {
	steps []Step
}

// NewBuilder は新しい Builder を作成する
func NewBuilder() *Builder {
	return &Builder{}
}

// Add はステップを末尾に追加する
func (b *Builder) Add(step Step) *Builder {
	b.steps = append(b.steps, step)
	return b
}

// Build はパイプラインを構築する
func (b *Builder) Build() *Pipeline {
	return NewPipeline(b.steps)
}
