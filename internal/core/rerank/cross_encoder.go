package rerank

import (
	"context"
	"log/slog"

	"github.com/jinford/ragkit/internal/core/rag"
)

// PairScorer はクエリと文書のペアに関連度スコアを付ける
// クロスエンコーダ相当の外部モデルが infra 側で実装する
type PairScorer interface {
	ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error)
}

// CrossEncoderReranker は PairScorer によるセマンティックな並び替えを行う
// スコアリングに失敗した場合は SimpleReranker にフォールバックする
type CrossEncoderReranker struct {
	scorer   PairScorer
	fallback *SimpleReranker
	logger   *slog.Logger
}

// NewCrossEncoderReranker は新しい CrossEncoderReranker を作成する
func NewCrossEncoderReranker(scorer PairScorer, logger *slog.Logger) *CrossEncoderReranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrossEncoderReranker{
		scorer:   scorer,
		fallback: NewSimpleReranker(),
		logger:   logger,
	}
}

// Rerank はペアスコアで並び替える
// クエリが空の場合は既存スコアのみで並び替える
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, items []rag.Retrieved) []rag.Retrieved {
	if len(items) == 0 {
		return items
	}
	if query == "" {
		return sortByScore(items)
	}
	if r.scorer == nil {
		r.logger.Warn("PairScorerが未設定のためsimpleリランカーにフォールバックします")
		return r.fallback.Rerank(ctx, query, items)
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Chunk.Text
	}

	scores, err := r.scorer.ScorePairs(ctx, query, texts)
	if err != nil || len(scores) != len(items) {
		r.logger.Warn("ペアスコアリングに失敗したためsimpleリランカーにフォールバックします", "error", err)
		return r.fallback.Rerank(ctx, query, items)
	}

	reranked := make([]rag.Retrieved, len(items))
	for i, item := range items {
		reranked[i] = item.WithScore(scores[i])
	}
	return sortByScore(reranked)
}

// Name はリランカー名を返す
func (r *CrossEncoderReranker) Name() string {
	return "cross_encoder"
}

var _ Reranker = (*CrossEncoderReranker)(nil)
