package rerank

import (
	"context"

	"github.com/jinford/ragkit/internal/core/rag"
)

// Weights は HybridReranker の各手法の重み
type Weights struct {
	Semantic float64
	BM25     float64
	Simple   float64
}

// DefaultWeights はデフォルトの重みを返す
func DefaultWeights() Weights {
	return Weights{Semantic: 0.5, BM25: 0.3, Simple: 0.2}
}

// HybridReranker は埋め込みスコア・BM25・ヒューリスティックを重み付きで合成する
type HybridReranker struct {
	weights Weights
	bm25    *BM25Reranker
	simple  *SimpleReranker
}

// NewHybridReranker は新しい HybridReranker を作成する
// 重みは合計1になるよう正規化される
func NewHybridReranker(weights Weights) *HybridReranker {
	total := weights.Semantic + weights.BM25 + weights.Simple
	if total <= 0 {
		weights = DefaultWeights()
		total = 1.0
	}
	weights.Semantic /= total
	weights.BM25 /= total
	weights.Simple /= total

	return &HybridReranker{
		weights: weights,
		bm25:    NewBM25Reranker(),
		simple:  NewSimpleReranker(),
	}
}

// Rerank は3手法のスコアを同じ入力順で計算し、重み付き合成して降順で返す
func (r *HybridReranker) Rerank(_ context.Context, query string, items []rag.Retrieved) []rag.Retrieved {
	if len(items) == 0 {
		return items
	}

	bm25Scores := make([]float64, len(items))
	if tokens := tokenize(query); len(tokens) > 0 {
		bm25Scores = r.bm25.scores(tokens, items)
	}
	simpleScores := r.simple.scores(query, items)

	combined := make([]rag.Retrieved, len(items))
	for i, item := range items {
		score := r.weights.Semantic*item.Score +
			r.weights.BM25*bm25Scores[i] +
			r.weights.Simple*simpleScores[i]
		combined[i] = item.WithScore(score)
	}
	return sortByScore(combined)
}

// Name はリランカー名を返す
func (r *HybridReranker) Name() string {
	return "hybrid"
}

var _ Reranker = (*HybridReranker)(nil)
