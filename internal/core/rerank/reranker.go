package rerank

import (
	"context"
	"sort"

	"github.com/jinford/ragkit/internal/core/rag"
)

// Reranker は検索結果の並び替えを行う
// 入力の件数と同じ件数をスコア降順で返し、失敗しても元の並びを返す
type Reranker interface {
	Rerank(ctx context.Context, query string, items []rag.Retrieved) []rag.Retrieved
	Name() string
}

// sortByScore はスコア降順の安定ソートを行う
func sortByScore(items []rag.Retrieved) []rag.Retrieved {
	sorted := make([]rag.Retrieved, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

// IdentityReranker は並び替えを行わずそのまま返す
type IdentityReranker struct{}

// NewIdentityReranker は新しい IdentityReranker を作成する
func NewIdentityReranker() *IdentityReranker {
	return &IdentityReranker{}
}

// Rerank は入力をそのまま返す
func (r *IdentityReranker) Rerank(_ context.Context, _ string, items []rag.Retrieved) []rag.Retrieved {
	return items
}

// Name はリランカー名を返す
func (r *IdentityReranker) Name() string {
	return "identity"
}

var _ Reranker = (*IdentityReranker)(nil)
