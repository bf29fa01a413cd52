package retrieve

import (
	"context"
	"fmt"
	"sync"

	"github.com/jinford/ragkit/internal/core/embedding"
	"github.com/jinford/ragkit/internal/core/rag"
	"github.com/jinford/ragkit/internal/core/store"
)

// VectorRetriever はクエリを埋め込み、ベクトルストアから類似チャンクを取得する
type VectorRetriever struct {
	store    store.VectorStore
	embedder embedding.Embedder

	mu         sync.RWMutex
	metaFilter map[string]any
}

// NewVectorRetriever は新しい VectorRetriever を作成する
func NewVectorRetriever(s store.VectorStore, embedder embedding.Embedder) *VectorRetriever {
	return &VectorRetriever{
		store:    s,
		embedder: embedder,
	}
}

// SetMetaFilter は検索時のメタデータフィルタを設定する。nilで解除する
func (r *VectorRetriever) SetMetaFilter(filter map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metaFilter = filter
}

// Retrieve はクエリに類似するチャンクをスコア降順で最大k件返す
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]rag.Retrieved, error) {
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	r.mu.RLock()
	filter := r.metaFilter
	r.mu.RUnlock()

	results, err := r.store.Search(ctx, queryVector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}
	return results, nil
}
