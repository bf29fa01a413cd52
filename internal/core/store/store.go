package store

import (
	"context"

	"github.com/jinford/ragkit/internal/core/rag"
)

// VectorStore はチャンクとベクトルの永続化と類似検索を提供する
type VectorStore interface {
	// AddMany は複数のチャンクとベクトルをまとめて追加する
	AddMany(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error
	// Upsert はチャンクを更新または挿入する
	Upsert(ctx context.Context, chunk rag.Chunk, vector []float32) error
	// DeleteByDoc は文書に属する全チャンクを削除する
	DeleteByDoc(ctx context.Context, docID string) error
	// Search はクエリベクトルに類似するチャンクをスコア降順で最大k件返す
	// メタデータフィルタは全キーの完全一致で適用される
	Search(ctx context.Context, queryVector []float32, k int, metaFilter map[string]any) ([]rag.Retrieved, error)
	// Count は格納されているチャンク数を返す
	Count(ctx context.Context) (int, error)
	// Clear は全チャンクを削除する
	Clear(ctx context.Context) error
}

// NamespaceInfo は名前空間1件の情報
type NamespaceInfo struct {
	Name  string
	Count int
}

// NamespaceLister は名前空間の一覧取得をサポートするストア
type NamespaceLister interface {
	Namespaces(ctx context.Context) ([]NamespaceInfo, error)
}

// NamespaceSwitcher は名前空間の切り替えをサポートするストア
// 埋め込みモデルごとにインデックスを分離するために使う
type NamespaceSwitcher interface {
	SwitchNamespace(ctx context.Context, namespace string) error
	CurrentNamespace() string
}
