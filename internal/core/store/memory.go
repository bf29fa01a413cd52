package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/jinford/ragkit/internal/core/rag"
)

// DefaultNamespace は名前空間未指定時の格納先
const DefaultNamespace = "default"

type memoryRow struct {
	chunk  rag.Chunk
	vector []float32
}

// Memory はインメモリのベクトルストア実装
// テストとローカル実行用で、名前空間ごとに行を分離して保持する
type Memory struct {
	mu        sync.RWMutex
	rows      map[string][]memoryRow
	namespace string
	dims      map[string]int
}

// NewMemory は新しい Memory ストアを作成する
func NewMemory() *Memory {
	return &Memory{
		rows:      map[string][]memoryRow{},
		namespace: DefaultNamespace,
		dims:      map[string]int{},
	}
}

// AddMany は複数のチャンクとベクトルをまとめて追加する
func (m *Memory) AddMany(_ context.Context, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return rag.ConfigErrorf("チャンク数とベクトル数が一致しません: chunks=%d vectors=%d", len(chunks), len(vectors))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range chunks {
		if err := m.ensureDimLocked(vectors[i]); err != nil {
			return err
		}
		m.rows[m.namespace] = append(m.rows[m.namespace], memoryRow{chunk: chunks[i], vector: vectors[i]})
	}
	return nil
}

// Upsert はチャンクを更新または挿入する
func (m *Memory) Upsert(_ context.Context, chunk rag.Chunk, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDimLocked(vector); err != nil {
		return err
	}

	rows := m.rows[m.namespace]
	for i := range rows {
		if rows[i].chunk.ID == chunk.ID {
			rows[i] = memoryRow{chunk: chunk, vector: vector}
			return nil
		}
	}
	m.rows[m.namespace] = append(rows, memoryRow{chunk: chunk, vector: vector})
	return nil
}

// DeleteByDoc は文書に属する全チャンクを削除する
func (m *Memory) DeleteByDoc(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[m.namespace]
	kept := rows[:0]
	for _, row := range rows {
		if row.chunk.DocID != docID {
			kept = append(kept, row)
		}
	}
	m.rows[m.namespace] = kept
	return nil
}

// Search はクエリベクトルに類似するチャンクをスコア降順で最大k件返す
// クエリの次元が格納済みベクトルと一致しない場合は設定エラーを返す
func (m *Memory) Search(_ context.Context, queryVector []float32, k int, metaFilter map[string]any) ([]rag.Retrieved, error) {
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if dim, ok := m.dims[m.namespace]; ok && len(queryVector) != dim {
		return nil, rag.ConfigErrorf("クエリベクトルの次元が一致しません: index=%d query=%d", dim, len(queryVector))
	}

	var scored []rag.Retrieved
	for _, row := range m.rows[m.namespace] {
		if !matchesMeta(row.chunk.Meta, metaFilter) {
			continue
		}
		scored = append(scored, rag.Retrieved{
			Chunk: row.chunk,
			Score: cosineSimilarity(row.vector, queryVector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count は現在の名前空間のチャンク数を返す
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rows[m.namespace]), nil
}

// Clear は現在の名前空間の全チャンクを削除する
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rows, m.namespace)
	delete(m.dims, m.namespace)
	return nil
}

// Namespaces は名前空間の一覧を返す
func (m *Memory) Namespaces(_ context.Context) ([]NamespaceInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]NamespaceInfo, 0, len(m.rows))
	for name, rows := range m.rows {
		infos = append(infos, NamespaceInfo{Name: name, Count: len(rows)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// SwitchNamespace は現在の名前空間を切り替える
func (m *Memory) SwitchNamespace(_ context.Context, namespace string) error {
	if namespace == "" {
		return rag.ConfigErrorf("名前空間が空です")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.namespace = namespace
	return nil
}

// CurrentNamespace は現在の名前空間を返す
func (m *Memory) CurrentNamespace() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.namespace
}

// ensureDimLocked は名前空間内のベクトル次元の一貫性を検証する
func (m *Memory) ensureDimLocked(vector []float32) error {
	dim, ok := m.dims[m.namespace]
	if !ok {
		m.dims[m.namespace] = len(vector)
		return nil
	}
	if len(vector) != dim {
		return rag.ConfigErrorf("ベクトルの次元が一致しません: index=%d vector=%d", dim, len(vector))
	}
	return nil
}

// matchesMeta はメタデータフィルタの全キーが完全一致するか判定する
func matchesMeta(meta map[string]any, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// cosineSimilarity はコサイン類似度を計算する
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	denom := 1e-9
	if na > 0 && nb > 0 {
		denom = math.Sqrt(na) * math.Sqrt(nb)
	}
	return dot / denom
}

var (
	_ VectorStore       = (*Memory)(nil)
	_ NamespaceLister   = (*Memory)(nil)
	_ NamespaceSwitcher = (*Memory)(nil)
)
