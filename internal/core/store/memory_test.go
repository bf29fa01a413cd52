package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ragkit/internal/core/rag"
)

func TestMemory_Search(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *Memory {
		t.Helper()
		m := NewMemory()
		chunks := []rag.Chunk{
			{ID: "c1", DocID: "d1", Text: "alpha", Meta: map[string]any{"docTitle": "A"}},
			{ID: "c2", DocID: "d1", Text: "beta", Meta: map[string]any{"docTitle": "A"}},
			{ID: "c3", DocID: "d2", Text: "gamma", Meta: map[string]any{"docTitle": "B"}},
		}
		vectors := [][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		}
		require.NoError(t, m.AddMany(ctx, chunks, vectors))
		return m
	}

	t.Run("スコア降順で最大k件返す", func(t *testing.T) {
		m := newStore(t)

		results, err := m.Search(ctx, []float32{1, 0, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "c1", results[0].Chunk.ID)
		assert.Equal(t, "c3", results[1].Chunk.ID)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("メタデータフィルタは完全一致で適用される", func(t *testing.T) {
		m := newStore(t)

		results, err := m.Search(ctx, []float32{1, 0, 0}, 10, map[string]any{"docTitle": "B"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "c3", results[0].Chunk.ID)
	})

	t.Run("次元が一致しないクエリは設定エラーになる", func(t *testing.T) {
		m := newStore(t)

		_, err := m.Search(ctx, []float32{1, 0}, 5, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, rag.ErrConfiguration)
	})

	t.Run("kが0以下の場合は空を返す", func(t *testing.T) {
		m := newStore(t)

		results, err := m.Search(ctx, []float32{1, 0, 0}, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestMemory_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("同じIDは上書きされる", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Upsert(ctx, rag.Chunk{ID: "c1", DocID: "d1", Text: "old"}, []float32{1, 0}))
		require.NoError(t, m.Upsert(ctx, rag.Chunk{ID: "c1", DocID: "d1", Text: "new"}, []float32{0, 1}))

		count, err := m.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		results, err := m.Search(ctx, []float32{0, 1}, 1, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "new", results[0].Chunk.Text)
	})

	t.Run("次元が異なるベクトルの追加は設定エラーになる", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Upsert(ctx, rag.Chunk{ID: "c1"}, []float32{1, 0, 0}))

		err := m.Upsert(ctx, rag.Chunk{ID: "c2"}, []float32{1, 0})
		require.Error(t, err)
		assert.ErrorIs(t, err, rag.ErrConfiguration)
	})
}

func TestMemory_DeleteByDoc(t *testing.T) {
	ctx := context.Background()

	m := NewMemory()
	require.NoError(t, m.AddMany(ctx,
		[]rag.Chunk{
			{ID: "c1", DocID: "d1"},
			{ID: "c2", DocID: "d2"},
			{ID: "c3", DocID: "d1"},
		},
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
	))

	require.NoError(t, m.DeleteByDoc(ctx, "d1"))

	count, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemory_Namespaces(t *testing.T) {
	ctx := context.Background()

	m := NewMemory()
	require.NoError(t, m.AddMany(ctx, []rag.Chunk{{ID: "c1", DocID: "d1"}}, [][]float32{{1, 0}}))

	t.Run("名前空間ごとにデータが分離される", func(t *testing.T) {
		require.NoError(t, m.SwitchNamespace(ctx, "emb::other:abc123"))
		assert.Equal(t, "emb::other:abc123", m.CurrentNamespace())

		count, err := m.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		// 別の次元でも名前空間が違えば共存できる
		require.NoError(t, m.AddMany(ctx, []rag.Chunk{{ID: "c9", DocID: "d9"}}, [][]float32{{1, 0, 0, 0}}))

		infos, err := m.Namespaces(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, DefaultNamespace, infos[0].Name)
		assert.Equal(t, 1, infos[0].Count)
	})

	t.Run("空の名前空間への切り替えは設定エラーになる", func(t *testing.T) {
		err := m.SwitchNamespace(ctx, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, rag.ErrConfiguration)
	})
}
