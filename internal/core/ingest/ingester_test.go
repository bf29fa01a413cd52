package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ragkit/internal/core/chunking"
	"github.com/jinford/ragkit/internal/core/embedding"
	"github.com/jinford/ragkit/internal/core/rag"
	"github.com/jinford/ragkit/internal/core/store"
)

type failingEmbedder struct {
	embedding.Embedder
	err error
}

func (e *failingEmbedder) BatchEmbed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, e.err
}

func newTestRegistry(t *testing.T) *chunking.Registry {
	t.Helper()
	registry := chunking.NewRegistry()
	require.NoError(t, registry.SetStrategy("sentence"))

	params := chunking.DefaultParams()
	params.Language = "en"
	params.SentenceMinLen = 3
	registry.SetParams(params)
	return registry
}

func TestIngester_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("文書をチャンクに分割して格納する", func(t *testing.T) {
		registry := newTestRegistry(t)
		embedder := embedding.NewFallbackEmbedder(32, true, "fb")
		memory := store.NewMemory()

		ingester := NewIngester(registry, embedder, memory)

		docs := []rag.Document{
			{ID: "d1", Title: "A", Text: "First sentence here. Second sentence follows. "},
			{ID: "d2", Title: "B", Text: "Another document text. "},
		}

		count, err := ingester.Ingest(ctx, docs)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		stored, err := memory.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stored)
	})

	t.Run("空の文書リストはエラーになる", func(t *testing.T) {
		ingester := NewIngester(newTestRegistry(t), embedding.NewFallbackEmbedder(32, true, "fb"), store.NewMemory())

		_, err := ingester.Ingest(ctx, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, rag.ErrNoDocuments)
	})

	t.Run("埋め込みの失敗はバッチ番号付きで報告される", func(t *testing.T) {
		embedder := &failingEmbedder{err: errors.New("rate limited")}
		ingester := NewIngester(newTestRegistry(t), embedder, store.NewMemory())

		_, err := ingester.Ingest(ctx, []rag.Document{
			{ID: "d1", Text: "Some sentence to embed. "},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch 0")
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("取り込んだチャンクはk以上の検索で全件取得できる", func(t *testing.T) {
		registry := newTestRegistry(t)
		embedder := embedding.NewFallbackEmbedder(32, true, "fb")
		memory := store.NewMemory()

		ingester := NewIngester(registry, embedder, memory)

		docs := []rag.Document{
			{ID: "d1", Title: "A", Text: "First sentence here. Second sentence follows. "},
			{ID: "d2", Title: "B", Text: "Another document text. "},
			{ID: "d3", Title: "C", Text: "Final document sentence. "},
		}

		count, err := ingester.Ingest(ctx, docs)
		require.NoError(t, err)
		require.Equal(t, 4, count)

		queryVec, err := embedder.Embed(ctx, "document sentence")
		require.NoError(t, err)

		results, err := memory.Search(ctx, queryVec, count+10, nil)
		require.NoError(t, err)
		require.Len(t, results, count)

		seen := map[string]bool{}
		for _, item := range results {
			seen[item.Chunk.DocID] = true
		}
		assert.Len(t, seen, 3)
	})

	t.Run("大量のチャンクは複数バッチで処理される", func(t *testing.T) {
		registry := newTestRegistry(t)
		embedder := embedding.NewFallbackEmbedder(16, true, "fb")
		memory := store.NewMemory()

		ingester := NewIngester(registry, embedder, memory, WithMaxParallel(4))

		// 40文 → 16件区切りで3バッチになる
		text := strings.Repeat("This is a sentence. ", 40)
		count, err := ingester.Ingest(ctx, []rag.Document{{ID: "d1", Text: text}})
		require.NoError(t, err)
		assert.Equal(t, 40, count)

		stored, err := memory.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 40, stored)
	})
}
