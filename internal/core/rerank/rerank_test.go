package rerank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ragkit/internal/core/rag"
)

func retrievedItem(id, text string, score float64, meta map[string]any) rag.Retrieved {
	return rag.Retrieved{
		Chunk: rag.Chunk{ID: id, DocID: "d1", Text: text, Meta: meta},
		Score: score,
	}
}

func TestIdentityReranker(t *testing.T) {
	items := []rag.Retrieved{
		retrievedItem("c1", "first", 0.2, nil),
		retrievedItem("c2", "second", 0.9, nil),
	}

	result := NewIdentityReranker().Rerank(context.Background(), "query", items)

	require.Len(t, result, 2)
	assert.Equal(t, "c1", result[0].Chunk.ID)
	assert.Equal(t, "c2", result[1].Chunk.ID)
}

func TestSimpleReranker(t *testing.T) {
	ctx := context.Background()

	t.Run("空の入力は空を返す", func(t *testing.T) {
		assert.Empty(t, NewSimpleReranker().Rerank(ctx, "q", nil))
	})

	t.Run("新しい文書がブーストされる", func(t *testing.T) {
		recent := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
		old := time.Now().Add(-90 * 24 * time.Hour).Format(time.RFC3339)

		items := []rag.Retrieved{
			retrievedItem("old", "text", 0.5, map[string]any{"created_at": old}),
			retrievedItem("recent", "text", 0.5, map[string]any{"created_at": recent}),
		}

		result := NewSimpleReranker().Rerank(ctx, "", items)

		require.Len(t, result, 2)
		assert.Equal(t, "recent", result[0].Chunk.ID)
		assert.InDelta(t, 0.6, result[0].Score, 0.001)
		assert.InDelta(t, 0.5, result[1].Score, 0.001)
	})

	t.Run("タイトル一致がブーストされる", func(t *testing.T) {
		items := []rag.Retrieved{
			retrievedItem("plain", "text", 0.5, map[string]any{"title": "unrelated"}),
			retrievedItem("match", "text", 0.5, map[string]any{"title": "Retrieval Guide"}),
		}

		result := NewSimpleReranker().Rerank(ctx, "retrieval", items)

		require.Len(t, result, 2)
		assert.Equal(t, "match", result[0].Chunk.ID)
		assert.InDelta(t, 0.65, result[0].Score, 0.001)
	})

	t.Run("スコアは1.0で頭打ちになる", func(t *testing.T) {
		recent := time.Now().Add(-time.Hour).Format(time.RFC3339)
		items := []rag.Retrieved{
			retrievedItem("c1", "text", 0.95, map[string]any{
				"created_at": recent,
				"title":      "retrieval",
			}),
		}

		result := NewSimpleReranker().Rerank(ctx, "retrieval", items)
		assert.Equal(t, 1.0, result[0].Score)
	})
}

func TestBM25Reranker(t *testing.T) {
	ctx := context.Background()

	t.Run("空の入力は空を返す", func(t *testing.T) {
		assert.Empty(t, NewBM25Reranker().Rerank(ctx, "query", nil))
	})

	t.Run("クエリ語を含む文書が上位になる", func(t *testing.T) {
		items := []rag.Retrieved{
			retrievedItem("c1", "nothing relevant here at all", 0, nil),
			retrievedItem("c2", "vector search and embedding retrieval", 0, nil),
		}

		result := NewBM25Reranker().Rerank(ctx, "embedding retrieval", items)

		require.Len(t, result, 2)
		assert.Equal(t, "c2", result[0].Chunk.ID)
		assert.Greater(t, result[0].Score, result[1].Score)
	})

	t.Run("クエリが空の場合は既存スコアで並び替える", func(t *testing.T) {
		items := []rag.Retrieved{
			retrievedItem("low", "a", 0.1, nil),
			retrievedItem("high", "b", 0.9, nil),
		}

		result := NewBM25Reranker().Rerank(ctx, "", items)

		assert.Equal(t, "high", result[0].Chunk.ID)
		assert.Equal(t, 0.9, result[0].Score)
	})

	t.Run("既存スコアとBM25スコアが6対4で合成される", func(t *testing.T) {
		items := []rag.Retrieved{
			retrievedItem("c1", "embedding search", 0.5, nil),
		}

		result := NewBM25Reranker().Rerank(ctx, "embedding", items)

		// 1件だけなので正規化後のBM25スコアは1.0
		assert.InDelta(t, 0.6*0.5+0.4*1.0, result[0].Score, 0.001)
	})
}

type stubPairScorer struct {
	scores []float64
	err    error
}

func (s *stubPairScorer) ScorePairs(_ context.Context, _ string, texts []string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

func TestCrossEncoderReranker(t *testing.T) {
	ctx := context.Background()

	items := []rag.Retrieved{
		retrievedItem("c1", "first text", 0.9, nil),
		retrievedItem("c2", "second text", 0.1, nil),
	}

	t.Run("ペアスコアで並び替える", func(t *testing.T) {
		scorer := &stubPairScorer{scores: []float64{0.2, 0.8}}
		r := NewCrossEncoderReranker(scorer, nil)

		result := r.Rerank(ctx, "query", items)

		require.Len(t, result, 2)
		assert.Equal(t, "c2", result[0].Chunk.ID)
		assert.Equal(t, 0.8, result[0].Score)
	})

	t.Run("スコアリング失敗時はsimpleにフォールバックする", func(t *testing.T) {
		scorer := &stubPairScorer{err: errors.New("model unavailable")}
		r := NewCrossEncoderReranker(scorer, nil)

		result := r.Rerank(ctx, "query", items)

		require.Len(t, result, 2)
		assert.Equal(t, "c1", result[0].Chunk.ID)
	})

	t.Run("クエリが空の場合は既存スコアで並び替える", func(t *testing.T) {
		r := NewCrossEncoderReranker(&stubPairScorer{}, nil)

		result := r.Rerank(ctx, "", items)
		assert.Equal(t, "c1", result[0].Chunk.ID)
	})
}

func TestHybridReranker(t *testing.T) {
	ctx := context.Background()

	t.Run("重みは合計1に正規化される", func(t *testing.T) {
		r := NewHybridReranker(Weights{Semantic: 1, BM25: 1, Simple: 2})
		assert.InDelta(t, 0.25, r.weights.Semantic, 0.001)
		assert.InDelta(t, 0.25, r.weights.BM25, 0.001)
		assert.InDelta(t, 0.5, r.weights.Simple, 0.001)
	})

	t.Run("3手法のスコアが重み付きで合成される", func(t *testing.T) {
		items := []rag.Retrieved{
			retrievedItem("c1", "vector embedding retrieval", 0.8, nil),
			retrievedItem("c2", "unrelated content entirely", 0.3, nil),
		}

		result := NewHybridReranker(DefaultWeights()).Rerank(ctx, "embedding", items)

		require.Len(t, result, 2)
		assert.Equal(t, "c1", result[0].Chunk.ID)
		// semantic 0.5*0.8 + bm25 0.3*1.0 + simple 0.2*0.8
		assert.InDelta(t, 0.86, result[0].Score, 0.001)
	})

	t.Run("空の入力は空を返す", func(t *testing.T) {
		assert.Empty(t, NewHybridReranker(DefaultWeights()).Rerank(ctx, "q", nil))
	})
}

func TestNew(t *testing.T) {
	t.Run("登録済みの種別を作成できる", func(t *testing.T) {
		for _, typ := range []string{"identity", "simple", "bm25", "cross_encoder", "hybrid"} {
			r, err := New(typ)
			require.NoError(t, err, typ)
			assert.Equal(t, typ, r.Name())
		}
	})

	t.Run("空の種別はidentityになる", func(t *testing.T) {
		r, err := New("")
		require.NoError(t, err)
		assert.Equal(t, "identity", r.Name())
	})

	t.Run("未知の種別は設定エラーになる", func(t *testing.T) {
		_, err := New("nonexistent")
		require.Error(t, err)
		assert.ErrorIs(t, err, rag.ErrConfiguration)
	})
}
