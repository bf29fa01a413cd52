package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_BatchEmbed(t *testing.T) {
	ctx := context.Background()

	t.Run("空の入力は空の結果を返しエラーにならない", func(t *testing.T) {
		emb := NewEmbedder("test-key")

		vecs, err := emb.BatchEmbed(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, vecs)

		vecs, err = emb.BatchEmbed(ctx, []string{})
		require.NoError(t, err)
		assert.Empty(t, vecs)
	})

	t.Run("バッチ上限を超える入力はエラーになる", func(t *testing.T) {
		emb := NewEmbedder("test-key")

		texts := make([]string, maxEmbeddingBatchSize+1)
		for i := range texts {
			texts[i] = "text"
		}

		_, err := emb.BatchEmbed(ctx, texts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch size exceeds")
	})
}

func TestNewEmbedder(t *testing.T) {
	t.Run("デフォルトのモデルと次元が設定される", func(t *testing.T) {
		emb := NewEmbedder("test-key")
		assert.Equal(t, DefaultEmbeddingModel, emb.ModelName())
		assert.Equal(t, DefaultEmbeddingDimension, emb.Dimension())
		assert.Equal(t, maxEmbeddingBatchSize, emb.MaxBatchSize())
	})

	t.Run("オプションでモデルと次元を上書きできる", func(t *testing.T) {
		emb := NewEmbedder("test-key",
			WithEmbeddingModel("text-embedding-3-large"),
			WithEmbeddingDimension(3072),
		)
		assert.Equal(t, "text-embedding-3-large", emb.ModelName())
		assert.Equal(t, 3072, emb.Dimension())
	})
}
