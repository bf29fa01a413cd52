package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("環境変数が未設定の場合はデフォルト値になる", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "memory", cfg.Store.Backend)
		assert.Equal(t, "adaptive", cfg.Engine.Strategy)
		assert.Equal(t, "identity", cfg.Engine.Reranker)
		assert.Equal(t, 20, cfg.Engine.RetrieveK)
		assert.Equal(t, 5, cfg.Engine.RerankK)
		assert.Equal(t, 12000, cfg.Engine.MaxContextChars)
	})

	t.Run("環境変数が優先される", func(t *testing.T) {
		t.Setenv("RAGKIT_STRATEGY", "sentence")
		t.Setenv("RAGKIT_RETRIEVE_K", "30")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "sentence", cfg.Engine.Strategy)
		assert.Equal(t, 30, cfg.Engine.RetrieveK)
	})

	t.Run("不正な整数はデフォルト値になる", func(t *testing.T) {
		t.Setenv("RAGKIT_RERANK_K", "not-a-number")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Engine.RerankK)
	})

	t.Run("YAMLファイルでEngine設定を上書きできる", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
engine:
  strategy: paragraph
  reranker: hybrid
  rerankK: 3
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		t.Setenv("RAGKIT_CONFIG", path)

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "paragraph", cfg.Engine.Strategy)
		assert.Equal(t, "hybrid", cfg.Engine.Reranker)
		assert.Equal(t, 3, cfg.Engine.RerankK)
		// YAMLにないキーはデフォルトのまま
		assert.Equal(t, 20, cfg.Engine.RetrieveK)
	})

	t.Run("存在しないYAMLパスはエラーになる", func(t *testing.T) {
		t.Setenv("RAGKIT_CONFIG", "/nonexistent/config.yaml")

		_, err := Load("")
		require.Error(t, err)
	})
}
