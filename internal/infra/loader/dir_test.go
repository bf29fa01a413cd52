package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDirLoader_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("対応拡張子のファイルだけ読み込む", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "doc.md"), "# Title\n\nbody")
		writeFile(t, filepath.Join(root, "note.txt"), "plain note")
		writeFile(t, filepath.Join(root, "image.png"), "binary")

		docs, err := NewDirLoader(nil).Load(ctx, root)
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("Markdownの最初の見出しがタイトルになる", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, "guide.md")
		writeFile(t, path, "# Getting Started\n\ncontent here")

		docs, err := NewDirLoader(nil).Load(ctx, root)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Getting Started", docs[0].Title)
		assert.Equal(t, "file://"+path, docs[0].Source)
		assert.Len(t, docs[0].ID, 8)
	})

	t.Run("見出しがない場合はファイル名がタイトルになる", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "readme.txt"), "no heading here")

		docs, err := NewDirLoader(nil).Load(ctx, root)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "readme", docs[0].Title)
	})

	t.Run("gitignoreのパターンに一致するファイルはスキップされる", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ".gitignore"), "build/\nsecret.md\n")
		writeFile(t, filepath.Join(root, "keep.md"), "# Keep")
		writeFile(t, filepath.Join(root, "secret.md"), "# Secret")
		writeFile(t, filepath.Join(root, "build", "out.md"), "# Out")

		docs, err := NewDirLoader(nil).Load(ctx, root)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Keep", docs[0].Title)
	})

	t.Run("単一ファイルのパスも読み込める", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, "single.md")
		writeFile(t, path, "# Single")

		docs, err := NewDirLoader(nil).Load(ctx, path)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Single", docs[0].Title)
	})

	t.Run("存在しないパスはエラーになる", func(t *testing.T) {
		_, err := NewDirLoader(nil).Load(ctx, "/nonexistent/path")
		require.Error(t, err)
	})
}
