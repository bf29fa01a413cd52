package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher(t *testing.T) {
	t.Run("設定ファイルの変更で再読み込みされる", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("engine:\n  strategy: sentence\n"), 0o644))
		t.Setenv("RAGKIT_CONFIG", path)

		var mu sync.Mutex
		var got *Config
		w := NewWatcher(path, "", nil, func(cfg *Config) {
			mu.Lock()
			defer mu.Unlock()
			got = cfg
		})
		require.NoError(t, w.Start(context.Background()))
		defer w.Stop()

		require.NoError(t, os.WriteFile(path, []byte("engine:\n  strategy: paragraph\n"), 0o644))

		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			mu.Lock()
			done := got != nil
			mu.Unlock()
			if done {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}

		mu.Lock()
		defer mu.Unlock()
		require.NotNil(t, got, "再読み込みコールバックが呼ばれなかった")
		assert.Equal(t, "paragraph", got.Engine.Strategy)
	})

	t.Run("別ファイルの変更では再読み込みされない", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("engine: {}\n"), 0o644))

		called := make(chan struct{}, 1)
		w := NewWatcher(path, "", nil, func(*Config) {
			called <- struct{}{}
		})
		require.NoError(t, w.Start(context.Background()))
		defer w.Stop()

		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644))

		select {
		case <-called:
			t.Fatal("対象外のファイルで再読み込みされた")
		case <-time.After(800 * time.Millisecond):
		}
	})
}
