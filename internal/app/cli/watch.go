package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/urfave/cli/v3"

	"github.com/jinford/ragkit/internal/core/rag"
	"github.com/jinford/ragkit/internal/infra/loader"
	"github.com/jinford/ragkit/internal/platform/container"
	"github.com/jinford/ragkit/pkg/config"
)

// WatchAction はフォルダを監視し、変更されたファイルを自動で取り込むアクション
// RAGKIT_CONFIG が設定されている場合は設定ファイルも監視し、変更時にコンテナを作り直す
func WatchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}

	var current atomic.Pointer[container.Container]
	current.Store(appCtx.Container)
	defer func() { current.Load().Close() }()

	dir := cmd.String("dir")
	if dir == "" {
		dir = appCtx.Container.Config.Watch.Dir
	}
	if dir == "" {
		return fmt.Errorf("監視するディレクトリを指定してください")
	}

	watcher, err := loader.NewFolderWatcher(dir, func(ctx context.Context, docs []rag.Document) error {
		_, err := current.Load().Ingester.Ingest(ctx, docs)
		return err
	}, loader.WithWatcherLogger(appCtx.Logger()))
	if err != nil {
		return err
	}

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	// 設定ファイルのホットリロード
	if cfgPath := os.Getenv("RAGKIT_CONFIG"); cfgPath != "" {
		cfgWatcher := config.NewWatcher(cfgPath, envFile, appCtx.Logger(), func(cfg *config.Config) {
			next, err := current.Load().Rebuild(ctx, cfg)
			if err != nil {
				slog.Error("コンテナの再構築に失敗したため既存の構成を維持します", "error", err)
				return
			}
			old := current.Swap(next)
			old.Close()
			slog.Info("設定変更を反映しました",
				"strategy", cfg.Engine.Strategy,
				"reranker", cfg.Engine.Reranker,
			)
		})
		if err := cfgWatcher.Start(ctx); err != nil {
			return err
		}
		defer cfgWatcher.Stop()
	}

	slog.Info("フォルダ監視中です。Ctrl+Cで終了します", "dir", dir)
	<-ctx.Done()
	return nil
}
