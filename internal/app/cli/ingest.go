package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/ragkit/internal/core/rag"
	"github.com/jinford/ragkit/internal/infra/loader"
)

// IngestDirAction はディレクトリまたはファイルを取り込むコマンドのアクション
func IngestDirAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("取り込み対象のパスを指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	docs, err := loader.NewDirLoader(appCtx.Logger()).Load(ctx, path)
	if err != nil {
		return err
	}

	return runIngest(ctx, appCtx, docs)
}

// IngestGitAction はGitリポジトリを取り込むコマンドのアクション
func IngestGitAction(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")
	ref := cmd.String("ref")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Container.Config
	if ref == "" {
		ref = cfg.Git.DefaultBranch
	}

	gitLoader := loader.NewGitLoader(cfg.Git.CacheDir, appCtx.Logger())
	docs, err := gitLoader.Load(ctx, url, ref)
	if err != nil {
		return err
	}

	return runIngest(ctx, appCtx, docs)
}

// IngestTextAction は引数のテキストをそのまま1文書として取り込むアクション
func IngestTextAction(ctx context.Context, cmd *cli.Command) error {
	text := cmd.Args().First()
	if text == "" {
		return fmt.Errorf("取り込むテキストを指定してください")
	}

	title := cmd.String("title")
	if title == "" {
		title = "ad-hoc"
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	// アドホックな文書はパスを持たないためUUIDでIDを振る
	doc := rag.Document{
		ID:     uuid.NewString()[:8],
		Title:  title,
		Source: "text://" + title,
		Text:   text,
	}
	return runIngest(ctx, appCtx, []rag.Document{doc})
}

// runIngest は文書群を取り込み、結果を出力する
func runIngest(ctx context.Context, appCtx *AppContext, docs []rag.Document) error {
	stored, err := appCtx.Container.Ingester.Ingest(ctx, docs)
	if err != nil {
		slog.Error("文書の取り込みに失敗しました", "error", err)
		return err
	}

	fmt.Printf("取り込み完了: %d文書 %dチャンク (strategy=%s)\n",
		len(docs), stored, appCtx.Container.Registry.Current().Name())
	return nil
}
