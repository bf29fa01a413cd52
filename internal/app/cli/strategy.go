package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/jinford/ragkit/internal/infra/loader"
)

// StrategyListAction は登録済みストラテジ一覧を表示するアクション
func StrategyListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	registry := appCtx.Container.Registry
	current := registry.Current().Name()

	strategies := registry.Strategies()
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		marker := "  "
		if name == current {
			marker = "* "
		}
		fmt.Printf("%s%-16s %s\n", marker, name, strategies[name])
	}
	return nil
}

// StrategySuggestAction は文書の特徴からストラテジを提案するアクション
func StrategySuggestAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("対象ファイルのパスを指定してください")
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

	for _, doc := range docs {
		fmt.Printf("%s: %s\n", doc.Source, appCtx.Container.Registry.Suggest(doc))
	}
	return nil
}

// StrategyStatsAction は指定ストラテジでの分割結果のトークン統計を表示するアクション
func StrategyStatsAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("対象ファイルのパスを指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	registry := appCtx.Container.Registry
	if name := cmd.String("strategy"); name != "" {
		if err := registry.SetStrategy(name); err != nil {
			return err
		}
	}

	docs, err := loader.NewDirLoader(appCtx.Logger()).Load(ctx, path)
	if err != nil {
		return err
	}

	var texts []string
	for _, doc := range docs {
		for _, chunk := range registry.ChunkDocument(doc) {
			texts = append(texts, chunk.Text)
		}
	}

	stats := appCtx.Container.Tokens.Stats(texts)
	fmt.Printf("strategy: %s\n", registry.Current().Name())
	fmt.Printf("chunks:   %d\n", stats.Count)
	fmt.Printf("tokens:   min=%d max=%d avg=%.1f\n", stats.MinTokens, stats.MaxTokens, stats.AvgTokens)
	return nil
}
