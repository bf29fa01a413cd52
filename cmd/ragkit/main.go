package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/ragkit/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "ragkit",
		Usage: "文書の取り込みと検索拡張生成(RAG)を行うCLI",
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "文書取り込みコマンド",
				Commands: []*cli.Command{
					{
						Name:      "dir",
						Usage:     "ディレクトリまたはファイルを取り込む",
						ArgsUsage: "<path>",
						Flags:     []cli.Flag{envFlag},
						Action:    appcli.IngestDirAction,
					},
					{
						Name:  "git",
						Usage: "Gitリポジトリを取り込む",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "url",
								Usage:    "GitリポジトリURL",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "ref",
								Usage: "ブランチ名（省略時はデフォルトブランチ）",
							},
						},
						Action: appcli.IngestGitAction,
					},
					{
						Name:      "text",
						Usage:     "テキストをそのまま1文書として取り込む",
						ArgsUsage: "<text>",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:  "title",
								Usage: "文書タイトル",
							},
						},
						Action: appcli.IngestTextAction,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "取り込み済み文書に対して質問する",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					envFlag,
					&cli.IntFlag{
						Name:  "k",
						Usage: "検索件数（省略時は設定値）",
					},
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "参照したチャンクIDも表示する",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "strategy",
				Usage: "チャンク分割ストラテジ管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "ストラテジ一覧を表示",
						Flags:  []cli.Flag{envFlag},
						Action: appcli.StrategyListAction,
					},
					{
						Name:      "suggest",
						Usage:     "文書の特徴からストラテジを提案",
						ArgsUsage: "<path>",
						Flags:     []cli.Flag{envFlag},
						Action:    appcli.StrategySuggestAction,
					},
					{
						Name:      "stats",
						Usage:     "分割結果のトークン統計を表示",
						ArgsUsage: "<path>",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:  "strategy",
								Usage: "使用するストラテジ（省略時は設定値）",
							},
						},
						Action: appcli.StrategyStatsAction,
					},
				},
			},
			{
				Name:  "namespace",
				Usage: "ベクトルストア名前空間管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "名前空間一覧を表示",
						Flags:  []cli.Flag{envFlag},
						Action: appcli.NamespaceListAction,
					},
					{
						Name:   "show",
						Usage:  "現在の名前空間を表示",
						Flags:  []cli.Flag{envFlag},
						Action: appcli.NamespaceShowAction,
					},
				},
			},
			{
				Name:  "watch",
				Usage: "フォルダを監視して変更を自動取り込み",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:  "dir",
						Usage: "監視するディレクトリ（省略時は設定値）",
					},
				},
				Action: appcli.WatchAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
