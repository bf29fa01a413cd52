package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/ragkit/internal/core/rag"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	k := int(cmd.Int("k"))
	showSources := cmd.Bool("show-sources")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("質問応答を開始", "question", question, "k", k)

	pipe, err := appCtx.Container.AskPipeline()
	if err != nil {
		return err
	}

	rc := rag.NewContext(question, k)
	answer, err := pipe.Run(ctx, rc)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	fmt.Println(answer.Text)

	if showSources {
		if ids, ok := answer.Metadata["ctxIds"].([]string); ok && len(ids) > 0 {
			fmt.Println("\n--- 参照チャンク ---")
			for i, id := range ids {
				fmt.Printf("[%d] %s\n", i+1, id)
			}
		}
	}

	slog.Info("質問応答が完了しました", "answerLength", len(answer.Text))
	return nil
}
