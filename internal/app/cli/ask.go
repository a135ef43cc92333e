package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	// フラグの取得
	envFile := cmd.String("env")
	asJSON := cmd.Bool("json")
	showCitations := cmd.Bool("show-citations")

	// 質問文の取得
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	slog.Info("質問応答を開始", "question", question)

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.ChatService.Answer(ctx, question)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	// --jsonフラグが指定されている場合はAPIレスポンス形式で出力
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("結果の出力に失敗: %w", err)
		}
		return nil
	}

	fmt.Println(result.Answer)

	if showCitations && len(result.Citations) > 0 {
		fmt.Println("\n--- 引用 ---")
		for i, c := range result.Citations {
			fmt.Printf("[%d] %s (chunk %d): %s\n", i+1, c.RegCode, c.ChunkID, c.Excerpt)
		}
	}

	slog.Info("質問応答が完了しました",
		"sufficient", result.HasSufficientEvidence,
		"confidence", result.Confidence,
		"citations", len(result.Citations),
	)
	return nil
}
