package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
)

// IngestRunAction は未処理文書のチャンク化と Embedding 付与を実行する
func IngestRunAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	slog.Info("インジェストを開始")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.IngestService.Run(ctx)
	if err != nil {
		slog.Error("インジェストに失敗しました", "error", err)
		return err
	}

	fmt.Printf("処理文書数: %d\n", result.ProcessedDocs)
	fmt.Printf("生成チャンク数: %d\n", result.TotalChunks)
	fmt.Printf("所要時間: %s\n", result.Duration)

	slog.Info("インジェストが完了しました",
		"processedDocs", result.ProcessedDocs,
		"totalChunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return nil
}
