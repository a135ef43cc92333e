package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/mevzuat-rag/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "mevzuat-rag",
		Usage: "大学規程向け RAG 質問応答システム",
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "規程に関する質問に回答",
				ArgsUsage: "<質問文>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "結果をJSON形式で出力",
					},
					&cli.BoolFlag{
						Name:  "show-citations",
						Usage: "引用元チャンクも出力",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "ingest",
				Usage: "文書インジェスト管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "run",
						Usage: "未処理文書のチャンク化とEmbedding生成を実行",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: appcli.IngestRunAction,
					},
				},
			},
			{
				Name:  "doc",
				Usage: "規程文書管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "規程文書一覧を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: appcli.DocListAction,
					},
					{
						Name:  "show",
						Usage: "規程文書の詳細を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "code",
								Usage:    "規程コード (例: 5.1.2)",
								Required: true,
							},
						},
						Action: appcli.DocShowAction,
					},
					{
						Name:  "chunk",
						Usage: "チャンク本文を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.IntFlag{
								Name:     "id",
								Usage:    "チャンクID",
								Required: true,
							},
						},
						Action: appcli.DocChunkAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
