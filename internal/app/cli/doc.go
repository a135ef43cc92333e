package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

// DocListAction は登録済みの規程文書一覧を表示する
func DocListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats, err := appCtx.Container.RegDocRepo.ListDocumentStats(ctx)
	if err != nil {
		slog.Error("文書一覧の取得に失敗しました", "error", err)
		return err
	}

	if len(stats) == 0 {
		fmt.Println("登録済みの文書はありません")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tTITLE\tCHUNKS\tEVENTS\tSCRAPED_AT")
	for _, st := range stats {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			st.Document.Code,
			st.Document.Title,
			st.ChunkCount,
			st.EventCount,
			st.Document.ScrapedAt.Format("2006-01-02"),
		)
	}
	return w.Flush()
}

// DocChunkAction はチャンクIDを指定して本文を表示する。
// 回答の引用に出てきた chunk_id の原文確認に使う。
func DocChunkAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	id := cmd.Int("id")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	chunkOpt, err := appCtx.Container.RegDocRepo.GetChunkByID(ctx, int64(id))
	if err != nil {
		slog.Error("チャンクの取得に失敗しました", "error", err)
		return err
	}
	chunk, ok := chunkOpt.Get()
	if !ok {
		return fmt.Errorf("チャンクが見つかりません: %d", id)
	}

	if heading, ok := chunk.Heading.Get(); ok {
		fmt.Printf("見出し: %s\n", heading)
	}
	fmt.Printf("文書ID: %d / 順序: %d / トークン数: %d\n\n", chunk.DocID, chunk.Ordinal, chunk.TokenCount)
	fmt.Println(chunk.Content)
	return nil
}

// DocShowAction は規程コードを指定して文書の詳細とチャンクを表示する
func DocShowAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	code := cmd.String("code")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	docOpt, err := appCtx.Container.RegDocRepo.GetDocumentByCode(ctx, code)
	if err != nil {
		slog.Error("文書の取得に失敗しました", "error", err)
		return err
	}
	doc, ok := docOpt.Get()
	if !ok {
		return fmt.Errorf("文書が見つかりません: %s", code)
	}

	fmt.Printf("コード: %s\n", doc.Code)
	fmt.Printf("タイトル: %s\n", doc.Title)
	if url, ok := doc.URL.Get(); ok {
		fmt.Printf("URL: %s\n", url)
	}
	if parent, ok := doc.ParentCode.Get(); ok {
		fmt.Printf("親コード: %s\n", parent)
	}
	fmt.Printf("言語: %s\n", doc.Language)
	fmt.Printf("取得日時: %s\n", doc.ScrapedAt.Format("2006-01-02 15:04:05"))

	chunks, err := appCtx.Container.RegDocRepo.ListChunksByDoc(ctx, doc.ID)
	if err != nil {
		slog.Error("チャンク一覧の取得に失敗しました", "error", err)
		return err
	}

	fmt.Printf("チャンク数: %d\n", len(chunks))
	for _, chunk := range chunks {
		heading, _ := chunk.Heading.Get()
		fmt.Printf("  [%d] id=%d tokens=%d %s\n", chunk.Ordinal, chunk.ID, chunk.TokenCount, heading)
	}
	return nil
}
