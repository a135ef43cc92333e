package search

import (
	"context"
	"log/slog"

	"github.com/jinford/mevzuat-rag/internal/core/fault"
)

// Config は検索チューニングパラメータを表す
type Config struct {
	TopKVector  int // ベクトル検索の候補上限 K_v
	TopKLexical int // 字句検索の候補上限 K_f
	RRFConstant int // RRF 平滑化定数 k
	TopKFused   int // 融合後に残す候補数 N
}

// DefaultConfig はデフォルトの検索設定を返す
func DefaultConfig() Config {
	return Config{
		TopKVector:  20,
		TopKLexical: 20,
		RRFConstant: DefaultRRFConstant,
		TopKFused:   DefaultTopKFused,
	}
}

// RetrievalService はルーティング済みクエリに対する検索ロジックを提供する
type RetrievalService struct {
	repo     Repository
	embedder Embedder
	cfg      Config
	logger   *slog.Logger
}

// RetrievalServiceOption は RetrievalService のオプション設定
type RetrievalServiceOption func(*RetrievalService)

// WithRetrievalLogger は RetrievalService にロガーを設定する
func WithRetrievalLogger(logger *slog.Logger) RetrievalServiceOption {
	return func(s *RetrievalService) {
		s.logger = logger
	}
}

// NewRetrievalService は新しい RetrievalService を作成する
func NewRetrievalService(repo Repository, embedder Embedder, cfg Config, opts ...RetrievalServiceOption) *RetrievalService {
	if cfg.TopKVector <= 0 {
		cfg.TopKVector = DefaultConfig().TopKVector
	}
	if cfg.TopKLexical <= 0 {
		cfg.TopKLexical = DefaultConfig().TopKLexical
	}
	if cfg.RRFConstant <= 0 {
		cfg.RRFConstant = DefaultRRFConstant
	}
	if cfg.TopKFused <= 0 {
		cfg.TopKFused = DefaultTopKFused
	}

	svc := &RetrievalService{
		repo:     repo,
		embedder: embedder,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Result は検索フェーズの成果物を表す
type Result struct {
	Route      Route
	Candidates []Candidate      // 全経路の生候補
	Fused      []FusedCandidate // 融合・切り詰め後
	Chunks     []*RetrievedChunk
}

// Retrieve はルートに応じた検索経路を実行し、融合済みの結果を返す。
// 自然文ルートではベクトル経路（Embedding → 近傍検索）と字句経路をデータ依存が
// ないため並行実行し、融合前に合流する。片側の失敗は残った経路で続行し
// （degrade-to-partial）、両経路とも失敗した場合のみエラーを返す。
func (s *RetrievalService) Retrieve(ctx context.Context, route Route, query string) (*Result, error) {
	var lists [][]Candidate

	switch route.Kind {
	case RouteCode:
		candidates, err := s.repo.LexicalChunks(ctx, route.Matched, s.cfg.TopKFused, ScopeCode)
		if err != nil {
			return nil, err
		}
		lists = append(lists, candidates)

	case RouteMetadata:
		candidates, err := s.repo.LexicalChunks(ctx, route.Matched, s.cfg.TopKLexical, ScopeMetadata)
		if err != nil {
			return nil, err
		}
		lists = append(lists, candidates)

	case RouteNaturalLanguage:
		vecList, lexList, err := s.retrieveBothPaths(ctx, query)
		if err != nil {
			return nil, err
		}
		if vecList != nil {
			lists = append(lists, vecList)
		}
		if lexList != nil {
			lists = append(lists, lexList)
		}

	default:
		return nil, fault.NewValidation("unknown route kind: %s", route.Kind)
	}

	var all []Candidate
	for _, list := range lists {
		all = append(all, list...)
	}

	fused := FuseRanks(lists, s.cfg.RRFConstant, s.cfg.TopKFused)

	chunks, err := s.repo.HydrateChunks(ctx, fused)
	if err != nil {
		return nil, err
	}

	s.logger.Info("retrieval completed",
		"route", route.Kind,
		"candidates", len(all),
		"fused", len(fused),
	)

	return &Result{
		Route:      route,
		Candidates: all,
		Fused:      fused,
		Chunks:     chunks,
	}, nil
}

// retrieveBothPaths はベクトル経路と字句経路を並行実行して合流する。
// ベクトル経路内では Embedding 呼び出しが近傍検索に先行する（真のデータ依存）。
func (s *RetrievalService) retrieveBothPaths(ctx context.Context, query string) ([]Candidate, []Candidate, error) {
	type pathResult struct {
		candidates []Candidate
		err        error
	}

	vecCh := make(chan pathResult, 1)
	lexCh := make(chan pathResult, 1)

	go func() {
		vector, err := s.embedder.Embed(ctx, query)
		if err != nil {
			vecCh <- pathResult{err: err}
			return
		}
		candidates, err := s.repo.NearestChunks(ctx, vector, s.cfg.TopKVector)
		vecCh <- pathResult{candidates: candidates, err: err}
	}()

	go func() {
		candidates, err := s.repo.LexicalChunks(ctx, query, s.cfg.TopKLexical, ScopeContent)
		lexCh <- pathResult{candidates: candidates, err: err}
	}()

	vecRes := <-vecCh
	lexRes := <-lexCh

	if vecRes.err != nil && lexRes.err != nil {
		return nil, nil, vecRes.err
	}
	if vecRes.err != nil {
		s.logger.Warn("vector path failed, continuing with lexical results only", "error", vecRes.err)
		return nil, lexRes.candidates, nil
	}
	if lexRes.err != nil {
		s.logger.Warn("lexical path failed, continuing with vector results only", "error", lexRes.err)
		return vecRes.candidates, nil, nil
	}
	return vecRes.candidates, lexRes.candidates, nil
}
