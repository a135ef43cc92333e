package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jinford/mevzuat-rag/internal/core/fault"
	"github.com/jinford/mevzuat-rag/internal/core/search"
)

// DefaultRequestTimeout はパイプライン全体のデフォルトタイムアウト
const DefaultRequestTimeout = 60 * time.Second

// ChatService は質問応答ワークフローのオーケストレータ。
// リクエストごとに独立・ステートレスに実行され、共有するのは読み取り専用の
// 設定とプール済みクライアントのみ。
type ChatService struct {
	retrieval *search.RetrievalService
	grader    *Grader
	generator *Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// ChatServiceOption は ChatService のオプション設定
type ChatServiceOption func(*ChatService)

// WithChatLogger は ChatService にロガーを設定する
func WithChatLogger(logger *slog.Logger) ChatServiceOption {
	return func(s *ChatService) {
		s.logger = logger
	}
}

// WithRequestTimeout はリクエスト全体のタイムアウトを設定する
func WithRequestTimeout(timeout time.Duration) ChatServiceOption {
	return func(s *ChatService) {
		s.timeout = timeout
	}
}

// NewChatService は新しい ChatService を作成する
func NewChatService(retrieval *search.RetrievalService, grader *Grader, generator *Generator, opts ...ChatServiceOption) *ChatService {
	svc := &ChatService{
		retrieval: retrieval,
		grader:    grader,
		generator: generator,
		timeout:   DefaultRequestTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Answer はクエリ1件に対してワークフローを前進1回だけ実行する。
// Routed → Retrieved → Graded → {Generated | InsufficientEvidence}。
// 失敗時は Failed 終端へ落ち、整形済みエラーを返す。部分的に埋まった
// QueryState を完了として返すことは決してない。
func (s *ChatService) Answer(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fault.NewValidation("query is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	state := NewQueryState(query)
	logger := s.logger.With("requestID", state.RequestID.String())

	// Routed: 純粋関数による分類。I/O なし、失敗しない。
	state.Route = search.RouteQuery(query)
	logger.Info("query routed", "route", state.Route.Kind, "matched", state.Route.Matched)

	// Retrieved: 経路実行と融合
	result, err := s.retrieval.Retrieve(ctx, state.Route, query)
	if err != nil {
		state.fail(err)
		logger.Error("retrieval failed", "error", err)
		return nil, err
	}
	state.Candidates = result.Candidates
	state.Fused = result.Fused
	if err := state.advance(StageRetrieved); err != nil {
		state.fail(err)
		return nil, err
	}

	// Graded: ヒューリスティックフィルタと根拠十分判定
	graded, sufficient := s.grader.Grade(query, result.Chunks)
	state.Graded = graded
	state.HasSufficientEvidence = sufficient
	if err := state.advance(StageGraded); err != nil {
		state.fail(err)
		return nil, err
	}
	logger.Info("candidates graded", "graded", len(graded), "sufficient", sufficient)

	// 根拠不足なら Generator を呼ばずに早期終了する（正常系終端）
	if !sufficient {
		if err := state.advance(StageInsufficientEvidence); err != nil {
			state.fail(err)
			return nil, err
		}
		state.Answer = BuildInsufficientAnswer(state.Route, result.Chunks)
		state.Confidence = 0
		logger.Info("terminating early: insufficient evidence")
		return s.buildResult(state), nil
	}

	// Generated: 接地した回答合成
	generation, err := s.generator.Generate(ctx, query, graded)
	if err != nil {
		state.fail(err)
		logger.Error("generation failed", "error", err)
		return nil, err
	}
	state.Answer = generation.Answer
	state.Citations = generation.Citations
	state.Confidence = generation.Confidence
	if err := state.advance(StageGenerated); err != nil {
		state.fail(err)
		return nil, err
	}

	logger.Info("answer generated",
		"answerLength", len(state.Answer),
		"citations", len(state.Citations),
		"confidence", state.Confidence,
	)
	return s.buildResult(state), nil
}

// buildResult は終端状態の QueryState から応答を組み立てる
func (s *ChatService) buildResult(state *QueryState) *Result {
	citations := state.Citations
	if citations == nil {
		citations = []Citation{}
	}
	return &Result{
		Answer:                state.Answer,
		Citations:             citations,
		Confidence:            state.Confidence,
		HasSufficientEvidence: state.HasSufficientEvidence,
	}
}
