// Package fault はパイプライン共通のエラー分類を提供する。
// InsufficientEvidence はエラーではなく正常系の終端状態なので、ここには含めない。
package fault

import (
	"errors"
	"fmt"
)

// ValidationError は不正な入力（空クエリ等）を表す。リトライ対象外。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Msg)
}

// NewValidation は新しい ValidationError を作成する
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError は外部サービス（Embedding / Completion）の失敗を表す。
// リトライは呼び出し側クライアント内で完結し、ここに到達した時点で致命的。
type UpstreamError struct {
	Service string // "embedding" or "completion"
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream service error (%s): %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstream は新しい UpstreamError を作成する
func NewUpstream(service string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Err: err}
}

// StorageError は検索バックエンド到達不能等のストレージ失敗を表す。
// コア側ではリトライせず、そのまま致命的エラーとして表面化する。
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorage は新しい StorageError を作成する
func NewStorage(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsValidation は err が ValidationError かどうかを返す
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsUpstream は err が UpstreamError かどうかを返す
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// IsStorage は err が StorageError かどうかを返す
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}
