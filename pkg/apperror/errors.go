package apperror

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind はエラーの分類を表す。
type Kind int

const (
	// KindInternal は通信失敗やJSONのパース失敗など、内部で発生したエラーを表す。
	KindInternal Kind = iota
	// KindBadRequest はクライアントのリクエストが不正であることを表す。
	KindBadRequest
	// KindUpstream は外部APIが非2xxを返したことを表す。
	KindUpstream
	// KindTooLarge はリクエストボディが上限を超えたことを表す。
	KindTooLarge
)

// String はKindの名前を返す。
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindUpstream:
		return "UpstreamError"
	case KindTooLarge:
		return "PayloadTooLarge"
	default:
		return "InternalError"
	}
}

// Error は分類付きのエラー。
type Error struct {
	// Kind はエラーの分類。
	Kind Kind
	// Message はクライアントに返すメッセージ。Upstreamの場合は空でよい。
	Message string
	// Code は外部APIが返したエラーコード。
	Code string
	// Detail は外部APIが返したエラー詳細。
	Detail string
	// cause は元になったエラー。
	cause error
}

// Error はエラーメッセージを返す。
// Upstreamの場合は "Error Code {code}: {detail}" 形式になる。
func (e *Error) Error() string {
	switch {
	case e.Kind == KindUpstream:
		return fmt.Sprintf("Error Code %s: %s", e.Code, e.Detail)
	case e.Message != "" && e.cause != nil:
		return e.Message + ": " + e.cause.Error()
	case e.Message != "":
		return e.Message
	case e.cause != nil:
		return e.cause.Error()
	default:
		return e.Kind.String()
	}
}

// Unwrap は元になったエラーを返す。
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause はpkg/errorsのCauseに対応する。
func (e *Error) Cause() error {
	return e.cause
}

// StatusCode はKindに対応するHTTPステータスコードを返す。
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest は不正なリクエストを表すエラーを生成する。
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// TooLarge はリクエストボディが上限を超えたことを表すエラーを生成する。
func TooLarge(err error, message string) *Error {
	return &Error{Kind: KindTooLarge, Message: message, cause: err}
}

// Upstream は外部APIが返したエラーコードと詳細を持つエラーを生成する。
func Upstream(code, detail string) *Error {
	return &Error{Kind: KindUpstream, Code: code, Detail: detail}
}

// Internal はerrを内部エラーとしてラップする。errがnilの場合はnilを返す。
func Internal(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindInternal, Message: message, cause: errors.WithStack(err)}
}

// StatusCode はerrに対応するHTTPステータスコードを返す。
// 分類されていないエラーは500として扱う。
func StatusCode(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}

// Is はerrが指定した分類のエラーを含むかどうかを返す。
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
