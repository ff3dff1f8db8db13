package ai

import (
	"errors"
	"fmt"
)

// 错误类型，调用方用 errors.Is 区分并自行决定降级文案
var (
	// ErrMissingCredential 未配置 API Key，不发起请求
	ErrMissingCredential = errors.New("ai api key is not configured")

	// ErrRequestFailed 网络错误、超时或非 200 响应
	ErrRequestFailed = errors.New("ai request failed")

	// ErrQuotaExceeded 额度耗尽或被限流（429 / 402）
	ErrQuotaExceeded = errors.New("ai quota exceeded")

	// ErrEmptyResponse 200 但内容为空或缺失
	ErrEmptyResponse = errors.New("ai returned empty response")
)

// Error AI 调用错误
type Error struct {
	Kind       error // 上面四种之一
	StatusCode int   // HTTP 状态码，未收到响应时为 0
	Err        error // 底层原因，可为空
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status: %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap 同时暴露错误类型和底层原因
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, status int, cause error) *Error {
	return &Error{Kind: kind, StatusCode: status, Err: cause}
}
