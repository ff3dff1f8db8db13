package httpapi

// Result 统一响应包装
// - code: ResultSuccess = 2000
// - type: 'success' | 'error' | 'warning'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1

	// AI 问答失败按类型区分，前端据此显示不同的降级文案
	ResultAINotConfigured = 50301
	ResultAIQuotaExceeded = 42901
	ResultAIRequestFailed = 50201
	ResultAIEmptyResponse = 50202
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return FailWithCode(ResultError, message)
}

func FailWithCode(code int, message string) Result[any] {
	return Result[any]{Code: code, Type: "error", Message: message, Result: nil}
}
