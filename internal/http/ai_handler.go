package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"wisefido-vitals/internal/ai"

	"go.uber.org/zap"
)

// 问题长度上限
const maxQueryLength = 2000

// AskRequest 问答请求
type AskRequest struct {
	Query string `json:"query"`
}

// AskResponse 问答结果
type AskResponse struct {
	Answer string `json:"answer"`
}

// AIHandler AI 问答接口
type AIHandler struct {
	asker  ai.Asker
	logger *zap.Logger
}

func NewAIHandler(asker ai.Asker, logger *zap.Logger) *AIHandler {
	return &AIHandler{asker: asker, logger: logger}
}

// POST /api/v1/ai/ask
// body: {query}
func (h *AIHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body: "+err.Error()))
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusOK, Fail("query is required"))
		return
	}
	if len(query) > maxQueryLength {
		writeJSON(w, http.StatusOK, Fail("query is too long"))
		return
	}

	answer, err := h.asker.Ask(r.Context(), query)
	if err != nil {
		code, message := classifyAIError(err)
		h.logger.Warn("AI ask failed", zap.Int("code", code), zap.Error(err))
		writeJSON(w, http.StatusOK, FailWithCode(code, message))
		return
	}

	writeJSON(w, http.StatusOK, Ok(AskResponse{Answer: answer}))
}

// classifyAIError 每种错误对应独立的提示文案
func classifyAIError(err error) (int, string) {
	switch {
	case errors.Is(err, ai.ErrMissingCredential):
		return ResultAINotConfigured, "AI assistant is not configured"
	case errors.Is(err, ai.ErrQuotaExceeded):
		return ResultAIQuotaExceeded, "AI quota exceeded, please try again later"
	case errors.Is(err, ai.ErrEmptyResponse):
		return ResultAIEmptyResponse, "AI returned an empty answer, please rephrase the question"
	default:
		return ResultAIRequestFailed, "AI service is unavailable, please try again later"
	}
}
