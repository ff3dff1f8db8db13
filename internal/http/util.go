package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
)

// 请求体上限
const maxBodyBytes = 1 << 16

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// readBodyJSON 读取 JSON 请求体，空请求体返回 errEmptyBody，超过 maxBytes 返回 errBodyTooLarge
func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errEmptyBody
	}
	if int64(len(body)) > maxBytes {
		return errBodyTooLarge
	}
	return json.Unmarshal(body, out)
}
