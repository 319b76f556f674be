package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gachitda/gachitda/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// ボディは {"error": CODE} の1フィールドのみで構成する。
type ErrorResponseBody struct {
	Error string `json:"error"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// ステータスコードはAPIError自身が保持する。
func WriteErrorResponse(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(ErrorResponseBody{Error: apiErr.Code})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なコードを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, model.ErrInternal)
}
