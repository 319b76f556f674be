package model

import "net/http"

// APIError はクライアントへ返す統一エラーを表す。
// レスポンスボディは {"error": Code} の形式で、HTTPステータスはStatusを使用する。
// Messageはログ用であり、レスポンスには含めない。
type APIError struct {
	Code    string
	Status  int
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Message != "" {
		return "[" + e.Code + "] " + e.Message
	}
	return e.Code
}

// 認証系（401）
var (
	ErrMissingAuthorizationHeader = &APIError{Code: "MISSING_AUTHORIZATION_HEADER", Status: http.StatusUnauthorized}
	ErrInvalidAuthorizationFormat = &APIError{Code: "INVALID_AUTHORIZATION_FORMAT", Status: http.StatusUnauthorized}
	ErrInvalidAccessToken         = &APIError{Code: "INVALID_ACCESS_TOKEN", Status: http.StatusUnauthorized}
	ErrNoRefreshToken             = &APIError{Code: "NO_REFRESH_TOKEN", Status: http.StatusUnauthorized}
	ErrInvalidRefreshToken        = &APIError{Code: "INVALID_REFRESH_TOKEN", Status: http.StatusUnauthorized}
)

// 入力検証系（400）
var (
	ErrInvalidRequest        = &APIError{Code: "INVALID_REQUEST", Status: http.StatusBadRequest}
	ErrInvalidEmail          = &APIError{Code: "INVALID_EMAIL", Status: http.StatusBadRequest}
	ErrMissingRequiredFields = &APIError{Code: "MISSING_REQUIRED_FIELDS", Status: http.StatusBadRequest}
	ErrInvalidDateFormat     = &APIError{Code: "INVALID_DATE_FORMAT", Status: http.StatusBadRequest}
	ErrInvalidRole           = &APIError{Code: "INVALID_ROLE", Status: http.StatusBadRequest}
	ErrInvalidSubscription   = &APIError{Code: "INVALID_SUBSCRIPTION", Status: http.StatusBadRequest}
)

// ワークフロー前提条件系
var (
	ErrInvalidPostID = &APIError{Code: "INVALID_POSTID", Status: http.StatusBadRequest}
	ErrInvalidUserID = &APIError{Code: "INVALID_USERID", Status: http.StatusBadRequest}
	// 二重応募は入力不正ではなく競合なので409を返す
	ErrAlreadyApplied = &APIError{Code: "ALREADY_APPLIED", Status: http.StatusConflict}
)

// メール認証状態系
var (
	ErrNoVerificationPending = &APIError{Code: "NO_VERIFICATION_PENDING", Status: http.StatusUnprocessableEntity}
	ErrCodeExpired           = &APIError{Code: "CODE_EXPIRED", Status: http.StatusUnprocessableEntity}
	ErrInvalidCode           = &APIError{Code: "INVALID_CODE", Status: http.StatusBadRequest}
)

// トランスポート・内部系（500）
var (
	ErrEmailSendFailed = &APIError{Code: "EMAIL_SEND_FAILED", Status: http.StatusInternalServerError}
	ErrInternal        = &APIError{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError}
)
