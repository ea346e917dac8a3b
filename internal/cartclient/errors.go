package cartclient

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError はサーバーが返した非2xxレスポンス。
// ネットワーク断はAPIErrorにせず、ラップしたtransportエラーのまま返す。
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cartclient: server returned %d: %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	ok := errors.As(err, &ae)
	return ae, ok
}

// 未ログイン（セッション無効）
func IsUnauthenticated(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.StatusCode == http.StatusUnauthorized
}

// 入力不正（数量0以下・消えた商品への参照など）
func IsValidation(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.StatusCode == http.StatusBadRequest
}

func IsNotFound(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.StatusCode == http.StatusNotFound
}

// 予期しない5xx
func IsServer(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.StatusCode >= 500
}
