package usecase_test

import (
	"testing"

	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPErrorのステータスを検証する共通ヘルパー
func assertHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)

	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected *usecase.HTTPError, got %T: %v", err, err)
	assert.Equal(t, status, he.Status)
}
