package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestBodyLimit はBodyLimitミドルウェアを検証する。
func TestBodyLimit(t *testing.T) {
	t.Parallel()

	newRouter := func(limit int64, readErr *error, n *int) *gin.Engine {
		router := gin.New()
		router.Use(BodyLimit(limit))
		router.POST("/embed", func(c *gin.Context) {
			b, err := io.ReadAll(c.Request.Body)
			*readErr = err
			*n = len(b)
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("上限以内のボディはそのまま読めること", func(t *testing.T) {
		t.Parallel()

		var readErr error
		var n int
		router := newRouter(16, &readErr, &n)

		req := httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(`{"texts":[]}`))
		router.ServeHTTP(httptest.NewRecorder(), req)

		if readErr != nil {
			t.Fatalf("読み込みエラー: %v", readErr)
		}
		if n != len(`{"texts":[]}`) {
			t.Errorf("読み込みバイト数 = %d, want %d", n, len(`{"texts":[]}`))
		}
	})

	t.Run("上限を超えるボディはMaxBytesErrorになること", func(t *testing.T) {
		t.Parallel()

		var readErr error
		var n int
		router := newRouter(4, &readErr, &n)

		req := httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(`{"texts":["hello"]}`))
		router.ServeHTTP(httptest.NewRecorder(), req)

		var maxErr *http.MaxBytesError
		if !errors.As(readErr, &maxErr) {
			t.Fatalf("エラー = %v, want *http.MaxBytesError", readErr)
		}
		if maxErr.Limit != 4 {
			t.Errorf("Limit = %d, want %d", maxErr.Limit, 4)
		}
	})

	t.Run("上限が0以下の場合は制限しないこと", func(t *testing.T) {
		t.Parallel()

		var readErr error
		var n int
		router := newRouter(0, &readErr, &n)

		body := strings.Repeat("a", 1024)
		req := httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(body))
		router.ServeHTTP(httptest.NewRecorder(), req)

		if readErr != nil {
			t.Fatalf("読み込みエラー: %v", readErr)
		}
		if n != len(body) {
			t.Errorf("読み込みバイト数 = %d, want %d", n, len(body))
		}
	})
}
