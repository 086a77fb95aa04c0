package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimit はリクエストボディをlimitバイトに制限するGinミドルウェアを返す。
// 上限を超えた読み込みはハンドラー側のデコードエラーとして現れる。
// limitが0以下の場合は制限しない。
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
