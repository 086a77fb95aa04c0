// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、CORS設定、リクエストIDの付与、リクエストボディの
// サイズ制限など、MLサービスのルーターに共通して適用するミドルウェアを含む。
package middleware
