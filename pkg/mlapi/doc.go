// Package mlapi はML サービスのHTTP APIで送受信するJSONスキーマを定義する。
//
// サーバー（internal/mlservice）とクライアント（pkg/httpclient）の双方が
// この型を共有することで、ワイヤーフォーマットの定義を一箇所に集約する。
package mlapi
