// Package mlservice はMLサービス（埋め込み・リファクタリングAPI）の内部実装を提供する。
//
// 受け付けたJSONリクエストの形を検証し、/healthz, /version, /embed, /refactor の
// 固定ハンドラーに振り分ける。ハンドラーはリクエスト間で状態を共有しない純粋な
// 関数であり、実際の埋め込みモデルやリファクタリングエンジンは Embedder と
// Refactorer の実装として後から差し替える。
package mlservice
