// Package httpclient はMLサービスのHTTP APIを呼び出す型付きクライアントを提供する。
//
// ヘルスチェック、バージョン取得、埋め込み、リファクタリングの各エンドポイントに
// 対応するメソッドを持ち、2xx以外の応答は *APIError として返す。
// 検証エラーの場合は問題のあるフィールドの一覧を APIError.Details で参照できる。
package httpclient
