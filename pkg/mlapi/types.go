package mlapi

const (
	// ServiceName はサービスが公開するメタデータ上の名前。
	ServiceName = "PolyScale ML Service"
	// ServiceVersion はサービスが公開するバージョン文字列。
	ServiceVersion = "0.0.1"

	// StatusOK はヘルスチェックが返すステータス値。
	StatusOK = "ok"
	// PatchNoop は現バージョンのリファクタリングが常に返すパッチ。
	PatchNoop = "noop"

	// HeaderRequestID はリクエストIDを伝播するためのHTTPヘッダーキー。
	HeaderRequestID = "X-Request-ID"
)

// Reason はフィールド検証エラーの種類を表す。
type Reason string

const (
	// ReasonMissing は必須フィールドが存在しない（またはnull）ことを表す。
	ReasonMissing Reason = "missing"
	// ReasonInvalidType はフィールドの型が宣言と一致しないことを表す。
	ReasonInvalidType Reason = "invalid_type"
	// ReasonMalformed はボディ全体がJSONオブジェクトとして解釈できないことを表す。
	ReasonMalformed Reason = "malformed"
)

// EmbedRequest は /embed のリクエストボディ。
type EmbedRequest struct {
	// Texts は埋め込み対象の文字列。空配列・空文字列も許容する。
	Texts []string `json:"texts"`
}

// EmbedResponse は /embed のレスポンスボディ。
// Vectors[i] は Texts[i] に対応する。
type EmbedResponse struct {
	Vectors [][]float64 `json:"vectors"`
}

// RefactorRequest は /refactor のリクエストボディ。
type RefactorRequest struct {
	// Code はリファクタリング対象のソースコード。
	Code string `json:"code"`
	// Instruction はリファクタリングの指示。
	Instruction string `json:"instruction"`
}

// RefactorResponse は /refactor のレスポンスボディ。
type RefactorResponse struct {
	Patch string `json:"patch"`
}

// HealthResponse は /healthz のレスポンスボディ。
type HealthResponse struct {
	Status string `json:"status"`
}

// VersionResponse は /version のレスポンスボディ。
type VersionResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// FieldError は1フィールド分の検証エラー。
type FieldError struct {
	// Field は問題のあるフィールド名。ボディ全体が不正な場合は "body"。
	Field string `json:"field"`
	// Expected は期待される型（例: "string", "array of string"）。
	Expected string `json:"expected"`
	// Reason はエラーの種類。
	Reason Reason `json:"reason"`
	// Message は人間向けの説明。
	Message string `json:"message"`
}

// ErrorResponse はエラー時のレスポンスボディ。
// Details は検証エラーの場合のみ設定される。
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}
