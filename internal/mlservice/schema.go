package mlservice

import "github.com/nao1215/polyscale/pkg/mlapi"

// fieldDecl はリクエストボディの1フィールドの宣言。
type fieldDecl struct {
	// name はJSON上のフィールド名。
	name string
	// expected はエラーメッセージに載せる期待型。
	expected string
}

// payload は検証前のリクエストボディ。
// 必須フィールドはポインタまたはスライスで受け、未指定と空値を区別する。
type payload interface {
	fields() []fieldDecl
}

// embedPayload は /embed のリクエストボディ。
type embedPayload struct {
	Texts []string `json:"texts" validate:"required"`
}

func (*embedPayload) fields() []fieldDecl {
	return []fieldDecl{{name: "texts", expected: "array of string"}}
}

// request は検証済みのペイロードを値オブジェクトに変換する。
func (p *embedPayload) request() mlapi.EmbedRequest {
	return mlapi.EmbedRequest{Texts: p.Texts}
}

// refactorPayload は /refactor のリクエストボディ。
// 空文字列は有効な値なので、必須判定はポインタのnil判定で行う。
type refactorPayload struct {
	Code        *string `json:"code" validate:"required"`
	Instruction *string `json:"instruction" validate:"required"`
}

func (*refactorPayload) fields() []fieldDecl {
	return []fieldDecl{
		{name: "code", expected: "string"},
		{name: "instruction", expected: "string"},
	}
}

func (p *refactorPayload) request() mlapi.RefactorRequest {
	return mlapi.RefactorRequest{Code: *p.Code, Instruction: *p.Instruction}
}
