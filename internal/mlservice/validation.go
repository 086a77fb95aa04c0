package mlservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nao1215/polyscale/pkg/mlapi"
)

// bodyField はボディ全体を指すフィールド名。
const bodyField = "body"

// errBodyTooLarge はリクエストボディが上限サイズを超えたことを表す。
var errBodyTooLarge = errors.New("リクエストボディが上限サイズを超えています")

// ValidationError はリクエストボディが宣言された形に一致しないことを表す。
// 問題のあるフィールドをすべて、宣言順に列挙する。
type ValidationError struct {
	Fields []mlapi.FieldError
}

// Error はエラーメッセージを返す。
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s(%s)", f.Field, f.Reason))
	}
	return "リクエストの検証に失敗: " + strings.Join(parts, ", ")
}

// newValidator はJSONタグ名でフィールドを報告するバリデーターを生成する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors はフィールドごとの検証エラーを重複なく集める。
type fieldErrors struct {
	decls  []fieldDecl
	byName map[string]mlapi.FieldError
}

func newFieldErrors(decls []fieldDecl) *fieldErrors {
	return &fieldErrors{decls: decls, byName: make(map[string]mlapi.FieldError, len(decls))}
}

// expected はフィールドの期待型を返す。
func (f *fieldErrors) expected(name string) string {
	for _, s := range f.decls {
		if s.name == name {
			return s.expected
		}
	}
	return "unknown"
}

// add は検証エラーを追加する。同じフィールドには最初のエラーだけを残す。
func (f *fieldErrors) add(name string, reason mlapi.Reason, message string) {
	if _, ok := f.byName[name]; ok {
		return
	}
	f.byName[name] = mlapi.FieldError{
		Field:    name,
		Expected: f.expected(name),
		Reason:   reason,
		Message:  message,
	}
}

// err は集めたエラーを宣言順に並べた *ValidationError を返す。エラーが無ければnil。
func (f *fieldErrors) err() error {
	if len(f.byName) == 0 {
		return nil
	}
	out := make([]mlapi.FieldError, 0, len(f.byName))
	for _, s := range f.decls {
		if fe, ok := f.byName[s.name]; ok {
			out = append(out, fe)
			delete(f.byName, s.name)
		}
	}
	rest := make([]mlapi.FieldError, 0, len(f.byName))
	for _, fe := range f.byName {
		rest = append(rest, fe)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Field < rest[j].Field })
	return &ValidationError{Fields: append(out, rest...)}
}

// malformedBody はボディ全体がJSONオブジェクトとして解釈できない場合のエラーを返す。
func malformedBody(cause error) *ValidationError {
	return &ValidationError{Fields: []mlapi.FieldError{{
		Field:    bodyField,
		Expected: "object",
		Reason:   mlapi.ReasonMalformed,
		Message:  fmt.Sprintf("JSONオブジェクトとして解釈できません: %v", cause),
	}}}
}

// bindPayload はリクエストボディをpにデコードし、宣言された形と一致するか検証する。
// フィールドごとに型を検査するので、型エラーと必須フィールドの欠落はすべて
// 1つの *ValidationError にまとめて返す。
func (s *Server) bindPayload(c *gin.Context, p payload) error {
	raw, err := c.GetRawData()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return fmt.Errorf("リクエストボディの読み込みに失敗: %w", err)
	}

	// json.Unmarshal は最初の値の後に続くデータもエラーにする
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return malformedBody(err)
	}
	if object == nil {
		return malformedBody(errors.New("null が指定されました"))
	}

	collected := newFieldErrors(p.fields())
	for _, decl := range p.fields() {
		value, ok := object[decl.name]
		if !ok || string(value) == "null" {
			continue
		}
		single, err := json.Marshal(map[string]json.RawMessage{decl.name: value})
		if err != nil {
			return fmt.Errorf("フィールド %s の再エンコードに失敗: %w", decl.name, err)
		}
		if err := binding.JSON.BindBody(single, p); err != nil {
			collected.add(decl.name, mlapi.ReasonInvalidType, typeMismatchMessage(decl.expected, err))
		}
	}

	if err := s.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("リクエストの検証処理に失敗: %w", err)
		}
		for _, fe := range verrs {
			collected.add(fe.Field(), mlapi.ReasonMissing, "必須フィールドです")
		}
	}

	return collected.err()
}

// typeMismatchMessage は型エラーのメッセージを組み立てる。
func typeMismatchMessage(expected string, err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s を期待しましたが %s が指定されました", expected, typeErr.Value)
	}
	return fmt.Sprintf("%s を期待しましたが解釈できません: %v", expected, err)
}
