package mlservice

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/nao1215/polyscale/pkg/mlapi"
)

// TestFieldErrors はフィールドエラーの集約を検証する。
func TestFieldErrors(t *testing.T) {
	t.Parallel()

	t.Run("エラーが無い場合はnilを返すこと", func(t *testing.T) {
		t.Parallel()

		f := newFieldErrors((&refactorPayload{}).fields())
		if err := f.err(); err != nil {
			t.Errorf("err() = %v, want nil", err)
		}
	})

	t.Run("宣言順に並び同じフィールドは最初のエラーだけが残ること", func(t *testing.T) {
		t.Parallel()

		f := newFieldErrors((&refactorPayload{}).fields())
		f.add("instruction", mlapi.ReasonInvalidType, "type")
		f.add("code", mlapi.ReasonMissing, "missing")
		f.add("instruction", mlapi.ReasonMissing, "missing")

		var verr *ValidationError
		if !errors.As(f.err(), &verr) {
			t.Fatalf("err() is not *ValidationError")
		}
		want := []mlapi.FieldError{
			{Field: "code", Expected: "string", Reason: mlapi.ReasonMissing, Message: "missing"},
			{Field: "instruction", Expected: "string", Reason: mlapi.ReasonInvalidType, Message: "type"},
		}
		if !reflect.DeepEqual(verr.Fields, want) {
			t.Errorf("Fields = %+v, want %+v", verr.Fields, want)
		}
	})

	t.Run("宣言に無いフィールドは末尾に追加されること", func(t *testing.T) {
		t.Parallel()

		f := newFieldErrors((&embedPayload{}).fields())
		f.add("extra", mlapi.ReasonInvalidType, "type")
		f.add("texts", mlapi.ReasonMissing, "missing")

		var verr *ValidationError
		if !errors.As(f.err(), &verr) {
			t.Fatalf("err() is not *ValidationError")
		}
		if got := fieldsOf(verr.Fields); !reflect.DeepEqual(got, []string{"texts", "extra"}) {
			t.Errorf("fields = %v", got)
		}
		if verr.Fields[1].Expected != "unknown" {
			t.Errorf("expected = %q, want %q", verr.Fields[1].Expected, "unknown")
		}
	})
}

// TestValidationErrorMessage はエラーメッセージにフィールドと理由が含まれることを検証する。
func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Fields: []mlapi.FieldError{
		{Field: "code", Reason: mlapi.ReasonMissing},
		{Field: "instruction", Reason: mlapi.ReasonInvalidType},
	}}

	msg := err.Error()
	for _, want := range []string{"code(missing)", "instruction(invalid_type)"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want to contain %q", msg, want)
		}
	}
}

// TestNewValidatorUsesJSONNames はバリデーターがJSONタグ名でフィールドを報告することを検証する。
func TestNewValidatorUsesJSONNames(t *testing.T) {
	t.Parallel()

	err := newValidator().Struct(&refactorPayload{})

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Struct() error = %v, want validator.ValidationErrors", err)
	}
	got := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		got = append(got, fe.Field())
	}
	if !reflect.DeepEqual(got, []string{"code", "instruction"}) {
		t.Errorf("fields = %v, want [code instruction]", got)
	}

	empty := ""
	if err := newValidator().Struct(&refactorPayload{Code: &empty, Instruction: &empty}); err != nil {
		t.Errorf("空文字列へのポインタで error = %v, want nil", err)
	}
	if err := newValidator().Struct(&embedPayload{Texts: []string{}}); err != nil {
		t.Errorf("空スライスで error = %v, want nil", err)
	}
}
