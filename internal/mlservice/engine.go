package mlservice

import (
	"context"
	"unicode/utf8"

	"github.com/nao1215/polyscale/pkg/mlapi"
)

// Embedder は文字列の列を埋め込みベクトルの列に変換する。
// 戻り値の i 番目は texts[i] に対応しなければならない。
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Refactorer はソースコードと指示からパッチを生成する。
type Refactorer interface {
	Refactor(ctx context.Context, code, instruction string) (string, error)
}

// LengthEmbedder は各文字列の文字数を唯一の要素とするベクトルを返すプレースホルダー。
// 文字数はバイト数ではなくUnicodeコードポイント数で数える。
type LengthEmbedder struct{}

var _ Embedder = LengthEmbedder{}

// Embed は texts と同じ長さのベクトル列を返す。空入力には空の（nilでない）列を返す。
func (LengthEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for _, t := range texts {
		vectors = append(vectors, []float64{float64(utf8.RuneCountInString(t))})
	}
	return vectors, nil
}

// NoopRefactorer は入力に関係なく常に "noop" を返すプレースホルダー。
type NoopRefactorer struct{}

var _ Refactorer = NoopRefactorer{}

// Refactor は常に mlapi.PatchNoop を返す。
func (NoopRefactorer) Refactor(_ context.Context, _, _ string) (string, error) {
	return mlapi.PatchNoop, nil
}
