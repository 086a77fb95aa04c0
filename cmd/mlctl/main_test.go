package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/nao1215/polyscale/internal/config"
	"github.com/nao1215/polyscale/internal/mlservice"
	"github.com/nao1215/polyscale/pkg/httpclient"
	"github.com/nao1215/polyscale/pkg/mlapi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// runCLI はargsでCLIを実行し、標準出力に相当する内容を返す。
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	s, err := mlservice.NewServer(config.Default())
	if err != nil {
		t.Fatalf("サーバーの生成に失敗: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	var cli CLI
	parser, err := kong.New(&cli, kong.Name("mlctl"), kong.Exit(func(int) { t.Fatal("予期しない終了") }))
	if err != nil {
		t.Fatalf("パーサーの生成に失敗: %v", err)
	}
	kctx, err := parser.Parse(append([]string{"--url", ts.URL}, args...))
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	rc := &runContext{
		ctx:    t.Context(),
		client: httpclient.New(cli.URL, httpclient.WithTimeout(cli.Timeout)),
		out:    &out,
	}
	err = kctx.Run(rc)
	return out.String(), err
}

// TestCommands は各サブコマンドの出力を検証する。
func TestCommands(t *testing.T) {
	t.Parallel()

	t.Run("health", func(t *testing.T) {
		t.Parallel()

		out, err := runCLI(t, "health")
		if err != nil {
			t.Fatalf("health: error = %v", err)
		}
		var got mlapi.HealthResponse
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("出力のパースに失敗: %v, out=%s", err, out)
		}
		if got.Status != mlapi.StatusOK {
			t.Errorf("status = %q, want %q", got.Status, mlapi.StatusOK)
		}
	})

	t.Run("version", func(t *testing.T) {
		t.Parallel()

		out, err := runCLI(t, "version")
		if err != nil {
			t.Fatalf("version: error = %v", err)
		}
		var got mlapi.VersionResponse
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("出力のパースに失敗: %v, out=%s", err, out)
		}
		if got.Version != mlapi.ServiceVersion {
			t.Errorf("version = %q, want %q", got.Version, mlapi.ServiceVersion)
		}
	})

	t.Run("embed", func(t *testing.T) {
		t.Parallel()

		out, err := runCLI(t, "embed", "x", "ab", "hello")
		if err != nil {
			t.Fatalf("embed: error = %v", err)
		}
		var got mlapi.EmbedResponse
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("出力のパースに失敗: %v, out=%s", err, out)
		}
		if want := [][]float64{{1}, {2}, {5}}; !reflect.DeepEqual(got.Vectors, want) {
			t.Errorf("vectors = %v, want %v", got.Vectors, want)
		}
	})

	t.Run("embed 引数なし", func(t *testing.T) {
		t.Parallel()

		out, err := runCLI(t, "embed")
		if err != nil {
			t.Fatalf("embed: error = %v", err)
		}
		var got mlapi.EmbedResponse
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("出力のパースに失敗: %v, out=%s", err, out)
		}
		if len(got.Vectors) != 0 {
			t.Errorf("vectors = %v, want empty", got.Vectors)
		}
	})

	t.Run("refactor --code-file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "main.go")
		if err := os.WriteFile(path, []byte("package main\n"), 0o600); err != nil {
			t.Fatalf("ファイルの作成に失敗: %v", err)
		}

		out, err := runCLI(t, "refactor", "--instruction", "simplify", "--code-file", path)
		if err != nil {
			t.Fatalf("refactor: error = %v", err)
		}
		var got mlapi.RefactorResponse
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("出力のパースに失敗: %v, out=%s", err, out)
		}
		if got.Patch != mlapi.PatchNoop {
			t.Errorf("patch = %q, want %q", got.Patch, mlapi.PatchNoop)
		}
	})

	t.Run("refactor 存在しないファイル", func(t *testing.T) {
		t.Parallel()

		_, err := runCLI(t, "refactor", "--instruction", "simplify", "--code-file", filepath.Join(t.TempDir(), "missing.go"))
		if err == nil {
			t.Fatal("error = nil, want error")
		}
	})

	t.Run("refactor --instruction 無しはパースエラー", func(t *testing.T) {
		t.Parallel()

		if _, err := runCLI(t, "refactor", "--code", "x"); err == nil {
			t.Fatal("error = nil, want error")
		}
	})

	t.Run("refactor --code と --code-file の同時指定はパースエラー", func(t *testing.T) {
		t.Parallel()

		if _, err := runCLI(t, "refactor", "--instruction", "i", "--code", "x", "--code-file", "y.go"); err == nil {
			t.Fatal("error = nil, want error")
		}
	})
}
