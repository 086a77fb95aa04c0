package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/polyscale/pkg/mlapi"
)

// defaultTimeout はリクエスト全体のデフォルトタイムアウト。
const defaultTimeout = 30 * time.Second

// maxErrorBodySize はエラーレスポンスとして読み込むボディの上限。
const maxErrorBodySize = 64 << 10

// Client はMLサービス用のHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サービスのベースURL。
	baseURL string
}

// Option はClientの生成時オプション。
type Option func(*Client)

// WithTimeout はリクエストのタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New は新しいMLサービスクライアントを生成する。
// baseURLには接続先サービスのベースURL（例: "http://localhost:8000"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError はサービスが2xx以外のステータスを返したことを表す。
type APIError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Message はレスポンスのerrorフィールド。JSONでない場合はボディそのもの。
	Message string
	// Details は検証エラーの場合のフィールドごとのエラー。
	Details []mlapi.FieldError
}

// Error はエラーメッセージを返す。
func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("HTTPエラー: status=%d, error=%s", e.StatusCode, e.Message)
	}
	fields := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		fields = append(fields, d.Field)
	}
	return fmt.Sprintf("HTTPエラー: status=%d, error=%s, fields=%s", e.StatusCode, e.Message, strings.Join(fields, ","))
}

// Health はヘルスチェックを呼び出す。
func (c *Client) Health(ctx context.Context) (*mlapi.HealthResponse, error) {
	var res mlapi.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Version はサービス名とバージョンを取得する。
func (c *Client) Version(ctx context.Context) (*mlapi.VersionResponse, error) {
	var res mlapi.VersionResponse
	if err := c.doJSON(ctx, http.MethodGet, "/version", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Embed はtextsの埋め込みベクトルを取得する。
func (c *Client) Embed(ctx context.Context, texts []string) (*mlapi.EmbedResponse, error) {
	if texts == nil {
		// nilはnullとして送信され検証エラーになるため空配列に揃える
		texts = []string{}
	}
	var res mlapi.EmbedResponse
	if err := c.doJSON(ctx, http.MethodPost, "/embed", mlapi.EmbedRequest{Texts: texts}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Refactor はcodeにinstructionを適用するパッチを取得する。
func (c *Client) Refactor(ctx context.Context, code, instruction string) (*mlapi.RefactorResponse, error) {
	var res mlapi.RefactorResponse
	req := mlapi.RefactorRequest{Code: code, Instruction: instruction}
	if err := c.doJSON(ctx, http.MethodPost, "/refactor", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	// コンテキストからリクエストIDを伝播する
	if requestID, ok := ctx.Value(contextKeyRequestID).(string); ok && requestID != "" {
		req.Header.Set(mlapi.HeaderRequestID, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}

// newAPIError は2xx以外のレスポンスから *APIError を組み立てる。
func newAPIError(resp *http.Response) *APIError {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var errRes mlapi.ErrorResponse
	if err := json.Unmarshal(respBody, &errRes); err == nil && errRes.Error != "" {
		apiErr.Message = errRes.Error
		apiErr.Details = errRes.Details
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(respBody))
	return apiErr
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// 設定したIDは X-Request-ID ヘッダーとしてサービスに送信される。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
