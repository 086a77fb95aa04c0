package mlservice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nao1215/polyscale/internal/config"
	"github.com/nao1215/polyscale/pkg/middleware"
	"github.com/nao1215/polyscale/pkg/mlapi"
)

// Server はMLサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はHTTPサーバーの設定。
	cfg config.ServerConfig
	// embedder は /embed の計算を行う。
	embedder Embedder
	// refactorer は /refactor の計算を行う。
	refactorer Refactorer
	// validate はリクエストボディの必須チェックに使うバリデーター。
	validate *validator.Validate
}

// Option はServerの生成時オプション。
type Option func(*Server)

// WithEmbedder は埋め込みの実装を差し替える。
func WithEmbedder(e Embedder) Option {
	return func(s *Server) { s.embedder = e }
}

// WithRefactorer はリファクタリングの実装を差し替える。
func WithRefactorer(r Refactorer) Option {
	return func(s *Server) { s.refactorer = r }
}

// NewServer は新しいMLサービスサーバーを生成する。
// 実装を指定しない場合はプレースホルダー（LengthEmbedder, NoopRefactorer）を使う。
func NewServer(cfg config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("サーバー設定の検証に失敗: %w", err)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	s := &Server{
		router:     router,
		cfg:        cfg.Server,
		embedder:   LengthEmbedder{},
		refactorer: NoopRefactorer{},
		validate:   newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.embedder == nil {
		return nil, errors.New("Embedderが指定されていません")
	}
	if s.refactorer == nil {
		return nil, errors.New("Refactorerが指定されていません")
	}
	s.setupRoutes()

	return s, nil
}

// Handler はルーターをhttp.Handlerとして返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run は設定されたアドレスでHTTPサーバーを起動し、ctxがキャンセルされるまでブロックする。
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("リッスンに失敗: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve はlnでリクエストを受け付ける。ctxがキャンセルされると
// ShutdownTimeoutの猶予内で処理中のリクエストを待ってから停止する。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTPサーバーが異常終了: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("MLサービスを停止します: %s", ln.Addr())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	return <-errCh
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック
	s.router.GET("/healthz", s.handleHealth())
	// サービスのメタデータ
	s.router.GET("/version", s.handleVersion())
	// 埋め込み
	s.router.POST("/embed", s.handleEmbed())
	// リファクタリング
	s.router.POST("/refactor", s.handleRefactor())

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, mlapi.ErrorResponse{Error: "エンドポイントが見つかりません"})
	})
	s.router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, mlapi.ErrorResponse{Error: "許可されていないメソッドです"})
	})
}

// handleHealth はヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, mlapi.HealthResponse{Status: mlapi.StatusOK})
	}
}

// handleVersion はサービス名とバージョンを返すハンドラを返す。
func (s *Server) handleVersion() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, mlapi.VersionResponse{
			Name:    mlapi.ServiceName,
			Version: mlapi.ServiceVersion,
		})
	}
}

// handleEmbed は埋め込み計算を処理するハンドラを返す。
func (s *Server) handleEmbed() gin.HandlerFunc {
	return func(c *gin.Context) {
		var p embedPayload
		if err := s.bindPayload(c, &p); err != nil {
			s.writeError(c, err)
			return
		}
		req := p.request()

		vectors, err := s.embedder.Embed(c.Request.Context(), req.Texts)
		if err != nil {
			s.writeError(c, fmt.Errorf("埋め込みの計算に失敗: %w", err))
			return
		}
		if len(vectors) != len(req.Texts) {
			s.writeError(c, fmt.Errorf("埋め込みの件数が一致しません: got %d, want %d", len(vectors), len(req.Texts)))
			return
		}

		c.JSON(http.StatusOK, mlapi.EmbedResponse{Vectors: vectors})
	}
}

// handleRefactor はリファクタリングを処理するハンドラを返す。
func (s *Server) handleRefactor() gin.HandlerFunc {
	return func(c *gin.Context) {
		var p refactorPayload
		if err := s.bindPayload(c, &p); err != nil {
			s.writeError(c, err)
			return
		}
		req := p.request()

		patch, err := s.refactorer.Refactor(c.Request.Context(), req.Code, req.Instruction)
		if err != nil {
			s.writeError(c, fmt.Errorf("リファクタリングに失敗: %w", err))
			return
		}

		c.JSON(http.StatusOK, mlapi.RefactorResponse{Patch: patch})
	}
}

// writeError はエラーの種類に応じたステータスコードでエラーレスポンスを返す。
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, mlapi.ErrorResponse{
			Error:   "リクエストの検証に失敗しました",
			Details: verr.Fields,
		})
	case errors.Is(err, errBodyTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, mlapi.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("内部エラー: %s %s request_id=%s: %v", c.Request.Method, c.Request.URL.Path, middleware.GetRequestID(c), err)
		c.JSON(http.StatusInternalServerError, mlapi.ErrorResponse{Error: "内部サーバーエラーが発生しました"})
	}
}
