// Package config はMLサービスの実行時設定を読み込む。
//
// 設定値は優先度の低い順に、デフォルト値、設定ファイル（mlservice.yaml）、
// .envファイル、環境変数（MLSERVICE_ プレフィックス）から解決される。
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix は環境変数のプレフィックス。server.port は MLSERVICE_SERVER_PORT に対応する。
const envPrefix = "MLSERVICE"

// Config はMLサービスの実行時設定。
type Config struct {
	// Server はHTTPサーバーの設定。
	Server ServerConfig `mapstructure:"server"`
	// CORS はクロスオリジンリクエストの設定。
	CORS CORSConfig `mapstructure:"cors"`
}

// ServerConfig はHTTPサーバーの設定。
type ServerConfig struct {
	// Host はリッスンするホスト。
	Host string `mapstructure:"host"`
	// Port はリッスンするポート。
	Port string `mapstructure:"port"`
	// Mode はGinの動作モード（debug, release, test）。
	Mode string `mapstructure:"mode"`
	// ReadHeaderTimeout はリクエストヘッダー読み込みのタイムアウト。
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	// ShutdownTimeout はグレースフルシャットダウンの猶予時間。
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// BodyLimitBytes はリクエストボディの最大サイズ。
	BodyLimitBytes int64 `mapstructure:"body_limit_bytes"`
}

// CORSConfig はクロスオリジンリクエストの設定。
type CORSConfig struct {
	// AllowedOrigins は許可するオリジン。"*" は全オリジンを許可する。
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Options は設定の読み込み方法を指定する。
type Options struct {
	// ConfigFile は明示的に読み込む設定ファイルのパス。
	ConfigFile string
	// EnvFile は読み込む.envファイルのパス。空の場合はカレントディレクトリの.envを試す。
	EnvFile string
}

// Addr はサーバーのリッスンアドレス（host:port）を返す。
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Default はデフォルト値のみから構成した設定を返す。
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8000",
			Mode:              "release",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			BodyLimitBytes:    10 << 20,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load は設定を読み込み、検証済みの設定を返す。
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
		}
	} else {
		// カレントディレクトリに.envが無いのは正常
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if f := os.Getenv(envPrefix + "_CONFIG_FILE"); f != "" {
		v.SetConfigFile(f)
		explicitFile = true
	}
	if !explicitFile {
		v.SetConfigName("mlservice")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 従来のHOST/PORT環境変数も受け付ける
	if err := v.BindEnv("server.host", envPrefix+"_SERVER_HOST", "HOST"); err != nil {
		return nil, fmt.Errorf("環境変数のバインドに失敗: %w", err)
	}
	if err := v.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("環境変数のバインドに失敗: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定のデコードに失敗: %w", err)
	}
	cfg.CORS.AllowedOrigins = normalizeOrigins(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults はDefaultの値をviperに登録する。
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.body_limit_bytes", d.Server.BodyLimitBytes)
	v.SetDefault("cors.allowed_origins", d.CORS.AllowedOrigins)
}

// normalizeOrigins は前後の空白を除去し、空要素を取り除く。
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate は設定値を検証し、不正な項目をすべて列挙したエラーを返す。
func (c *Config) Validate() error {
	var problems []string

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 0 || port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port: 0〜65535の数値が必要です（%q）", c.Server.Port))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("server.mode: debug, release, test のいずれかが必要です（%q）", c.Server.Mode))
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		problems = append(problems, "server.read_header_timeout: 正の値が必要です")
	}
	if c.Server.ShutdownTimeout <= 0 {
		problems = append(problems, "server.shutdown_timeout: 正の値が必要です")
	}
	if c.Server.BodyLimitBytes <= 0 {
		problems = append(problems, "server.body_limit_bytes: 正の値が必要です")
	}

	if len(problems) > 0 {
		return fmt.Errorf("設定が不正です: %s", strings.Join(problems, "; "))
	}
	return nil
}
