// Package config はリレーサーバーの設定を読み込む。
//
// .envファイルを読み込んだ後に環境変数で上書きする。
// 読み込んだ設定はプロセスの生存期間中変更しない。
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// 環境変数のキー。
const (
	KeyOneInchAuthorization = "ONE_INCH_AUTHORIZATION"
	KeyPort                 = "PORT"
	KeyWorldIDAppID         = "WORLD_ID_APP_ID"
	KeyWorldIDAction        = "WORLD_ID_ACTION"
	KeyWorldIDBaseURL       = "WORLD_ID_BASE_URL"
	KeyEnv                  = "ENV"
	KeyLogLevel             = "LOG_LEVEL"
	KeyUpstreamTimeout      = "UPSTREAM_TIMEOUT"
	KeyAllowedOrigins       = "ALLOWED_ORIGINS"
	KeyMaxBodyBytes         = "MAX_BODY_BYTES"
)

// DefaultMaxBodyBytes はリクエストボディの上限のデフォルト値（100KiB）。
const DefaultMaxBodyBytes int64 = 100 << 10

// EnvProduction は本番環境を表すENVの値。
const EnvProduction = "production"

// Config はリレーサーバーの設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// Env は実行環境。"production"の場合はGinをリリースモードで動かしJSONでログを出力する。
	Env string
	// LogLevel はzerologのログレベル。
	LogLevel string
	// OneInchAuthorization は1inch APIへのリクエストに付与するAuthorizationヘッダーの値。
	OneInchAuthorization string
	// WorldIDAppID はWorldIDのアプリケーションID。
	WorldIDAppID string
	// WorldIDAction はWorldIDの検証対象のアクションID。
	WorldIDAction string
	// WorldIDBaseURL はWorldID開発者APIのベースURL。
	WorldIDBaseURL string
	// UpstreamTimeout は外部API呼び出しのタイムアウト。0の場合はタイムアウトしない。
	UpstreamTimeout time.Duration
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// MaxBodyBytes はクライアントから受け付けるリクエストボディの上限。超えた場合は413を返す。
	MaxBodyBytes int64
}

// Load はenvFileと環境変数から設定を読み込む。
// envFileが存在しない場合は環境変数とデフォルト値のみを使う。
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyPort, "3000")
	v.SetDefault(KeyEnv, "development")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyUpstreamTimeout, "30s")
	v.SetDefault(KeyWorldIDBaseURL, "https://developer.worldcoin.org")
	v.SetDefault(KeyMaxBodyBytes, strconv.FormatInt(DefaultMaxBodyBytes, 10))
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "failed to read config file: %s", envFile)
			}
		}
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(v.GetString(KeyUpstreamTimeout)))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", KeyUpstreamTimeout)
	}

	maxBodyBytes, err := strconv.ParseInt(strings.TrimSpace(v.GetString(KeyMaxBodyBytes)), 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", KeyMaxBodyBytes)
	}

	cfg := &Config{
		Port:                 strings.TrimSpace(v.GetString(KeyPort)),
		Env:                  v.GetString(KeyEnv),
		LogLevel:             v.GetString(KeyLogLevel),
		OneInchAuthorization: v.GetString(KeyOneInchAuthorization),
		WorldIDAppID:         v.GetString(KeyWorldIDAppID),
		WorldIDAction:        v.GetString(KeyWorldIDAction),
		WorldIDBaseURL:       strings.TrimRight(v.GetString(KeyWorldIDBaseURL), "/"),
		UpstreamTimeout:      timeout,
		AllowedOrigins:       splitList(v.GetString(KeyAllowedOrigins)),
		MaxBodyBytes:         maxBodyBytes,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値を検証する。
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return errors.Errorf("invalid %s: %q", KeyPort, c.Port)
	}
	if c.UpstreamTimeout < 0 {
		return errors.Errorf("%s must not be negative: %s", KeyUpstreamTimeout, c.UpstreamTimeout)
	}
	if c.WorldIDBaseURL == "" {
		return errors.Errorf("%s is empty", KeyWorldIDBaseURL)
	}
	if c.MaxBodyBytes <= 0 {
		return errors.Errorf("%s must be positive: %d", KeyMaxBodyBytes, c.MaxBodyBytes)
	}
	return nil
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Warnings は未設定の認証情報など、起動は可能だが注意が必要な項目を返す。
func (c *Config) Warnings() []string {
	var warnings []string
	if c.OneInchAuthorization == "" {
		warnings = append(warnings, KeyOneInchAuthorization+" is not set; relayed requests will be sent without credentials")
	}
	if c.WorldIDAppID == "" {
		warnings = append(warnings, KeyWorldIDAppID+" is not set; proof verification will fail")
	}
	if c.WorldIDAction == "" {
		warnings = append(warnings, KeyWorldIDAction+" is not set")
	}
	return warnings
}

// splitList はカンマ区切りの文字列を分割し、空要素を取り除く。
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
