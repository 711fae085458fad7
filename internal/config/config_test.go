package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv はテスト中に設定関連の環境変数を空にする。
// viperは空の環境変数を未設定として扱う。
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		KeyOneInchAuthorization, KeyPort, KeyWorldIDAppID, KeyWorldIDAction,
		KeyWorldIDBaseURL, KeyEnv, KeyLogLevel, KeyUpstreamTimeout, KeyAllowedOrigins,
		KeyMaxBodyBytes,
	} {
		t.Setenv(key, "")
	}
}

// writeEnvFile はテスト用の.envファイルを作成する。
func writeEnvFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "https://developer.worldcoin.org", cfg.WorldIDBaseURL)
	assert.Equal(t, int64(100*1024), cfg.MaxBodyBytes)
	assert.Empty(t, cfg.OneInchAuthorization)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
	assert.Len(t, cfg.Warnings(), 3)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	path := writeEnvFile(t, `ONE_INCH_AUTHORIZATION=Bearer file-token
PORT=4000
WORLD_ID_APP_ID=app_staging_123
WORLD_ID_ACTION=login
ALLOWED_ORIGINS=http://localhost:5173, https://dapp.example.com
UPSTREAM_TIMEOUT=5s
WORLD_ID_BASE_URL=https://world.example.com/
MAX_BODY_BYTES=2048
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Bearer file-token", cfg.OneInchAuthorization)
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, "app_staging_123", cfg.WorldIDAppID)
	assert.Equal(t, "login", cfg.WorldIDAction)
	assert.Equal(t, []string{"http://localhost:5173", "https://dapp.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "https://world.example.com", cfg.WorldIDBaseURL)
	assert.Equal(t, int64(2048), cfg.MaxBodyBytes)
	assert.Empty(t, cfg.Warnings())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "ONE_INCH_AUTHORIZATION=Bearer file-token\nPORT=4000\n")
	t.Setenv(KeyOneInchAuthorization, "Bearer env-token")
	t.Setenv(KeyEnv, EnvProduction)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Bearer env-token", cfg.OneInchAuthorization)
	assert.Equal(t, "4000", cfg.Port)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "数値でないポート", key: KeyPort, val: "http"},
		{name: "範囲外のポート", key: KeyPort, val: "70000"},
		{name: "不正なタイムアウト", key: KeyUpstreamTimeout, val: "soon"},
		{name: "負のタイムアウト", key: KeyUpstreamTimeout, val: "-1s"},
		{name: "数値でないボディ上限", key: KeyMaxBodyBytes, val: "100kb"},
		{name: "0のボディ上限", key: KeyMaxBodyBytes, val: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
}
