package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_HOST", "localhost")
	t.Setenv("DATABASE_USER", "postgres")
	t.Setenv("DATABASE_DBNAME", "trivia")
	t.Setenv("AUTH_HMAC_SECRET", "dev-secret")
	t.Setenv("AUTH_PUBLIC_KEY_PEM", "")
	t.Setenv("GEMINI_API_KEY", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 15, cfg.Quota.Default)
	assert.Equal(t, 24*time.Hour, cfg.Quota.ResetWindow)
	assert.Equal(t, "literal", cfg.Quota.Mode)
	assert.Equal(t, time.Minute, cfg.Quota.LockTTL)
	assert.Equal(t, "gemini-2.0-flash-lite", cfg.Generator.Model)
	assert.False(t, cfg.Generator.Strict)
	assert.True(t, cfg.Challenge.IsStrictValidation())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:5174"}, cfg.Auth.AuthorizedParties)
	assert.Equal(t, "__session", cfg.Auth.CookieName)
	assert.Equal(t, "migrations", cfg.Database.MigrationsPath)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QUOTA_MODE", "atomic")
	t.Setenv("GEMINI_API_KEY", "key-from-env")

	path := writeConfig(t, `
server:
  port: "9090"
quota:
  mode: literal
  default: 5
  reset_window: 12h
generator:
  strict: true
challenge:
  validation: lenient
rate_limit:
  max_requests: 3
  window: 30s
cors:
  allowed_origins:
    - https://app.example.com
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "atomic", cfg.Quota.Mode, "переменная окружения важнее файла")
	assert.Equal(t, 5, cfg.Quota.Default)
	assert.Equal(t, 12*time.Hour, cfg.Quota.ResetWindow)
	assert.True(t, cfg.Generator.Strict)
	assert.Equal(t, "key-from-env", cfg.Generator.APIKey)
	assert.False(t, cfg.Challenge.IsStrictValidation())
	assert.Equal(t, 3, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"нет ключа авторизации", map[string]string{"AUTH_HMAC_SECRET": ""}},
		{"неизвестный режим квоты", map[string]string{"QUOTA_MODE": "optimistic"}},
		{"неизвестная валидация", map[string]string{"CHALLENGE_VALIDATION": "none"}},
		{"strict без ключа", map[string]string{"GENERATOR_STRICT": "true"}},
		{"нет хоста БД", map[string]string{"DATABASE_HOST": ""}},
		{"release без пароля БД", map[string]string{"GIN_MODE": "release"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_ConnectionStrings(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "trivia", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=trivia sslmode=disable", d.PostgresConnectionString())
	assert.Equal(t, "postgres://u:p@db:5432/trivia?sslmode=disable", d.PostgresURL())
}

func TestLoadDatabase_IgnoresOtherSections(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_HMAC_SECRET", "")
	t.Setenv("QUOTA_MODE", "unknown")

	db, err := LoadDatabase("")

	require.NoError(t, err)
	assert.Equal(t, "localhost", db.Host)
	assert.Equal(t, "migrations", db.MigrationsPath)
}
