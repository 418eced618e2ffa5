package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  jwt_secret: "test-secret-key-for-unit-testing-2026"
vote:
  results_cache_ttl: 45s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.Name != "sort_voting" {
		t.Errorf("期望默认库名 sort_voting，实际=%s", cfg.Database.Name)
	}
	if cfg.Vote.ResultsCacheTTL != 45*time.Second {
		t.Errorf("期望 ResultsCacheTTL=45s，实际=%s", cfg.Vote.ResultsCacheTTL)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("期望 AccessTokenTTL=15m，实际=%s", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Vote.MaxOptions != 50 {
		t.Errorf("期望 MaxOptions=50，实际=%d", cfg.Vote.MaxOptions)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  jwt_secret: "test-secret-key-for-unit-testing-2026"
`)
	t.Setenv("SORTVOTE_SERVER_PORT", "9090")
	t.Setenv("SORTVOTE_DB_HOST", "db.internal")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望环境变量覆盖端口为 9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("期望 Host=db.internal，实际=%s", cfg.Database.Host)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: debug\n")

	if _, err := Load(path); err == nil {
		t.Fatal("缺少 jwt_secret 时应返回错误")
	}
}

func TestValidate_BootstrapAdminPassword(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Auth: AuthConfig{
			JWTSecret:      "test-secret-key-for-unit-testing-2026",
			BootstrapAdmin: AdminConfig{Username: "admin", Password: "short"},
		},
		Vote: VoteConfig{MaxOptions: 10},
	}

	if err := cfg.Validate(); err == nil {
		t.Error("管理员密码过短时应校验失败")
	}

	cfg.Auth.BootstrapAdmin.Password = "long-enough-password"
	if err := cfg.Validate(); err != nil {
		t.Errorf("合法配置不应报错: %v", err)
	}
}

func TestDSN(t *testing.T) {
	c := &DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p",
		Name: "db", SSLMode: "disable", Timezone: "UTC",
	}
	want := "host=localhost port=5432 user=u password=p dbname=db sslmode=disable TimeZone=UTC"
	if got := c.DSN(); got != want {
		t.Errorf("DSN 不符\n期望: %s\n实际: %s", want, got)
	}
}
