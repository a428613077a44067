package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	root := t.TempDir()
	t.Setenv("TODOKE_ROOT", root)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Root != root {
		t.Errorf("サーバールートが反映されていません: got %s, want %s", cfg.Server.Root, root)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("デフォルトポートが違います: got %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Workers != DefaultWorkers {
		t.Errorf("デフォルトワーカー数が違います: got %d, want %d", cfg.Server.Workers, DefaultWorkers)
	}
	if cfg.Features != (FeatureConfig{}) {
		t.Errorf("機能フラグはデフォルトで無効であるべきです: %+v", cfg.Features)
	}
	if cfg.Admin.Enabled {
		t.Error("ステータスサーバーはデフォルトで無効であるべきです")
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	valid := func() *Config {
		cfg := Default()
		cfg.Server.Root = root
		return cfg
	}

	testCases := []struct {
		name      string
		mutate    func(*Config)
		expectErr bool
	}{
		{name: "正常な設定", mutate: func(*Config) {}, expectErr: false},
		{name: "無効なポート番号", mutate: func(c *Config) { c.Server.Port = 99999 }, expectErr: true},
		{name: "ワーカー数ゼロ", mutate: func(c *Config) { c.Server.Workers = 0 }, expectErr: true},
		{name: "負のキューサイズ", mutate: func(c *Config) { c.Server.QueueSize = -1 }, expectErr: true},
		{name: "ルートなし", mutate: func(c *Config) { c.Server.Root = "" }, expectErr: true},
		{name: "存在しないルート", mutate: func(c *Config) { c.Server.Root = filepath.Join(root, "nope") }, expectErr: true},
		{name: "ルートがファイル", mutate: func(c *Config) { c.Server.Root = file }, expectErr: true},
		{name: "無効なログレベル", mutate: func(c *Config) { c.Log.Level = "verbose" }, expectErr: true},
		{name: "無効な管理ポート", mutate: func(c *Config) { c.Admin.Port = -1 }, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Host: "192.168.1.100", Port: 9090},
		Admin:  AdminConfig{Host: "127.0.0.1", Port: 9091},
	}

	if got := cfg.ServerAddress(); got != "192.168.1.100:9090" {
		t.Errorf("サーバーアドレスが一致しません: got %s", got)
	}
	if got := cfg.AdminAddress(); got != "127.0.0.1:9091" {
		t.Errorf("管理アドレスが一致しません: got %s", got)
	}
}

func TestNotFoundPagePath(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Root: "/srv/www"}}
	if got, want := cfg.NotFoundPagePath(), filepath.Join("/srv/www", NotFoundFileName); got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	cfg.Server.NotFoundPage = "/etc/todoke/404.html"
	if got := cfg.NotFoundPagePath(); got != "/etc/todoke/404.html" {
		t.Errorf("明示した404ページが使われていません: got %s", got)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
// 注意: このテストは環境変数を変更するため、parallelは使わない
func TestEnvironmentVariables(t *testing.T) {
	root := t.TempDir()
	t.Setenv("TODOKE_ROOT", root)
	t.Setenv("TODOKE_HOST", "127.0.0.1")
	t.Setenv("PORT", "9999")
	t.Setenv("TODOKE_THREADS", "4")
	t.Setenv("TODOKE_SHOW_DIRS", "true")
	t.Setenv("TODOKE_COMPRESS_ON_FLY", "1")
	t.Setenv("TODOKE_SEND_COMPRESSED", "true")
	t.Setenv("TODOKE_ADMIN_PORT", "9998")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	want := &Config{
		Server: ServerConfig{Root: root, Host: "127.0.0.1", Port: 9999, Workers: 4},
		Features: FeatureConfig{
			ShowDirectoryListing:     true,
			CompressOnFly:            true,
			SendCompressedIfAccepted: true,
		},
		Admin: AdminConfig{Enabled: true, Host: "127.0.0.1", Port: 9998},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("環境変数が反映されていません (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "todoke.yaml")
	yamlBody := "server:\n  root: " + root + "\n  port: 8181\n  workers: 3\nfeatures:\n  compress_on_fly: true\nlog:\n  level: debug\n"
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	tomlPath := filepath.Join(dir, "todoke.toml")
	tomlBody := "[server]\nroot = \"" + root + "\"\nport = 8181\nworkers = 3\n\n[features]\ncompress_on_fly = true\n\n[log]\nlevel = \"debug\"\n"
	if err := os.WriteFile(tomlPath, []byte(tomlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{yamlPath, tomlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			cfg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("設定ファイルの読み込みに失敗しました: %v", err)
			}

			want := Default()
			want.Server.Root = root
			want.Server.Port = 8181
			want.Server.Workers = 3
			want.Features.CompressOnFly = true
			want.Log.Level = "debug"
			if diff := cmp.Diff(want, cfg); diff != "" {
				t.Errorf("設定が一致しません (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "todoke.json")
	if err := os.WriteFile(jsonPath, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(jsonPath); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ErrUnsupportedFormat が期待されました: %v", err)
	}

	unknownPath := filepath.Join(dir, "unknown.toml")
	if err := os.WriteFile(unknownPath, []byte("[server]\nrooot = \"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(unknownPath); err == nil {
		t.Error("未知のキーでエラーが期待されました")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("存在しないファイルでエラーが期待されました")
	}
}

// TestFromEnvSkipsValidation は FromEnv が検証を行わないことをテストする
func TestFromEnvSkipsValidation(t *testing.T) {
	t.Setenv("TODOKE_ROOT", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("TODOKE_THREADS", "3")

	cfg := FromEnv()
	if cfg.Server.Workers != 3 {
		t.Errorf("Workers: got %d", cfg.Server.Workers)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("存在しないルートで検証エラーが期待されました")
	}
	if _, err := Load(); err == nil {
		t.Error("Load は検証エラーを返すべきです")
	}
}
