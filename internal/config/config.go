package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// デフォルト値
const (
	DefaultRoot      = "webroot"
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 8085
	DefaultWorkers   = 1
	DefaultAdminPort = 8086

	// NotFoundFileName はサーバールート直下に置く404ページのファイル名
	NotFoundFileName = "NotFound.html"
)

// ErrUnsupportedFormat は設定ファイルの拡張子が未対応の場合に返される
var ErrUnsupportedFormat = errors.New("未対応の設定ファイル形式")

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server   ServerConfig  `yaml:"server" toml:"server"`
	Features FeatureConfig `yaml:"features" toml:"features"`
	Admin    AdminConfig   `yaml:"admin" toml:"admin"`
	Log      LogConfig     `yaml:"log" toml:"log"`
}

// ServerConfig は静的ファイルサーバーの設定
type ServerConfig struct {
	Root string `yaml:"root" toml:"root" validate:"required"` // 配信するディレクトリ
	Host string `yaml:"host" toml:"host"`                     // リッスンするホスト
	Port int    `yaml:"port" toml:"port" validate:"min=0,max=65535"`

	// ワーカープール設定
	Workers   int `yaml:"workers" toml:"workers" validate:"min=1"`       // 同時に処理する接続数
	QueueSize int `yaml:"queue_size" toml:"queue_size" validate:"min=0"` // 0 の場合、空きワーカーが出るまで accept を止める

	NotFoundPage string `yaml:"not_found_page" toml:"not_found_page"` // 空の場合は Root/NotFound.html
}

// FeatureConfig は機能フラグ
type FeatureConfig struct {
	ShowDirectoryListing     bool `yaml:"show_directory_listing" toml:"show_directory_listing"`
	CompressOnFly            bool `yaml:"compress_on_fly" toml:"compress_on_fly"`
	SendCompressedIfAccepted bool `yaml:"send_compressed_if_accepted" toml:"send_compressed_if_accepted"`
}

// AdminConfig はステータス確認用サーバーの設定
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Host    string `yaml:"host" toml:"host"`
	Port    int    `yaml:"port" toml:"port" validate:"min=0,max=65535"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"omitempty,oneof=json console"`
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Root:      DefaultRoot,
			Host:      DefaultHost,
			Port:      DefaultPort,
			Workers:   DefaultWorkers,
			QueueSize: 0,
		},
		Admin: AdminConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    DefaultAdminPort,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// FromEnv はデフォルト設定に環境変数を反映した設定を返す
// 検証は行わない
func FromEnv() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

// Load は環境変数から設定を読み込む
func Load() (*Config, error) {
	cfg := FromEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// LoadFile はYAMLまたはTOMLの設定ファイルを読み込む
// ファイルにない項目はデフォルト値のまま
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("YAMLの解析に失敗: %w", err)
		}
	case ".toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg); err != nil {
			return nil, fmt.Errorf("TOMLの解析に失敗: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("無効な設定値: %w", err)
	}

	info, err := os.Stat(c.Server.Root)
	if err != nil {
		return fmt.Errorf("サーバールートを確認できません: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("サーバールートがディレクトリではありません: %s", c.Server.Root)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AdminAddress はステータスサーバーのリッスンアドレスを返す
func (c *Config) AdminAddress() string {
	return fmt.Sprintf("%s:%d", c.Admin.Host, c.Admin.Port)
}

// NotFoundPagePath は404ページのパスを返す
func (c *Config) NotFoundPagePath() string {
	if c.Server.NotFoundPage != "" {
		return c.Server.NotFoundPage
	}
	return filepath.Join(c.Server.Root, NotFoundFileName)
}

// applyEnv は環境変数の値で設定を上書きする
func applyEnv(cfg *Config) {
	cfg.Server.Root = getEnvOrDefault("TODOKE_ROOT", cfg.Server.Root)
	cfg.Server.Host = getEnvOrDefault("TODOKE_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsIntOrDefault("PORT", cfg.Server.Port)
	cfg.Server.Workers = getEnvAsIntOrDefault("TODOKE_THREADS", cfg.Server.Workers)
	cfg.Server.QueueSize = getEnvAsIntOrDefault("TODOKE_QUEUE_SIZE", cfg.Server.QueueSize)
	cfg.Server.NotFoundPage = getEnvOrDefault("TODOKE_NOT_FOUND_PAGE", cfg.Server.NotFoundPage)

	cfg.Features.ShowDirectoryListing = getEnvAsBoolOrDefault("TODOKE_SHOW_DIRS", cfg.Features.ShowDirectoryListing)
	cfg.Features.CompressOnFly = getEnvAsBoolOrDefault("TODOKE_COMPRESS_ON_FLY", cfg.Features.CompressOnFly)
	cfg.Features.SendCompressedIfAccepted = getEnvAsBoolOrDefault("TODOKE_SEND_COMPRESSED", cfg.Features.SendCompressedIfAccepted)

	if port := getEnvAsIntOrDefault("TODOKE_ADMIN_PORT", 0); port != 0 {
		cfg.Admin.Enabled = true
		cfg.Admin.Port = port
	}

	cfg.Log.Level = getEnvOrDefault("TODOKE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("TODOKE_LOG_FORMAT", cfg.Log.Format)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault は環境変数を真偽値として取得する
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
