// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（JWT 密钥、数据库密码）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置（auth 章节通过 env tag 解析）
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
//
// Load 返回的 Config 在启动后只读，由 main 注入到各组件。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig 数据库配置
//
// Driver: mongodb | sqlite | postgres，留空时由 detectDatabaseDriver 推断
type DatabaseConfig struct {
	Driver  string `yaml:"driver"`
	URI     string `yaml:"uri"` // 完整连接串，优先级最高
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Name    string `yaml:"name"`
	SSLMode string `yaml:"sslmode"`
	Path    string `yaml:"path"` // sqlite 文件路径
}

// RedisConfig Redis 配置，Enabled=false 时不连接 Redis
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret      string        `yaml:"-" env:"JWT_SECRET"`
	Issuer         string        `yaml:"issuer" env:"AUTH_ISSUER"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
	BcryptCost     int           `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST"`
	AllowedRoles   []string      `yaml:"allowed_roles" env:"AUTH_ALLOWED_ROLES" envSeparator:","`
	CookieSecure   bool          `yaml:"cookie_secure" env:"AUTH_COOKIE_SECURE"`
	RevokeOnLogout bool          `yaml:"revoke_on_logout" env:"AUTH_REVOKE_ON_LOGOUT"`
	RecheckAccount bool          `yaml:"recheck_account" env:"AUTH_RECHECK_ACCOUNT"`
	AdminEmail     string        `yaml:"-" env:"ADMIN_EMAIL"`
	AdminPassword  string        `yaml:"-" env:"ADMIN_PASSWORD"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	APIPort        string
	DatabaseDriver string
	DatabaseURL    string
	DatabaseName   string
	RedisURL       string // 为空表示不使用 Redis
	Auth           AuthConfig
}

// configDir 由外部通过 SetConfigDir 指定，优先级最高
var configDir string

// SetConfigDir 设置配置文件目录（用于 --config 命令行参数）
func SetConfigDir(dir string) {
	configDir = dir
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 环境变量覆盖
func Load() (*Config, error) {
	// 加载 .env
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	env := parseEnv(getEnv("APP_ENV", "dev"))

	yamlCfg, err := loadYAMLConfig(env)
	if err != nil {
		return nil, err
	}

	// auth 章节：环境变量覆盖 YAML
	if err := parseAuthEnv(&yamlCfg.Auth); err != nil {
		return nil, err
	}

	yamlCfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	dbPassword := getEnv("DB_PASSWORD", "")
	driver := detectDatabaseDriver(yamlCfg.Database.Driver, os.Getenv("DATABASE_URL"))
	yamlCfg.Database.Driver = driver

	dbURL := buildDatabaseURL(yamlCfg.Database, dbPassword)
	if driver == "mongodb" {
		dbURL = getEnv("MONGO_URI", dbURL)
	}

	cfg := &Config{
		Env:            env,
		APIPort:        getEnv("PORT", yamlCfg.Server.Port),
		DatabaseDriver: driver,
		DatabaseURL:    getEnv("DATABASE_URL", dbURL),
		DatabaseName:   yamlCfg.Database.Name,
		Auth:           yamlCfg.Auth,
	}
	if yamlCfg.Redis.Enabled || os.Getenv("REDIS_URL") != "" {
		cfg.RedisURL = getEnv("REDIS_URL", buildRedisURL(yamlCfg.Redis))
	}

	cfg.Auth.applyDefaults()
	return cfg, nil
}

// parseAuthEnv 用环境变量覆盖认证配置，未设置的变量保持原值
func parseAuthEnv(auth *AuthConfig) error {
	if err := env.Parse(auth); err != nil {
		return fmt.Errorf("parse auth env: %w", err)
	}
	return nil
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) (*YAMLConfig, error) {
	cfg := &YAMLConfig{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Host: "localhost", Port: 27017, Name: "mentorhub", SSLMode: "disable"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		Auth:     defaultAuthConfig(),
	}

	dirs := configPaths
	if configDir != "" {
		dirs = []string{configDir}
	}

	for _, name := range []string{"common.yaml", fmt.Sprintf("%s.yaml", env)} {
		for _, base := range dirs {
			path := filepath.Join(base, name)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			break
		}
	}

	return cfg, nil
}

func defaultAuthConfig() AuthConfig {
	return AuthConfig{
		Issuer:       "mentorhub",
		TokenTTL:     72 * time.Hour,
		BcryptCost:   12,
		AllowedRoles: []string{"mentor", "mentee"},
	}
}

// applyDefaults 填充零值字段
func (a *AuthConfig) applyDefaults() {
	def := defaultAuthConfig()
	if a.Issuer == "" {
		a.Issuer = def.Issuer
	}
	if a.TokenTTL <= 0 {
		a.TokenTTL = def.TokenTTL
	}
	if a.BcryptCost == 0 {
		a.BcryptCost = def.BcryptCost
	}
	if len(a.AllowedRoles) == 0 {
		a.AllowedRoles = def.AllowedRoles
	}
}

// detectDatabaseDriver YAML 显式配置优先，其次根据 DATABASE_URL 前缀推断
func detectDatabaseDriver(yamlDriver, dbURL string) string {
	if yamlDriver != "" {
		return strings.ToLower(yamlDriver)
	}
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(dbURL, "file:"), strings.HasPrefix(dbURL, "sqlite:"):
		return "sqlite"
	default:
		return "mongodb"
	}
}

// buildDatabaseURL 构建数据库连接字符串
func buildDatabaseURL(db DatabaseConfig, password string) string {
	if db.URI != "" {
		return db.URI
	}
	switch strings.ToLower(db.Driver) {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			db.User, password, db.Host, db.Port, db.Name, db.SSLMode)
	case "sqlite":
		path := db.Path
		if path == "" {
			path = "mentorhub.db"
		}
		return "file:" + path + "?cache=shared&mode=rwc"
	default:
		if db.User != "" {
			return fmt.Sprintf("mongodb://%s:%s@%s:%d", db.User, password, db.Host, db.Port)
		}
		return fmt.Sprintf("mongodb://%s:%d", db.Host, db.Port)
	}
}

// buildRedisURL 构建 Redis 连接字符串
func buildRedisURL(redis RedisConfig) string {
	if redis.URL != "" {
		return redis.URL
	}
	if redis.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", redis.Password, redis.Host, redis.Port, redis.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", redis.Host, redis.Port, redis.DB)
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate 启动前校验必填项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 && c.Env == EnvProduction {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	return nil
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏密码和密钥）
func (c *Config) String() string {
	secret := "<unset>"
	if c.Auth.JWTSecret != "" {
		secret = "***"
	}
	return fmt.Sprintf("Config{Env: %s, DB: %s %s, Redis: %s, TokenTTL: %s, JWTSecret: %s}",
		c.Env, c.DatabaseDriver, maskPassword(c.DatabaseURL), maskPassword(c.RedisURL), c.Auth.TokenTTL, secret)
}

// maskPassword 隐藏密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:/]*:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}
