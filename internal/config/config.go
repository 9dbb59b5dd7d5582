package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

const (
	appName = "lyrica"

	DefaultCacheTTL      = 300 * time.Second
	DefaultCallTimeout   = 10 * time.Second
	DefaultRunTimeout    = 60 * time.Second
	DefaultThreshold     = 0.75
	DefaultCheckInterval = 5 * time.Second
)

var logger = log.With().Str("component", "config").Logger()

func getDefaultCacheDir() string {
	// 优先使用 XDG_CACHE_HOME 环境变量
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// 获取不到用户主目录时回退到当前目录
		return "lyrics_cache"
	}

	return filepath.Join(homeDir, ".cache", appName)
}

// DefaultPath 获取默认配置文件路径
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot get user home directory")
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", appName, "config.toml")
}

// TomlConfig TOML配置文件结构，时长使用 "10s" 这样的字符串
type TomlConfig struct {
	App struct {
		CheckInterval string `toml:"check_interval"`
		SocketPath    string `toml:"socket_path"`
	} `toml:"app"`

	Cache struct {
		Backend string `toml:"backend"`
		Dir     string `toml:"dir"`
		TTL     string `toml:"ttl"`
	} `toml:"cache"`

	Fetch struct {
		CallTimeout string  `toml:"call_timeout"`
		RunTimeout  string  `toml:"run_timeout"`
		Threshold   float64 `toml:"threshold"`
	} `toml:"fetch"`

	Providers struct {
		GeniusToken    string   `toml:"genius_token"`
		YouTubeCookie  string   `toml:"youtube_cookie"`
		LRCLibBaseURL  string   `toml:"lrclib_base_url"`
		LRCLibGetURL   string   `toml:"lrclib_get_url"`
		SimpMusicURL   string   `toml:"simpmusic_url"`
		LyricsOvhURL   string   `toml:"lyricsovh_url"`
		ChartLyricsURL string   `toml:"chartlyrics_url"`
		Disabled       []string `toml:"disabled"`
	} `toml:"providers"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"` // for OpenAI
	} `toml:"ai"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`

	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
}

// envOverrides 环境变量覆盖项，名称沿用线上部署使用的变量
type envOverrides struct {
	CacheBackend  string `env:"CACHE_BACKEND"`
	CacheDir      string `env:"CACHE_DIR"`
	CacheTTL      int    `env:"CACHE_TTL"` // 秒
	GeniusToken   string `env:"GENIUS_TOKEN"`
	YouTubeCookie string `env:"YOUTUBE_COOKIE"`
	LRCLibAPIURL  string `env:"LRCLIB_API_URL"`
	LogLevel      string `env:"LOG_LEVEL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	AIAPIKey      string `env:"AI_API_KEY"`
	MetricsAddr   string `env:"METRICS_ADDR"`
}

// AppConfig 应用配置
type AppConfig struct {
	CheckInterval time.Duration `validate:"gt=0"`
	SocketPath    string        // watch 模式广播歌词的 unix socket，为空时不监听
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Backend string        `validate:"oneof=file redis"`
	Dir     string        `validate:"required"`
	TTL     time.Duration `validate:"gt=0"`
}

// FetchConfig 编排配置
type FetchConfig struct {
	CallTimeout time.Duration `validate:"gt=0"`
	RunTimeout  time.Duration `validate:"gt=0"`
	Threshold   float64       `validate:"gt=0,lte=1"`
}

// ProvidersConfig 提供商配置
type ProvidersConfig struct {
	GeniusToken    string
	YouTubeCookie  string
	LRCLibBaseURL  string `validate:"omitempty,url"`
	LRCLibGetURL   string `validate:"omitempty,url"`
	SimpMusicURL   string `validate:"omitempty,url"`
	LyricsOvhURL   string `validate:"omitempty,url"`
	ChartLyricsURL string `validate:"omitempty,url"`
	Disabled       []string
}

// AIConfig AI配置
type AIConfig struct {
	ModuleName string
	APIKey     string
	BaseURL    string `validate:"omitempty,url"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `validate:"oneof=trace debug info warn error"`
}

// MetricsConfig 指标配置，Addr 为空时不监听
type MetricsConfig struct {
	Addr string
}

// Config 主配置结构
type Config struct {
	Path      string
	App       AppConfig
	Cache     CacheConfig
	Fetch     FetchConfig
	Providers ProvidersConfig
	AI        AIConfig
	Redis     RedisConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Path: DefaultPath(),
		App: AppConfig{
			CheckInterval: DefaultCheckInterval,
		},
		Cache: CacheConfig{
			Backend: "file",
			Dir:     getDefaultCacheDir(),
			TTL:     DefaultCacheTTL,
		},
		Fetch: FetchConfig{
			CallTimeout: DefaultCallTimeout,
			RunTimeout:  DefaultRunTimeout,
			Threshold:   DefaultThreshold,
		},
		AI: AIConfig{
			ModuleName: "gemini",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// loadTomlConfig 加载TOML配置文件，文件不存在时返回空配置
func loadTomlConfig(path string) (*TomlConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug().Str("path", path).Msg("Config file not found, using defaults")
		return &TomlConfig{}, nil
	}

	var tc TomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	logger.Debug().Str("path", path).Msg("Loaded config")
	return &tc, nil
}

// Load 按 默认值 -> TOML 文件 -> 环境变量 的顺序加载配置并校验；path 为空时使用默认路径
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		cfg.Path = path
	}

	tc, err := loadTomlConfig(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyToml(tc); err != nil {
		return nil, err
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyEnv(ov)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyToml(tc *TomlConfig) error {
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"app.check_interval", tc.App.CheckInterval, &c.App.CheckInterval},
		{"cache.ttl", tc.Cache.TTL, &c.Cache.TTL},
		{"fetch.call_timeout", tc.Fetch.CallTimeout, &c.Fetch.CallTimeout},
		{"fetch.run_timeout", tc.Fetch.RunTimeout, &c.Fetch.RunTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		*d.dst = parsed
	}

	override(&c.App.SocketPath, tc.App.SocketPath)
	override(&c.Cache.Backend, tc.Cache.Backend)
	override(&c.Cache.Dir, tc.Cache.Dir)
	if tc.Fetch.Threshold != 0 {
		c.Fetch.Threshold = tc.Fetch.Threshold
	}

	override(&c.Providers.GeniusToken, tc.Providers.GeniusToken)
	override(&c.Providers.YouTubeCookie, tc.Providers.YouTubeCookie)
	override(&c.Providers.LRCLibBaseURL, tc.Providers.LRCLibBaseURL)
	override(&c.Providers.LRCLibGetURL, tc.Providers.LRCLibGetURL)
	override(&c.Providers.SimpMusicURL, tc.Providers.SimpMusicURL)
	override(&c.Providers.LyricsOvhURL, tc.Providers.LyricsOvhURL)
	override(&c.Providers.ChartLyricsURL, tc.Providers.ChartLyricsURL)
	if len(tc.Providers.Disabled) > 0 {
		c.Providers.Disabled = tc.Providers.Disabled
	}

	override(&c.AI.ModuleName, tc.AI.ModuleName)
	override(&c.AI.APIKey, tc.AI.APIKey)
	override(&c.AI.BaseURL, tc.AI.BaseURL)

	override(&c.Redis.Addr, tc.Redis.Addr)
	override(&c.Redis.Password, tc.Redis.Password)
	if tc.Redis.DB != 0 {
		c.Redis.DB = tc.Redis.DB
	}

	override(&c.Log.Level, strings.ToLower(tc.Log.Level))
	override(&c.Metrics.Addr, tc.Metrics.Addr)
	return nil
}

func (c *Config) applyEnv(ov envOverrides) {
	override(&c.Cache.Backend, ov.CacheBackend)
	override(&c.Cache.Dir, ov.CacheDir)
	if ov.CacheTTL > 0 {
		c.Cache.TTL = time.Duration(ov.CacheTTL) * time.Second
	}
	override(&c.Providers.GeniusToken, ov.GeniusToken)
	override(&c.Providers.YouTubeCookie, ov.YouTubeCookie)
	override(&c.Providers.LRCLibGetURL, ov.LRCLibAPIURL)
	override(&c.Log.Level, strings.ToLower(ov.LogLevel))
	override(&c.Redis.Addr, ov.RedisAddr)
	override(&c.Redis.Password, ov.RedisPassword)
	override(&c.AI.APIKey, ov.AIAPIKey)
	override(&c.Metrics.Addr, ov.MetricsAddr)
}

// override 非空时覆盖
func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// ProviderDisabled 判断提供商是否在禁用列表中（按短名或显示名，忽略大小写）
func (c *Config) ProviderDisabled(names ...string) bool {
	for _, d := range c.Providers.Disabled {
		for _, n := range names {
			if strings.EqualFold(strings.TrimSpace(d), n) {
				return true
			}
		}
	}
	return false
}
