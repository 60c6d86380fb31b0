package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultDir 服务进程读取配置的目录
const DefaultDir = "configs"

// placeholder 匹配 ${VAR} 与 ${VAR:default}
var placeholder = regexp.MustCompile(`\$\{(\w+)(:([^}]*))?\}`)

func Load() (*Config, error) {
	return LoadFrom(DefaultDir)
}

// LoadFrom 依次叠加 config.yaml、config.<APP_ENV>.yaml 与环境变量，后者覆盖前者。
// APP_ENV 缺省为 development，环境文件可以不存在。
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	layers := []struct {
		path     string
		optional bool
	}{
		{filepath.Join(dir, "config.yaml"), false},
		{filepath.Join(dir, "config."+env+".yaml"), true},
	}
	for _, l := range layers {
		if err := mergeFile(v, l.path, l.optional); err != nil {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config from %s: %w", dir, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", dir, err)
	}
	return &cfg, nil
}

// mergeFile 展开占位符后合并进 viper
func mergeFile(v *viper.Viper, path string, optional bool) error {
	raw, err := os.ReadFile(path)
	switch {
	case optional && errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.MergeConfig(bytes.NewReader([]byte(expandEnv(string(raw))))); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// expandEnv 未设置且无默认值的变量保留原文，便于发现遗漏
func expandEnv(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		if val, ok := os.LookupEnv(parts[1]); ok {
			return val
		}
		if parts[2] != "" {
			return parts[3]
		}
		return m
	})
}

// Validate 凭证只能来自配置文件或环境变量，没有内置默认值
func (c *Config) Validate() error {
	name := c.LLM.DefaultProvider
	if name == "" {
		return errors.New("llm.default_provider is required")
	}
	p, ok := c.LLM.Providers[name]
	if !ok {
		return fmt.Errorf("llm provider %s not configured", name)
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return fmt.Errorf("llm.providers.%s.api_key is required", name)
	}
	switch c.Pipeline.Pacing.Mode {
	case "", "delay", "rate", "redis", "none":
	default:
		return fmt.Errorf("unknown pipeline.pacing.mode %q", c.Pipeline.Pacing.Mode)
	}
	if c.Pipeline.OutlineAttempts < 0 {
		return fmt.Errorf("pipeline.outline_attempts must not be negative, got %d", c.Pipeline.OutlineAttempts)
	}
	if r := c.Observability.Tracing.SampleRate; r < 0 || r > 1 {
		return fmt.Errorf("observability.tracing.sample_rate must be within [0,1], got %v", r)
	}
	return nil
}

// defaults 兜底值，不含任何凭证
var defaults = map[string]any{
	"app.name":    "bookgen-ai-api",
	"app.version": "v0.0.0",
	"app.env":     "development",

	"server.http.host":          "0.0.0.0",
	"server.http.port":          8080,
	"server.http.read_timeout":  "30s",
	"server.http.write_timeout": "600s",
	"server.http.idle_timeout":  "120s",

	"database.postgres.host":               "localhost",
	"database.postgres.port":               5432,
	"database.postgres.user":               "postgres",
	"database.postgres.database":           "bookgen",
	"database.postgres.ssl_mode":           "disable",
	"database.postgres.max_open_conns":     50,
	"database.postgres.max_idle_conns":     10,
	"database.postgres.conn_max_lifetime":  "30m",
	"database.postgres.conn_max_idle_time": "5m",
	"database.postgres.auto_migrate":       true,

	"cache.redis.host":           "localhost",
	"cache.redis.port":           6379,
	"cache.redis.pool_size":      100,
	"cache.redis.min_idle_conns": 10,
	"cache.redis.dial_timeout":   "5s",
	"cache.redis.read_timeout":   "3s",
	"cache.redis.write_timeout":  "3s",
	"cache.book_index_ttl":       "10m",

	"llm.default_provider":         "gemini",
	"llm.providers.gemini.kind":    "gemini",
	"llm.providers.gemini.model":   "gemini-2.0-flash-exp",
	"llm.providers.gemini.timeout": "120s",

	"pipeline.pacing.mode":             "delay",
	"pipeline.pacing.interval":         "1s",
	"pipeline.pacing.burst":            1,
	"pipeline.pacing.key":              "bookgen:pacing:llm",
	"pipeline.outline_attempts":        1,
	"pipeline.outline_retry_delay":     "2s",
	"pipeline.book_analysis_min_words": 50,
	"pipeline.batch_analysis_delay":    "2s",
	"pipeline.temperature":             0.8,

	"messaging.redis_stream.max_len":                  10000,
	"messaging.redis_stream.consumer_group_prefix":    "bookgen-",
	"messaging.redis_stream.block_timeout":            "5s",
	"messaging.redis_stream.claim_interval":           "30s",
	"messaging.redis_stream.retry_limit":              3,
	"messaging.redis_stream.retry_backoff.initial":    "2s",
	"messaging.redis_stream.retry_backoff.max":        "1m",
	"messaging.redis_stream.retry_backoff.multiplier": 2.0,
	"messaging.redis_stream.dlq_alert_threshold":      10,

	"observability.logging.level":       "info",
	"observability.logging.format":      "json",
	"observability.tracing.endpoint":    "localhost:4317",
	"observability.tracing.sample_rate": 1.0,
	"observability.metrics.enabled":     true,
	"observability.metrics.path":        "/metrics",

	"security.rate_limit.enabled":   true,
	"security.rate_limit.limit":     30,
	"security.rate_limit.window":    "1m",
	"security.cors.allowed_origins": []string{"*"},
	"security.cors.allowed_methods": []string{"GET", "POST", "OPTIONS"},
	"security.cors.allowed_headers": []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
}
