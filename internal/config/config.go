// Package config 从 configs/ 下的 YAML 与环境变量装配运行配置
package config

import "time"

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Messaging     MessagingConfig     `mapstructure:"messaging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Security      SecurityConfig      `mapstructure:"security"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTP HTTPServerConfig `mapstructure:"http"`
}

type HTTPServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig 连接池参数为 0 时使用 database/sql 默认值
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// AutoMigrate 启动时执行 gorm AutoMigrate
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
	// BookIndexTTL 整书索引读缓存时长，0 表示不缓存
	BookIndexTTL time.Duration `mapstructure:"book_index_ttl"`
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LLMConfig 提供商按名称配置，DefaultProvider 决定流水线使用哪一个
type LLMConfig struct {
	DefaultProvider string                    `mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `mapstructure:"providers"`
}

type ProviderConfig struct {
	// Kind 提供商类型：gemini | openai（OpenAI 兼容协议）
	Kind        string        `mapstructure:"kind"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PipelineConfig 书籍生成流水线配置
type PipelineConfig struct {
	Pacing PacingConfig `mapstructure:"pacing"`

	// OutlineAttempts 大纲生成的最大尝试次数（1 表示不重试）
	OutlineAttempts   int           `mapstructure:"outline_attempts"`
	OutlineRetryDelay time.Duration `mapstructure:"outline_retry_delay"`

	// BookAnalysisMinWords 整书分析的最低总字数门槛
	BookAnalysisMinWords int `mapstructure:"book_analysis_min_words"`
	// BatchAnalysisDelay 批量章节分析之间的间隔
	BatchAnalysisDelay time.Duration `mapstructure:"batch_analysis_delay"`

	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

// PacingConfig 调用节流配置
type PacingConfig struct {
	// Mode: delay | rate | redis | none
	Mode     string        `mapstructure:"mode"`
	Interval time.Duration `mapstructure:"interval"`
	Burst    int           `mapstructure:"burst"`
	// Key redis 模式下共享窗口的键
	Key string `mapstructure:"key"`
}

type MessagingConfig struct {
	RedisStream RedisStreamConfig `mapstructure:"redis_stream"`
}

// RedisStreamConfig 异步任务队列
type RedisStreamConfig struct {
	MaxLen              int           `mapstructure:"max_len"`
	ConsumerGroupPrefix string        `mapstructure:"consumer_group_prefix"`
	BlockTimeout        time.Duration `mapstructure:"block_timeout"`
	ClaimInterval       time.Duration `mapstructure:"claim_interval"`
	RetryLimit          int           `mapstructure:"retry_limit"`
	RetryBackoff        BackoffConfig `mapstructure:"retry_backoff"`
	// DLQAlertThreshold 死信队列超过该长度时告警，0 关闭
	DLQAlertThreshold int64 `mapstructure:"dlq_alert_threshold"`
}

// BackoffConfig 失败任务的重投间隔
type BackoffConfig struct {
	Initial    time.Duration `mapstructure:"initial"`
	Max        time.Duration `mapstructure:"max"`
	Multiplier float64       `mapstructure:"multiplier"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// RateLimitConfig 按客户端 IP 的滑动窗口限流
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

// CORSConfig 来源包含 "*" 时不允许携带凭证
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}
