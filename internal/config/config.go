package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Interface exposes read access to every configuration section.
type Interface interface {
	Logger() LoggerConfig
	LLM() LLMRouterConfig
	Interpreter() InterpreterConfig
	Sequencer() SequencerConfig
	Agent() AgentConfig
	Device() DeviceConfig
	TaskStore() TaskStoreConfig
}

// Config is the root configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	LLMCfg         LLMRouterConfig   `mapstructure:"llm" yaml:"llm"`
	InterpreterCfg InterpreterConfig `mapstructure:"interpreter" yaml:"interpreter"`
	SequencerCfg   SequencerConfig   `mapstructure:"sequencer" yaml:"sequencer"`
	AgentCfg       AgentConfig       `mapstructure:"agent" yaml:"agent"`
	DeviceCfg      DeviceConfig      `mapstructure:"device" yaml:"device"`
	TaskStoreCfg   TaskStoreConfig   `mapstructure:"task_store" yaml:"task_store"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) LLM() LLMRouterConfig           { return c.LLMCfg }
func (c *Config) Interpreter() InterpreterConfig { return c.InterpreterCfg }
func (c *Config) Sequencer() SequencerConfig     { return c.SequencerCfg }
func (c *Config) Agent() AgentConfig             { return c.AgentCfg }
func (c *Config) Device() DeviceConfig           { return c.DeviceCfg }
func (c *Config) TaskStore() TaskStoreConfig     { return c.TaskStoreCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	Models               map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// ensureDefaultModels registers a Gemini entry for any default model name
// that has no explicit configuration, so a bare model name is enough.
func (r *LLMRouterConfig) ensureDefaultModels() {
	if r.Models == nil {
		r.Models = make(map[string]LLMModelConfig)
	}
	for _, name := range []string{r.DefaultFastModel, r.DefaultPowerfulModel} {
		if name == "" {
			continue
		}
		if _, ok := r.Models[name]; !ok {
			r.Models[name] = LLMModelConfig{
				Provider:   ProviderGemini,
				Model:      name,
				APITimeout: 30 * time.Second,
			}
		}
	}
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider      LLMProvider       `mapstructure:"provider" yaml:"provider"`
	Model         string            `mapstructure:"model" yaml:"model"`
	APIKey        string            `mapstructure:"api_key" yaml:"-"`
	Endpoint      string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout    time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature   float32           `mapstructure:"temperature" yaml:"temperature"`
	TopP          float32           `mapstructure:"top_p" yaml:"top_p"`
	TopK          int               `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens     int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	SafetyFilters map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`

	// RequestsPerSecond caps outbound calls; zero disables the limiter.
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
	MaxRetryElapsed   time.Duration `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
}

// InterpreterConfig tunes the layered command interpreter.
type InterpreterConfig struct {
	PlannerTimeout      time.Duration `mapstructure:"planner_timeout" yaml:"planner_timeout"`
	ShortPromptMaxRunes int           `mapstructure:"short_prompt_max_runes" yaml:"short_prompt_max_runes"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"` // Zero keeps entries forever.
	CacheFallbacks      bool          `mapstructure:"cache_fallbacks" yaml:"cache_fallbacks"`
	ContextWindow       int           `mapstructure:"context_window" yaml:"context_window"`
}

// SequencerConfig controls pacing of plan execution.
type SequencerConfig struct {
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	AppLaunchSettle   time.Duration `mapstructure:"app_launch_settle" yaml:"app_launch_settle"`
	AppPollInterval   time.Duration `mapstructure:"app_poll_interval" yaml:"app_poll_interval"`
	AppPollTimeout    time.Duration `mapstructure:"app_poll_timeout" yaml:"app_poll_timeout"`
	SwipeDuration     time.Duration `mapstructure:"swipe_duration" yaml:"swipe_duration"`
	MaxListedElements int           `mapstructure:"max_listed_elements" yaml:"max_listed_elements"`
}

// AgentConfig holds settings for the iterative agent loop.
type AgentConfig struct {
	MaxIterations  int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	IterationDelay time.Duration `mapstructure:"iteration_delay" yaml:"iteration_delay"`
	HistoryWindow  int           `mapstructure:"history_window" yaml:"history_window"`
	PlannerTimeout time.Duration `mapstructure:"planner_timeout" yaml:"planner_timeout"`
}

// DeviceConfig locates the Android device driven over adb.
type DeviceConfig struct {
	ADBPath        string        `mapstructure:"adb_path" yaml:"adb_path"`
	Serial         string        `mapstructure:"serial" yaml:"serial"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	DumpPath       string        `mapstructure:"dump_path" yaml:"dump_path"`
}

// TaskStoreConfig selects where multi-turn task context is persisted.
type TaskStoreConfig struct {
	Type     string         `mapstructure:"type" yaml:"type"` // memory, redis, sqlite, postgres
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr" yaml:"addr"`
	Password  string        `mapstructure:"password" yaml:"-"`
	DB        int           `mapstructure:"db" yaml:"db"`
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig holds the connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"-"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN renders the connection string understood by pgx.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "auralia")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- LLM --
	v.SetDefault("llm.default_fast_model", "gemini-2.5-flash")
	v.SetDefault("llm.default_powerful_model", "gemini-2.5-pro")

	// -- Interpreter --
	v.SetDefault("interpreter.planner_timeout", "4s")
	v.SetDefault("interpreter.short_prompt_max_runes", 40)
	v.SetDefault("interpreter.cache_ttl", "0s")
	v.SetDefault("interpreter.cache_fallbacks", true)
	v.SetDefault("interpreter.context_window", 3)

	// -- Sequencer --
	v.SetDefault("sequencer.settle_delay", "500ms")
	v.SetDefault("sequencer.app_launch_settle", "1500ms")
	v.SetDefault("sequencer.app_poll_interval", "250ms")
	v.SetDefault("sequencer.app_poll_timeout", "5s")
	v.SetDefault("sequencer.swipe_duration", "300ms")
	v.SetDefault("sequencer.max_listed_elements", 5)

	// -- Agent --
	v.SetDefault("agent.max_iterations", 20)
	v.SetDefault("agent.iteration_delay", "1s")
	v.SetDefault("agent.history_window", 5)
	v.SetDefault("agent.planner_timeout", "30s")

	// -- Device --
	v.SetDefault("device.adb_path", "adb")
	v.SetDefault("device.serial", "")
	v.SetDefault("device.command_timeout", "10s")
	v.SetDefault("device.dump_path", "/sdcard/auralia_window.xml")

	// -- Task Store --
	v.SetDefault("task_store.type", "memory")
	v.SetDefault("task_store.redis.addr", "localhost:6379")
	v.SetDefault("task_store.redis.db", 0)
	v.SetDefault("task_store.redis.key_prefix", "auralia")
	v.SetDefault("task_store.redis.ttl", "1h")
	v.SetDefault("task_store.sqlite.path", "auralia.db")
	v.SetDefault("task_store.postgres.host", "localhost")
	v.SetDefault("task_store.postgres.port", 5432)
	v.SetDefault("task_store.postgres.user", "postgres")
	v.SetDefault("task_store.postgres.password", "") // Should be set via env var
	v.SetDefault("task_store.postgres.dbname", "auralia")
	v.SetDefault("task_store.postgres.sslmode", "disable")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("task_store.postgres.password", "AURALIA_PG_PASSWORD")
	_ = v.BindEnv("task_store.redis.password", "AURALIA_REDIS_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.LLMCfg.ensureDefaultModels()

	// Models without an explicit key share the global one.
	if apiKey := os.Getenv("AURALIA_LLM_API_KEY"); apiKey != "" {
		for name, m := range cfg.LLMCfg.Models {
			if m.APIKey == "" {
				m.APIKey = apiKey
				cfg.LLMCfg.Models[name] = m
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.InterpreterCfg.Validate(); err != nil {
		return fmt.Errorf("interpreter configuration invalid: %w", err)
	}
	if err := c.SequencerCfg.Validate(); err != nil {
		return fmt.Errorf("sequencer configuration invalid: %w", err)
	}
	if err := c.AgentCfg.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	if err := c.TaskStoreCfg.Validate(); err != nil {
		return fmt.Errorf("task_store configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the interpreter settings.
func (i *InterpreterConfig) Validate() error {
	if i.PlannerTimeout <= 0 {
		return fmt.Errorf("planner_timeout must be a positive duration")
	}
	if i.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if i.ContextWindow < 0 {
		return fmt.Errorf("context_window must not be negative")
	}
	return nil
}

// Validate checks the sequencer settings.
func (s *SequencerConfig) Validate() error {
	if s.SettleDelay < 0 || s.AppLaunchSettle < 0 {
		return fmt.Errorf("settle delays must not be negative")
	}
	if s.AppPollTimeout > 0 && s.AppPollInterval <= 0 {
		return fmt.Errorf("app_poll_interval must be positive when app_poll_timeout is set")
	}
	return nil
}

// Validate checks the agent settings.
func (a *AgentConfig) Validate() error {
	if a.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be greater than 0")
	}
	if a.IterationDelay < 0 {
		return fmt.Errorf("iteration_delay must not be negative")
	}
	if a.HistoryWindow < 0 {
		return fmt.Errorf("history_window must not be negative")
	}
	return nil
}

// Validate checks the task store selection.
func (t *TaskStoreConfig) Validate() error {
	switch t.Type {
	case "memory":
	case "redis":
		if t.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis store")
		}
	case "sqlite":
		if t.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite store")
		}
	case "postgres":
		if t.Postgres.Host == "" || t.Postgres.DBName == "" {
			return fmt.Errorf("postgres.host and postgres.dbname are required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown task store type %q", t.Type)
	}
	return nil
}
