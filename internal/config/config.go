package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server        ServerConfig    `toml:"server"`
	RateLimit     RateLimitConfig `toml:"rate_limit"`
	AI            AIConfig        `toml:"ai"`
	Planning      PlanningConfig  `toml:"planning"`
	Log           LogConfig       `toml:"log"`
	Client        ClientConfig    `toml:"client"`
	Supabase      SupabaseConfig  `toml:"supabase"`
	Schedule      ScheduleConfig  `toml:"schedule"`
	Notifications NotifyConfig    `toml:"notifications"`
	Calendar      CalendarConfig  `toml:"calendar"`
}

type ServerConfig struct {
	Port         int    `toml:"port"`
	Environment  string `toml:"environment"` // "development" | "production"
	CORSOrigin   string `toml:"cors_origin"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
	// TrustProxy keys the rate limiter on X-Forwarded-For / X-Real-IP.
	// Disable when the server is reachable without a proxy in front.
	TrustProxy bool `toml:"trust_proxy"`
}

type RateLimitConfig struct {
	WindowMs       int `toml:"window_ms"`
	MaxRequests    int `toml:"max_requests"`
	SweepIntervalS int `toml:"sweep_interval_seconds"`
}

type AIConfig struct {
	Provider         string  `toml:"provider"` // "openai" or "claude-cli"
	APIKey           string  `toml:"api_key"`
	BaseURL          string  `toml:"base_url"`
	Model            string  `toml:"model"`
	MaxTokens        int     `toml:"max_tokens"`
	Temperature      float64 `toml:"temperature"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	StructuredOutput bool    `toml:"structured_output"`
}

type PlanningConfig struct {
	AllowEmptyTasks bool `toml:"allow_empty_tasks"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ClientConfig struct {
	ServerURL string `toml:"server_url"`
}

type SupabaseConfig struct {
	URL     string `toml:"url"`
	AnonKey string `toml:"anon_key"`
	UserID  string `toml:"user_id"`
}

type ScheduleConfig struct {
	PlanAt   string `toml:"plan_at"`
	WorkDays []int  `toml:"work_days"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

type CalendarConfig struct {
	Source string `toml:"source"` // ICS URL or file path
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:         3001,
			Environment:  "development",
			CORSOrigin:   "http://localhost:5173",
			MaxBodyBytes: 1 << 20,
			TrustProxy:   true,
		},
		RateLimit: RateLimitConfig{
			WindowMs:       15 * 60 * 1000,
			MaxRequests:    100,
			SweepIntervalS: 60,
		},
		AI: AIConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			MaxTokens:      1000,
			Temperature:    0.7,
			TimeoutSeconds: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
		Client: ClientConfig{
			ServerURL: "http://localhost:3001",
		},
		Schedule: ScheduleConfig{
			PlanAt:   "08:30",
			WorkDays: []int{1, 2, 3, 4, 5},
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
	}
}

// Window returns the rate-limit window as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMs) * time.Millisecond
}

func (r RateLimitConfig) SweepInterval() time.Duration {
	return time.Duration(r.SweepIntervalS) * time.Second
}

func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.RateLimit.WindowMs < 1000 {
		errs = append(errs, fmt.Errorf("rate_limit.window_ms must be >= 1000, got %d", c.RateLimit.WindowMs))
	}
	if c.RateLimit.MaxRequests < 1 {
		errs = append(errs, fmt.Errorf("rate_limit.max_requests must be >= 1, got %d", c.RateLimit.MaxRequests))
	}
	if c.AI.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("ai.max_tokens must be >= 1, got %d", c.AI.MaxTokens))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("ai.temperature must be between 0 and 2, got %g", c.AI.Temperature))
	}
	switch c.AI.Provider {
	case "openai", "claude-cli":
	default:
		errs = append(errs, fmt.Errorf("ai.provider must be \"openai\" or \"claude-cli\", got %q", c.AI.Provider))
	}
	return errors.Join(errs...)
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "planr"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the TOML file at path. A missing file yields defaults.
// Environment variables override both.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = n
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Server.Environment = v
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.Server.CORSOrigin = v
	}
	if v := os.Getenv("TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRUST_PROXY %q: %w", v, err)
		}
		cfg.Server.TrustProxy = b
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_WINDOW_MS %q: %w", v, err)
		}
		cfg.RateLimit.WindowMs = n
	}
	if v := os.Getenv("RATE_LIMIT_MAX_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_MAX_REQUESTS %q: %w", v, err)
		}
		cfg.RateLimit.MaxRequests = n
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.Supabase.AnonKey = v
	}
	if v := os.Getenv("SUPABASE_USER_ID"); v != "" {
		cfg.Supabase.UserID = v
	}
	if v := os.Getenv("PLANR_SERVER_URL"); v != "" {
		cfg.Client.ServerURL = v
	}
	if v := os.Getenv("PLANR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes the default configuration to path, leaving secrets
// empty so they can come from the environment.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	out, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0600)
}
