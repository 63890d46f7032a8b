// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml (plus config.<env>.yaml when present),
// expands ${VAR} placeholders and applies the legacy flat env names.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideFromEnv applies the flat environment names operators already use
// in .env files. A set variable always wins over the yaml value.
func overrideFromEnv(cfg *Config) {
	setString(&cfg.APIs.LLM.APIKey, "GEMINI_API_KEY")
	setString(&cfg.APIs.LLM.Model, "GEMINI_MODEL")
	setString(&cfg.APIs.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.APIs.LLM.BaseURL, "LLM_GATEWAY_URL")

	setString(&cfg.APIs.WebSearch.Provider, "WEB_SEARCH_PROVIDER")
	setString(&cfg.APIs.WebSearch.APIKey, "WEB_SEARCH_API_KEY")
	setString(&cfg.APIs.WebSearch.EngineID, "WEB_SEARCH_ENGINE_ID")
	setString(&cfg.APIs.GitHub.Token, "GITHUB_TOKEN")

	setBool(&cfg.Assistant.Persist, "ASSISTANT_PERSIST")
	setString(&cfg.Database.SQLite.Path, "ASSISTANT_DB_PATH")

	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Database.Redis.Address = val
		cfg.Database.Redis.Enabled = true
	}
	setString(&cfg.Database.Postgres.User, "DB_USER")
	setString(&cfg.Database.Postgres.Password, "DB_PASSWORD")

	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		*dst = val
	}
}

func setBool(dst *bool, key string) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "meeting-intel"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "assistant_sessions.sqlite3"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "meeting-intel-dossiers"
	}

	if cfg.APIs.LLM.Provider == "" {
		cfg.APIs.LLM.Provider = "gemini"
	}
	if cfg.APIs.LLM.Model == "" {
		cfg.APIs.LLM.Model = "gemini-2.5-flash"
	}
	if cfg.APIs.LLM.Timeout == 0 {
		cfg.APIs.LLM.Timeout = 60000
	}
	if cfg.APIs.LLM.MaxRetries == 0 {
		cfg.APIs.LLM.MaxRetries = 3
	}
	if cfg.APIs.LLM.Breaker.MaxFailures == 0 {
		cfg.APIs.LLM.Breaker.MaxFailures = 5
	}
	if cfg.APIs.LLM.Breaker.OpenTimeout == 0 {
		cfg.APIs.LLM.Breaker.OpenTimeout = 30000
	}

	if cfg.APIs.WebSearch.Provider == "" {
		cfg.APIs.WebSearch.Provider = "duckduckgo"
	}
	if cfg.APIs.WebSearch.Timeout == 0 {
		cfg.APIs.WebSearch.Timeout = 12000
	}
	if cfg.APIs.WebSearch.RequestsPerSecond == 0 {
		cfg.APIs.WebSearch.RequestsPerSecond = 2
	}
	if cfg.APIs.WebSearch.Burst == 0 {
		cfg.APIs.WebSearch.Burst = 4
	}
	if cfg.APIs.GitHub.BaseURL == "" {
		cfg.APIs.GitHub.BaseURL = "https://api.github.com"
	}
	if cfg.APIs.GitHub.Timeout == 0 {
		cfg.APIs.GitHub.Timeout = 12000
	}

	if cfg.Pipeline.ResultCacheTTL == 0 {
		cfg.Pipeline.ResultCacheTTL = 300000
	}
	if cfg.Pipeline.ResultCacheMaxItems == 0 {
		cfg.Pipeline.ResultCacheMaxItems = 256
	}
	if cfg.Pipeline.MaxEvidence == 0 {
		cfg.Pipeline.MaxEvidence = 22
	}
	if cfg.Pipeline.CrawlMaxPages == 0 {
		cfg.Pipeline.CrawlMaxPages = 8
	}
	if cfg.Pipeline.AdapterTimeout == 0 {
		cfg.Pipeline.AdapterTimeout = 12000
	}
	if cfg.Pipeline.UserAgent == "" {
		cfg.Pipeline.UserAgent = "MeetingIntelBot/1.0 (+public-signal research)"
	}

	if cfg.Assistant.SessionTTL == 0 {
		cfg.Assistant.SessionTTL = 3600000
	}
	if cfg.Assistant.SessionMaxItems == 0 {
		cfg.Assistant.SessionMaxItems = 512
	}
	if cfg.Assistant.Backend == "" {
		cfg.Assistant.Backend = "sqlite"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.APIs.LLM.Provider {
	case "gemini":
	case "gateway":
		if cfg.APIs.LLM.BaseURL == "" {
			return fmt.Errorf("apis.llm.base_url is required for the gateway provider")
		}
	default:
		return fmt.Errorf("apis.llm.provider must be gemini or gateway, got %q", cfg.APIs.LLM.Provider)
	}

	switch cfg.APIs.WebSearch.Provider {
	case "duckduckgo":
	case "cse":
		if cfg.APIs.WebSearch.APIKey == "" || cfg.APIs.WebSearch.EngineID == "" {
			return fmt.Errorf("apis.web_search.api_key and engine_id are required for the cse provider")
		}
	default:
		return fmt.Errorf("apis.web_search.provider must be duckduckgo or cse, got %q", cfg.APIs.WebSearch.Provider)
	}

	if cfg.Assistant.Persist {
		switch cfg.Assistant.Backend {
		case "sqlite":
		case "postgres":
			if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
				return fmt.Errorf("database.postgres.host and database are required for the postgres session backend")
			}
		default:
			return fmt.Errorf("assistant.backend must be sqlite or postgres, got %q", cfg.Assistant.Backend)
		}
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when elasticsearch is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
