package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "annapurna.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ANNAPURNA_PORT")
	setString(&cfg.Server.CORSOrigin, "ANNAPURNA_CORS_ORIGIN")
	setString(&cfg.Server.StaticDir, "ANNAPURNA_STATIC_DIR")
	setString(&cfg.Knowledge.CSVPath, "ANNAPURNA_KB_CSV")
	setString(&cfg.Learning.DBPath, "ANNAPURNA_LEARNING_DB")
	setString(&cfg.LLM.BaseURL, "ANNAPURNA_LLM_URL")
	setString(&cfg.LLM.APIKey, "GEMINI_API_KEY")
	setString(&cfg.LLM.Model, "ANNAPURNA_LLM_MODEL")
	setDuration(&cfg.LLM.Timeout, "ANNAPURNA_LLM_TIMEOUT")
	setString(&cfg.Search.BaseURL, "ANNAPURNA_SEARCH_URL")
	setString(&cfg.Search.APIKey, "SEARCH_API_KEY")
	setString(&cfg.Search.EngineID, "SEARCH_ENGINE_ID")
	setDuration(&cfg.Search.Timeout, "ANNAPURNA_SEARCH_TIMEOUT")
	setString(&cfg.Embedding.BaseURL, "ANNAPURNA_EMBED_URL")
	setString(&cfg.Embedding.Model, "ANNAPURNA_EMBED_MODEL")
	setInt(&cfg.Matcher.TopK, "ANNAPURNA_MATCH_TOP_K")
	setFloat64(&cfg.Matcher.MinScore, "ANNAPURNA_MATCH_MIN_SCORE")
	setFloat64(&cfg.Matcher.KeywordWeight, "ANNAPURNA_MATCH_KEYWORD_WEIGHT")
	setFloat64(&cfg.Matcher.SemanticWeight, "ANNAPURNA_MATCH_SEMANTIC_WEIGHT")
	setFloat64(&cfg.Matcher.SynonymDiscount, "ANNAPURNA_MATCH_SYNONYM_DISCOUNT")
	setInt64(&cfg.Cache.MaxCostMB, "ANNAPURNA_CACHE_MAX_COST_MB")
	setDuration(&cfg.Cache.ResponseTTL, "ANNAPURNA_CACHE_RESPONSE_TTL")
	setDuration(&cfg.Cache.SearchTTL, "ANNAPURNA_CACHE_SEARCH_TTL")
	setInt(&cfg.Rate.Limit, "ANNAPURNA_RATE_LIMIT")
	setDuration(&cfg.Rate.Window, "ANNAPURNA_RATE_WINDOW")
	setDuration(&cfg.Rate.CleanupInterval, "ANNAPURNA_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "ANNAPURNA_RATE_MAX_IDLE_TIME")
	setInt(&cfg.Memory.MaxTurns, "ANNAPURNA_MEMORY_MAX_TURNS")
	setInt(&cfg.Memory.ContextTurns, "ANNAPURNA_MEMORY_CONTEXT_TURNS")
	setInt(&cfg.Breaker.MaxFailures, "ANNAPURNA_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ANNAPURNA_BREAKER_TIMEOUT")
	setString(&cfg.Logging.Level, "ANNAPURNA_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ANNAPURNA_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ANNAPURNA_LOG_ASYNC")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Knowledge.CSVPath == "" {
		return errors.New("knowledge.csv_path is required")
	}
	if cfg.Rate.Limit < 1 {
		return errors.New("rate.limit must be >= 1")
	}
	if cfg.Rate.Window <= 0 {
		return errors.New("rate.window must be positive")
	}
	if cfg.Matcher.TopK < 1 {
		return errors.New("matcher.top_k must be >= 1")
	}
	if cfg.Memory.MaxTurns < 1 {
		return errors.New("memory.max_turns must be >= 1")
	}
	if cfg.Memory.ContextTurns > cfg.Memory.MaxTurns {
		return errors.New("memory.context_turns must not exceed memory.max_turns")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
