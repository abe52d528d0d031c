// Package config provides hierarchical configuration loading for Annapurna.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the Annapurna chat service.
type Config struct {
	Server    Server    `yaml:"server"`
	Knowledge Knowledge `yaml:"knowledge"`
	Learning  Learning  `yaml:"learning"`
	LLM       LLM       `yaml:"llm"`
	Search    Search    `yaml:"search"`
	Embedding Embedding `yaml:"embedding"`
	Matcher   Matcher   `yaml:"matcher"`
	Cache     Cache     `yaml:"cache"`
	Rate      Rate      `yaml:"rate"`
	Memory    Memory    `yaml:"memory"`
	Breaker   Breaker   `yaml:"breaker"`
	Logging   Logging   `yaml:"logging"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	StaticDir  string `yaml:"static_dir"`
}

// Knowledge holds knowledge base configuration.
type Knowledge struct {
	CSVPath string `yaml:"csv_path"`
}

// Learning holds the interaction/feedback log configuration.
type Learning struct {
	DBPath string `yaml:"db_path"`
}

// LLM holds the hosted language model API configuration.
type LLM struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Search holds the optional web search API configuration.
// An empty APIKey disables enrichment entirely.
type Search struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	EngineID string        `yaml:"engine_id"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Embedding holds the optional embedding backend configuration.
// An empty Model disables the similarity blend; keyword matching
// always works standalone.
type Embedding struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Matcher holds relevance scoring configuration.
type Matcher struct {
	TopK            int     `yaml:"top_k"`
	MinScore        float64 `yaml:"min_score"`
	KeywordWeight   float64 `yaml:"keyword_weight"`
	SemanticWeight  float64 `yaml:"semantic_weight"`
	SynonymDiscount float64 `yaml:"synonym_discount"`
}

// Cache holds response/search memoization configuration.
type Cache struct {
	MaxCostMB   int64         `yaml:"max_cost_mb"`
	ResponseTTL time.Duration `yaml:"response_ttl"`
	SearchTTL   time.Duration `yaml:"search_ttl"`
}

// Rate holds sliding-window rate limiter configuration.
type Rate struct {
	Limit           int           `yaml:"limit"`
	Window          time.Duration `yaml:"window"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime     time.Duration `yaml:"max_idle_time"`
}

// Memory holds per-session conversation memory configuration.
type Memory struct {
	MaxTurns     int `yaml:"max_turns"`
	ContextTurns int `yaml:"context_turns"`
}

// Breaker holds circuit breaker configuration for outbound calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "3000",
			CORSOrigin: "*",
			StaticDir:  "web",
		},
		Knowledge: Knowledge{
			CSVPath: "knowledge_base.csv",
		},
		Learning: Learning{
			DBPath: "data/learning.db",
		},
		LLM: LLM{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-1.5-flash",
			Timeout: 15 * time.Second,
		},
		Search: Search{
			BaseURL: "https://www.googleapis.com/customsearch/v1",
			Timeout: 10 * time.Second,
		},
		Matcher: Matcher{
			TopK:            5,
			MinScore:        0,
			KeywordWeight:   0.7,
			SemanticWeight:  0.3,
			SynonymDiscount: 0.5,
		},
		Cache: Cache{
			MaxCostMB:   64,
			ResponseTTL: time.Hour,
			SearchTTL:   5 * time.Minute,
		},
		Rate: Rate{
			Limit:           10,
			Window:          time.Minute,
			CleanupInterval: 10 * time.Minute,
			MaxIdleTime:     5 * time.Minute,
		},
		Memory: Memory{
			MaxTurns:     5,
			ContextTurns: 3,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Logging: Logging{
			Level:   "info",
			Service: "annapurna",
		},
	}
}
