package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the search service
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Index      IndexConfig      `yaml:"index"`
	Sources    SourcesConfig    `yaml:"sources"`
	Politeness PolitenessConfig `yaml:"politeness"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// CorpusConfig controls where the collection is persisted
type CorpusConfig struct {
	Name          string `yaml:"name"`
	Path          string `yaml:"path"`
	MinTextLength int    `yaml:"min_text_length"`
}

// IndexConfig holds search index options
type IndexConfig struct {
	UseTFIDF       bool   `yaml:"use_tfidf"`
	IDFMode        string `yaml:"idf_mode"`
	Workers        int    `yaml:"workers"`
	DefaultResults int    `yaml:"default_results"`
	SnippetWidth   int    `yaml:"snippet_width"`
}

// SourcesConfig lists the remote sources documents are harvested from
type SourcesConfig struct {
	Reddit RedditConfig `yaml:"reddit"`
	Arxiv  ArxivConfig  `yaml:"arxiv"`
}

type RedditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	Subreddit string `yaml:"subreddit"`
	Limit     int    `yaml:"limit"`
}

type ArxivConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	Query      string `yaml:"query"`
	Start      int    `yaml:"start"`
	MaxResults int    `yaml:"max_results"`
}

// PolitenessConfig holds politeness manager configuration
type PolitenessConfig struct {
	MinDelay            time.Duration `yaml:"min_delay"`
	Burst               int           `yaml:"burst"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	RobotsCacheDuration time.Duration `yaml:"robots_cache_duration"`
	EnableRobotsCheck   bool          `yaml:"enable_robots_check"`
	UserAgent           string        `yaml:"user_agent"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Name:          "basketball",
			Path:          "corpus.json",
			MinTextLength: 20,
		},
		Index: IndexConfig{
			UseTFIDF:       true,
			IDFMode:        "plain",
			Workers:        1,
			DefaultResults: 10,
			SnippetWidth:   60,
		},
		Sources: SourcesConfig{
			Reddit: RedditConfig{
				Enabled:   true,
				BaseURL:   "https://www.reddit.com",
				Subreddit: "Basketball",
				Limit:     10,
			},
			Arxiv: ArxivConfig{
				Enabled:    true,
				BaseURL:    "http://export.arxiv.org/api/query",
				Query:      "all:Basketball",
				Start:      0,
				MaxResults: 10,
			},
		},
		Politeness: PolitenessConfig{
			MinDelay:            1 * time.Second,
			Burst:               1,
			RequestTimeout:      30 * time.Second,
			RobotsCacheDuration: 24 * time.Hour,
			EnableRobotsCheck:   true,
			UserAgent:           "docsearch/1.0",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

// applyEnv overrides cfg with every variable that is set
func applyEnv(cfg *Config) {
	cfg.Corpus.Name = GetStringEnv("CORPUS_NAME", cfg.Corpus.Name)
	cfg.Corpus.Path = GetStringEnv("CORPUS_PATH", cfg.Corpus.Path)
	cfg.Corpus.MinTextLength = GetIntEnv("CORPUS_MIN_TEXT_LENGTH", cfg.Corpus.MinTextLength)

	cfg.Index.UseTFIDF = GetBoolEnv("INDEX_USE_TFIDF", cfg.Index.UseTFIDF)
	cfg.Index.IDFMode = GetStringEnv("INDEX_IDF_MODE", cfg.Index.IDFMode)
	cfg.Index.Workers = GetIntEnv("INDEX_WORKERS", cfg.Index.Workers)
	cfg.Index.DefaultResults = GetIntEnv("INDEX_DEFAULT_RESULTS", cfg.Index.DefaultResults)
	cfg.Index.SnippetWidth = GetIntEnv("INDEX_SNIPPET_WIDTH", cfg.Index.SnippetWidth)

	cfg.Sources.Reddit.Enabled = GetBoolEnv("REDDIT_ENABLED", cfg.Sources.Reddit.Enabled)
	cfg.Sources.Reddit.BaseURL = GetStringEnv("REDDIT_BASE_URL", cfg.Sources.Reddit.BaseURL)
	cfg.Sources.Reddit.Subreddit = GetStringEnv("REDDIT_SUBREDDIT", cfg.Sources.Reddit.Subreddit)
	cfg.Sources.Reddit.Limit = GetIntEnv("REDDIT_LIMIT", cfg.Sources.Reddit.Limit)

	cfg.Sources.Arxiv.Enabled = GetBoolEnv("ARXIV_ENABLED", cfg.Sources.Arxiv.Enabled)
	cfg.Sources.Arxiv.BaseURL = GetStringEnv("ARXIV_BASE_URL", cfg.Sources.Arxiv.BaseURL)
	cfg.Sources.Arxiv.Query = GetStringEnv("ARXIV_QUERY", cfg.Sources.Arxiv.Query)
	cfg.Sources.Arxiv.Start = GetIntEnv("ARXIV_START", cfg.Sources.Arxiv.Start)
	cfg.Sources.Arxiv.MaxResults = GetIntEnv("ARXIV_MAX_RESULTS", cfg.Sources.Arxiv.MaxResults)

	cfg.Politeness.MinDelay = GetDurationEnv("POLITENESS_MIN_DELAY", cfg.Politeness.MinDelay)
	cfg.Politeness.Burst = GetIntEnv("POLITENESS_BURST", cfg.Politeness.Burst)
	cfg.Politeness.RequestTimeout = GetDurationEnv("POLITENESS_REQUEST_TIMEOUT", cfg.Politeness.RequestTimeout)
	cfg.Politeness.RobotsCacheDuration = GetDurationEnv("POLITENESS_ROBOTS_CACHE_DURATION", cfg.Politeness.RobotsCacheDuration)
	cfg.Politeness.EnableRobotsCheck = GetBoolEnv("POLITENESS_ENABLE_ROBOTS_CHECK", cfg.Politeness.EnableRobotsCheck)
	cfg.Politeness.UserAgent = GetStringEnv("POLITENESS_USER_AGENT", cfg.Politeness.UserAgent)

	cfg.Server.Addr = GetStringEnv("SERVER_ADDR", cfg.Server.Addr)

	cfg.Log.Level = GetStringEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = GetBoolEnv("LOG_JSON", cfg.Log.JSON)
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
