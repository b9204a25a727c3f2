// Package config loads the Retrace configuration from a YAML file, a
// .env file and the process environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Version is reported by the health endpoint and the CLI.
const Version = "1.0.0"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Database  DatabaseConfig  `yaml:"database"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Answer    AnswerConfig    `yaml:"answer"`
	Scraper   ScraperConfig   `yaml:"scraper"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LLMConfig configures the generation capability. The capability counts
// as configured only when APIKey is non-empty.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Configured reports whether the generation capability has a credential.
func (c LLMConfig) Configured() bool {
	return c.APIKey != ""
}

type EmbeddingConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type DatabaseConfig struct {
	// Driver selects the chunk store: "memory" or "pgvector".
	Driver    string `yaml:"driver"`
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
	BatchSize int    `yaml:"batch_size"`
}

type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig bounds how many chunks each answer mode may pull into
// a synthesis prompt.
type RetrievalConfig struct {
	StrictTopK   int `yaml:"strict_top_k"`
	FreeformTopK int `yaml:"freeform_top_k"`
	LegacyTopK   int `yaml:"legacy_top_k"`
}

type AnswerConfig struct {
	// PreviewLength truncates raw chunk snippets rendered for direct
	// human display (fallback and unconfigured answers), in runes.
	PreviewLength int `yaml:"preview_length"`
}

type ScraperConfig struct {
	MaxDepth       int           `yaml:"max_depth"`
	RateLimit      float64       `yaml:"rate_limit"`
	IgnorePatterns []string      `yaml:"ignore_patterns"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Load reads the config file at path, falling back to default locations
// when path is empty; a missing file yields the built-in defaults.
// A .env file and the environment are merged on top.
//
// The file is unmarshaled over a fully populated default config, so an
// absent field keeps its default while an explicit zero (for example
// chunk_overlap: 0 or temperature: 0) stays zero.
func Load(path string) (*Config, error) {
	// Best effort; absence of a .env file is not an error.
	_ = godotenv.Load()

	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/retrace/config.yaml"),
			"/etc/retrace/config.yaml",
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	mergeWithEnv(config)
	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-3.5-turbo",
			MaxTokens:   1024,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			BaseURL: "http://localhost:11434",
			Model:   "nomic-embed-text:latest",
		},
		Database: DatabaseConfig{
			Driver:    "memory",
			TableName: "chunks",
			VectorDim: 768,
			BatchSize: 100,
		},
		Chunker: ChunkerConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			StrictTopK:   15,
			FreeformTopK: 5,
			LegacyTopK:   3,
		},
		Answer: AnswerConfig{
			PreviewLength: 180,
		},
		Scraper: ScraperConfig{
			MaxDepth:  3,
			RateLimit: 2.0,
			Timeout:   30 * time.Second,
		},
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
		if config.Database.Driver == "memory" {
			config.Database.Driver = "pgvector"
		}
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}
	if baseURL := os.Getenv("LLM_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
}
