package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		ChatModel   string  `yaml:"chat_model"`
		EmbedModel  string  `yaml:"embed_model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Processor struct {
		ChunkSize         int     `yaml:"chunk_size"`
		ChunkOverlap      int     `yaml:"chunk_overlap"`
		MinChunkLength    int     `yaml:"min_chunk_length"`
		PageBatchSize     int     `yaml:"page_batch_size"`
		MaxPages          int     `yaml:"max_pages"`
		LargeFileMaxPages int     `yaml:"large_file_max_pages"`
		LargeFileMB       float64 `yaml:"large_file_mb"`
	} `yaml:"processor"`

	Embedding struct {
		DelayMS      int `yaml:"delay_ms"`
		ErrorDelayMS int `yaml:"error_delay_ms"`
		MaxTextLen   int `yaml:"max_text_len"`
	} `yaml:"embedding"`

	Search struct {
		SimilarityFloor  float64 `yaml:"similarity_floor"`
		MinEnglishLength int     `yaml:"min_english_length"`
		Oversample       int     `yaml:"oversample"`
	} `yaml:"search"`

	Ranker struct {
		Policy string `yaml:"policy"`
	} `yaml:"ranker"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Retry struct {
		MaxAttempts    int `yaml:"max_attempts"`
		BackoffBaseSec int `yaml:"backoff_base_sec"`
	} `yaml:"retry"`
}

func LoadConfig(path string) (*Config, error) {
	// Pick up a local .env before reading the environment. A missing file is fine.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/biharrag/config.yaml"),
			"/etc/biharrag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.ChatModel == "" {
		config.LLM.ChatModel = "mistral"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1500
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "bihar_chunks"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 50
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 800
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 100
	}
	if config.Processor.MinChunkLength == 0 {
		config.Processor.MinChunkLength = 50
	}
	if config.Processor.PageBatchSize == 0 {
		config.Processor.PageBatchSize = 3
	}
	if config.Processor.MaxPages == 0 {
		config.Processor.MaxPages = 100
	}
	if config.Processor.LargeFileMaxPages == 0 {
		config.Processor.LargeFileMaxPages = 50
	}
	if config.Processor.LargeFileMB == 0 {
		config.Processor.LargeFileMB = 8
	}

	if config.Embedding.DelayMS == 0 {
		config.Embedding.DelayMS = 500
	}
	if config.Embedding.ErrorDelayMS == 0 {
		config.Embedding.ErrorDelayMS = 1000
	}
	if config.Embedding.MaxTextLen == 0 {
		config.Embedding.MaxTextLen = 4000
	}

	if config.Search.SimilarityFloor == 0 {
		config.Search.SimilarityFloor = 0.3
	}
	if config.Search.MinEnglishLength == 0 {
		config.Search.MinEnglishLength = 100
	}
	if config.Search.Oversample == 0 {
		config.Search.Oversample = 3
	}

	if config.Ranker.Policy == "" {
		config.Ranker.Policy = "relaxed"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}

	if config.Retry.MaxAttempts == 0 {
		config.Retry.MaxAttempts = 3
	}
	if config.Retry.BackoffBaseSec == 0 {
		config.Retry.BackoffBaseSec = 2
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
