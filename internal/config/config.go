package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

// OllamaConfig holds the embedding and chat model backends.
type OllamaConfig struct {
	URL              string `yaml:"url"`
	ChatModel        string `yaml:"chat_model"`
	EmbedModel       string `yaml:"embed_model"`
	EmbedTimeoutSecs int    `yaml:"embed_timeout_secs"`
	ChatTimeoutSecs  int    `yaml:"chat_timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrievalConfig bounds what retrieval feeds into the model context.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k"`
	MinScore        float64 `yaml:"min_score"`
	MaxContextChars int     `yaml:"max_context_chars"`
}

// ChunkerConfig configures how ingested texts are split.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// GenerationConfig are the options forwarded to the chat model.
type GenerationConfig struct {
	NumCtx        int     `yaml:"num_ctx"`
	NumPredict    int     `yaml:"num_predict"`
	Temperature   float64 `yaml:"temperature"`
	RepeatPenalty float64 `yaml:"repeat_penalty"`
	NumThread     int     `yaml:"num_thread"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Generation  GenerationConfig  `yaml:"generation"`
	LogLevel    string            `yaml:"log_level"`
}

// Load reads a config from the given path. A missing file yields defaults.
// Environment variables override the file for deployment secrets and
// endpoints, so a container can run without any config file at all.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	setString(&cfg.Server.Addr, "GHOSTNET_ADDR")
	setString(&cfg.Server.APIKey, "GHOSTNET_API_KEY")
	setString(&cfg.Ollama.URL, "OLLAMA_URL")
	setString(&cfg.Ollama.ChatModel, "CHAT_MODEL")
	setString(&cfg.Ollama.EmbedModel, "EMBED_MODEL")
	if v := os.Getenv("QDRANT_URL"); v != "" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		cfg.VectorStore.Type = "qdrant"
		cfg.VectorStore.Qdrant.URL = v
	}
	if cfg.VectorStore.Qdrant != nil {
		setString(&cfg.VectorStore.Qdrant.APIKey, "QDRANT_API_KEY")
		setString(&cfg.VectorStore.Qdrant.Collection, "QDRANT_COLLECTION")
	}
	setInt(&cfg.Retrieval.TopK, "RETRIEVAL_TOP_K")
	setInt(&cfg.Chunker.Size, "CHUNK_SIZE")
	setInt(&cfg.Chunker.Overlap, "CHUNK_OVERLAP")
	setString(&cfg.LogLevel, "LOG_LEVEL")
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8001"
	}
	if cfg.Server.APIKey == "" {
		cfg.Server.APIKey = "change-me"
	}
	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = "http://localhost:11434"
	}
	if cfg.Ollama.ChatModel == "" {
		cfg.Ollama.ChatModel = "llama3.2:1b"
	}
	if cfg.Ollama.EmbedModel == "" {
		cfg.Ollama.EmbedModel = "nomic-embed-text"
	}
	if cfg.Ollama.EmbedTimeoutSecs == 0 {
		cfg.Ollama.EmbedTimeoutSecs = 120
	}
	if cfg.Ollama.ChatTimeoutSecs == 0 {
		cfg.Ollama.ChatTimeoutSecs = 120
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "qdrant"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "ghostnet_docs"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 2
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = 0.75
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 800
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 150
	}
	if cfg.Generation.NumCtx == 0 {
		cfg.Generation.NumCtx = 512
	}
	if cfg.Generation.NumPredict == 0 {
		cfg.Generation.NumPredict = 64
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.6
	}
	if cfg.Generation.RepeatPenalty == 0 {
		cfg.Generation.RepeatPenalty = 1.1
	}
	if cfg.Generation.NumThread == 0 {
		cfg.Generation.NumThread = 6
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
