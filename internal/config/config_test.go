package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":8001" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Retrieval.TopK != 2 || cfg.Retrieval.MinScore != 0.75 || cfg.Retrieval.MaxContextChars != 800 {
		t.Errorf("retrieval defaults wrong: %+v", cfg.Retrieval)
	}
	if cfg.Chunker.Size != 1000 || cfg.Chunker.Overlap != 150 {
		t.Errorf("chunker defaults wrong: %+v", cfg.Chunker)
	}
	if cfg.VectorStore.Type != "qdrant" || cfg.VectorStore.Qdrant.Collection != "ghostnet_docs" {
		t.Errorf("vector store defaults wrong: %+v", cfg.VectorStore)
	}
	if cfg.Generation.NumCtx != 512 || cfg.Generation.NumThread != 6 {
		t.Errorf("generation defaults wrong: %+v", cfg.Generation)
	}
}

func TestLoad_FileValuesKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  addr: ":9000"
retrieval:
  top_k: 7
vector_store:
  type: memory
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Retrieval.TopK != 7 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.VectorStore.Type != "memory" {
		t.Errorf("store type = %q", cfg.VectorStore.Type)
	}
	// untouched fields still get defaults
	if cfg.Retrieval.MinScore != 0.75 {
		t.Errorf("min_score default missing: %v", cfg.Retrieval.MinScore)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GHOSTNET_API_KEY", "secret-token")
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "custom_docs")
	t.Setenv("CHUNK_SIZE", "500")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.APIKey != "secret-token" {
		t.Errorf("api key = %q", cfg.Server.APIKey)
	}
	if cfg.VectorStore.Qdrant.URL != "http://qdrant:6333" || cfg.VectorStore.Qdrant.Collection != "custom_docs" {
		t.Errorf("qdrant env overrides not applied: %+v", cfg.VectorStore.Qdrant)
	}
	if cfg.Chunker.Size != 500 {
		t.Errorf("chunk size = %d", cfg.Chunker.Size)
	}
}
