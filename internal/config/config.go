package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Artifacts   ArtifactConfig
	Ai          AIConfig
	Worker      WorkerConfig
	Storage     StorageConfig
	ResultStore ResultStoreConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	ProgressLogPath    string
	LogLevel           string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	AuthEnabled        bool
	MaxUploadSizeMB    int
	AllowedFileTypes   string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string // empty => in-memory record store
}

// ArtifactConfig points at the pre-built retrieval artifacts. Every path is optional.
type ArtifactConfig struct {
	ManifestPath        string
	IndexPath           string
	IndexMetric         string // "l2" | "ip" | "cosine"
	IndexBackend        string // "flat" | "pgvector"
	EmbeddingsPath      string
	CaseMetadataPath    string
	GraphPath           string
	TripletsPath        string
	OntologyPath        string
	EmbeddingConfigPath string
}

type AIConfig struct {
	EmbeddingProvider  string // "ollama" or "random"
	EmbeddingDimension int
	OllamaBaseURL      string
	OllamaModel        string
	EmbeddingApiKey    string
	LLMProvider        string // "ollama", "openai", "perplexity", "hf", "mock"
	LLMModel           string
	LLMBaseURL         string
	LLMApiKey          string
}

type WorkerConfig struct {
	PoolSize          int
	Topic             string
	SoftTimeout       time.Duration
	HardTimeout       time.Duration
	ParallelRetrieval bool
}

type StorageConfig struct {
	Provider string // "local" | "redis"
	Path     string
}

type ResultStoreConfig struct {
	Provider string // "memory" | "redis"
	TTL      time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			ProgressLogPath:    getEnv("PROGRESS_LOG_PATH", "logs/progress.log"),
			LogLevel:           getEnv("LOG_LEVEL", "debug"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			AuthEnabled:        getEnvAsBool("AUTH_ENABLED", false),
			MaxUploadSizeMB:    getEnvAsInt("MAX_FILE_SIZE_MB", 200),
			AllowedFileTypes:   getEnv("ALLOWED_FILE_TYPES", "pdf,docx,json,dicom,txt"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Artifacts: ArtifactConfig{
			ManifestPath:        getEnv("ARTIFACTS_MANIFEST", ""),
			IndexPath:           getEnv("VECTOR_INDEX_PATH", "../medrag_outputs/vector_index.msgpack"),
			IndexMetric:         getEnv("VECTOR_INDEX_METRIC", "l2"),
			IndexBackend:        getEnv("VECTOR_INDEX_BACKEND", "flat"),
			EmbeddingsPath:      getEnv("EMBEDDINGS_PATH", "../medrag_outputs/embeddings.msgpack"),
			CaseMetadataPath:    getEnv("CASE_METADATA_PATH", "../medrag_outputs/case_metadata.json"),
			GraphPath:           getEnv("KNOWLEDGE_GRAPH_PATH", "../medrag_outputs/knowledge_graph.msgpack"),
			TripletsPath:        getEnv("TRIPLETS_PATH", "../medrag_outputs/triplets.json"),
			OntologyPath:        getEnv("DISEASE_ONTOLOGY_PATH", "../medrag_outputs/disease_ontology.json"),
			EmbeddingConfigPath: getEnv("EMBEDDING_CONFIG_PATH", "../medrag_outputs/embedding_config.json"),
		},
		Ai: AIConfig{
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "random"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 384),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("OLLAMA_EMBEDDING_MODEL", "all-minilm"),
			EmbeddingApiKey:    getEnv("EMBEDDING_API_KEY", ""),
			LLMProvider:        getEnv("LLM_PROVIDER", "mock"),
			LLMModel:           getEnv("LLM_MODEL", "sonar-pro"),
			LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
			LLMApiKey:          getEnv("LLM_API_KEY", ""),
		},
		Worker: WorkerConfig{
			PoolSize:          getEnvAsInt("WORKER_POOL_SIZE", 4),
			Topic:             getEnv("DIAGNOSIS_TOPIC_NAME", "DIAGNOSIS_JOBS"),
			SoftTimeout:       getEnvAsDuration("JOB_SOFT_TIMEOUT", 25*time.Minute),
			HardTimeout:       getEnvAsDuration("JOB_HARD_TIMEOUT", 30*time.Minute),
			ParallelRetrieval: getEnvAsBool("PARALLEL_RETRIEVAL", false),
		},
		Storage: StorageConfig{
			Provider: getEnv("STORAGE_PROVIDER", "local"),
			Path:     getEnv("STORAGE_PATH", "./storage"),
		},
		ResultStore: ResultStoreConfig{
			Provider: getEnv("RESULT_STORE_PROVIDER", "memory"),
			TTL:      getEnvAsDuration("RESULT_TTL", 24*time.Hour),
		},
	}

	if cfg.Artifacts.ManifestPath != "" {
		if err := ApplyManifest(&cfg.Artifacts, cfg.Artifacts.ManifestPath); err != nil {
			log.Printf("[WARN] Failed to apply artifact manifest %s: %v", cfg.Artifacts.ManifestPath, err)
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
