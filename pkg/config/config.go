package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Extract   ExtractConfig
	Chunk     ChunkConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Milvus    MilvusConfig
	Redis     RedisConfig
	SQLite    SQLiteConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type ExtractConfig struct {
	TimeoutSec       int
	UserAgent        string
	MinContentLength int
	Workers          int
	MaxURLsPerBatch  int
}

type ChunkConfig struct {
	Size    int
	Overlap int
}

type EmbeddingConfig struct {
	APIKey string
	Model  string
	Dim    int
}

type LLMConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxTokens       int
	AzureAPIKey     string
	AzureEndpoint   string
	AzureAPIVersion string
	AzureDeployment string
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type SQLiteConfig struct {
	Path string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	// Credentials live in .env during local development. A missing file
	// is fine; the process environment wins either way.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/websage")

	viper.SetEnvPrefix("WEBSAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindCredentialEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// bindCredentialEnv maps the conventional provider variable names so users
// can keep the same .env they already use with the hosted services.
func bindCredentialEnv() {
	viper.BindEnv("llm.apikey", "OPENAI_API_KEY")
	viper.BindEnv("llm.azureapikey", "AZURE_OPENAI_API_KEY")
	viper.BindEnv("llm.azureendpoint", "AZURE_OPENAI_ENDPOINT")
	viper.BindEnv("llm.azureapiversion", "AZURE_OPENAI_API_VERSION")
	viper.BindEnv("llm.azuredeployment", "AZURE_OPENAI_DEPLOYMENT_NAME")
	viper.BindEnv("embedding.apikey", "OPENAI_API_KEY")
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("extract.timeoutSec", 15)
	viper.SetDefault("extract.userAgent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	viper.SetDefault("extract.minContentLength", 10)
	viper.SetDefault("extract.workers", 5)
	viper.SetDefault("extract.maxURLsPerBatch", 20)

	viper.SetDefault("chunk.size", 1000)
	viper.SetDefault("chunk.overlap", 200)

	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dim", 1536)

	viper.SetDefault("llm.model", "gpt-3.5-turbo")
	viper.SetDefault("llm.temperature", 0)
	viper.SetDefault("llm.maxTokens", 1024)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "websage_segments")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 3600)

	viper.SetDefault("sqlite.path", "./data/websage.db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
