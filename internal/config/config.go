package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DBDriverMySQL    = "mysql"
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	StoreBackendSQL   = "sql"
	StoreBackendNeo4j = "neo4j"

	SessionStoreRedis  = "redis"
	SessionStoreCookie = "cookie"

	LLMProviderOpenAI           = "openai"
	LLMProviderMistral          = "mistral"
	LLMProviderAnthropic        = "anthropic"
	LLMProviderAnthropicBedrock = "anthropic-bedrock"
)

type Config struct {
	DBDriver   string `mapstructure:"db_driver"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBPath     string `mapstructure:"db_path"`

	StoreBackend  string `mapstructure:"store_backend"`
	Neo4jURI      string `mapstructure:"neo4j_uri"`
	Neo4jUser     string `mapstructure:"neo4j_user"`
	Neo4jPassword string `mapstructure:"neo4j_password"`
	Neo4jDatabase string `mapstructure:"neo4j_database"`

	SessionStore  string `mapstructure:"session_store"`
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	SessionSecret string `mapstructure:"session_secret"`

	GinMode    string `mapstructure:"gin_mode"`
	ServerPort string `mapstructure:"server_port"`
	CORSOrigin string `mapstructure:"cors_origin"`

	LLMProvider     string        `mapstructure:"llm_provider"`
	LLMModel        string        `mapstructure:"llm_model"`
	LLMTimeout      time.Duration `mapstructure:"llm_timeout"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	MistralAPIKey   string        `mapstructure:"mistral_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	AWSRegion       string        `mapstructure:"aws_region"`
	AWSProfile      string        `mapstructure:"aws_profile"`
}

var defaults = map[string]interface{}{
	"db_driver":         DBDriverMySQL,
	"db_host":           "localhost",
	"db_port":           "3306",
	"db_user":           "taskuser",
	"db_password":       "taskpassword",
	"db_name":           "task_management",
	"db_path":           "tasks.db",
	"store_backend":     StoreBackendSQL,
	"neo4j_uri":         "neo4j://localhost:7687",
	"neo4j_user":        "neo4j",
	"neo4j_password":    "password",
	"neo4j_database":    "neo4j",
	"session_store":     SessionStoreRedis,
	"redis_host":        "localhost",
	"redis_port":        "6379",
	"session_secret":    "default-secret-key-change-me",
	"gin_mode":          "debug",
	"server_port":       "8080",
	"cors_origin":       "http://localhost:3000",
	"llm_provider":      LLMProviderOpenAI,
	"llm_model":         "",
	"llm_timeout":       60 * time.Second,
	"openai_api_key":    "",
	"mistral_api_key":   "",
	"anthropic_api_key": "",
	"aws_region":        "",
	"aws_profile":       "",
}

// Load reads the configuration. Environment variables (DB_HOST, OPENAI_API_KEY, ...)
// take precedence over the optional config file, which takes precedence over defaults.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects unknown enum values
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DBDriverMySQL, DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("invalid db_driver %q", c.DBDriver)
	}

	switch c.StoreBackend {
	case StoreBackendSQL, StoreBackendNeo4j:
	default:
		return fmt.Errorf("invalid store_backend %q", c.StoreBackend)
	}

	switch c.SessionStore {
	case SessionStoreRedis, SessionStoreCookie:
	default:
		return fmt.Errorf("invalid session_store %q", c.SessionStore)
	}

	switch c.LLMProvider {
	case LLMProviderOpenAI, LLMProviderMistral, LLMProviderAnthropic, LLMProviderAnthropicBedrock:
	default:
		return fmt.Errorf("invalid llm_provider %q", c.LLMProvider)
	}

	if c.LLMTimeout <= 0 {
		return fmt.Errorf("llm_timeout must be positive, got %s", c.LLMTimeout)
	}

	if strings.TrimSpace(c.CORSOrigin) != "" && len(c.CORSOrigins()) == 0 {
		return fmt.Errorf("cors_origin %q names no origin", c.CORSOrigin)
	}

	return nil
}

// LLMAPIKey returns the API key of the selected provider. Bedrock
// authenticates through the AWS credential chain and has none.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case LLMProviderOpenAI:
		return c.OpenAIAPIKey
	case LLMProviderMistral:
		return c.MistralAPIKey
	case LLMProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

// CORSOrigins splits CORS_ORIGIN on commas, dropping blank entries.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
