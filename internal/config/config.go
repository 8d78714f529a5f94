package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/phoenix/internal/llm"
)

// EnvPrefix prefixes every environment override, e.g. PHOENIX_SERVER_ADDR.
const EnvPrefix = "PHOENIX"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Session  SessionConfig  `mapstructure:"session"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	EmbedModel        string        `mapstructure:"embed_model"`
	AnalysisTimeout   time.Duration `mapstructure:"analysis_timeout"`
	AnalysisWorkers   int           `mapstructure:"analysis_workers"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	TokensPerMinute   int           `mapstructure:"tokens_per_minute"`
}

// ProviderConfig converts c for the LLM factory.
func (c LLMConfig) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:          c.Provider,
		APIKey:            c.APIKey,
		Model:             c.Model,
		BaseURL:           c.BaseURL,
		EmbedModel:        c.EmbedModel,
		Timeout:           c.AnalysisTimeout,
		MaxRetries:        c.MaxRetries,
		RetryDelay:        time.Second,
		RequestsPerMinute: c.RequestsPerMinute,
		TokensPerMinute:   c.TokensPerMinute,
	}
}

type CatalogConfig struct {
	// Dir overlays fixture files on the embedded set when non-empty.
	Dir      string `mapstructure:"dir"`
	Fallback string `mapstructure:"fallback"`
}

type SessionConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SecretsConfig selects where credentials left empty in the config are read
// from: "env", "file" (a JSON object) or "vault" (KV v2).
type SecretsConfig struct {
	Provider     string        `mapstructure:"provider"`
	File         string        `mapstructure:"file"`
	VaultAddr    string        `mapstructure:"vault_addr"`
	VaultToken   string        `mapstructure:"vault_token"`
	VaultMount   string        `mapstructure:"vault_mount"`
	VaultPath    string        `mapstructure:"vault_path"`
	VaultTimeout time.Duration `mapstructure:"vault_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_bytes", int64(10<<20))
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4-turbo-preview")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.embed_model", "")
	v.SetDefault("llm.analysis_timeout", 30*time.Second)
	v.SetDefault("llm.analysis_workers", 4)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.requests_per_minute", 0)
	v.SetDefault("llm.tokens_per_minute", 0)

	v.SetDefault("catalog.dir", "")
	v.SetDefault("catalog.fallback", "cobol")

	v.SetDefault("session.ttl", time.Hour)
	v.SetDefault("session.max_sessions", 1000)

	v.SetDefault("graph.uri", "")
	v.SetDefault("graph.username", "neo4j")
	v.SetDefault("graph.password", "")

	v.SetDefault("vector.host", "")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "phoenix_uploads")

	v.SetDefault("temporal.host", "")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "phoenix-batch")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "phoenix")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "")

	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.file", "")
	v.SetDefault("secrets.vault_addr", "")
	v.SetDefault("secrets.vault_token", "")
	v.SetDefault("secrets.vault_mount", "secret")
	v.SetDefault("secrets.vault_path", "phoenix")
	v.SetDefault("secrets.vault_timeout", 10*time.Second)
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.APIKey == "" &&
		c.LLM.Provider != "ollama" && c.LLM.Provider != "custom" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' has no api_key; analysis runs in demo mode", c.LLM.Provider))
	}
	if c.Secrets.Provider == "vault" && (c.Secrets.VaultAddr == "" || c.Secrets.VaultToken == "") {
		warnings = append(warnings, "secrets.provider is vault but vault_addr or vault_token is empty")
	}
	if c.LLM.AnalysisTimeout <= 0 {
		warnings = append(warnings, "llm.analysis_timeout is not positive; the 30s default applies")
	}
	if c.Session.MaxSessions <= 0 {
		warnings = append(warnings, fmt.Sprintf("session.max_sessions %d disables the session cap", c.Session.MaxSessions))
	}
	if c.Server.MaxUploadBytes <= 0 {
		warnings = append(warnings, "server.max_upload_bytes is not positive; uploads are unbounded")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing.sample_rate %.2f is outside [0, 1]", c.Tracing.SampleRate))
	}
	if c.Graph.URI != "" && c.Graph.Password == "" {
		warnings = append(warnings, "graph.uri is set but graph.password is empty")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		warnings = append(warnings, fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	return warnings
}

// Load reads configuration from path, when given, and the environment.
// OPENAI_API_KEY, VAULT_ADDR and VAULT_TOKEN are honoured as fallbacks.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range map[string][]string{
		"llm.api_key":         {EnvPrefix + "_LLM_API_KEY", "OPENAI_API_KEY"},
		"secrets.vault_addr":  {EnvPrefix + "_SECRETS_VAULT_ADDR", "VAULT_ADDR"},
		"secrets.vault_token": {EnvPrefix + "_SECRETS_VAULT_TOKEN", "VAULT_TOKEN"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding env: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
