package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dshills/csr/internal/redact"
)

// DefaultPath is the config file consulted when neither --config nor
// CSR_CONFIG names one. A missing default file is not an error.
const DefaultPath = "csr.yaml"

// Config represents the csr configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Model     ModelConfig     `yaml:"model"`
	Standards StandardsConfig `yaml:"standards"`
	Policy    Policy          `yaml:"policy"`
	Prompts   Prompts         `yaml:"prompts"`
	Execution Execution       `yaml:"execution"`
	Cache     CacheConfig     `yaml:"cache"`
	Privacy   PrivacyConfig   `yaml:"privacy"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port" validate:"min=1,max=65535"`
	AuthToken        string `yaml:"auth_token" validate:"required"`
	MaxContentLength int    `yaml:"max_content_length" validate:"min=1"`
	CORSOrigins      string `yaml:"cors_origins"`
	ShutdownSeconds  int    `yaml:"shutdown_seconds" validate:"min=0"`
}

// ModelConfig selects and tunes the text-generation backend.
type ModelConfig struct {
	Provider       string  `yaml:"provider" validate:"oneof=openai ollama anthropic gemini"`
	ID             string  `yaml:"id" validate:"required"`
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	TimeoutSeconds float64 `yaml:"timeout_seconds" validate:"gt=0"`
	Temperature    float64 `yaml:"temperature" validate:"min=0,max=2"`
	JSONMode       bool    `yaml:"json_mode"`
	MaxTokens      int     `yaml:"max_tokens" validate:"min=1"`
	// RetryAttempts is the total number of attempts per invocation, on top of
	// the rate-limit retries each client performs.
	RetryAttempts int `yaml:"retry_attempts" validate:"min=1"`
}

// StandardsConfig locates the standards sets on disk.
type StandardsConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

// Execution selects how rules are presented to the model.
type Execution struct {
	// Mode is "multi" (one call carrying every retrieved rule) or "single"
	// (one call per rule).
	Mode           string `yaml:"mode" validate:"oneof=multi single"`
	Parallel       bool   `yaml:"parallel"`
	MaxConcurrency int    `yaml:"max_concurrency" validate:"min=1"`
}

// Execution modes.
const (
	ModeMulti  = "multi"
	ModeSingle = "single"
)

// CacheConfig controls the model reply cache.
type CacheConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Backend       string `yaml:"backend" validate:"oneof=file redis"`
	Dir           string `yaml:"dir,omitempty"`
	TTLSeconds    int    `yaml:"ttl_seconds" validate:"min=0"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db" validate:"min=0"`
	KeyPrefix     string `yaml:"key_prefix,omitempty"`
}

// PrivacyConfig controls redaction of content before it leaves the process.
type PrivacyConfig struct {
	RedactSecrets bool `yaml:"redact_secrets"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// TelemetryConfig controls OpenTelemetry export. Export is off unless an
// OTLP endpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             9020,
			AuthToken:        "demo-token",
			MaxContentLength: 50000,
			CORSOrigins:      "*",
			ShutdownSeconds:  10,
		},
		Model: ModelConfig{
			Provider:       "openai",
			ID:             "llama3",
			TimeoutSeconds: 30,
			Temperature:    0.1,
			JSONMode:       true,
			MaxTokens:      4096,
			RetryAttempts:  1,
		},
		Standards: StandardsConfig{Dir: "standards"},
		Policy:    DefaultPolicy(),
		Prompts:   DefaultPrompts(),
		Execution: Execution{
			Mode:           ModeMulti,
			Parallel:       true,
			MaxConcurrency: 4,
		},
		Cache: CacheConfig{
			Backend:    "file",
			TTLSeconds: 86400,
			RedisAddr:  "localhost:6379",
			KeyPrefix:  "csr:",
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{
			Insecure:    true,
			ServiceName: "csr",
		},
	}
}

// ResolvePath returns the config file to read and whether it must exist.
func ResolvePath(explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	if env := os.Getenv("CSR_CONFIG"); env != "" {
		return env, true
	}
	return DefaultPath, false
}

// LoadFile reads a YAML config file on top of base. A missing file is only
// an error when required is set.
func LoadFile(path string, required bool, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return base, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(path string, overrides map[string]string) (Config, error) {
	file, required := ResolvePath(path)
	cfg, err := LoadFile(file, required, Default())
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field bounds and the cross-field rules the struct tags
// cannot express.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, ok := cfg.Prompts.StrictnessInstructions[string(StrictnessMedium)]; !ok {
		return fmt.Errorf("invalid config: prompts.strictness_instructions must define %q", StrictnessMedium)
	}
	if _, err := semver.NewVersion(cfg.Policy.Version); err != nil {
		return fmt.Errorf("invalid config: policy.version %q: %w", cfg.Policy.Version, err)
	}
	return nil
}

// Masked returns a copy of cfg with credentials hidden, for logging and
// `config show`.
func (c Config) Masked() Config {
	out := c
	out.Server.AuthToken = redact.MaskValue("auth_token", c.Server.AuthToken)
	if c.Model.APIKey != "" {
		out.Model.APIKey = redact.MaskValue("api_key", c.Model.APIKey)
	}
	if c.Cache.RedisPassword != "" {
		out.Cache.RedisPassword = redact.MaskValue("redis_password", c.Cache.RedisPassword)
	}
	return out
}

// envSetters maps flat CSR_* variables onto config fields.
var envSetters = map[string]func(*Config, string) error{
	"CSR_HOST":               func(c *Config, v string) error { c.Server.Host = v; return nil },
	"CSR_PORT":               intSetter(func(c *Config) *int { return &c.Server.Port }),
	"CSR_AUTH_TOKEN":         func(c *Config, v string) error { c.Server.AuthToken = v; return nil },
	"CSR_MAX_CONTENT_LENGTH": intSetter(func(c *Config) *int { return &c.Server.MaxContentLength }),
	"CSR_CORS_ORIGINS":       func(c *Config, v string) error { c.Server.CORSOrigins = v; return nil },
	"CSR_MODEL_PROVIDER":     func(c *Config, v string) error { c.Model.Provider = v; return nil },
	"CSR_MODEL_ID":           func(c *Config, v string) error { c.Model.ID = v; return nil },
	"CSR_MODEL_BASE_URL":     func(c *Config, v string) error { c.Model.BaseURL = v; return nil },
	"CSR_OLLAMA_BASE_URL":    func(c *Config, v string) error { c.Model.BaseURL = v; return nil },
	"CSR_MODEL_API_KEY":      func(c *Config, v string) error { c.Model.APIKey = v; return nil },
	"CSR_MODEL_TIMEOUT":      floatSetter(func(c *Config) *float64 { return &c.Model.TimeoutSeconds }),
	"CSR_MODEL_TEMPERATURE":  floatSetter(func(c *Config) *float64 { return &c.Model.Temperature }),
	"CSR_MODEL_JSON_MODE":    boolSetter(func(c *Config) *bool { return &c.Model.JSONMode }),
	"CSR_STANDARDS_DIR":      func(c *Config, v string) error { c.Standards.Dir = v; return nil },
	"CSR_POLICY_VERSION":     func(c *Config, v string) error { c.Policy.Version = v; return nil },
	"CSR_EXECUTION_MODE":     func(c *Config, v string) error { c.Execution.Mode = v; return nil },
	"CSR_EXECUTION_PARALLEL": boolSetter(func(c *Config) *bool { return &c.Execution.Parallel }),
	"CSR_CACHE_ENABLED":      boolSetter(func(c *Config) *bool { return &c.Cache.Enabled }),
	"CSR_CACHE_BACKEND":      func(c *Config, v string) error { c.Cache.Backend = v; return nil },
	"CSR_REDIS_ADDR":         func(c *Config, v string) error { c.Cache.RedisAddr = v; return nil },
	"CSR_REDACT_SECRETS":     boolSetter(func(c *Config) *bool { return &c.Privacy.RedactSecrets }),
	"CSR_LOG_LEVEL":          func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	"CSR_LOG_FORMAT":         func(c *Config, v string) error { c.Log.Format = v; return nil },
	"CSR_OTLP_ENDPOINT":      func(c *Config, v string) error { c.Telemetry.OTLPEndpoint = v; return nil },

	"CSR_POLICY_RETRIEVAL_K_LOW":              intSetter(func(c *Config) *int { return &c.Policy.Retrieval.KLow }),
	"CSR_POLICY_RETRIEVAL_K_MEDIUM":           intSetter(func(c *Config) *int { return &c.Policy.Retrieval.KMedium }),
	"CSR_POLICY_RETRIEVAL_K_HIGH":             intSetter(func(c *Config) *int { return &c.Policy.Retrieval.KHigh }),
	"CSR_POLICY_THRESHOLDS_VIOLATION_LOW":     floatSetter(func(c *Config) *float64 { return &c.Policy.Thresholds.ViolationLow }),
	"CSR_POLICY_THRESHOLDS_VIOLATION_MEDIUM":  floatSetter(func(c *Config) *float64 { return &c.Policy.Thresholds.ViolationMedium }),
	"CSR_POLICY_THRESHOLDS_VIOLATION_HIGH":    floatSetter(func(c *Config) *float64 { return &c.Policy.Thresholds.ViolationHigh }),
	"CSR_POLICY_DEFAULTS_MIN_CONFIDENCE":      floatSetter(func(c *Config) *float64 { return &c.Policy.Defaults.MinConfidence }),
	"CSR_POLICY_DEFAULTS_MAX_OBSERVATIONS":    intSetter(func(c *Config) *int { return &c.Policy.Defaults.MaxObservations }),
	"CSR_EXECUTION_MAX_CONCURRENCY":           intSetter(func(c *Config) *int { return &c.Execution.MaxConcurrency }),
}

func mergeEnv(cfg *Config) error {
	for key, set := range envSetters {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		if err := set(cfg, v); err != nil {
			return fmt.Errorf("environment %s: %w", key, err)
		}
	}
	return nil
}

// overrideKeys are the flag-backed keys accepted by Load and SetField.
var overrideKeys = map[string]func(*Config, string) error{
	"host":            envSetters["CSR_HOST"],
	"port":            envSetters["CSR_PORT"],
	"provider":        envSetters["CSR_MODEL_PROVIDER"],
	"model":           envSetters["CSR_MODEL_ID"],
	"baseURL":         envSetters["CSR_MODEL_BASE_URL"],
	"standardsDir":    envSetters["CSR_STANDARDS_DIR"],
	"mode":            envSetters["CSR_EXECUTION_MODE"],
	"parallel":        envSetters["CSR_EXECUTION_PARALLEL"],
	"logLevel":        envSetters["CSR_LOG_LEVEL"],
	"logFormat":       envSetters["CSR_LOG_FORMAT"],
	"authToken":       envSetters["CSR_AUTH_TOKEN"],
	"policyVersion":   envSetters["CSR_POLICY_VERSION"],
	"cacheEnabled":    envSetters["CSR_CACHE_ENABLED"],
	"cacheBackend":    envSetters["CSR_CACHE_BACKEND"],
	"redactSecrets":   envSetters["CSR_REDACT_SECRETS"],
	"modelTimeout":    envSetters["CSR_MODEL_TIMEOUT"],
	"maxConcurrency":  envSetters["CSR_EXECUTION_MAX_CONCURRENCY"],
	"maxObservations": envSetters["CSR_POLICY_DEFAULTS_MAX_OBSERVATIONS"],
	"minConfidence":   envSetters["CSR_POLICY_DEFAULTS_MIN_CONFIDENCE"],
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	set, ok := overrideKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err := set(cfg, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// Keys returns the keys accepted by SetField.
func Keys() []string {
	keys := make([]string, 0, len(overrideKeys))
	for k := range overrideKeys {
		keys = append(keys, k)
	}
	return keys
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("must be an integer: %w", err)
		}
		*field(c) = n
		return nil
	}
}

func floatSetter(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("must be a number: %w", err)
		}
		*field(c) = f
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("must be a boolean: %w", err)
		}
		*field(c) = b
		return nil
	}
}
