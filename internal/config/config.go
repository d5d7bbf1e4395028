// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for fipepro.
//
// Configuration is assembled from, in order of precedence:
//   - Environment variables (FIPEPRO_*, plus the backend and AI secrets)
//   - A .env file in the working directory
//   - ~/.fipepro/config.toml
//   - Built-in defaults
//
// Missing secrets never fail loading. Each feature that depends on one is
// switched off instead and reported through Warnings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/fipepro/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete fipepro configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Pricing provider
	Pricing PricingConfig `toml:"pricing" json:"pricing"`

	// Managed auth/database backend (favorites)
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Generative-AI commentary
	Insight InsightConfig `toml:"insight" json:"insight"`

	// On-device slot storage (history)
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Selection flow behavior
	Flow FlowConfig `toml:"flow" json:"flow"`

	UI     UIConfig     `toml:"ui" json:"ui"`
	Server ServerConfig `toml:"server" json:"server"`
	Log    LogConfig    `toml:"log" json:"log"`
}

// PricingConfig configures the vehicle pricing API client.
type PricingConfig struct {
	BaseURL     string `toml:"base_url" json:"base_url"`
	Token       string `toml:"token" json:"token"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
}

// Timeout returns the per-request timeout as a duration.
func (p PricingConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// BackendConfig configures the managed auth/database backend.
type BackendConfig struct {
	URL     string `toml:"url" json:"url"`
	AnonKey string `toml:"anon_key" json:"anon_key"`

	// ConfirmEmail records whether the backend project requires email
	// confirmation before a new account can sign in.
	ConfirmEmail bool `toml:"confirm_email" json:"confirm_email"`

	// VerificationCode enables the one-time email code step on sign-up
	// and password reset.
	VerificationCode bool `toml:"verification_code" json:"verification_code"`

	FavoritesTable string `toml:"favorites_table" json:"favorites_table"`
}

// InsightConfig configures the AI commentary generator.
type InsightConfig struct {
	// Provider is "gemini" or "ollama".
	Provider string `toml:"provider" json:"provider"`

	APIKey      string `toml:"api_key" json:"api_key"`
	Model       string `toml:"model" json:"model"`
	BaseURL     string `toml:"base_url" json:"base_url"`
	OllamaURL   string `toml:"ollama_url" json:"ollama_url"`
	OllamaModel string `toml:"ollama_model" json:"ollama_model"`

	// Location is the free-text region hint embedded in the prompt.
	Location    string `toml:"location" json:"location"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
}

// StorageConfig selects the slot storage backend.
type StorageConfig struct {
	// Backend is "file" (JSON document) or "sqlite".
	Backend string `toml:"backend" json:"backend"`

	// Path overrides the default location under the config directory.
	Path string `toml:"path" json:"path"`
}

// FlowConfig configures the selection flow.
type FlowConfig struct {
	// Order is "model-first" (brand, model, year) or "year-first"
	// (brand, year, model).
	Order string `toml:"order" json:"order"`

	// DiscardStale drops fetch results that resolve after a newer
	// selection superseded them.
	DiscardStale bool `toml:"discard_stale" json:"discard_stale"`

	// DefaultCategory is preselected on start ("car", "motorcycle", "truck").
	DefaultCategory string `toml:"default_category" json:"default_category"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	Theme   string `toml:"theme" json:"theme"`
	Compact bool   `toml:"compact" json:"compact"`
}

// ServerConfig configures the local JSON API.
type ServerConfig struct {
	Addr           string   `toml:"addr" json:"addr"`
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	RatePerSecond  float64  `toml:"rate_per_second" json:"rate_per_second"`
	RateBurst      int      `toml:"rate_burst" json:"rate_burst"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// CurrentVersion is the config schema version.
	CurrentVersion = "1"

	DefaultPricingURL     = "https://fipe.parallelum.com.br/api/v2"
	DefaultGeminiURL      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel    = "gemini-3-flash-preview"
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultOllamaModel    = "qwen2.5:7b"
	DefaultFavoritesTable = "favorites"
	DefaultServerAddr     = "127.0.0.1:8787"

	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	StorageFile   = "file"
	StorageSQLite = "sqlite"

	OrderModelFirst = "model-first"
	OrderYearFirst  = "year-first"
)

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Pricing: PricingConfig{
			BaseURL:     DefaultPricingURL,
			TimeoutSecs: 20,
		},
		Backend: BackendConfig{
			ConfirmEmail:   true,
			FavoritesTable: DefaultFavoritesTable,
		},
		Insight: InsightConfig{
			Provider:    ProviderGemini,
			Model:       DefaultGeminiModel,
			BaseURL:     DefaultGeminiURL,
			OllamaURL:   DefaultOllamaURL,
			OllamaModel: DefaultOllamaModel,
			TimeoutSecs: 60,
		},
		Storage: StorageConfig{
			Backend: StorageFile,
		},
		Flow: FlowConfig{
			Order:           OrderModelFirst,
			DiscardStale:    true,
			DefaultCategory: "car",
		},
		UI: UIConfig{
			Theme: "auto",
		},
		Server: ServerConfig{
			Addr:           DefaultServerAddr,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RatePerSecond:  5,
			RateBurst:      20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the fipepro directory. FIPEPRO_HOME overrides the
// default of ~/.fipepro.
func ConfigDir() (string, error) {
	if dir := os.Getenv("FIPEPRO_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".fipepro"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	return inConfigDir("config.toml")
}

// SessionPath returns the path of the persisted backend session.
func SessionPath() (string, error) {
	return inConfigDir("session.json")
}

// LogPath returns the log file path, honoring [log] file.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	return inConfigDir("fipepro.log")
}

// StoragePath returns the slot storage location for the configured backend.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	if c.Storage.Backend == StorageSQLite {
		return inConfigDir("storage.db")
	}
	return inConfigDir("storage.json")
}

// EnsureConfigDir creates the config directory with private permissions.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads ~/.fipepro/config.toml when it exists and falls back to
// defaults otherwise. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from a specific TOML file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return finish(cfg)
}

// Parse decodes TOML text. Used by tests and by `config set` round trips.
func Parse(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any empty values with defaults.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.Version == "" {
		cfg.Version = d.Version
	}
	if cfg.Pricing.BaseURL == "" {
		cfg.Pricing.BaseURL = d.Pricing.BaseURL
	}
	if cfg.Pricing.TimeoutSecs <= 0 {
		cfg.Pricing.TimeoutSecs = d.Pricing.TimeoutSecs
	}
	if cfg.Backend.FavoritesTable == "" {
		cfg.Backend.FavoritesTable = d.Backend.FavoritesTable
	}
	if cfg.Insight.Provider == "" {
		cfg.Insight.Provider = d.Insight.Provider
	}
	if cfg.Insight.Model == "" {
		cfg.Insight.Model = d.Insight.Model
	}
	if cfg.Insight.BaseURL == "" {
		cfg.Insight.BaseURL = d.Insight.BaseURL
	}
	if cfg.Insight.OllamaURL == "" {
		cfg.Insight.OllamaURL = d.Insight.OllamaURL
	}
	if cfg.Insight.OllamaModel == "" {
		cfg.Insight.OllamaModel = d.Insight.OllamaModel
	}
	if cfg.Insight.TimeoutSecs <= 0 {
		cfg.Insight.TimeoutSecs = d.Insight.TimeoutSecs
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = d.Storage.Backend
	}
	if cfg.Flow.Order == "" {
		cfg.Flow.Order = d.Flow.Order
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
	if cfg.Server.RatePerSecond <= 0 {
		cfg.Server.RatePerSecond = d.Server.RatePerSecond
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = d.Server.RateBurst
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
}

// ensureSecurePermissions tightens the config file to 0600 since it may
// hold API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to ~/.fipepro/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration as TOML with 0600 permissions.
func SaveTo(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# fipepro configuration\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateURL(c.Pricing.BaseURL, false); err != nil {
		errs = append(errs, ValidationError{Field: "pricing.base_url", Message: err.Error()})
	}
	if c.Backend.URL != "" {
		if err := validateURL(c.Backend.URL, false); err != nil {
			errs = append(errs, ValidationError{Field: "backend.url", Message: err.Error()})
		}
	}

	switch strings.ToLower(c.Insight.Provider) {
	case ProviderGemini, ProviderOllama:
	default:
		errs = append(errs, ValidationError{
			Field:   "insight.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: gemini, ollama", c.Insight.Provider),
		})
	}
	if err := validateURL(c.Insight.OllamaURL, true); err != nil {
		errs = append(errs, ValidationError{Field: "insight.ollama_url", Message: err.Error()})
	}

	switch c.Storage.Backend {
	case StorageFile, StorageSQLite:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite", c.Storage.Backend),
		})
	}

	switch c.Flow.Order {
	case OrderModelFirst, OrderYearFirst:
	default:
		errs = append(errs, ValidationError{
			Field:   "flow.order",
			Message: fmt.Sprintf("invalid order '%s', must be one of: model-first, year-first", c.Flow.Order),
		})
	}
	if c.Flow.DefaultCategory != "" {
		switch strings.ToLower(c.Flow.DefaultCategory) {
		case "car", "motorcycle", "truck":
		default:
			errs = append(errs, ValidationError{
				Field:   "flow.default_category",
				Message: fmt.Sprintf("invalid category '%s', must be one of: car, motorcycle, truck", c.Flow.DefaultCategory),
			})
		}
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string, allowHTTP bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !allowHTTP && !isLoopback(u.Hostname()) {
			return fmt.Errorf("URL must use https (got %s)", raw)
		}
	default:
		return fmt.Errorf("URL must use http or https (got %q)", raw)
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// =============================================================================
// FEATURE AVAILABILITY
// =============================================================================

// BackendEnabled reports whether auth and favorites can be offered.
func (c *Config) BackendEnabled() bool {
	return c.Backend.URL != "" && c.Backend.AnonKey != ""
}

// InsightEnabled reports whether AI commentary can be generated.
func (c *Config) InsightEnabled() bool {
	if strings.EqualFold(c.Insight.Provider, ProviderOllama) {
		return c.Insight.OllamaURL != ""
	}
	return c.Insight.APIKey != ""
}

// Warnings describes every feature disabled by missing configuration.
func (c *Config) Warnings() []string {
	var w []string
	if c.Backend.URL == "" {
		w = append(w, "backend URL not set (SUPABASE_URL): sign-in and favorites disabled")
	}
	if c.Backend.AnonKey == "" {
		w = append(w, "backend public key not set (SUPABASE_ANON_KEY): sign-in and favorites disabled")
	}
	if !c.InsightEnabled() {
		w = append(w, "AI service key not set (GEMINI_API_KEY): insight commentary disabled")
	}
	return w
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - SUPABASE_URL, VITE_SUPABASE_URL: backend.url
//   - SUPABASE_ANON_KEY, VITE_SUPABASE_ANON_KEY: backend.anon_key
//   - GEMINI_API_KEY, API_KEY: insight.api_key
//   - FIPEPRO_PRICING_URL, FIPEPRO_PRICING_TOKEN
//   - FIPEPRO_INSIGHT_PROVIDER, FIPEPRO_INSIGHT_MODEL, FIPEPRO_OLLAMA_URL
//   - FIPEPRO_LOCATION: insight.location
//   - FIPEPRO_STORAGE: storage.backend
//   - FIPEPRO_FLOW_ORDER: flow.order
//   - FIPEPRO_THEME: ui.theme
//   - FIPEPRO_LOG_LEVEL: log.level
func (c *Config) ApplyEnvOverrides() {
	if v := firstEnv("SUPABASE_URL", "VITE_SUPABASE_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := firstEnv("SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY"); v != "" {
		c.Backend.AnonKey = v
	}
	if v := firstEnv("GEMINI_API_KEY", "API_KEY"); v != "" {
		c.Insight.APIKey = v
	}

	overrides := []struct {
		env    string
		target *string
	}{
		{"FIPEPRO_PRICING_URL", &c.Pricing.BaseURL},
		{"FIPEPRO_PRICING_TOKEN", &c.Pricing.Token},
		{"FIPEPRO_INSIGHT_PROVIDER", &c.Insight.Provider},
		{"FIPEPRO_INSIGHT_MODEL", &c.Insight.Model},
		{"FIPEPRO_OLLAMA_URL", &c.Insight.OllamaURL},
		{"FIPEPRO_LOCATION", &c.Insight.Location},
		{"FIPEPRO_STORAGE", &c.Storage.Backend},
		{"FIPEPRO_FLOW_ORDER", &c.Flow.Order},
		{"FIPEPRO_THEME", &c.UI.Theme},
		{"FIPEPRO_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "flow.order").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent. Matching is case-insensitive so "base_url" finds BaseURL.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Keys returns every configuration key in dot notation, in declaration order.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.AllowedOrigins != nil {
		clone.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	}
	return &clone
}

// String returns a JSON rendering with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	for _, s := range []*string{&safe.Backend.AnonKey, &safe.Insight.APIKey, &safe.Pricing.Token} {
		if *s != "" {
			*s = "[REDACTED]"
		}
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. A broken config file yields defaults plus a warning on stderr.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.ApplyEnvOverrides()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal replaces the global configuration instance.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
