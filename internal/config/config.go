package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"resultsync/internal/eventbus"
	"resultsync/internal/query"
)

// Store kinds
const (
	StoreMemory = "memory"
	StoreHTTP   = "http"
)

// Config represents the application configuration
type Config struct {
	Version int         `toml:"version"`
	Store   StoreConfig `toml:"store"`
	Query   QueryConfig `toml:"query"`
	Cache   CacheConfig `toml:"cache"`
	UI      UISettings  `toml:"ui"`
}

// StoreConfig selects the remote store
type StoreConfig struct {
	Kind      string `toml:"kind"` // memory or http
	URL       string `toml:"url,omitempty"`
	LatencyMS int    `toml:"latency_ms,omitempty"` // simulated latency of the memory store
}

// QueryConfig is the one query the controller runs. Sort keys are written
// "field" or "-field" for descending.
type QueryConfig struct {
	EntityType    string            `toml:"entity_type"`
	Where         []query.Condition `toml:"where,omitempty"`
	SortKeys      []string          `toml:"sort"`
	LocalSortKeys []string          `toml:"local_sort,omitempty"`
}

// CacheConfig configures the local snapshot file and the fetch cache
type CacheConfig struct {
	File       string `toml:"file"`
	LRUSize    int    `toml:"lru_size"`
	FetchTTL   string `toml:"fetch_ttl"`
	StaleAfter string `toml:"stale_after,omitempty"` // refetch older local entities on startup
	Workers    int    `toml:"workers,omitempty"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	BracketLocal   bool `toml:"bracket_local"`
	AutosaveOnExit bool `toml:"autosave_on_exit"`
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
}

// configService is the concrete implementation
type configService struct {
	bus      eventbus.EventBus
	filePath string
}

// NewConfigService creates a config service using the user config directory
func NewConfigService() ConfigService {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return &configService{
		filePath: filepath.Join(configDir, "resultsync", "config.toml"),
	}
}

// NewConfigServiceWithBus creates a config service with event bus support
func NewConfigServiceWithBus(bus eventbus.EventBus) ConfigService {
	cs := NewConfigService().(*configService)
	cs.bus = bus
	return cs
}

// Load loads the configuration from the default location, falling back to
// DefaultConfig when no file exists
func (cs *configService) Load() (*Config, error) {
	if _, err := os.Stat(cs.filePath); errors.Is(err, os.ErrNotExist) {
		cs.publish(eventbus.ConfigLoadedEvent{Path: cs.filePath, Defaults: true})
		return DefaultConfig(), nil
	}
	cfg, err := cs.LoadFromPath(cs.filePath)
	if err != nil {
		return nil, err
	}
	cs.publish(eventbus.ConfigLoadedEvent{Path: cs.filePath})
	return cfg, nil
}

// Save saves the configuration to the default location
func (cs *configService) Save(config *Config) error {
	if err := cs.SaveToPath(config, cs.filePath); err != nil {
		return err
	}
	cs.publish(eventbus.ConfigSavedEvent{Path: cs.filePath})
	return nil
}

// LoadFromPath loads configuration from a specific path. Missing settings
// take their default values; unknown keys are rejected.
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	// a query in the file replaces the default one as a whole
	fallback := cfg.Query
	cfg.Query = QueryConfig{}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Query.EntityType == "" && len(cfg.Query.SortKeys) == 0 && len(cfg.Query.Where) == 0 {
		cfg.Query = fallback
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (cs *configService) publish(event eventbus.DomainEvent) {
	if cs.bus != nil {
		cs.bus.Publish(event)
	}
}

// DefaultConfig returns the default configuration: open bugs from the
// simulated store, highest priority first
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			Kind:      StoreMemory,
			LatencyMS: 300,
		},
		Query: QueryConfig{
			EntityType: "bug",
			Where:      []query.Condition{query.Eq("open", true)},
			SortKeys:   []string{"-priority", "title"},
		},
		Cache: CacheConfig{
			File:     "resultsync-cache.json",
			LRUSize:  512,
			FetchTTL: "1m",
			Workers:  4,
		},
		UI: UISettings{
			AutosaveOnExit: true,
		},
	}
}

// Validate checks the settings that can be checked without I/O
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory:
	case StoreHTTP:
		if c.Store.URL == "" {
			return fmt.Errorf("%w: store.url is required for the http store", query.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown store kind %q", query.ErrConfiguration, c.Store.Kind)
	}
	if c.Store.LatencyMS < 0 {
		return fmt.Errorf("%w: store.latency_ms must not be negative", query.ErrConfiguration)
	}
	if _, err := c.FetchTTL(); err != nil {
		return err
	}
	if _, err := c.StaleAfter(); err != nil {
		return err
	}
	_, err := c.QuerySpec()
	return err
}

// QuerySpec builds the controller's query
func (c *Config) QuerySpec() (query.Spec, error) {
	server, err := parseKeys(c.Query.SortKeys)
	if err != nil {
		return query.Spec{}, err
	}
	local, err := parseKeys(c.Query.LocalSortKeys)
	if err != nil {
		return query.Spec{}, err
	}
	return query.New(c.Query.EntityType, query.Where(c.Query.Where...), server, query.WithLocalSort(local...))
}

// Latency is the simulated delay of the memory store
func (c *Config) Latency() time.Duration {
	return time.Duration(c.Store.LatencyMS) * time.Millisecond
}

// FetchTTL parses cache.fetch_ttl; empty means the store default
func (c *Config) FetchTTL() (time.Duration, error) {
	return parseDuration("cache.fetch_ttl", c.Cache.FetchTTL)
}

// StaleAfter parses cache.stale_after; zero disables the startup refresh
func (c *Config) StaleAfter() (time.Duration, error) {
	return parseDuration("cache.stale_after", c.Cache.StaleAfter)
}

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s %q is not a valid duration", query.ErrConfiguration, name, s)
	}
	return d, nil
}

func parseKeys(in []string) ([]query.SortKey, error) {
	keys := make([]query.SortKey, 0, len(in))
	for _, s := range in {
		k, err := query.ParseSortKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
