// Package config loads database settings from a file, JANUSGRAPH_*
// environment variables and defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/wbrown/janus-graph/graph/annotations"
	"github.com/wbrown/janus-graph/graph/codec"
	"github.com/wbrown/janus-graph/graph/kv"
	"github.com/wbrown/janus-graph/graph/storage"
	"github.com/wbrown/janus-graph/graph/traversal"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "JANUSGRAPH"

// Config is the flattened settings tree
type Config struct {
	Path              string `mapstructure:"path"`
	InMemory          bool   `mapstructure:"in_memory"`
	SyncWrites        bool   `mapstructure:"sync_writes"`
	BucketSize        uint64 `mapstructure:"bucket_size"`
	CompressThreshold int    `mapstructure:"compress_threshold"`
	HopFilter         string `mapstructure:"hop_filter"`
	DisableCache      bool   `mapstructure:"disable_cache"`
	LogLevel          string `mapstructure:"log_level"`
}

// New returns a viper instance with defaults and env binding set up
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("path", "graph.db")
	v.SetDefault("in_memory", false)
	v.SetDefault("sync_writes", false)
	v.SetDefault("bucket_size", storage.DefaultBucketSize)
	v.SetDefault("compress_threshold", codec.DefaultCompressThreshold)
	v.SetDefault("hop_filter", traversal.FilterEdges.String())
	v.SetDefault("disable_cache", false)
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) over the defaults and environment
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v
func FromViper(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that viper cannot type-check
func (c *Config) Validate() error {
	if _, ok := traversal.ParseHopFilterMode(c.HopFilter); !ok {
		return fmt.Errorf("invalid hop_filter %q (use edges or neighbors)", c.HopFilter)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf("path is required unless in_memory is set")
	}
	if c.CompressThreshold < 0 {
		return fmt.Errorf("compress_threshold must not be negative")
	}
	return nil
}

// BadgerOptions returns the store settings
func (c *Config) BadgerOptions() kv.BadgerOptions {
	return kv.BadgerOptions{
		Path:       c.Path,
		InMemory:   c.InMemory,
		SyncWrites: c.SyncWrites,
	}
}

// Logger builds a stderr logger at the configured level
func (c *Config) Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	l.SetLevel(level)
	return l
}

// Options returns the engine settings. handler may be nil.
func (c *Config) Options(handler annotations.Handler) storage.Options {
	mode, _ := traversal.ParseHopFilterMode(c.HopFilter)
	return storage.Options{
		BucketSize:         c.BucketSize,
		CompressThreshold:  c.CompressThreshold,
		CombinedHopFilter:  mode,
		DisableLookupCache: c.DisableCache,
		Logger:             c.Logger(),
		Handler:            handler,
	}
}

// Open opens the configured database
func (c *Config) Open(handler annotations.Handler) (*storage.Database, error) {
	store, err := kv.NewBadgerStore(c.BadgerOptions())
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(store, c.Options(handler))
	if err != nil {
		store.Close()
		return nil, err
	}
	return db, nil
}
