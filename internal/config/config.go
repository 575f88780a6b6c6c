package config

import (
	"strings"
	"time"

	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
)

// Config holds the lanefuse API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Fusion   FusionConfig   `yaml:"fusion"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Supported database drivers.
const (
	DriverRedis   = "redis"
	DriverValkey  = "valkey"
	DriverGoRedis = "goredis"
	DriverMemory  = "memory"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, goredis, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds record layout and retention settings.
type StorageConfig struct {
	KeyPrefix      string `yaml:"key_prefix"`
	Codec          string `yaml:"codec"` // json, cbor (default: json)
	LaneTTLSec     int    `yaml:"lane_ttl_sec"`
	RunTTLSec      int    `yaml:"run_ttl_sec"`
	DocumentTTLSec int    `yaml:"document_ttl_sec"`
}

// IngestConfig bounds batch lane ingestion.
type IngestConfig struct {
	LaneTimeoutSec int `yaml:"lane_timeout_sec"`
	MaxParallel    int `yaml:"max_parallel"`
}

// FusionConfig holds the recipe defaults new fusions start from. Zero values
// keep the built-in defaults.
type FusionConfig struct {
	RRFK            int              `yaml:"rrf_k"`
	BetaFuse        *float64         `yaml:"beta_fuse"`
	KEval           int              `yaml:"k_eval"`
	Lambda          *float64         `yaml:"lambda"`
	SecondaryFactor *float64         `yaml:"secondary_factor"`
	KGrid           []int            `yaml:"k_grid"`
	PiWeights       *PiWeightsConfig `yaml:"pi_weights"`
	ClassTaxonomy   string           `yaml:"class_taxonomy"`
}

// PiWeightsConfig blends the composite relevance sub-scores.
type PiWeightsConfig struct {
	Code  float64 `yaml:"code"`
	Facet float64 `yaml:"facet"`
	Lane  float64 `yaml:"lane"`
}

// Recipe returns the default recipe with the configured overrides applied.
func (f FusionConfig) Recipe() recipe.Recipe {
	r := recipe.Default()
	if f.RRFK > 0 {
		r.RRFK = f.RRFK
	}
	if f.BetaFuse != nil {
		r.BetaFuse = *f.BetaFuse
	}
	if f.KEval > 0 {
		r.KEval = f.KEval
	}
	if f.Lambda != nil {
		r.Lambda = *f.Lambda
	}
	if f.SecondaryFactor != nil {
		r.SecondaryFactor = *f.SecondaryFactor
	}
	if len(f.KGrid) > 0 {
		r.KGrid = append([]int(nil), f.KGrid...)
	}
	if f.PiWeights != nil {
		r.PiWeights = recipe.PiWeights{Code: f.PiWeights.Code, Facet: f.PiWeights.Facet, Lane: f.PiWeights.Lane}
	}
	if f.ClassTaxonomy != "" {
		r.ClassTaxonomy = taxonomy.Name(strings.ToLower(f.ClassTaxonomy))
	}
	return r
}

// LaneTTL returns the lane record expiration.
func (s StorageConfig) LaneTTL() time.Duration { return time.Duration(s.LaneTTLSec) * time.Second }

// RunTTL returns the run record expiration, shared by representative sets.
func (s StorageConfig) RunTTL() time.Duration { return time.Duration(s.RunTTLSec) * time.Second }

// DocumentTTL returns the document metadata expiration.
func (s StorageConfig) DocumentTTL() time.Duration {
	return time.Duration(s.DocumentTTLSec) * time.Second
}
