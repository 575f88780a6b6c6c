package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PathEnv names an explicit config file, bypassing the per-environment lookup.
const PathEnv = "LANEFUSE_CONFIG"

// maxSearchDepth bounds the walk from the working directory towards the root.
const maxSearchDepth = 4

// GetEnv returns the deployment environment from ENV, "local" when unset.
func GetEnv() string {
	if env := strings.TrimSpace(os.Getenv("ENV")); env != "" {
		return env
	}
	return "local"
}

// Load reads config/<env>.yaml, or the file named by LANEFUSE_CONFIG,
// expands ${VAR} and ${VAR:-default} references, fills defaults and
// validates the result. Unknown keys are rejected.
func Load(env string) (Config, error) {
	path, err := resolvePath(env)
	if err != nil {
		return Config{}, err
	}
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(expandEnvVars(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// resolvePath honors LANEFUSE_CONFIG, then looks for config/<env>.yaml in the
// working directory and its parents.
func resolvePath(env string) (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}
	name := filepath.Join("config", env+".yaml")
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve config %s: %w", name, err)
	}
	for range maxSearchDepth {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("config %s not found (set %s to override)", name, PathEnv)
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

func expandEnvVars(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		m := envRef.FindSubmatch(ref)
		if v := os.Getenv(string(m[1])); v != "" {
			return []byte(v)
		}
		return m[3]
	})
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	for _, d := range []struct {
		field *int
		def   int
	}{
		{&c.HTTP.ReadTimeoutSec, 10},
		{&c.HTTP.WriteTimeoutSec, 10},
		{&c.HTTP.ShutdownSec, 10},
		{&c.Database.ReadinessTimeout, 10},
		{&c.Storage.LaneTTLSec, 86400},
		{&c.Storage.RunTTLSec, 7 * 86400},
		{&c.Storage.DocumentTTLSec, 86400},
		{&c.Ingest.LaneTimeoutSec, 10},
		{&c.Ingest.MaxParallel, 8},
	} {
		if *d.field <= 0 {
			*d.field = d.def
		}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "lanefuse:"
	}
	if c.Storage.Codec == "" {
		c.Storage.Codec = "json"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverRedis, DriverValkey, DriverGoRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver %q is not one of redis, valkey, goredis, memory", c.Database.Driver)
	}
	if c.Storage.Codec != "json" && c.Storage.Codec != "cbor" {
		return fmt.Errorf("storage.codec %q is not one of json, cbor", c.Storage.Codec)
	}
	rcp := c.Fusion.Recipe()
	if err := rcp.Validate(); err != nil {
		return fmt.Errorf("fusion: %w", err)
	}
	return nil
}
