package lanefuse

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis", "goredis" or "memory"
	addrs    []string
	username string
	password string
	db       int

	codec       string
	keyPrefix   string
	laneTTL     time.Duration
	runTTL      time.Duration
	documentTTL time.Duration

	maxParallel int
	laneTimeout time.Duration

	defaultRecipe *Recipe

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func remote(driver, addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driver
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey stores records in Valkey at addr.
func WithValkey(addr, password string) Option { return remote("valkey", addr, password) }

// WithRedis stores records in Redis at addr via rueidis.
func WithRedis(addr, password string) Option { return remote("redis", addr, password) }

// WithGoRedis stores records in Redis at addr via go-redis.
func WithGoRedis(addr, password string) Option { return remote("goredis", addr, password) }

// WithSeeds replaces the address list set by WithValkey, WithRedis or
// WithGoRedis, e.g. with every node of a cluster.
func WithSeeds(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = append([]string(nil), addrs...)
	})
}

// WithUsername authenticates with an ACL user instead of the default one.
func WithUsername(name string) Option {
	return optionFunc(func(c *clientConfig) { c.username = name })
}

// WithMemory keeps all records in process memory. Nothing survives Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithDB selects the logical database number.
func WithDB(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = n
	})
}

// WithCodec selects the record encoding: "json" (default) or "cbor".
func WithCodec(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.codec = name
	})
}

// WithKeyPrefix namespaces every stored key. Default: "lanefuse:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithTTL sets retention for lanes, runs and cached documents.
// Zero values keep the defaults (1 day, 7 days, 1 day).
func WithTTL(lanes, runs, documents time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.laneTTL = lanes
		c.runTTL = runs
		c.documentTTL = documents
	})
}

// WithDefaultRecipe sets the recipe Fuse uses when none is given.
func WithDefaultRecipe(r Recipe) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultRecipe = &r
	})
}

// WithIngestLimits bounds concurrent lane writes in IngestLanes and the
// time each lane may take.
func WithIngestLimits(maxParallel int, laneTimeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxParallel = maxParallel
		c.laneTimeout = laneTimeout
	})
}

// WithLogger logs every SDK call: failures at Warn, the rest at Debug.
// nil (the default) disables logging.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers the lanefuse_sdk_* collectors on reg. Clients
// sharing a registry share the collectors.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
