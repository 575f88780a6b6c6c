// Package app assembles stores, repositories and use cases. It is the shared
// composition root of the API server, the CLI and the Go SDK.
package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lanefuse/internal/db"
	dbGoRedis "github.com/kailas-cloud/lanefuse/internal/db/goredis"
	dbMemory "github.com/kailas-cloud/lanefuse/internal/db/memory"
	dbRedis "github.com/kailas-cloud/lanefuse/internal/db/redis"
	"github.com/kailas-cloud/lanefuse/internal/repository/codec"
	documentrepo "github.com/kailas-cloud/lanefuse/internal/repository/document"
	lanerepo "github.com/kailas-cloud/lanefuse/internal/repository/lane"
	representativerepo "github.com/kailas-cloud/lanefuse/internal/repository/representative"
	runrepo "github.com/kailas-cloud/lanefuse/internal/repository/run"
	fusionuc "github.com/kailas-cloud/lanefuse/internal/usecase/fusion"
	healthuc "github.com/kailas-cloud/lanefuse/internal/usecase/health"
	laneuc "github.com/kailas-cloud/lanefuse/internal/usecase/lane"
	runuc "github.com/kailas-cloud/lanefuse/internal/usecase/run"
)

// Store drivers.
const (
	DriverRedis   = "redis"
	DriverValkey  = "valkey"
	DriverGoRedis = "goredis"
	DriverMemory  = "memory"
)

// StoreConfig selects and configures a KV driver.
type StoreConfig struct {
	Driver   string
	Addrs    []string
	Username string
	Password string
	DB       int
}

// OpenStore creates a store for the configured driver. Valkey and Redis share
// the rueidis implementation.
func OpenStore(cfg StoreConfig) (db.Store, error) {
	switch cfg.Driver {
	case DriverRedis, DriverValkey:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		return s, nil
	case DriverGoRedis:
		s, err := dbGoRedis.NewStore(dbGoRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create goredis store: %w", err)
		}
		return s, nil
	case DriverMemory:
		return dbMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// Options tunes record layout, retention and ingestion.
type Options struct {
	Codec       string
	KeyPrefix   string
	LaneTTL     time.Duration
	RunTTL      time.Duration
	DocumentTTL time.Duration
	MaxParallel int
	LaneTimeout time.Duration
	// Misses counts lookups of expired or unknown records; nil disables it.
	Misses *prometheus.CounterVec
}

// Services are the wired use cases.
type Services struct {
	Lanes  *laneuc.Service
	Fusion *fusionuc.Service
	Runs   *runuc.Service
	Health *healthuc.Service
}

// documentTTL keeps a lane's documents at least as long as the lane.
func documentTTL(opts Options) time.Duration {
	return max(opts.DocumentTTL, opts.LaneTTL)
}

// Build wires repositories and use cases over store.
func Build(store db.Store, opts Options, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := codec.New(opts.Codec)
	if err != nil {
		return nil, fmt.Errorf("storage codec: %w", err)
	}

	lanes := lanerepo.New(store, c, opts.KeyPrefix, opts.LaneTTL, opts.Misses)
	docs := documentrepo.New(store, c, opts.KeyPrefix, documentTTL(opts), opts.Misses)
	runs := runrepo.New(store, c, opts.KeyPrefix, opts.RunTTL, opts.Misses)
	reps := representativerepo.New(store, c, opts.KeyPrefix, opts.RunTTL)

	fusionSvc := fusionuc.New(lanes, docs, runs, logger)
	return &Services{
		Lanes: laneuc.New(lanes, docs, logger,
			laneuc.WithMaxParallel(opts.MaxParallel),
			laneuc.WithLaneTimeout(opts.LaneTimeout),
		),
		Fusion: fusionSvc,
		Runs:   runuc.New(runs, reps, docs, fusionSvc, logger),
		Health: healthuc.New(healthuc.Database(store)),
	}, nil
}
