// Package redis implements db.Store on rueidis. Valkey speaks the same
// protocol, so the valkey and redis drivers both land here.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/lanefuse/internal/db"
)

var _ db.Store = (*Store)(nil)

// clientName is reported via CLIENT SETNAME.
const clientName = "lanefuse"

// Config holds connection parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

func (c Config) option() rueidis.ClientOption {
	return rueidis.ClientOption{
		InitAddress: c.Addrs,
		Username:    c.Username,
		Password:    c.Password,
		SelectDB:    c.DB,
		ClientName:  clientName,
		// Records are read once per fusion.
		DisableCache: true,
	}
}

// Store is a rueidis-backed db.Store.
type Store struct {
	client rueidis.Client
}

// NewStore dials the configured nodes.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	client, err := rueidis.NewClient(cfg.option())
	if err != nil {
		return nil, fmt.Errorf("redis: dial %v: %w", cfg.Addrs, err)
	}
	return NewStoreFromClient(client), nil
}

// NewStoreFromClient wraps an existing client, typically a rueidis mock.
func NewStoreFromClient(client rueidis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

func (s *Store) Close() { s.client.Close() }

func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.PollReady(ctx, timeout, s.Ping)
}
