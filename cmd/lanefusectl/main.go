// Package main is the entry point for the lanefusectl CLI.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lanefuse/internal/app"
	"github.com/kailas-cloud/lanefuse/internal/config"
	"github.com/kailas-cloud/lanefuse/internal/db"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	logpkg "github.com/kailas-cloud/lanefuse/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lanefusectl",
		Short:         "Fuse ranked retrieval lanes and inspect fusion runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(fuseCmd())
	cmd.AddCommand(showCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(mutateCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// session is a wired set of services over an open store.
type session struct {
	store    db.Store
	svc      *app.Services
	defaults recipe.Recipe
	logger   *zap.Logger
}

func (s *session) Close() {
	s.store.Close()
	_ = s.logger.Sync()
}

// openConfigured connects to the store named by the environment's config file.
func openConfigured(cmd *cobra.Command) (*session, error) {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := app.OpenStore(app.StoreConfig{
		Driver:   cfg.Database.Driver,
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(cmd.Context(), timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	svc, err := app.Build(store, app.Options{
		Codec:       cfg.Storage.Codec,
		KeyPrefix:   cfg.Storage.KeyPrefix,
		LaneTTL:     cfg.Storage.LaneTTL(),
		RunTTL:      cfg.Storage.RunTTL(),
		DocumentTTL: cfg.Storage.DocumentTTL(),
		MaxParallel: cfg.Ingest.MaxParallel,
		LaneTimeout: time.Duration(cfg.Ingest.LaneTimeoutSec) * time.Second,
	}, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &session{store: store, svc: svc, defaults: cfg.Fusion.Recipe(), logger: logger}, nil
}

// runOutput is the JSON shape printed for a run.
type runOutput struct {
	RunID             string                    `json:"run_id"`
	ParentRunID       string                    `json:"parent_run_id,omitempty"`
	LaneRunIDs        []string                  `json:"lane_run_ids"`
	OverrideFields    []string                  `json:"override_fields,omitempty"`
	Recipe            recipe.Recipe             `json:"recipe"`
	RankedDocs        []domrun.Entry            `json:"ranked_docs"`
	Metrics           domrun.Metrics            `json:"metrics"`
	Frontier          []domrun.FrontierPoint    `json:"frontier"`
	LaneContributions []domrun.LaneContribution `json:"lane_contributions"`
	CreatedAt         int64                     `json:"created_at"`
}

func toOutput(r *domrun.Run) runOutput {
	return runOutput{
		RunID:             r.ID(),
		ParentRunID:       r.ParentID(),
		LaneRunIDs:        r.LaneIDs(),
		OverrideFields:    r.OverrideFields(),
		Recipe:            r.Recipe(),
		RankedDocs:        r.Docs(),
		Metrics:           r.Metrics(),
		Frontier:          r.Frontier(),
		LaneContributions: r.LaneContributions(),
		CreatedAt:         r.CreatedAt(),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
