package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/lanefuse/internal/app"
	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	laneuc "github.com/kailas-cloud/lanefuse/internal/usecase/lane"
)

// fuseInput is the YAML file accepted by `fuse`.
type fuseInput struct {
	Lanes     []laneInput         `yaml:"lanes"`
	Documents []document.Document `yaml:"documents"`
	// Recipe fields replace the built-in defaults.
	Recipe *recipe.Override `yaml:"recipe"`
	// Mutations are applied in order, each deriving from the previous run.
	Mutations []recipe.Override `yaml:"mutations"`
}

type laneInput struct {
	Type        lane.Type        `yaml:"lane_type"`
	Weight      *float64         `yaml:"weight"`
	Docs        []lane.RankedDoc `yaml:"docs"`
	CodeSummary lane.CodeSummary `yaml:"code_summary"`
}

func fuseCmd() *cobra.Command {
	var withHistory bool

	cmd := &cobra.Command{
		Use:   "fuse <file.yaml>",
		Short: "Fuse lanes from a YAML file in memory and print the run",
		Long: `Fuse lanes from a YAML file without a database.

The file lists lanes, the metadata of their documents, an optional recipe
override and optional mutations:

  lanes:
    - lane_type: lexical
      docs: [{doc_id: US1, rank: 1}, {doc_id: EP2, rank: 2}]
    - lane_type: semantic
      weight: 0.8
      docs: [{doc_id: EP2, rank: 1}]
  documents:
    - doc_id: US1
      family_id: F1
      codes: {cpc: [{full: H04L9/32A}]}
  recipe:
    rrf_k: 30
  mutations:
    - beta_fuse: 1.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			in, err := parseFuseInput(data)
			if err != nil {
				return err
			}
			chain, err := fuseOffline(cmd.Context(), in)
			if err != nil {
				return err
			}

			last := chain[len(chain)-1]
			if !withHistory {
				return printJSON(cmd.OutOrStdout(), toOutput(&last))
			}
			out := make([]runOutput, len(chain))
			for i := range chain {
				out[len(chain)-1-i] = toOutput(&chain[i])
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().BoolVar(&withHistory, "history", false, "print every run, newest first")
	return cmd
}

func parseFuseInput(data []byte) (*fuseInput, error) {
	var in fuseInput
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if len(in.Lanes) == 0 {
		return nil, fmt.Errorf("parse input: no lanes")
	}
	return &in, nil
}

// fuseOffline ingests the input into a fresh in-memory store, fuses it and
// applies the mutations. Runs are returned oldest first.
func fuseOffline(ctx context.Context, in *fuseInput) ([]domrun.Run, error) {
	store, err := app.OpenStore(app.StoreConfig{Driver: app.DriverMemory})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	svc, err := app.Build(store, app.Options{
		Codec:       "json",
		LaneTTL:     time.Hour,
		RunTTL:      time.Hour,
		DocumentTTL: time.Hour,
	}, zap.NewNop())
	if err != nil {
		return nil, err
	}

	reqs := make([]laneuc.IngestRequest, len(in.Lanes))
	for i := range in.Lanes {
		l := &in.Lanes[i]
		reqs[i] = laneuc.IngestRequest{
			Type:        l.Type,
			Weight:      l.Weight,
			Docs:        l.Docs,
			CodeSummary: l.CodeSummary,
			Documents:   documentsFor(l.Docs, in.Documents),
		}
	}
	ids, err := svc.Lanes.IngestBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}

	r, err := svc.Fusion.Fuse(ctx, ids, in.Recipe.Apply(recipe.Default()))
	if err != nil {
		return nil, err
	}
	chain := []domrun.Run{r}
	for i := range in.Mutations {
		r, err = svc.Runs.Mutate(ctx, r.ID(), &in.Mutations[i])
		if err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
		chain = append(chain, r)
	}
	return chain, nil
}

// documentsFor selects the documents a lane ranks.
func documentsFor(ranked []lane.RankedDoc, docs []document.Document) []document.Document {
	in := make(map[string]struct{}, len(ranked))
	for _, d := range ranked {
		in[d.DocID] = struct{}{}
	}
	var out []document.Document
	for i := range docs {
		if _, ok := in[docs[i].ID]; ok {
			out = append(out, docs[i])
		}
	}
	return out
}
