// Package lane ingests the ranked output of retrieval lanes.
package lane

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	domlane "github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
	"github.com/kailas-cloud/lanefuse/internal/metrics"
)

// Defaults for batch ingestion.
const (
	DefaultMaxParallel = 8
	DefaultLaneTimeout = 10 * time.Second
)

// IngestRequest is one lane's output plus the metadata of the documents it ranked.
type IngestRequest struct {
	Type domlane.Type
	// Weight defaults to domlane.DefaultWeight when nil.
	Weight *float64
	Docs   []domlane.RankedDoc
	// CodeSummary is derived from Documents when empty.
	CodeSummary domlane.CodeSummary
	Documents   []document.Document
}

// Service ingests lane runs.
type Service struct {
	repo        Repository
	docs        DocumentWriter
	logger      *zap.Logger
	maxParallel int
	laneTimeout time.Duration
	newID       func() string
}

// Option configures a Service.
type Option func(*Service)

// WithMaxParallel bounds concurrent ingests in a batch.
func WithMaxParallel(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// WithLaneTimeout bounds each ingest of a batch.
func WithLaneTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.laneTimeout = d
		}
	}
}

// WithIDGenerator overrides lane id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// New creates a lane service.
func New(repo Repository, docs DocumentWriter, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:        repo,
		docs:        docs,
		logger:      logger,
		maxParallel: DefaultMaxParallel,
		laneTimeout: DefaultLaneTimeout,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates and persists one lane run and returns its new id. The
// lane's documents are stored under its id before the lane becomes visible.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) (id string, err error) {
	defer func() {
		metrics.LanesIngestedTotal.WithLabelValues(string(req.Type), metrics.Status(err)).Inc()
	}()

	weight := domlane.DefaultWeight
	if req.Weight != nil {
		weight = *req.Weight
	}
	// Requests may share document values; validate private copies.
	docs := append([]document.Document(nil), req.Documents...)
	for i := range docs {
		if err = docs[i].Validate(); err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrInvalidLane, err)
		}
	}

	summary := req.CodeSummary
	if len(summary) == 0 {
		summary = Summarize(req.Docs, docs)
	}

	l, err := domlane.New(s.newID(), req.Type, weight, req.Docs, summary)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidLane, err)
	}

	if err = s.docs.PutLane(ctx, l.ID(), docs); err != nil {
		return "", fmt.Errorf("store documents: %w", err)
	}
	if err = s.repo.Create(ctx, l); err != nil {
		return "", fmt.Errorf("persist lane: %w", err)
	}

	s.logger.Debug("Lane ingested",
		zap.String("lane_id", l.ID()),
		zap.String("lane_type", string(l.Type())),
		zap.Float64("weight", l.Weight()),
		zap.Int("docs", l.Len()),
	)
	return l.ID(), nil
}

// IngestBatch ingests independent lanes concurrently and returns their ids in
// request order. The first failure cancels the remaining ingests; lanes
// already written stay until their TTL expires.
func (s *Service) IngestBatch(ctx context.Context, reqs []IngestRequest) ([]string, error) {
	ids := make([]string, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i := range reqs {
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(gctx, s.laneTimeout)
			defer cancel()

			id, err := s.Ingest(lctx, &reqs[i])
			if err != nil {
				return fmt.Errorf("lane %d: %w", i, err)
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Summarize counts the codes of the ranked documents per taxonomy. Full codes
// are counted when known, normalized ones otherwise.
func Summarize(ranked []domlane.RankedDoc, docs []document.Document) domlane.CodeSummary {
	if len(docs) == 0 {
		return nil
	}
	inLane := make(map[string]struct{}, len(ranked))
	for _, d := range ranked {
		inLane[d.DocID] = struct{}{}
	}

	summary := make(domlane.CodeSummary)
	for i := range docs {
		if _, ok := inLane[docs[i].ID]; !ok {
			continue
		}
		for tax, codes := range docs[i].Codes {
			for _, c := range codes {
				code := c.Full
				if code == "" {
					code = c.Normalized
				}
				if code == "" {
					continue
				}
				addCode(summary, tax, code)
			}
		}
	}
	if len(summary) == 0 {
		return nil
	}
	return summary
}

func addCode(s domlane.CodeSummary, tax taxonomy.Name, code string) {
	m, ok := s[tax]
	if !ok {
		m = make(map[string]int)
		s[tax] = m
	}
	m[code]++
}
