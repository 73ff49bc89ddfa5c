// Package discovery is the read path behind the CLI and HTTP API: it fetches
// petitions, filters and ranks them, and resolves signers on demand.
package discovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/civicchain/petition-discovery/pkg/metrics"
	"github.com/civicchain/petition-discovery/pkg/petition"
	"github.com/civicchain/petition-discovery/pkg/signers"
)

const (
	// FeaturedLimit caps the featured list when the query sets no limit.
	FeaturedLimit = 10

	// DefaultBatchConcurrency bounds SignersBatch when no limit is given.
	DefaultBatchConcurrency = 4
)

// Source provides petition records. contract.PetitionPlatform implements it.
type Source interface {
	AllPetitions(ctx context.Context) ([]petition.Record, error)
	ActiveBoostedPetitions(ctx context.Context) ([]petition.Record, error)
	Petition(ctx context.Context, id uint64) (petition.Record, error)
	TotalPetitions(ctx context.Context) (uint64, error)
	HasSigned(ctx context.Context, id uint64, signer string) (bool, error)
}

// SignerResolver resolves petition signers. signers.Resolver implements it.
type SignerResolver interface {
	Lookup(ctx context.Context, id uint64) ([]string, error)
	Resolve(ctx context.Context, id uint64) signers.Result
}

// Query selects and orders a petition list.
type Query struct {
	Mode    petition.Mode
	Search  string
	Creator string
	// Limit keeps the first Limit records; zero keeps all, except in featured
	// mode where it means FeaturedLimit.
	Limit int
}

// Stats summarises the petition set at one instant.
type Stats struct {
	Total           uint64    `json:"total"`
	Listed          int       `json:"listed"`
	Boosted         int       `json:"boosted"`
	TotalSignatures uint64    `json:"totalSignatures"`
	Creators        int       `json:"creators"`
	AsOf            time.Time `json:"asOf"`
}

// Service answers discovery queries. It holds no petition state; every call
// reads the source again.
type Service struct {
	source   Source
	resolver SignerResolver
	now      func() time.Time
	log      *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithClock sets the clock used as the ranking reference instant.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics enables ranking metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a Service.
func New(source Source, resolver SignerResolver, log *zap.SugaredLogger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Service{
		source:   source,
		resolver: resolver,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List fetches all petitions, filters them, ranks them against the current
// instant and truncates the result.
func (s *Service) List(ctx context.Context, q Query) ([]petition.Record, error) {
	records, err := s.source.AllPetitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list petitions: %w", err)
	}

	mode := q.Mode
	if mode == "" {
		mode = petition.DefaultMode
	}
	limit := q.Limit
	if limit == 0 && mode == petition.ModeFeatured {
		limit = FeaturedLimit
	}

	filtered := petition.Filter(records, petition.Criteria{Search: q.Search, Creator: q.Creator})
	ranked := petition.Rank(filtered, s.now(), mode)
	s.metrics.RecordRanking(string(mode), len(ranked))

	s.log.Debugw("ranked petitions",
		"mode", mode,
		"fetched", len(records),
		"matched", len(filtered),
		"limit", limit,
	)
	return petition.Top(ranked, limit), nil
}

// Get returns one petition.
func (s *Service) Get(ctx context.Context, id uint64) (petition.Record, error) {
	rec, err := s.source.Petition(ctx, id)
	if err != nil {
		return petition.Record{}, fmt.Errorf("get petition %d: %w", id, err)
	}
	return rec, nil
}

// Signers resolves the signers of id. Failures are reported in the result.
func (s *Service) Signers(ctx context.Context, id uint64) signers.Result {
	return s.resolver.Resolve(ctx, id)
}

// LookupSigners is the strict form of Signers.
func (s *Service) LookupSigners(ctx context.Context, id uint64) ([]string, error) {
	return s.resolver.Lookup(ctx, id)
}

// SignersBatch resolves several petitions with at most concurrency lookups in
// flight. Results are in the order of ids; one failure does not affect others.
func (s *Service) SignersBatch(ctx context.Context, ids []uint64, concurrency int) []signers.Result {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	results := make([]signers.Result, len(ids))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = s.resolver.Resolve(ctx, id)
			return nil
		})
	}
	_ = g.Wait() // Resolve reports failures in the result

	return results
}

// HasSigned reports whether address signed petition id, per the contract.
func (s *Service) HasSigned(ctx context.Context, id uint64, address string) (bool, error) {
	ok, err := s.source.HasSigned(ctx, id, address)
	if err != nil {
		return false, fmt.Errorf("has signed %d: %w", id, err)
	}
	return ok, nil
}

// Stats reads the petition count, the full list and the boosted list
// concurrently and summarises them.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var (
		total   uint64
		all     []petition.Record
		boosted []petition.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = s.source.TotalPetitions(gctx)
		return err
	})
	g.Go(func() (err error) {
		all, err = s.source.AllPetitions(gctx)
		return err
	})
	g.Go(func() (err error) {
		boosted, err = s.source.ActiveBoostedPetitions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}

	creators := make(map[string]struct{}, len(all))
	var signatures uint64
	for _, r := range all {
		creators[r.Creator] = struct{}{}
		signatures += r.SignatureCount
	}
	return Stats{
		Total:           total,
		Listed:          len(all),
		Boosted:         len(boosted),
		TotalSignatures: signatures,
		Creators:        len(creators),
		AsOf:            s.now().UTC(),
	}, nil
}
