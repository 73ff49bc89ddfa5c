package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/civicchain/petition-discovery/pkg/api"
	"github.com/civicchain/petition-discovery/pkg/discovery"
	"github.com/civicchain/petition-discovery/pkg/petition"
	"github.com/civicchain/petition-discovery/pkg/scheduler"
	"github.com/civicchain/petition-discovery/pkg/utils"
)

type commandFunc func(ctx context.Context, c *cli.Context, a *app) error

// withApp builds the config, logger and app, then runs fn until it returns or
// the process is interrupted.
func withApp(fn commandFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := buildConfig(c)
		if err != nil {
			return fmt.Errorf("failed to build config: %w", err)
		}

		sugar, err := utils.NewSugaredLogger(cfg.Verbose, "petitions")
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, sugar, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(ctx, c, a)
	}
}

func listPetitions(ctx context.Context, c *cli.Context, a *app) error {
	q, err := listQuery(c)
	if err != nil {
		return err
	}
	records, err := a.svc.List(ctx, q)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, listResponse(q.Mode, records), true)
}

type showResponse struct {
	Petition petition.Record     `json:"petition"`
	Signers  api.SignersResponse `json:"signers"`
}

func showPetition(ctx context.Context, c *cli.Context, a *app) error {
	if c.NArg() != 1 {
		return errors.New("show takes exactly one petition id")
	}
	id, err := parseID(c.Args().First())
	if err != nil {
		return err
	}
	rec, err := a.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	res := a.svc.Signers(ctx, id)
	return printJSON(c.App.Writer, showResponse{
		Petition: rec,
		Signers:  api.NewSignersResponse(res),
	}, true)
}

func listSigners(ctx context.Context, c *cli.Context, a *app) error {
	if c.NArg() == 0 {
		return errors.New("signers takes at least one petition id")
	}
	ids := make([]uint64, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	results := a.svc.SignersBatch(ctx, ids, a.cfg.Concurrency)
	out := make([]api.SignersResponse, 0, len(results))
	var errs []error
	for _, res := range results {
		out = append(out, api.NewSignersResponse(res))
		if res.Failed() {
			errs = append(errs, fmt.Errorf("petition %d: %w", res.PetitionID, res.Err))
		}
	}
	if a.cfg.Strict && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return printJSON(c.App.Writer, out, true)
}

// watchPetitions prints the ranked list once per refresh interval, one JSON
// document per line.
func watchPetitions(ctx context.Context, c *cli.Context, a *app) error {
	q, err := listQuery(c)
	if err != nil {
		return err
	}
	a.log.Infow("watching petitions", "mode", q.Mode, "interval", a.cfg.RefreshInterval)

	refresh := scheduler.RefreshFunc(func(ctx context.Context) error {
		records, err := a.svc.List(ctx, q)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, watchResponse{
			AsOf:         time.Now().UTC(),
			ListResponse: listResponse(q.Mode, records),
		}, false)
	})
	return scheduler.Start(ctx, refresh, a.cfg.RefreshInterval, a.log)
}

type watchResponse struct {
	AsOf time.Time `json:"asOf"`
	api.ListResponse
}

func listQuery(c *cli.Context) (discovery.Query, error) {
	mode, err := petition.ParseMode(c.String("mode"))
	if err != nil {
		return discovery.Query{}, err
	}
	limit := c.Int("limit")
	if limit < 0 {
		return discovery.Query{}, fmt.Errorf("limit must be non-negative, got %d", limit)
	}
	return discovery.Query{
		Mode:    mode,
		Search:  c.String("q"),
		Creator: c.String("creator"),
		Limit:   limit,
	}, nil
}

func listResponse(mode petition.Mode, records []petition.Record) api.ListResponse {
	if records == nil {
		records = []petition.Record{}
	}
	return api.ListResponse{Mode: mode, Count: len(records), Petitions: records}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid petition id %q", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
