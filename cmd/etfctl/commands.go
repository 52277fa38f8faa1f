package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/subcommands"
	"github.com/majidtaherkhani/etf-service/internal/config"
	"github.com/majidtaherkhani/etf-service/internal/database"
	"github.com/majidtaherkhani/etf-service/internal/etf"
	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/majidtaherkhani/etf-service/internal/seed"
	"github.com/rs/zerolog/log"
)

func openDB(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type migrateCmd struct {
	cfg *config.Config
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending database migrations" }
func (*migrateCmd) Usage() string {
	return `etfctl migrate

  Applies every pending schema migration to the configured database.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := openDB(c.cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	log.Info().Msg("Migrations applied")
	return subcommands.ExitSuccess
}

type seedCmd struct {
	cfg       *config.Config
	batchSize int
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "load historical prices from a wide CSV file" }
func (*seedCmd) Usage() string {
	return `etfctl seed [-batch <n>] <prices.csv>

  Reads a CSV with a DATE column followed by one column per ticker and
  upserts every non-blank price into the price store.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.batchSize, "batch", 1000, "Number of rows written per transaction.")
}

func (c *seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "seed requires exactly one CSV file")
		return subcommands.ExitUsageError
	}

	file, err := os.Open(f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer file.Close()

	observations, err := seed.ParseWidePrices(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	log.Info().Int("records", len(observations)).Msg("Loaded price file")

	db, err := openDB(c.cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	stored, err := seed.Load(ctx, db, observations, c.batchSize)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	log.Info().Int("records", stored).Msg("Prices stored")
	return subcommands.ExitSuccess
}

type pruneCmd struct {
	cfg    *config.Config
	before string
}

func (*pruneCmd) Name() string     { return "prune" }
func (*pruneCmd) Synopsis() string { return "delete prices dated before a cutoff" }
func (*pruneCmd) Usage() string {
	return `etfctl prune -before <YYYY-MM-DD>

  Removes stored prices older than the given date.
`
}

func (c *pruneCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.before, "before", "", "Cutoff date; prices strictly before it are removed.")
}

func (c *pruneCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cutoff, err := time.Parse(models.DateLayout, c.before)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -before: %v\n", err)
		return subcommands.ExitUsageError
	}

	db, err := openDB(c.cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	removed, err := db.DeletePricesOlderThan(ctx, cutoff)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	log.Info().Int64("records", removed).Str("before", c.before).Msg("Prices pruned")
	return subcommands.ExitSuccess
}

type analyzeCmd struct {
	cfg *config.Config
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "value a portfolio weights file against stored prices" }
func (*analyzeCmd) Usage() string {
	return `etfctl analyze <weights.csv>

  Runs the same analysis as POST /etf/analyze and prints the JSON result.
  The file is not archived.
`
}
func (*analyzeCmd) SetFlags(*flag.FlagSet) {}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "analyze requires exactly one CSV file")
		return subcommands.ExitUsageError
	}

	content, err := os.ReadFile(f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	db, err := openDB(c.cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	svc := etf.NewService(db, nil, nil, etf.Options{}, log.Logger)
	resp, err := svc.Analyze(ctx, content, filepath.Base(f.Arg(0)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
