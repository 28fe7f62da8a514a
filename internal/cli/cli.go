// Package cli implements the scidice command.
package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/nozzle/scidice"
	"github.com/nozzle/scidice/internal/config"
	scirand "github.com/nozzle/scidice/internal/rand"
	"github.com/nozzle/scidice/sampler"
)

// Config holds scidice command configuration. Env tags are read with the
// config.EnvPrefix prefix, e.g. SCIDICE_SEED.
type Config struct {
	Seed     uint64 `env:"SEED"`
	Source   string `env:"SOURCE"   envDefault:"numpy"`
	Strategy string `env:"STRATEGY" envDefault:"auto"`
	Workers  int    `env:"WORKERS"`
	Verbose  bool   `env:"VERBOSE"`

	Times  int
	Table  bool
	Fit    int
	Output string

	Expressions []string
}

// ParseConfig reads the environment, then lets flags in args override it.
// Remaining arguments are dice expressions.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg, config.EnvPrefix); err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.Times, "n", 1, "number of times each expression is rolled")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 for a random seed)")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "random source: "+strings.Join(scirand.SourceNames(), ", "))
	fs.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "sampling strategy: auto, direct, rejection, quantile or cdf-search")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "workers for large batches (0 for one per CPU)")
	fs.BoolVar(&cfg.Table, "table", false, "print the PMF and CDF of each expression")
	fs.IntVar(&cfg.Fit, "fit", 0, "run a chi-square test over this many single die draws")
	fs.StringVar(&cfg.Output, "output", "", "write rolls to this CSV file instead of stdout")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Expressions = fs.Args()
	return cfg, nil
}

// Run rolls every expression in cfg.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if len(cfg.Expressions) == 0 {
		return errors.New("at least one dice expression is required")
	}
	if cfg.Times < 0 {
		return fmt.Errorf("-n must not be negative, got %d", cfg.Times)
	}
	strategy, err := sampler.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}

	var w *csv.Writer
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = csv.NewWriter(f)
	}

	logger := log.New(errOut, "", 0)
	for i, text := range cfg.Expressions {
		diceCfg := scidice.DefaultConfig()
		diceCfg.Source = cfg.Source
		diceCfg.Strategy = strategy
		diceCfg.NumWorkers = cfg.Workers
		diceCfg.Verbose = cfg.Verbose
		diceCfg.Logger = logger
		if cfg.Seed != 0 {
			diceCfg.Seed = cfg.Seed + uint64(i)
		}

		d, err := scidice.New(text, diceCfg)
		if err != nil {
			return err
		}
		if cfg.Verbose {
			fmt.Fprintln(errOut, d)
		}

		if err := rollAll(ctx, d, cfg.Times, out, w); err != nil {
			return err
		}
		if cfg.Table {
			printTable(out, d)
		}
		if cfg.Fit > 0 {
			fit, err := d.GoodnessOfFit(cfg.Fit)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: chi2=%.4f dof=%d p=%.4g\n", text, fit.Statistic, fit.DegreesOfFreedom, fit.PValue)
		}
	}

	if w != nil {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		if cfg.Verbose {
			logger.Printf("Saved rolls to %s", cfg.Output)
		}
	}
	return nil
}

// rollAll rolls d n times, writing one line or CSV record per roll.
// Records are the expression, the roll number and the faces.
func rollAll(ctx context.Context, d *scidice.Dice, n int, out io.Writer, w *csv.Writer) error {
	text := d.Spec().Text
	for i := range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := d.GenerateRolls()
		if err != nil {
			return err
		}
		if w == nil {
			fmt.Fprintf(out, "%s: %s\n", text, r)
			continue
		}

		record := []string{text, strconv.Itoa(i + 1)}
		if r.IsScalar() {
			record = append(record, strconv.Itoa(r.Value()))
		} else {
			for _, v := range r.Values() {
				record = append(record, strconv.Itoa(v))
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func printTable(out io.Writer, d *scidice.Dice) {
	pmf, cdf := d.PMF(), d.CDF()
	fmt.Fprintln(out, d.Spec().Text)
	fmt.Fprintf(out, "%6s %12s %12s\n", "face", "pmf", "cdf")
	for i := range pmf {
		fmt.Fprintf(out, "%6d %12.6f %12.6f\n", i+1, pmf[i], cdf[i])
	}
}
