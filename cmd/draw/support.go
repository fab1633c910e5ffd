// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	compendium "github.com/jasoryeh/Compendium"
	"github.com/jasoryeh/Compendium/catalog"
	"github.com/jasoryeh/Compendium/demo/tables"
	"github.com/jasoryeh/Compendium/errs"
	"github.com/jasoryeh/Compendium/sdk/core"
	"github.com/jasoryeh/Compendium/server/logger"
	"github.com/jasoryeh/Compendium/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

// exitCode 稽核未通過時設為 2
var exitCode int

type config struct {
	dir       string
	table     string
	list      bool
	draws     int
	workers   int
	seed      int64
	engine    string
	prng      string
	format    string
	alpha     float64
	lang      string
	logmode   string
	showpb    bool
	pprofmode string
}

func bindVar() {
	flag.StringVar(&cfg.dir, "tables", "", "directory of *.yaml / *.json weight tables (default: built-in demo tables)")
	flag.StringVar(&cfg.table, "table", "", "table name to draw from")
	flag.BoolVar(&cfg.list, "list", false, "list tables and exit")
	flag.IntVar(&cfg.draws, "n", 1_000_000, "total number of draws")
	flag.IntVar(&cfg.workers, "workers", 1, "number of workers")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed; < 0 uses the table's seed or crypto/rand")
	flag.StringVar(&cfg.engine, "engine", "partition", "partition | alias")
	flag.StringVar(&cfg.prng, "prng", "pcg64", "pcg64 | pcg32")
	flag.StringVar(&cfg.format, "format", "table", "table | json | yaml")
	flag.Float64Var(&cfg.alpha, "alpha", 0, "fail (exit 2) when the chi-square p-value is below alpha")
	flag.StringVar(&cfg.lang, "lang", "en", "number format language tag, e.g. en, zh-TW, de")
	flag.StringVar(&cfg.logmode, "log", "dev", "log mode: dev | prod | silence")
	flag.BoolVar(&cfg.showpb, "pb", true, "show progress bar")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()
}

func execute() error {
	mode, ok := logger.ParseMode(cfg.logmode)
	if !ok {
		return errs.Warnf("unknown log mode %q", cfg.logmode)
	}
	log := logger.NewLoggerTo(os.Stderr, mode)

	cat, err := loadCatalog(cfg.dir)
	if err != nil {
		return err
	}
	if cfg.list || cfg.table == "" {
		return listTables(os.Stdout, cat)
	}
	return run(log, cat)
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	var src fs.FS = tables.FS
	if dir != "" {
		src = os.DirFS(dir)
	}
	return catalog.New(src)
}

func listTables(w io.Writer, cat *catalog.Catalog) error {
	p := message.NewPrinter(langTag())
	for _, t := range cat.All() {
		total := 0.0
		for _, pair := range t.Pairs {
			total += pair.Weight
		}
		if _, err := p.Fprintf(w, "%-16s items=%-4d total_weight=%.4f  (%s)\n", t.Name, len(t.Pairs), total, t.File); err != nil {
			return err
		}
	}
	return nil
}

func run(log *slog.Logger, cat *catalog.Catalog) error {
	t, err := cat.MustTable(cfg.table)
	if err != nil {
		return err
	}
	engine, err := compendium.ParseEngine(cfg.engine)
	if err != nil {
		return err
	}
	prng, ok := core.PRNGByName(cfg.prng)
	if !ok {
		return errs.Warnf("unknown prng %q (want pcg64 or pcg32)", cfg.prng)
	}
	render, ok := stats.RenderByName(cfg.format)
	if !ok {
		return errs.Warnf("unknown format %q (want table, json or yaml)", cfg.format)
	}
	seed, err := resolveSeed(t)
	if err != nil {
		return err
	}
	stats.SetLang(langTag())

	w, err := t.Randomizer(core.NewWithFactory(prng, seed))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	green := "\033[1;32m"
	reset := "\033[0m"
	message.NewPrinter(langTag()).Fprintf(os.Stderr, "%s[TABLE:%s] [ENGINE:%s] [PRNG:%s] [WORKERS:%d] [DRAWS:%d] [SEED:%d]%s\n",
		green, t.Name, engine, cfg.prng, cfg.workers, cfg.draws, seed, reset)

	sc := compendium.SimConfig{Engine: engine, Draws: cfg.draws, Workers: cfg.workers, Seed: seed, PRNG: prng}
	if cfg.showpb {
		sc.Progress = os.Stderr
	}
	tally, used, err := compendium.Simulate(ctx, w, sc)
	if err != nil {
		return err
	}
	log.Debug("simulate done", slog.String("table", t.Name), slog.Duration("used", used))

	rep, err := stats.Audit(t.Name, w, tally)
	if err != nil {
		return err
	}
	rep.Summary.Engine = string(engine)
	rep.Summary.Seed = seed
	rep.SetElapsed(used)
	if err := rep.WriteWith(os.Stdout, render); err != nil {
		return err
	}
	if cfg.alpha > 0 && !rep.Passed(cfg.alpha) {
		log.Warn("audit failed",
			slog.String("table", t.Name),
			slog.Float64("p_value", rep.Summary.PValue),
			slog.Float64("alpha", cfg.alpha),
			slog.Int("unexpected", rep.Summary.Unexpected),
		)
		exitCode = 2
	}
	return nil
}

// resolveSeed 優先順序：-seed、表的 seed、crypto/rand
func resolveSeed(t *catalog.Table) (int64, error) {
	if cfg.seed >= 0 {
		return cfg.seed, nil
	}
	if t.Seed != nil {
		return *t.Seed, nil
	}
	return core.NewSeed()
}

func langTag() language.Tag {
	tag, err := language.Parse(cfg.lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown language %q, using en\n", cfg.lang)
		return language.English
	}
	return tag
}
