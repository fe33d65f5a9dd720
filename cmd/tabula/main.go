package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/tabula-lab/tabula/internal/config"
	"github.com/tabula-lab/tabula/internal/core/attr"
	"github.com/tabula-lab/tabula/internal/core/collection"
	"github.com/tabula-lab/tabula/internal/core/fold"
	"github.com/tabula-lab/tabula/internal/core/schema"
	"github.com/tabula-lab/tabula/internal/ingest"
)

func main() {
	configPath := flag.String("config", "tabula.yaml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	sc, err := schema.LoadFile(cfg.Schema.Path)
	if err != nil {
		slog.Error("Failed to load schema", "error", err)
		os.Exit(1)
	}

	in, closeIn, err := openInput(cfg.Input.Path)
	if err != nil {
		slog.Error("Failed to open input", "error", err)
		os.Exit(1)
	}
	defer closeIn()

	src, err := ingest.NewCSVSource(in)
	if err != nil {
		slog.Error("Failed to read csv input", "error", err)
		os.Exit(1)
	}

	report, err := ingest.Load(context.Background(), sc, src)
	if err != nil {
		slog.Error("Failed to load batch", "error", err)
		os.Exit(1)
	}

	groups := collection.Build(report.Records)

	if cfg.Filter.Enabled {
		cond, err := buildCondition(sc, cfg.Filter)
		if err != nil {
			slog.Error("Invalid filter", "error", err)
			os.Exit(1)
		}
		groups = groups.Filter(cond)
	}

	op := fold.Operation{Op: cfg.Fold.Operator, Field: cfg.Fold.Field}
	var result *fold.Result
	if cfg.Fold.Workers > 1 {
		result, err = fold.FoldParallel(context.Background(), groups, op, cfg.Fold.Workers)
	} else {
		result, err = fold.Fold(groups, op)
	}
	if err != nil {
		slog.Error("Fold failed", "error", err)
		os.Exit(1)
	}

	render(os.Stdout, groups, result)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func buildCondition(sc *schema.Ctx, fc config.FilterConfig) (collection.Condition, error) {
	value, err := sc.Parse(fc.Attr, fc.Value)
	if err != nil {
		return collection.Condition{}, err
	}
	var ord attr.Ordering
	switch fc.Op {
	case "<":
		ord = attr.Less
	case ">":
		ord = attr.Greater
	default:
		ord = attr.Equal
	}
	return collection.Condition{Attr: fc.Attr, Value: value, Ord: ord}, nil
}

func render(w io.Writer, groups *collection.Collection, result *fold.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "GROUP\tSIZE\t%s\n", result.Operation().Op)
	for _, g := range groups.Groups() {
		scalar, _ := result.Value(g)
		fmt.Fprintf(tw, "%016x\t%d\t%s\n", g.ID(), g.Size(), scalar)
	}
	tw.Flush()
}
