package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"go.uber.org/zap"

	"github.com/Doomsbay/AnnoMap/annomap/config"
	"github.com/Doomsbay/AnnoMap/annomap/internal/annot"
	"github.com/Doomsbay/AnnoMap/annomap/internal/bbh"
	"github.com/Doomsbay/AnnoMap/annomap/internal/coverage"
	"github.com/Doomsbay/AnnoMap/annomap/internal/graph"
	"github.com/Doomsbay/AnnoMap/annomap/internal/multiplicity"
	"github.com/Doomsbay/AnnoMap/annomap/internal/scenario"
	"github.com/Doomsbay/AnnoMap/annomap/internal/table"
)

// maxLoggedFailures caps the per-stage warnings; the report keeps the count.
const maxLoggedFailures = 20

// run carries the settings and the report of one command invocation.
type run struct {
	cfg    config.Config
	log    *zap.Logger
	rep    *report
	format table.Format
}

func newRun(command string, cfg config.Config, log *zap.Logger) (*run, error) {
	format, err := table.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &run{cfg: cfg, log: log, rep: newReport(command), format: format}, nil
}

// failures applies the failure policy of a stage: with --strict the first
// failure aborts the run, otherwise each is logged and skipped.
func (r *run) failures(stage string, errs []error) error {
	r.rep.Failures[stage] += len(errs)
	if len(errs) == 0 {
		return nil
	}
	if r.cfg.Strict {
		return fmt.Errorf("%s: %w (%d failures, strict mode)", stage, errs[0], len(errs))
	}
	for i, err := range errs {
		if i == maxLoggedFailures {
			r.log.Warn("further failures not shown", zap.String("stage", stage), zap.Int("count", len(errs)-i))
			break
		}
		r.log.Warn("skipped", zap.String("stage", stage), zap.Error(err))
	}
	return nil
}

// readTable opens path and hands it to read, with parser options that tick a
// progress bar per data row.
func (r *run) readTable(path, desc string, read func(io.Reader, annot.Options) error) error {
	in, err := annot.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = in.Close()
	}()

	opts := annot.DefaultOptions()
	opts.Source = path
	opts.Logger = r.log
	opts.TSV.Workers = r.cfg.Workers
	if r.cfg.Progress {
		total, err := countLines(path)
		if err != nil {
			return fmt.Errorf("count rows %s: %w", path, err)
		}
		bar := newProgress(total, desc, true)
		defer bar.finish()
		opts.TSV.Progress = bar
	}
	return read(in, opts)
}

// universes holds the gene sets of both annotations and the ID maps that
// resolve transcript and protein IDs to their genes.
type universes struct {
	genes graph.Universe
	ids   [2]bbh.IDMap
}

func (r *run) loadUniverses() (universes, error) {
	var (
		out   universes
		lists [2][]string
	)
	for side, path := range [2]string{r.cfg.Input.OldGenes, r.cfg.Input.NewGenes} {
		if path == "" {
			continue
		}
		opts := annot.DefaultOptions()
		opts.Logger = r.log
		opts.TSV.Workers = r.cfg.Workers
		u, err := annot.LoadUniverse(path, nil, opts)
		if err != nil {
			return universes{}, err
		}
		lists[side] = u.Genes
		out.ids[side] = u.IDs
		r.rep.input(graph.Side(side).String()+"_genes", path)
	}
	out.genes = graph.NewUniverse(lists[graph.Old], lists[graph.New])
	return out, nil
}

type classification struct {
	graph  *graph.Graph
	result scenario.Result
}

func (r *run) classify(ctx context.Context, u universes) (classification, error) {
	path := r.cfg.Input.Tracking
	if path == "" {
		return classification{}, errors.New("a tracking table is required (--tracking)")
	}
	dialect, err := annot.ParseDialect(r.cfg.Input.Dialect)
	if err != nil {
		return classification{}, err
	}
	r.rep.input("tracking", path)

	var tr annot.Tracking
	err = r.readTable(path, "tracking", func(in io.Reader, opts annot.Options) error {
		var err error
		tr, err = annot.ReadTracking(in, dialect, opts)
		return err
	})
	if err != nil {
		return classification{}, err
	}
	if err := r.failures("tracking", tr.Failures); err != nil {
		return classification{}, err
	}

	g := graph.Build(tr.Records, u.genes, graph.WithLogger(r.log))
	if err := r.failures("graph", g.Failures); err != nil {
		return classification{}, err
	}
	m := multiplicity.Analyze(g)
	res, err := scenario.Classify(ctx, g, m, u.genes, scenario.Options{Workers: r.cfg.Workers, Logger: r.log})
	if err != nil {
		return classification{}, err
	}
	if err := r.failures("classify", res.Failures); err != nil {
		return classification{}, err
	}

	r.rep.addClassification(len(tr.Records), g, m, res)
	r.log.Info("classified genes",
		zap.Int("old_genes", g.Universe().Len(graph.Old)),
		zap.Int("new_genes", g.Universe().Len(graph.New)),
		zap.Int("gene_edges", g.Len()),
		zap.Int("groups", len(res.Groups)))
	return classification{graph: g, result: res}, nil
}

func (r *run) reciprocal(u universes) (bbh.Result, error) {
	format, err := annot.ParseHitFormat(r.cfg.BBH.Format)
	if err != nil {
		return bbh.Result{}, err
	}
	var tables [2]annot.Hits
	for i, path := range [2]string{r.cfg.BBH.Forward, r.cfg.BBH.Reverse} {
		if path == "" {
			return bbh.Result{}, errors.New("both hit tables are required (--forward, --reverse)")
		}
		r.rep.input([2]string{"forward_hits", "reverse_hits"}[i], path)
		err := r.readTable(path, "hits", func(in io.Reader, opts annot.Options) error {
			var err error
			tables[i], err = annot.ReadHits(in, format, opts)
			return err
		})
		if err != nil {
			return bbh.Result{}, err
		}
		if err := r.failures("hits", tables[i].Failures); err != nil {
			return bbh.Result{}, err
		}
	}

	res := bbh.Match(tables[0].Hits, tables[1].Hits, bbh.Options{
		Thresholds: bbh.Thresholds{MinIdentity: r.cfg.BBH.MinIdentity, MinCoverage: r.cfg.BBH.MinCoverage},
		OldIDs:     u.ids[graph.Old],
		NewIDs:     u.ids[graph.New],
		Logger:     r.log,
	})
	r.log.Info("reciprocal best hits",
		zap.Int("pairs", len(res.Pairs)),
		zap.Int("filtered_forward", res.Filtered[0]),
		zap.Int("filtered_reverse", res.Filtered[1]))
	return res, nil
}

func (r *run) coverage(ctx context.Context, u universes) (coverage.Report, error) {
	path := r.cfg.Coverage.Domains
	if path == "" {
		return coverage.Report{}, errors.New("a domain table is required (--domains)")
	}
	format, err := annot.ParseDomainFormat(r.cfg.Coverage.Format)
	if err != nil {
		return coverage.Report{}, err
	}
	dopts := annot.DomainOptions{Analyses: r.cfg.Coverage.Analyses}
	switch r.cfg.Coverage.Side {
	case "old":
		dopts.IDs = u.ids[graph.Old]
	case "new":
		dopts.IDs = u.ids[graph.New]
	}
	if r.cfg.Coverage.Side != "" && len(dopts.IDs) == 0 {
		r.log.Warn("no ID map for coverage side; keys are used as they are",
			zap.String("side", r.cfg.Coverage.Side))
	}
	r.rep.input("domains", path)

	var d annot.Domains
	err = r.readTable(path, "domains", func(in io.Reader, opts annot.Options) error {
		var err error
		d, err = annot.ReadDomains(in, format, dopts, opts)
		return err
	})
	if err != nil {
		return coverage.Report{}, err
	}
	if err := r.failures("domains", d.Failures); err != nil {
		return coverage.Report{}, err
	}

	rep, err := coverage.Coverage(ctx, d.Intervals, coverage.Options{
		Policy:  coverage.Policy{MergeTouching: r.cfg.Coverage.MergeTouching},
		Workers: r.cfg.Workers,
		Logger:  r.log,
	})
	if err != nil {
		return coverage.Report{}, err
	}
	if err := r.failures("coverage", rep.Failures); err != nil {
		return coverage.Report{}, err
	}
	r.rep.addCoverage(rep)
	r.log.Info("domain coverage", zap.Int("keys", len(rep.Results)), zap.Int("failed", len(rep.Failures)))
	return rep, nil
}

// writeTable writes rec into the output directory as name plus the format
// extension, and releases it.
func (r *run) writeTable(name string, rec arrow.Record) error {
	defer rec.Release()
	gz := r.cfg.Output.Gzip && r.format == table.TSV
	path := filepath.Join(r.cfg.Output.Dir, name+r.format.Ext())
	if gz {
		path += ".gz"
	}
	out, err := createOutput(path, gz, r.cfg.Workers)
	if err != nil {
		return err
	}
	if err := table.Write(out, r.format, rec); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	r.rep.Outputs = append(r.rep.Outputs, path)
	r.log.Info("wrote table", zap.String("path", path), zap.Int64("rows", rec.NumRows()))
	return nil
}

func (r *run) writeDOT(g *graph.Graph) error {
	b, err := g.DOT("correspondence")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	path := filepath.Join(r.cfg.Output.Dir, "correspondence.dot")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	r.rep.Outputs = append(r.rep.Outputs, path)
	return nil
}

// writeClassification writes the scenario and edge tables. pairs may be nil
// when no hit tables were given.
func (r *run) writeClassification(c classification, pairs []bbh.Pair) ([]bbh.Pair, error) {
	if err := r.writeTable("scenarios", table.Scenarios(c.result.Genes)); err != nil {
		return nil, err
	}
	edges, unmatched := bbh.Annotate(c.graph.Edges(), pairs)
	if err := r.writeTable("edges", table.Edges(edges)); err != nil {
		return nil, err
	}
	if r.cfg.Output.Dot {
		if err := r.writeDOT(c.graph); err != nil {
			return nil, err
		}
	}
	return unmatched, nil
}

func (r *run) finish() error {
	r.rep.Finished = time.Now().UTC()
	path := r.cfg.Output.Report
	if path == "" {
		path = filepath.Join(r.cfg.Output.Dir, "report.json")
	}
	if err := writeReport(path, r.rep); err != nil {
		return err
	}
	r.log.Info("run finished",
		zap.String("run_id", r.rep.RunID),
		zap.String("report", path),
		zap.Duration("elapsed", r.rep.Finished.Sub(r.rep.Started)))
	return nil
}
