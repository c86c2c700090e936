package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Doomsbay/AnnoMap/annomap/internal/bbh"
	"github.com/Doomsbay/AnnoMap/annomap/internal/table"
)

var pipelineKeys map[string]string

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Full pipeline: classify -> bbh (optional) -> coverage (optional)",
	Long: `Classify genes, then, when hit tables are given, find reciprocal best hits and
mark the gene edges they confirm, then, when a domain table is given, measure
domain coverage. All tables and one report.json are written into --out.`,
	RunE: runPipeline,
}

func init() {
	pipelineKeys = merge(
		trackingFlags(pipelineCmd),
		geneFlags(pipelineCmd),
		hitFlags(pipelineCmd),
		domainFlags(pipelineCmd),
	)
	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, log, err := settings(cmd, pipelineKeys)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	r, err := newRun("pipeline", cfg, log)
	if err != nil {
		return err
	}
	u, err := r.loadUniverses()
	if err != nil {
		return err
	}
	c, err := r.classify(cmd.Context(), u)
	if err != nil {
		return err
	}

	var hits *bbh.Result
	if cfg.BBH.Forward != "" {
		res, err := r.reciprocal(u)
		if err != nil {
			return err
		}
		hits = &res
		if err := r.writeTable("bbh", table.Pairs(res.Pairs)); err != nil {
			return err
		}
	} else {
		log.Info("no hit tables given; skipping reciprocal best hits")
	}

	var pairs []bbh.Pair
	if hits != nil {
		pairs = hits.Pairs
	}
	unmatched, err := r.writeClassification(c, pairs)
	if err != nil {
		return err
	}
	if hits != nil {
		r.rep.addBBH(*hits, len(unmatched))
		if len(unmatched) > 0 {
			log.Info("reciprocal best hits without a tracking edge", zap.Int("pairs", len(unmatched)))
		}
	}

	if cfg.Coverage.Domains != "" {
		rep, err := r.coverage(cmd.Context(), u)
		if err != nil {
			return err
		}
		if err := r.writeTable("coverage", table.Coverage(rep.Results)); err != nil {
			return err
		}
	} else {
		log.Info("no domain table given; skipping coverage")
	}
	return r.finish()
}
