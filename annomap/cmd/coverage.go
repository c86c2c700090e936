package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Doomsbay/AnnoMap/annomap/internal/table"
)

var coverageKeys map[string]string

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Measure merged domain coverage per protein or gene",
	Long: `Merge the domain intervals of every entity and report the number of residues
covered at least once. Intervals are 1-based and inclusive; --merge-touching
joins [a,b] and [b+1,c].

Writes coverage and report.json into --out.`,
	Example: `  annomap coverage --domains proteins.ips.tsv --domain-format interproscan \
    --analyses Pfam -o out`,
	RunE: runCoverage,
}

func init() {
	coverageKeys = merge(domainFlags(coverageCmd), geneFlags(coverageCmd))
	rootCmd.AddCommand(coverageCmd)
}

func runCoverage(cmd *cobra.Command, _ []string) error {
	cfg, log, err := settings(cmd, coverageKeys)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	r, err := newRun("coverage", cfg, log)
	if err != nil {
		return err
	}
	u, err := r.loadUniverses()
	if err != nil {
		return err
	}
	rep, err := r.coverage(cmd.Context(), u)
	if err != nil {
		return err
	}
	if err := r.writeTable("coverage", table.Coverage(rep.Results)); err != nil {
		return err
	}
	return r.finish()
}
