package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Doomsbay/AnnoMap/annomap/internal/table"
)

var bbhKeys map[string]string

var bbhCmd = &cobra.Command{
	Use:   "bbh",
	Short: "Find reciprocal best hits between old and new proteins",
	Long: `Rank the hits of each query by e-value, then bit score, then subject ID, and
keep the pairs that are each other's best hit. With GFF3 gene universes the
protein and transcript IDs are collapsed to gene IDs first.

Writes bbh and report.json into --out.`,
	Example: `  annomap bbh --forward old_vs_new.m8 --reverse new_vs_old.m8 --hit-format diamond \
    --min-identity 30 --min-coverage 50 -o out`,
	RunE: runBBH,
}

func init() {
	bbhKeys = merge(hitFlags(bbhCmd), geneFlags(bbhCmd))
	rootCmd.AddCommand(bbhCmd)
}

func runBBH(cmd *cobra.Command, _ []string) error {
	cfg, log, err := settings(cmd, bbhKeys)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	r, err := newRun("bbh", cfg, log)
	if err != nil {
		return err
	}
	u, err := r.loadUniverses()
	if err != nil {
		return err
	}
	res, err := r.reciprocal(u)
	if err != nil {
		return err
	}
	r.rep.addBBH(res, 0)
	if err := r.writeTable("bbh", table.Pairs(res.Pairs)); err != nil {
		return err
	}
	return r.finish()
}
