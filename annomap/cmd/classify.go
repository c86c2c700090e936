package cmd

import (
	"github.com/spf13/cobra"
)

var classifyKeys map[string]string

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Label every gene with its correspondence scenario",
	Long: `Read a transcript tracking table, collapse it into gene edges and label each
connected component of the gene graph. Genes of --old-genes/--new-genes that
never appear in a tracking record are reported as unmapped.

Writes scenarios, edges and report.json into --out.`,
	Example: `  annomap classify -t compare.tracking --dialect gffcompare \
    --old-genes old.gff3.gz --new-genes new.gff3.gz -o out`,
	RunE: runClassify,
}

func init() {
	classifyKeys = merge(trackingFlags(classifyCmd), geneFlags(classifyCmd))
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, _ []string) error {
	cfg, log, err := settings(cmd, classifyKeys)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	r, err := newRun("classify", cfg, log)
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
	if _, err := r.writeClassification(c, nil); err != nil {
		return err
	}
	return r.finish()
}
