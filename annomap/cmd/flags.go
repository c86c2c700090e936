package cmd

import (
	"github.com/spf13/cobra"
)

func merge(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func trackingFlags(c *cobra.Command) map[string]string {
	f := c.Flags()
	f.StringP("tracking", "t", "", "transcript tracking table (.gz ok)")
	f.String("dialect", "columns", "tracking layout: columns or gffcompare")
	f.Bool("dot", false, "also write the gene graph as Graphviz DOT")
	return map[string]string{
		"input.tracking": "tracking",
		"input.dialect":  "dialect",
		"output.dot":     "dot",
	}
}

func geneFlags(c *cobra.Command) map[string]string {
	f := c.Flags()
	f.String("old-genes", "", "old gene universe: GFF3, FASTA or ID list")
	f.String("new-genes", "", "new gene universe: GFF3, FASTA or ID list")
	return map[string]string{
		"input.old-genes": "old-genes",
		"input.new-genes": "new-genes",
	}
}

func hitFlags(c *cobra.Command) map[string]string {
	f := c.Flags()
	f.String("forward", "", "hits of old proteins against new proteins")
	f.String("reverse", "", "hits of new proteins against old proteins")
	f.String("hit-format", "header", "hit table layout: header or diamond")
	f.Float64("min-identity", 0, "drop hits below this percent identity")
	f.Float64("min-coverage", 0, "drop hits below this percent coverage")
	return map[string]string{
		"bbh.forward":      "forward",
		"bbh.reverse":      "reverse",
		"bbh.format":       "hit-format",
		"bbh.min-identity": "min-identity",
		"bbh.min-coverage": "min-coverage",
	}
}

func domainFlags(c *cobra.Command) map[string]string {
	f := c.Flags()
	f.String("domains", "", "domain interval table")
	f.String("domain-format", "header", "domain table layout: header or interproscan")
	f.StringSlice("analyses", nil, "InterProScan member databases to keep (e.g. Pfam)")
	f.Bool("merge-touching", true, "merge intervals that touch end to start")
	f.String("coverage-side", "", "sum coverage per gene of the old or new annotation")
	return map[string]string{
		"coverage.domains":        "domains",
		"coverage.format":         "domain-format",
		"coverage.analyses":       "analyses",
		"coverage.merge-touching": "merge-touching",
		"coverage.side":           "coverage-side",
	}
}
