// Package cmd is for command line interactions with annomap
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Doomsbay/AnnoMap/annomap/config"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "annomap",
	Short: "Classify gene correspondence between two versions of a genome annotation",
	Long: `Collapse transcript tracking records into a gene-level correspondence graph,
label every gene with one relationship scenario (one-to-one, one-to-two,
one-to-three-plus, many-to-one, complex, unmapped), find reciprocal best hits
between the two protein sets and measure merged domain coverage.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// rootKeys maps config keys to the persistent flags of rootCmd.
var rootKeys = map[string]string{
	"workers":       "workers",
	"strict":        "strict",
	"progress":      "progress",
	"verbose":       "verbose",
	"output.dir":    "out",
	"output.format": "format",
	"output.report": "report",
	"output.gzip":   "gzip",
}

var cfgFile string

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fatalf("annomap: %v", err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "YAML config file (ANNOMAP_* env vars also apply)")
	pf.IntP("workers", "w", 0, "worker goroutines (<=0 defaults to GOMAXPROCS)")
	pf.Bool("strict", false, "abort on the first malformed row or unclassifiable component")
	pf.Bool("progress", true, "show row progress on stderr")
	pf.BoolP("verbose", "v", false, "debug logging")
	pf.StringP("out", "o", "annomap_out", "output directory")
	pf.String("format", "tsv", "table format: tsv, arrow or parquet")
	pf.String("report", "", "JSON report path (default <out>/report.json)")
	pf.Bool("gzip", false, "gzip TSV tables")
}

// settings builds the config of one invocation: defaults, then the config
// file, then ANNOMAP_* env vars, then flags set on cmd.
func settings(cmd *cobra.Command, keys map[string]string) (config.Config, *zap.Logger, error) {
	v := viper.New()
	for _, m := range []map[string]string{rootKeys, keys} {
		for key, name := range m {
			f := cmd.Flags().Lookup(name)
			if f == nil {
				return config.Config{}, nil, fmt.Errorf("flag --%s not defined on %s", name, cmd.Name())
			}
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, nil, err
			}
		}
	}
	if err := config.Setup(v, cfgFile); err != nil {
		return config.Config{}, nil, err
	}
	c, err := config.New(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := newLogger(c.Verbose)
	if err != nil {
		return config.Config{}, nil, err
	}
	return c, log, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.Sampling = nil
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
