// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ANNOMAP_BBH_MIN_IDENTITY.
const EnvPrefix = "ANNOMAP"

// InputConfig names the input tables
type InputConfig struct {
	// transcript tracking table
	Tracking string `mapstructure:"tracking"`

	// tracking layout: columns or gffcompare
	Dialect string `mapstructure:"dialect"`

	// gene universes: GFF3, FASTA or a plain ID list
	OldGenes string `mapstructure:"old-genes"`
	NewGenes string `mapstructure:"new-genes"`
}

// BBHConfig is settings for reciprocal best hits
type BBHConfig struct {
	// old proteins searched against new ones, and the reverse
	Forward string `mapstructure:"forward"`
	Reverse string `mapstructure:"reverse"`

	// header or diamond
	Format string `mapstructure:"format"`

	// hits below either threshold (percent) are dropped before ranking
	MinIdentity float64 `mapstructure:"min-identity"`
	MinCoverage float64 `mapstructure:"min-coverage"`
}

// CoverageConfig is for domain coverage
type CoverageConfig struct {
	// domain interval table
	Domains string `mapstructure:"domains"`

	// header or interproscan
	Format string `mapstructure:"format"`

	// InterProScan member databases to keep; empty keeps all
	Analyses []string `mapstructure:"analyses"`

	// whether [a,b] and [b+1,c] merge into one interval
	MergeTouching bool `mapstructure:"merge-touching"`

	// old or new: sum coverage per gene of that annotation instead of per
	// entity key, resolving keys through its GFF3 ID map
	Side string `mapstructure:"side"`
}

// OutputConfig is for the written tables
type OutputConfig struct {
	// output directory
	Dir string `mapstructure:"dir"`

	// tsv, arrow or parquet
	Format string `mapstructure:"format"`

	// write the correspondence graph as Graphviz DOT
	Dot bool `mapstructure:"dot"`

	// JSON run report path; empty writes report.json into Dir
	Report string `mapstructure:"report"`

	// compress TSV tables with gzip
	Gzip bool `mapstructure:"gzip"`
}

// Config is the root-level settings struct and is a mix
// of settings available in a config file, the environment
// and those available from the command line
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	BBH      BBHConfig      `mapstructure:"bbh"`
	Coverage CoverageConfig `mapstructure:"coverage"`
	Output   OutputConfig   `mapstructure:"output"`

	// parser and classification goroutines; <=0 uses GOMAXPROCS
	Workers int `mapstructure:"workers"`

	// abort on the first malformed row or failed component
	Strict bool `mapstructure:"strict"`

	// show row progress on stderr
	Progress bool `mapstructure:"progress"`

	// debug logging
	Verbose bool `mapstructure:"verbose"`
}

// SetDefaults registers the default of every key on v, which also makes each
// key visible to environment overrides.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input.tracking", "")
	v.SetDefault("input.dialect", "columns")
	v.SetDefault("input.old-genes", "")
	v.SetDefault("input.new-genes", "")

	v.SetDefault("bbh.forward", "")
	v.SetDefault("bbh.reverse", "")
	v.SetDefault("bbh.format", "header")
	v.SetDefault("bbh.min-identity", 0.0)
	v.SetDefault("bbh.min-coverage", 0.0)

	v.SetDefault("coverage.domains", "")
	v.SetDefault("coverage.format", "header")
	v.SetDefault("coverage.analyses", []string{})
	v.SetDefault("coverage.merge-touching", true)
	v.SetDefault("coverage.side", "")

	v.SetDefault("output.dir", "annomap_out")
	v.SetDefault("output.format", "tsv")
	v.SetDefault("output.dot", false)
	v.SetDefault("output.report", "")
	v.SetDefault("output.gzip", false)

	v.SetDefault("workers", runtime.GOMAXPROCS(0))
	v.SetDefault("strict", false)
	v.SetDefault("progress", true)
	v.SetDefault("verbose", false)
}

// Setup wires defaults and ANNOMAP_* environment overrides into v and reads
// the config file when one is given.
func Setup(v *viper.Viper, file string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", file, err)
	}
	return nil
}

// New returns a Config populated by the settings in v
func New(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c, c.Validate()
}

// Validate checks value ranges; file existence is left to the readers.
func (c Config) Validate() error {
	if c.BBH.MinIdentity < 0 || c.BBH.MinIdentity > 100 {
		return fmt.Errorf("bbh.min-identity must be within 0-100, got %g", c.BBH.MinIdentity)
	}
	if c.BBH.MinCoverage < 0 || c.BBH.MinCoverage > 100 {
		return fmt.Errorf("bbh.min-coverage must be within 0-100, got %g", c.BBH.MinCoverage)
	}
	if (c.BBH.Forward == "") != (c.BBH.Reverse == "") {
		return fmt.Errorf("bbh.forward and bbh.reverse must be given together")
	}
	switch c.Coverage.Side {
	case "", "old", "new":
	default:
		return fmt.Errorf("coverage.side must be old or new, got %q", c.Coverage.Side)
	}
	return nil
}
