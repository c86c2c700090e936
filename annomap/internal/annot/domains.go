package annot

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Doomsbay/AnnoMap/annomap/internal/coverage"
	"github.com/Doomsbay/AnnoMap/annomap/internal/tsv"
)

// DomainFormat selects the layout of a domain interval table.
type DomainFormat int

const (
	// DomainsHeader is a table with entity_key, start and end columns.
	DomainsHeader DomainFormat = iota
	// DomainsInterProScan is the headerless InterProScan TSV output: protein
	// accession in column 1, start and end in columns 7 and 8.
	DomainsInterProScan
)

func (f DomainFormat) String() string {
	switch f {
	case DomainsHeader:
		return "header"
	case DomainsInterProScan:
		return "interproscan"
	}
	return fmt.Sprintf("domains(%d)", int(f))
}

// ParseDomainFormat accepts the names returned by DomainFormat.String.
func ParseDomainFormat(s string) (DomainFormat, error) {
	switch strings.ToLower(s) {
	case "header", "":
		return DomainsHeader, nil
	case "interproscan", "ips":
		return DomainsInterProScan, nil
	}
	return 0, fmt.Errorf("unknown domain format %q", s)
}

var domainColumns = [][]string{
	{"entity_key", "protein_id", "gene_id", "key"},
	{"start"},
	{"end", "stop"},
}

// InterProScan columns, 0-based.
const (
	ipsAccession = 0
	ipsAnalysis  = 3
	ipsStart     = 6
	ipsEnd       = 7
)

// Domains is the content of a domain table, grouped by entity key in first
// appearance order.
type Domains struct {
	Keys      []string
	Intervals map[string][]coverage.Interval
	Failures  []error
}

// DomainOptions restricts which rows of a domain table are kept.
type DomainOptions struct {
	// Analyses keeps only InterProScan rows of these member databases (e.g.
	// Pfam). Empty keeps all.
	Analyses []string
	// IDs maps entity keys, e.g. protein to gene, before grouping.
	IDs map[string]string
}

// ReadDomains parses a domain table. Interval bounds are not validated here;
// coverage.Coverage reports bad intervals per key.
func ReadDomains(r io.Reader, f DomainFormat, dopts DomainOptions, opts Options) (Domains, error) {
	out := Domains{Intervals: make(map[string][]coverage.Interval)}
	var (
		idx  []int
		need int
	)
	popts := opts.table()
	switch f {
	case DomainsInterProScan:
		idx = []int{ipsAccession, ipsStart, ipsEnd}
		need = ipsEnd
	case DomainsHeader:
		popts = opts.headerTable()
	default:
		return Domains{}, fmt.Errorf("unknown domain format %d", int(f))
	}
	analyses := make(map[string]struct{}, len(dopts.Analyses))
	for _, a := range dopts.Analyses {
		analyses[strings.ToLower(a)] = struct{}{}
	}

	err := tsv.Parse(r, popts, func(row tsv.Row) error {
		if idx == nil {
			h, cols, err := opts.header(row, domainColumns...)
			if err != nil || h == nil {
				return err
			}
			idx, need = cols, maxIndex(cols...)
			return nil
		}
		if opts.skip(row) {
			return nil
		}
		if len(row.Fields) <= need {
			out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "expected at least %d columns, got %d", need+1, len(row.Fields)))
			return nil
		}
		if f == DomainsInterProScan && len(analyses) > 0 {
			if _, ok := analyses[strings.ToLower(string(row.Fields[ipsAnalysis]))]; !ok {
				return nil
			}
		}
		key := string(row.Fields[idx[0]])
		if key == "" {
			out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "empty entity key"))
			return nil
		}
		if to, ok := dopts.IDs[key]; ok && to != "" {
			key = to
		}
		start, err1 := strconv.Atoi(string(row.Fields[idx[1]]))
		end, err2 := strconv.Atoi(string(row.Fields[idx[2]]))
		if err1 != nil || err2 != nil {
			out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "bad interval %q-%q", row.Fields[idx[1]], row.Fields[idx[2]]))
			return nil
		}
		if _, ok := out.Intervals[key]; !ok {
			out.Keys = append(out.Keys, key)
		}
		out.Intervals[key] = append(out.Intervals[key], coverage.Interval{Start: start, End: end})
		return nil
	})
	if err != nil {
		return Domains{}, fmt.Errorf("read domains %s: %w", opts.Source, err)
	}

	log := opts.logger()
	if len(out.Keys) == 0 {
		log.Warn("domain table is empty", zap.String("source", opts.Source), zap.Error(ErrEmptyInput))
	}
	log.Debug("domain table read",
		zap.String("source", opts.Source),
		zap.Stringer("format", f),
		zap.Int("keys", len(out.Keys)),
		zap.Int("failures", len(out.Failures)))
	return out, nil
}
