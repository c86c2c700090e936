package annot

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Doomsbay/AnnoMap/annomap/internal/bbh"
	"github.com/Doomsbay/AnnoMap/annomap/internal/tsv"
)

// HitFormat selects the layout of a similarity-search table.
type HitFormat int

const (
	// HitsHeader is a table with a header row.
	HitsHeader HitFormat = iota
	// HitsDiamond is headerless BLAST/DIAMOND tabular output written with
	// --outfmt 6 qseqid sseqid pident qcovhsp evalue bitscore.
	HitsDiamond
)

func (f HitFormat) String() string {
	switch f {
	case HitsHeader:
		return "header"
	case HitsDiamond:
		return "diamond"
	}
	return fmt.Sprintf("hits(%d)", int(f))
}

// ParseHitFormat accepts the names returned by HitFormat.String.
func ParseHitFormat(s string) (HitFormat, error) {
	switch strings.ToLower(s) {
	case "header", "":
		return HitsHeader, nil
	case "diamond", "blast", "outfmt6":
		return HitsDiamond, nil
	}
	return 0, fmt.Errorf("unknown hit format %q", s)
}

var hitColumns = [][]string{
	{"query_id", "qseqid", "query"},
	{"subject_id", "sseqid", "subject", "target"},
	{"percent_identity", "pident", "identity"},
	{"coverage", "qcovhsp", "qcovs", "query_coverage"},
	{"e_value", "evalue"},
	{"bit_score", "bitscore"},
}

// Hits is the content of a hit table.
type Hits struct {
	Hits     []bbh.Hit
	Failures []error
}

// ReadHits parses one directional hit table.
func ReadHits(r io.Reader, f HitFormat, opts Options) (Hits, error) {
	var (
		out  Hits
		idx  []int
		need int
	)
	popts := opts.table()
	switch f {
	case HitsDiamond:
		idx = []int{0, 1, 2, 3, 4, 5}
		need = 5
	case HitsHeader:
		popts = opts.headerTable()
	default:
		return Hits{}, fmt.Errorf("unknown hit format %d", int(f))
	}

	err := tsv.Parse(r, popts, func(row tsv.Row) error {
		if idx == nil {
			h, cols, err := opts.header(row, hitColumns...)
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
		h := bbh.Hit{
			Query:   string(row.Fields[idx[0]]),
			Subject: string(row.Fields[idx[1]]),
		}
		if h.Query == "" || h.Subject == "" {
			out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "empty query or subject id"))
			return nil
		}
		nums := [4]*float64{&h.Identity, &h.Coverage, &h.EValue, &h.BitScore}
		for i, dst := range nums {
			raw := row.Fields[idx[2+i]]
			v, err := strconv.ParseFloat(string(raw), 64)
			if err != nil {
				out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "column %s: bad number %q", hitColumns[2+i][0], raw))
				return nil
			}
			*dst = v
		}
		out.Hits = append(out.Hits, h)
		return nil
	})
	if err != nil {
		return Hits{}, fmt.Errorf("read hits %s: %w", opts.Source, err)
	}

	log := opts.logger()
	if len(out.Hits) == 0 {
		log.Warn("hit table is empty", zap.String("source", opts.Source), zap.Error(ErrEmptyInput))
	}
	log.Debug("hit table read",
		zap.String("source", opts.Source),
		zap.Stringer("format", f),
		zap.Int("hits", len(out.Hits)),
		zap.Int("failures", len(out.Failures)))
	return out, nil
}
