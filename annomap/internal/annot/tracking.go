package annot

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Doomsbay/AnnoMap/annomap/internal/graph"
	"github.com/Doomsbay/AnnoMap/annomap/internal/tsv"
)

// Options is shared by the table readers.
type Options struct {
	// Source names the input in errors and log lines.
	Source string
	TSV    tsv.Options
	Logger *zap.Logger
}

// DefaultOptions uses the default TSV parser settings and a no-op logger.
func DefaultOptions() Options {
	return Options{TSV: tsv.DefaultOptions(), Logger: zap.NewNop()}
}

// table returns the parser options for a table whose first row may be a
// header: rows must arrive in file order.
func (o Options) table() tsv.Options {
	t := o.TSV
	t.PreserveOrder = true
	return t
}

// headerTable returns the parser options for a table with a header row.
// Comment lines reach the callback, which hands them to header before the
// header is found and to skip after.
func (o Options) headerTable() tsv.Options {
	t := o.table()
	t.Comment = 0
	return t
}

func (o Options) skip(row tsv.Row) bool {
	c := o.TSV.Comment
	return c != 0 && len(row.Fields) > 0 && len(row.Fields[0]) > 0 && row.Fields[0][0] == c
}

// header resolves columns against a row read before the header was found. A
// commented row ("#old_gene_id ...") is the header when every column
// resolves, and a plain comment otherwise, reported as a nil Header.
func (o Options) header(row tsv.Row, columns ...[]string) (tsv.Header, []int, error) {
	if !o.skip(row) {
		h := tsv.NewHeader(row.Fields)
		idx, err := h.Require(columns...)
		return h, idx, err
	}
	fields := append([][]byte{row.Fields[0][1:]}, row.Fields[1:]...)
	h := tsv.NewHeader(fields)
	idx, err := h.Require(columns...)
	if err != nil {
		return nil, nil, nil
	}
	return h, idx, nil
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Dialect selects the layout of a tracking table.
type Dialect int

const (
	// Columns is a tab-separated table with a header row naming the old and
	// new gene and transcript columns.
	Columns Dialect = iota
	// GFFCompare is the headerless .tracking file written by gffcompare, with
	// the reference annotation taken as old and the first query as new.
	GFFCompare
)

func (d Dialect) String() string {
	switch d {
	case Columns:
		return "columns"
	case GFFCompare:
		return "gffcompare"
	}
	return fmt.Sprintf("dialect(%d)", int(d))
}

// ParseDialect accepts the names returned by Dialect.String.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "columns", "":
		return Columns, nil
	case "gffcompare", "tracking":
		return GFFCompare, nil
	}
	return 0, fmt.Errorf("unknown tracking dialect %q", s)
}

var (
	colOldGene = []string{"old_gene_id", "ref_gene_id", "old_gene"}
	colOldTx   = []string{"old_transcript_id", "ref_transcript_id", "ref_id", "old_transcript"}
	colNewGene = []string{"new_gene_id", "qry_gene_id", "new_gene"}
	colNewTx   = []string{"new_transcript_id", "qry_id", "new_transcript"}
	colCode    = []string{"correspondence_code", "class_code", "code"}
	colExons   = []string{"exon_count", "num_exons"}
)

// Tracking is the content of a tracking table. Rows that could not be parsed
// are left out of Records and reported in Failures.
type Tracking struct {
	Records  []graph.TranscriptRecord
	Failures []error
}

// ReadTracking parses a tracking table in the given dialect. Only read errors
// and a missing header are returned; bad rows are collected.
func ReadTracking(r io.Reader, d Dialect, opts Options) (Tracking, error) {
	var (
		out Tracking
		err error
	)
	switch d {
	case Columns:
		out, err = readColumns(r, opts)
	case GFFCompare:
		out, err = readGFFCompare(r, opts)
	default:
		return Tracking{}, fmt.Errorf("unknown tracking dialect %d", int(d))
	}
	if err != nil {
		return Tracking{}, fmt.Errorf("read tracking %s: %w", opts.Source, err)
	}
	log := opts.logger()
	if len(out.Records) == 0 {
		log.Warn("tracking table is empty", zap.String("source", opts.Source), zap.Error(ErrEmptyInput))
	}
	log.Debug("tracking table read",
		zap.String("source", opts.Source),
		zap.Stringer("dialect", d),
		zap.Int("records", len(out.Records)),
		zap.Int("failures", len(out.Failures)))
	return out, nil
}

func readColumns(r io.Reader, opts Options) (Tracking, error) {
	var (
		out    Tracking
		header tsv.Header
		idx    []int
		txIdx  [2]int
		exIdx  int
		need   int
	)
	err := tsv.Parse(r, opts.headerTable(), func(row tsv.Row) error {
		if header == nil {
			var err error
			header, idx, err = opts.header(row, colOldGene, colNewGene, colCode)
			if err != nil || header == nil {
				return err
			}
			txIdx = [2]int{header.Index(colOldTx...), header.Index(colNewTx...)}
			exIdx = header.Index(colExons...)
			need = maxIndex(idx[0], idx[1], idx[2], txIdx[0], txIdx[1], exIdx)
			return nil
		}
		if opts.skip(row) {
			return nil
		}
		if len(row.Fields) <= need {
			out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "expected at least %d columns, got %d", need+1, len(row.Fields)))
			return nil
		}
		rec := graph.TranscriptRecord{
			Line:    row.Line,
			OldGene: tsv.Nullable(row.Fields[idx[0]]),
			NewGene: tsv.Nullable(row.Fields[idx[1]]),
			Code:    tsv.Nullable(row.Fields[idx[2]]),
		}
		if txIdx[0] >= 0 {
			rec.OldTranscript = tsv.Nullable(row.Fields[txIdx[0]])
		}
		if txIdx[1] >= 0 {
			rec.NewTranscript = tsv.Nullable(row.Fields[txIdx[1]])
		}
		if exIdx >= 0 && !tsv.IsNull(row.Fields[exIdx]) {
			n, err := strconv.Atoi(string(row.Fields[exIdx]))
			if err != nil || n < 0 {
				out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "bad exon count %q", row.Fields[exIdx]))
				return nil
			}
			rec.ExonCount = n
		}
		out.Records = append(out.Records, rec)
		return nil
	})
	if err != nil {
		return Tracking{}, err
	}
	if header == nil {
		return Tracking{}, nil
	}
	return out, nil
}

// gffcompare .tracking columns.
const (
	gcRef   = 2
	gcCode  = 3
	gcQuery = 4
)

func readGFFCompare(r io.Reader, opts Options) (Tracking, error) {
	var out Tracking
	err := tsv.Parse(r, opts.table(), func(row tsv.Row) error {
		if len(row.Fields) <= gcQuery {
			out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "expected at least %d columns, got %d", gcQuery+1, len(row.Fields)))
			return nil
		}
		rec := graph.TranscriptRecord{Line: row.Line, Code: tsv.Nullable(row.Fields[gcCode])}
		if ref := row.Fields[gcRef]; !tsv.IsNull(ref) {
			gene, tx, ok := bytes.Cut(ref, []byte{'|'})
			if !ok {
				out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "reference %q is not gene|transcript", ref))
				return nil
			}
			rec.OldGene, rec.OldTranscript = string(gene), string(tx)
		}
		if q := row.Fields[gcQuery]; !tsv.IsNull(q) {
			parts := bytes.Split(trimSample(q), []byte{'|'})
			if len(parts) < 2 {
				out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "query %q is not gene|transcript|...", q))
				return nil
			}
			rec.NewGene, rec.NewTranscript = string(parts[0]), string(parts[1])
			if len(parts) > 2 && !tsv.IsNull(parts[2]) {
				n, err := strconv.Atoi(string(parts[2]))
				if err != nil || n < 0 {
					out.Failures = append(out.Failures, malformed(opts.Source, row.Line, "bad exon count %q", parts[2]))
					return nil
				}
				rec.ExonCount = n
			}
		}
		out.Records = append(out.Records, rec)
		return nil
	})
	return out, err
}

// trimSample drops the "qN:" sample prefix of a gffcompare query column.
func trimSample(b []byte) []byte {
	i := bytes.IndexByte(b, ':')
	if i < 2 || b[0] != 'q' {
		return b
	}
	for _, c := range b[1:i] {
		if c < '0' || c > '9' {
			return b
		}
	}
	return b[i+1:]
}

func maxIndex(values ...int) int {
	top := -1
	for _, v := range values {
		top = max(top, v)
	}
	return top
}
