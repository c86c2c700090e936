// Package table encodes result tables as Arrow records and writes them as
// TSV, Arrow IPC or Parquet.
package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
)

// Format is an output encoding.
type Format int

const (
	TSV Format = iota
	Arrow
	Parquet
)

func (f Format) String() string {
	switch f {
	case TSV:
		return "tsv"
	case Arrow:
		return "arrow"
	case Parquet:
		return "parquet"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Ext is the file extension written for f.
func (f Format) Ext() string {
	return "." + f.String()
}

// ParseFormat accepts the names returned by Format.String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "tsv", "":
		return TSV, nil
	case "arrow", "ipc", "feather":
		return Arrow, nil
	case "parquet", "pq":
		return Parquet, nil
	}
	return 0, fmt.Errorf("unknown output format %q", s)
}

// sink hides the Close method of a writer.
type sink struct {
	io.Writer
}

// Write encodes rec to w. TSV output carries a header row and writes nulls as
// empty fields. w is never closed.
func Write(w io.Writer, f Format, rec arrow.Record) error {
	switch f {
	case TSV:
		cw := csv.NewWriter(w, rec.Schema(),
			csv.WithComma('\t'),
			csv.WithHeader(true),
			csv.WithNullWriter(""),
		)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write tsv: %w", err)
		}
		return cw.Flush()
	case Arrow:
		fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(memory.DefaultAllocator))
		if err != nil {
			return fmt.Errorf("create arrow writer: %w", err)
		}
		if err := fw.Write(rec); err != nil {
			_ = fw.Close()
			return fmt.Errorf("write arrow: %w", err)
		}
		return fw.Close()
	case Parquet:
		props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
		// pqarrow closes sinks that implement io.Closer; w stays open for
		// the caller.
		fw, err := pqarrow.NewFileWriter(rec.Schema(), sink{w}, props, pqarrow.DefaultWriterProps())
		if err != nil {
			return fmt.Errorf("create parquet writer: %w", err)
		}
		if err := fw.Write(rec); err != nil {
			_ = fw.Close()
			return fmt.Errorf("write parquet: %w", err)
		}
		return fw.Close()
	}
	return fmt.Errorf("unknown output format %d", int(f))
}
