// Package tsv streams tab-separated tables with a pool of parsing workers.
package tsv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultBufferSize = 1 << 20 // 1 MiB
	defaultChunkSize  = 4 << 20 // 4 MiB
	defaultBatchLines = 1024
)

// Incrementer receives one tick per delivered data row.
type Incrementer interface {
	Increment()
}

// Options controls TSV parsing performance characteristics.
type Options struct {
	BufferSize      int  // Size of the bufio.Reader buffer
	ChunkSize       int  // Bytes to read per chunk before splitting into lines
	BatchLines      int  // How many lines to hand to a worker at once
	Workers         int  // Number of parsing workers
	StrictColumns   bool // Enforce a fixed column count (first row if ExpectedColumns == 0)
	ExpectedColumns int  // Expected column count when StrictColumns is true
	PreserveOrder   bool // Deliver rows in file order
	AllowCRLF       bool // Trim trailing \r when present
	SkipBlank       bool // Drop empty lines before they reach the callback
	Comment         byte // Lines starting with this byte are dropped (0 disables)
	Progress        Incrementer
	Timeout         time.Duration
}

// Row is a view over a TSV line. Fields point into an internal buffer and are
// only valid for the duration of the callback in Parse.
type Row struct {
	Line   int64
	Fields [][]byte
}

// Field returns column i as a string, or "" when the row is too short.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return string(r.Fields[i])
}

// Clone copies the row out of the shared chunk buffer.
func (r Row) Clone() Row {
	out := Row{Line: r.Line, Fields: make([][]byte, len(r.Fields))}
	for i, f := range r.Fields {
		out.Fields[i] = append([]byte(nil), f...)
	}
	return out
}

// chunk is a pooled read buffer shared by every batch cut from it. The last
// batch to finish returns it to the pool.
type chunk struct {
	data []byte
	pool *sync.Pool
	refs int32
}

func (c *chunk) release() {
	if c == nil {
		return
	}
	if atomic.AddInt32(&c.refs, -1) == 0 {
		c.pool.Put(c.data[:cap(c.data)])
	}
}

type batch struct {
	seq      int64
	chunk    *chunk
	lines    [][]byte
	lineNums []int64
}

type parsed struct {
	seq   int64
	rows  []Row
	chunk *chunk
}

// DefaultOptions returns a tuned baseline for annotation-sized tables.
func DefaultOptions() Options {
	return Options{
		BufferSize:    defaultBufferSize,
		ChunkSize:     defaultChunkSize,
		BatchLines:    defaultBatchLines,
		Workers:       runtime.GOMAXPROCS(0),
		PreserveOrder: true,
		AllowCRLF:     true,
		SkipBlank:     true,
		Comment:       '#',
	}
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.BatchLines <= 0 {
		o.BatchLines = defaultBatchLines
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Parse streams a TSV from r, invoking onRow for each kept line. Memory stays
// bounded by recycling chunk buffers; row data is only valid inside onRow.
func Parse(r io.Reader, opts Options, onRow func(Row) error) error {
	opts = opts.withDefaults()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()

	pool := &sync.Pool{
		New: func() any {
			return make([]byte, opts.ChunkSize)
		},
	}

	batches := make(chan *batch, opts.Workers*2)
	results := make(chan parsed, opts.Workers*2)
	readErr := make(chan error, 1)

	go func() {
		defer close(batches)
		readErr <- splitChunks(ctx, bufio.NewReaderSize(r, opts.BufferSize), opts, pool, batches)
	}()

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				results <- parseBatch(b, opts)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	err := deliver(ctx, cancel, opts, results, onRow)
	if err != nil {
		cancel()
	}
	rerr := <-readErr
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if rerr != nil && rerr != context.Canceled {
		return rerr
	}
	return nil
}

// Collect parses every row of r into owned copies.
func Collect(r io.Reader, opts Options) ([]Row, error) {
	var rows []Row
	opts.PreserveOrder = true
	err := Parse(r, opts, func(row Row) error {
		rows = append(rows, row.Clone())
		return nil
	})
	return rows, err
}

func splitChunks(ctx context.Context, r *bufio.Reader, opts Options, pool *sync.Pool, out chan<- *batch) error {
	tail := make([]byte, 0, 1024)
	var seq, lineNum int64

	send := func(b *batch) error {
		select {
		case out <- b:
			return nil
		case <-ctx.Done():
			b.chunk.release()
			return context.Canceled
		}
	}

	for {
		if ctx.Err() != nil {
			return context.Canceled
		}
		buf := pool.Get().([]byte)
		need := opts.ChunkSize + len(tail)
		if cap(buf) < need {
			buf = make([]byte, need)
		}
		buf = buf[:need]
		copy(buf, tail)
		n, err := io.ReadFull(r, buf[len(tail):])
		eof := err == io.EOF || err == io.ErrUnexpectedEOF
		if err != nil && !eof {
			pool.Put(buf[:cap(buf)])
			return err
		}
		data := buf[:len(tail)+n]

		var lines [][]byte
		var nums []int64
		start := 0
		for i, c := range data {
			if c != '\n' {
				continue
			}
			line := data[start:i]
			if opts.AllowCRLF && len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lineNum++
			lines = append(lines, line)
			nums = append(nums, lineNum)
			start = i + 1
		}
		tail = append(tail[:0], data[start:]...)

		if len(lines) == 0 {
			pool.Put(buf[:cap(buf)])
		} else {
			size := opts.BatchLines
			count := (len(lines) + size - 1) / size
			c := &chunk{data: buf, pool: pool, refs: int32(count)}
			for i := 0; i < count; i++ {
				lo, hi := i*size, (i+1)*size
				if hi > len(lines) {
					hi = len(lines)
				}
				if err := send(&batch{seq: seq, chunk: c, lines: lines[lo:hi], lineNums: nums[lo:hi]}); err != nil {
					for j := i + 1; j < count; j++ {
						c.release()
					}
					return err
				}
				seq++
			}
		}
		if eof {
			break
		}
	}

	if len(tail) == 0 {
		return nil
	}
	if opts.AllowCRLF && tail[len(tail)-1] == '\r' {
		tail = tail[:len(tail)-1]
	}
	c := &chunk{data: tail, pool: pool, refs: 1}
	lineNum++
	return send(&batch{seq: seq, chunk: c, lines: [][]byte{tail}, lineNums: []int64{lineNum}})
}

func parseBatch(b *batch, opts Options) parsed {
	rows := make([]Row, 0, len(b.lines))
	for i, line := range b.lines {
		if opts.SkipBlank && len(line) == 0 {
			continue
		}
		if opts.Comment != 0 && len(line) > 0 && line[0] == opts.Comment {
			continue
		}
		rows = append(rows, Row{Line: b.lineNums[i], Fields: splitFields(line, opts.ExpectedColumns)})
	}
	return parsed{seq: b.seq, rows: rows, chunk: b.chunk}
}

func deliver(ctx context.Context, cancel context.CancelFunc, opts Options, results <-chan parsed, onRow func(Row) error) error {
	var err error
	expected := opts.ExpectedColumns

	handle := func(res parsed) {
		defer res.chunk.release()
		if err != nil {
			return
		}
		defer func() {
			if err != nil {
				cancel()
			}
		}()
		for _, row := range res.rows {
			if ctx.Err() != nil {
				err = ctx.Err()
				return
			}
			if opts.StrictColumns {
				if expected == 0 {
					expected = len(row.Fields)
				} else if len(row.Fields) != expected {
					err = fmt.Errorf("line %d: expected %d columns, got %d", row.Line, expected, len(row.Fields))
					return
				}
			}
			if opts.Progress != nil {
				opts.Progress.Increment()
			}
			if cbErr := onRow(row); cbErr != nil {
				err = cbErr
				return
			}
		}
	}

	if !opts.PreserveOrder {
		for res := range results {
			handle(res)
		}
		return err
	}

	var next int64
	pending := make(map[int64]parsed)
	for res := range results {
		pending[res.seq] = res
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			handle(p)
			next++
		}
	}
	// Only reachable when the reader stopped early; drain what is left.
	for _, p := range pending {
		p.chunk.release()
	}
	return err
}

func splitFields(line []byte, expected int) [][]byte {
	// expected guides capacity to reduce slice growth.
	capacity := expected
	if capacity == 0 {
		capacity = 8
	}
	fields := make([][]byte, 0, capacity)
	start := 0
	for i, c := range line {
		if c == '\t' {
			fields = append(fields, line[start:i])
			start = i + 1
		}
	}
	return append(fields, line[start:])
}
