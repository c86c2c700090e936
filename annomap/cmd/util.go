package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/klauspost/pgzip"

	"github.com/Doomsbay/AnnoMap/annomap/internal/annot"
)

const writerBufferSize = 1 << 20

func countLines(path string) (int, error) {
	in, err := annot.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = in.Close()
	}()

	buf := make([]byte, 1024*1024)
	var count int
	var lastByte byte
	for {
		n, err := in.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			lastByte = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if lastByte != '\n' && count > 0 {
		count++
	}
	return count, nil
}

// outputFile is a buffered file, optionally gzip-compressed on several
// goroutines.
type outputFile struct {
	file *os.File
	buf  *bufio.Writer
	gz   io.Closer
	done bool
}

func createOutput(path string, gzipOut bool, gzipWorkers int) (*outputFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if !gzipOut {
		return &outputFile{file: f, buf: bufio.NewWriterSize(f, writerBufferSize)}, nil
	}
	if gzipWorkers <= 0 {
		gzipWorkers = runtime.GOMAXPROCS(0)
	}
	pw, err := pgzip.NewWriterLevel(f, pgzip.DefaultCompression)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	if err := pw.SetConcurrency(1<<20, gzipWorkers); err != nil {
		_ = pw.Close()
		_ = f.Close()
		return nil, fmt.Errorf("set gzip concurrency: %w", err)
	}
	return &outputFile{file: f, buf: bufio.NewWriterSize(pw, writerBufferSize), gz: pw}, nil
}

func (o *outputFile) Write(p []byte) (int, error) {
	return o.buf.Write(p)
}

// Close flushes the buffer and gzip stream before closing the file. Later
// calls return nil.
func (o *outputFile) Close() error {
	if o.done {
		return nil
	}
	o.done = true
	err := o.buf.Flush()
	if o.gz != nil {
		if cerr := o.gz.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := o.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
