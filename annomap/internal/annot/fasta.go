package annot

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type fastaRecord struct {
	id string
}

// parseFasta reports the ID of every record; sequence lines are skipped.
func parseFasta(r io.Reader, onRecord func(fastaRecord) error) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var (
		header string
		open   bool
	)
	emit := func() error {
		if !open {
			return nil
		}
		rec := fastaRecord{id: fastaID(header)}
		header, open = "", false
		return onRecord(rec)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			if err := emit(); err != nil {
				return err
			}
			header = strings.TrimSpace(line[1:])
			open = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan fasta: %w", err)
	}
	return emit()
}

func fastaID(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
