// Package graph builds the gene-level correspondence graph between an old and
// a new genome annotation from transcript-level tracking records.
package graph

import (
	"fmt"
	"sort"
)

// Side names the annotation version a gene belongs to.
type Side int

const (
	Old Side = iota
	New
)

func (s Side) String() string {
	if s == New {
		return "new"
	}
	return "old"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Old {
		return New
	}
	return Old
}

// TranscriptRecord is one row of tracking data. Either gene may be empty when
// the transcript has no counterpart.
type TranscriptRecord struct {
	Line          int64 // source row, 1-based; 0 when not read from a file
	OldTranscript string
	OldGene       string
	NewTranscript string
	NewGene       string
	Code          string
	ExonCount     int // 0 when unknown
}

// Mapped reports whether the record links a gene on both sides.
func (r TranscriptRecord) Mapped() bool {
	return r.OldGene != "" && r.NewGene != ""
}

// MalformedRecordError marks a record that carries a correspondence code but
// no gene on either side.
type MalformedRecordError struct {
	Line   int64
	Record TranscriptRecord
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("row %d: correspondence code %q without old or new gene id (transcripts %q/%q)",
		e.Line, e.Record.Code, e.Record.OldTranscript, e.Record.NewTranscript)
}

// Universe is the full set of gene IDs of both annotations, including genes
// that never appear in a tracking record.
type Universe struct {
	ids [2]map[string]struct{}
}

// NewUniverse builds a universe from the two ID lists. Duplicates and empty
// IDs are ignored.
func NewUniverse(oldIDs, newIDs []string) Universe {
	var u Universe
	for _, id := range oldIDs {
		u.add(Old, id)
	}
	for _, id := range newIDs {
		u.add(New, id)
	}
	return u
}

func (u *Universe) add(s Side, id string) bool {
	if id == "" {
		return false
	}
	if u.ids[s] == nil {
		u.ids[s] = make(map[string]struct{})
	}
	if _, ok := u.ids[s][id]; ok {
		return false
	}
	u.ids[s][id] = struct{}{}
	return true
}

// Contains reports whether id is a gene of side s.
func (u Universe) Contains(s Side, id string) bool {
	_, ok := u.ids[s][id]
	return ok
}

// Len returns the number of genes on side s.
func (u Universe) Len(s Side) int {
	return len(u.ids[s])
}

// Genes returns the sorted gene IDs of side s.
func (u Universe) Genes(s Side) []string {
	out := make([]string, 0, len(u.ids[s]))
	for id := range u.ids[s] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (u Universe) clone() Universe {
	var c Universe
	for s := range u.ids {
		c.ids[s] = make(map[string]struct{}, len(u.ids[s]))
		for id := range u.ids[s] {
			c.ids[s][id] = struct{}{}
		}
	}
	return c
}
