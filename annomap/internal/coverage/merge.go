// Package coverage computes the non-overlapping length covered by per-entity
// interval lists, e.g. the total protein-domain length of a gene when domain
// calls from several member databases overlap.
package coverage

import (
	"fmt"
	"sort"
)

// Interval is a 1-based closed range.
type Interval struct {
	Start int
	End   int
}

// Len returns the number of positions in iv.
func (iv Interval) Len() int {
	return iv.End - iv.Start + 1
}

// Policy selects how neighbouring intervals are joined.
type Policy struct {
	// MergeTouching joins intervals where end+1 == next start. Total length is
	// identical either way; only the merged interval list differs.
	MergeTouching bool
}

// DefaultPolicy merges overlapping and touching intervals.
func DefaultPolicy() Policy {
	return Policy{MergeTouching: true}
}

func (p Policy) joins(curEnd, nextStart int) bool {
	if p.MergeTouching {
		return nextStart <= curEnd+1
	}
	return nextStart <= curEnd
}

// IntervalError reports an interval that violates 1 <= start <= end.
type IntervalError struct {
	Key      string
	Interval Interval
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("%s: invalid interval %d-%d", e.Key, e.Interval.Start, e.Interval.End)
}

// Validate checks every interval of key.
func Validate(key string, ivs []Interval) error {
	for _, iv := range ivs {
		if iv.Start < 1 || iv.Start > iv.End {
			return &IntervalError{Key: key, Interval: iv}
		}
	}
	return nil
}

func sorted(ivs []Interval) []Interval {
	out := make([]Interval, len(ivs))
	copy(out, ivs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// MergeIntervals returns the union of ivs as sorted disjoint intervals. The
// input is not modified.
func MergeIntervals(ivs []Interval, p Policy) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	s := sorted(ivs)
	merged := []Interval{s[0]}
	for _, iv := range s[1:] {
		cur := &merged[len(merged)-1]
		if p.joins(cur.End, iv.Start) {
			if iv.End > cur.End {
				cur.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// TotalLength returns the length of the union of ivs.
func TotalLength(ivs []Interval, p Policy) int {
	if len(ivs) == 0 {
		return 0
	}
	s := sorted(ivs)
	total := 0
	cur := s[0]
	for _, iv := range s[1:] {
		if p.joins(cur.End, iv.Start) {
			if iv.End > cur.End {
				cur.End = iv.End
			}
			continue
		}
		total += cur.Len()
		cur = iv
	}
	return total + cur.Len()
}

// RawLength is the plain sum of interval lengths, overlaps counted twice.
func RawLength(ivs []Interval) int {
	total := 0
	for _, iv := range ivs {
		total += iv.Len()
	}
	return total
}
