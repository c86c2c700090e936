// Package scenario assigns every gene of two annotation versions to exactly
// one relationship scenario, based on the connected component it belongs to.
package scenario

import (
	"fmt"
)

// Label is one of the mutually exclusive relationship scenarios.
type Label int

const (
	OneToOne Label = iota
	OneToTwo
	OneToMany
	ManyToOne
	Complex
	UnmappedOld
	UnmappedNew
	// PositionalSwap is reserved. On real data it overlapped one-to-one
	// completely, so no rule assigns it.
	PositionalSwap
)

var labelNames = [...]string{
	OneToOne:       "one_to_one",
	OneToTwo:       "one_to_two",
	OneToMany:      "one_to_three_plus",
	ManyToOne:      "many_to_one",
	Complex:        "complex_cross_mapping",
	UnmappedOld:    "unmapped_old",
	UnmappedNew:    "unmapped_new",
	PositionalSwap: "positional_swap",
}

func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return fmt.Sprintf("label(%d)", int(l))
	}
	return labelNames[l]
}

// ParseLabel is the inverse of Label.String.
func ParseLabel(s string) (Label, error) {
	for i, name := range labelNames {
		if name == s {
			return Label(i), nil
		}
	}
	return 0, fmt.Errorf("unknown scenario label %q", s)
}

// Labels lists the labels that can be assigned, in report order.
func Labels() []Label {
	return []Label{OneToOne, OneToTwo, OneToMany, ManyToOne, Complex, UnmappedOld, UnmappedNew}
}

// ShapeError reports a component whose gene counts match no rule.
type ShapeError struct {
	Component int
	Old       int
	New       int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("component %d: no scenario for %d old and %d new genes", e.Component, e.Old, e.New)
}

// Rule labels a connected component from the number of old and new genes in
// it. Rules are checked in priority order: a component with several genes on
// both sides is complex even though some of its genes may look one-sided.
func Rule(nOld, nNew int) (Label, bool) {
	switch {
	case nOld < 1 || nNew < 1:
		return 0, false
	case nOld > 1 && nNew > 1:
		return Complex, true
	case nOld == 1 && nNew == 2:
		return OneToTwo, true
	case nOld == 1 && nNew >= 3:
		return OneToMany, true
	case nNew == 1 && nOld >= 2:
		return ManyToOne, true
	default:
		return OneToOne, true
	}
}
