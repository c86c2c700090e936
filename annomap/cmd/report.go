package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Doomsbay/AnnoMap/annomap/internal/bbh"
	"github.com/Doomsbay/AnnoMap/annomap/internal/coverage"
	"github.com/Doomsbay/AnnoMap/annomap/internal/graph"
	"github.com/Doomsbay/AnnoMap/annomap/internal/multiplicity"
	"github.com/Doomsbay/AnnoMap/annomap/internal/scenario"
)

type graphStats struct {
	OldGenes   int `json:"old_genes"`
	NewGenes   int `json:"new_genes"`
	Records    int `json:"records"`
	Orphans    int `json:"orphan_records"`
	Edges      int `json:"gene_edges"`
	Components int `json:"components"`
}

type bbhStats struct {
	ForwardQueries  int `json:"forward_queries"`
	ReverseQueries  int `json:"reverse_queries"`
	FilteredForward int `json:"filtered_forward"`
	FilteredReverse int `json:"filtered_reverse"`
	Pairs           int `json:"pairs"`
	OnEdges         int `json:"pairs_on_edges"`
	OffEdges        int `json:"pairs_without_edge"`
}

type coverageStats struct {
	Keys         int   `json:"keys"`
	Failed       int   `json:"failed_keys"`
	TotalCovered int64 `json:"total_covered_length"`
}

// report is the JSON summary written at the end of every run.
type report struct {
	RunID    string            `json:"run_id"`
	Command  string            `json:"command"`
	Started  time.Time         `json:"started"`
	Finished time.Time         `json:"finished"`
	Inputs   map[string]string `json:"inputs"`
	Outputs  []string          `json:"outputs"`

	Graph         *graphStats               `json:"graph,omitempty"`
	Scenarios     map[string]int            `json:"scenarios,omitempty"`
	ScenarioGenes map[string]map[string]int `json:"scenario_genes,omitempty"`
	Multiplicity  map[string]map[string]int `json:"multiplicity,omitempty"`
	BBH           *bbhStats                 `json:"bbh,omitempty"`
	Coverage      *coverageStats            `json:"coverage,omitempty"`

	// Skipped rows, records, components and keys per stage.
	Failures map[string]int `json:"failures"`
}

func newReport(command string) *report {
	return &report{
		RunID:    uuid.NewString(),
		Command:  command,
		Started:  time.Now().UTC(),
		Inputs:   make(map[string]string),
		Failures: make(map[string]int),
	}
}

func (r *report) input(name, path string) {
	if path != "" {
		r.Inputs[name] = path
	}
}

func (r *report) addClassification(records int, g *graph.Graph, m multiplicity.Analysis, res scenario.Result) {
	u := g.Universe()
	r.Graph = &graphStats{
		OldGenes: u.Len(graph.Old),
		NewGenes: u.Len(graph.New),
		Records:  records,
		Orphans:  len(g.Orphans),
		Edges:    g.Len(),
	}
	r.Scenarios = make(map[string]int)
	for label, n := range res.Counts() {
		r.Scenarios[label.String()] = n
		if label != scenario.UnmappedOld && label != scenario.UnmappedNew {
			r.Graph.Components += n
		}
	}
	r.ScenarioGenes = make(map[string]map[string]int)
	r.Multiplicity = make(map[string]map[string]int)
	for _, side := range []graph.Side{graph.Old, graph.New} {
		genes := make(map[string]int)
		for label, n := range res.GeneCounts(side) {
			genes[label.String()] = n
		}
		r.ScenarioGenes[side.String()] = genes

		flags := make(map[string]int)
		for flag, n := range m.Counts(side) {
			flags[flag.String()] = n
		}
		r.Multiplicity[side.String()] = flags
	}
}

func (r *report) addBBH(res bbh.Result, unmatched int) {
	r.BBH = &bbhStats{
		ForwardQueries:  len(res.Forward),
		ReverseQueries:  len(res.Reverse),
		FilteredForward: res.Filtered[0],
		FilteredReverse: res.Filtered[1],
		Pairs:           len(res.Pairs),
		OnEdges:         len(res.Pairs) - unmatched,
		OffEdges:        unmatched,
	}
}

func (r *report) addCoverage(rep coverage.Report) {
	r.Coverage = &coverageStats{Keys: len(rep.Results), Failed: len(rep.Failures)}
	for _, res := range rep.Results {
		r.Coverage.TotalCovered += int64(res.Length)
	}
}

func writeReport(path string, rep *report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
