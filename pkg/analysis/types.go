// Package analysis rolls per-check results into layer-level health and a
// ranked list of root causes.
//
// Everything here is a pure function over its inputs: BuildSummary never
// mutates items or layers and recomputes a fresh summary on every call.
package analysis

import (
	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
)

// Item is a job-like workflow item fed to the aggregation engine.
type Item struct {
	CheckID    string         `json:"check_id"`
	Status     string         `json:"status"` // pending|running|completed|failed
	Structured map[string]any `json:"structured"`
	Diagnosis  []string       `json:"diagnosis"`
	Evidence   []string       `json:"evidence"`
}

// Item statuses. Completed and failed match job statuses; pending covers
// checks that have not produced a job yet.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// LayerStatus is the rolled-up health of one layer.
type LayerStatus string

const (
	LayerPending LayerStatus = "pending"
	LayerRunning LayerStatus = "running"
	LayerFailed  LayerStatus = "failed"
	LayerWarning LayerStatus = "warning"
	LayerPassed  LayerStatus = "passed"
)

// LayerSummary is the health of one topology layer.
type LayerSummary struct {
	ID     string      `json:"id"`
	Label  string      `json:"label"`
	Status LayerStatus `json:"status"`
}

// Severity ranks root causes. Higher sorts first.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// RootCause is one ranked hypothesis inferred from structured facts.
type RootCause struct {
	Title    string   `json:"title"`
	Evidence string   `json:"evidence"`
	Severity Severity `json:"severity"`
}

// OverviewSummary is the derived dashboard roll-up. It is recomputed from
// scratch on every BuildSummary call, never mutated in place.
type OverviewSummary struct {
	Total      int            `json:"total"`
	Running    int            `json:"running"`
	Completed  int            `json:"completed"`
	Failed     int            `json:"failed"`
	Warning    int            `json:"warning"`
	Layers     []LayerSummary `json:"layers"`
	RootCauses []RootCause    `json:"root_causes"`
}

// ItemFromSnapshot converts a job snapshot to an aggregation item.
func ItemFromSnapshot(s jobmanager.Snapshot) Item {
	return Item{
		CheckID:    s.CheckID,
		Status:     string(s.Status),
		Structured: s.Structured,
		Diagnosis:  s.Diagnosis,
		Evidence:   s.Evidence,
	}
}

// ItemsFromSnapshots converts job snapshots to aggregation items.
func ItemsFromSnapshots(snaps []jobmanager.Snapshot) []Item {
	out := make([]Item, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, ItemFromSnapshot(s))
	}
	return out
}

// DefaultLayers re-exports the catalog topology for callers that do not
// supply their own.
func DefaultLayers() []catalog.Layer {
	return catalog.DefaultLayers()
}
