package analysis

import (
	"sort"
	"strings"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/parse"
)

const maxRootCauses = 3

// BuildSummary computes the dashboard roll-up for a set of items against a
// layer topology. Pure function: identical inputs give identical output.
func BuildSummary(items []Item, layers []catalog.Layer) OverviewSummary {
	return BuildSummaryWithConfig(items, layers, Config{})
}

// BuildSummaryWithConfig is BuildSummary with a tuned warning vocabulary.
func BuildSummaryWithConfig(items []Item, layers []catalog.Layer, cfg Config) OverviewSummary {
	sum := OverviewSummary{Total: len(items)}

	warned := make([]bool, len(items))
	for i, item := range items {
		switch item.Status {
		case StatusCompleted:
			sum.Completed++
		case StatusFailed:
			sum.Failed++
		default:
			sum.Running++
		}
		if hasWarning(item, cfg) {
			warned[i] = true
			sum.Warning++
		}
	}

	byCheck := map[string][]int{}
	for i, item := range items {
		byCheck[item.CheckID] = append(byCheck[item.CheckID], i)
	}

	for _, layer := range layers {
		sum.Layers = append(sum.Layers, LayerSummary{
			ID:     layer.ID,
			Label:  layer.Label,
			Status: layerStatus(layer, items, warned, byCheck),
		})
	}

	sum.RootCauses = rootCauses(items, sum)
	return sum
}

// layerStatus rolls up one layer. Precedence: running > failed > warning >
// passed, evaluated in that order regardless of member ordering; a layer
// with no member items is pending.
func layerStatus(layer catalog.Layer, items []Item, warned []bool, byCheck map[string][]int) LayerStatus {
	var members []int
	for _, checkID := range layer.Members {
		members = append(members, byCheck[checkID]...)
	}
	if len(members) == 0 {
		return LayerPending
	}

	anyRunning, anyFailed, anyWarned := false, false, false
	for _, i := range members {
		switch items[i].Status {
		case StatusPending, StatusRunning:
			anyRunning = true
		case StatusFailed:
			anyFailed = true
		}
		if factBool(items[i], parse.FactTimedOut) {
			anyFailed = true
		}
		if warned[i] {
			anyWarned = true
		}
	}
	switch {
	case anyRunning:
		return LayerRunning
	case anyFailed:
		return LayerFailed
	case anyWarned:
		return LayerWarning
	default:
		return LayerPassed
	}
}

// causeRule checks one named hypothesis against the item set.
type causeRule struct {
	title    string
	severity Severity
	fallback string // canned evidence when the item has none
	match    func(items []Item) (Item, bool)
}

// itemWhere returns the first item for checkID satisfying pred.
func itemWhere(items []Item, checkID string, pred func(Item) bool) (Item, bool) {
	for _, item := range items {
		if item.CheckID == checkID && pred(item) {
			return item, true
		}
	}
	return Item{}, false
}

var causeRules = []causeRule{
	{
		title:    "No network adapter is up",
		severity: SeverityHigh,
		fallback: "All network adapters report link down.",
		match: func(items []Item) (Item, bool) {
			return itemWhere(items, catalog.CheckAdapters, func(it Item) bool {
				count, ok := factNumber(it, parse.FactAdapterCount)
				if !ok || count <= 0 {
					return false
				}
				up, _ := factNumber(it, parse.FactAdapterUpCount)
				return up == 0
			})
		},
	},
	{
		title:    "A virtual adapter owns the default route",
		severity: SeverityMedium,
		fallback: "The default route points at a virtual network adapter.",
		match: func(items []Item) (Item, bool) {
			for _, checkID := range []string{catalog.CheckRouteTable, catalog.CheckAdapters} {
				if it, ok := itemWhere(items, checkID, func(it Item) bool {
					return factBool(it, parse.FactVirtualDefaultRoute)
				}); ok {
					return it, true
				}
			}
			return Item{}, false
		},
	},
	{
		title:    "No default route is configured",
		severity: SeverityHigh,
		fallback: "The routing table has no default route.",
		match: func(items []Item) (Item, bool) {
			return itemWhere(items, catalog.CheckRouteTable, func(it Item) bool {
				return explicitlyFalse(it, parse.FactHasDefaultRoute)
			})
		},
	},
	{
		title:    "DNS resolution is failing",
		severity: SeverityHigh,
		fallback: "The DNS probe could not resolve the test name.",
		match: func(items []Item) (Item, bool) {
			return itemWhere(items, catalog.CheckDNS, func(it Item) bool {
				return explicitlyFalse(it, parse.FactResolved)
			})
		},
	},
	{
		title:    "System and environment proxies conflict",
		severity: SeverityMedium,
		fallback: "Both a system proxy and a proxy environment variable are active.",
		match: func(items []Item) (Item, bool) {
			return itemWhere(items, catalog.CheckSystemProxy, func(it Item) bool {
				return factBool(it, parse.FactProxyConflict)
			})
		},
	},
	{
		title:    "Internet egress is completely down",
		severity: SeverityHigh,
		fallback: "The egress probe lost every packet.",
		match: func(items []Item) (Item, bool) {
			return itemWhere(items, catalog.CheckPing, func(it Item) bool {
				loss, ok := factNumber(it, parse.FactPacketLoss)
				return ok && loss >= 100
			})
		},
	},
	{
		title:    "Internet egress is unstable",
		severity: SeverityMedium,
		fallback: "The egress probe is dropping packets.",
		match: func(items []Item) (Item, bool) {
			return itemWhere(items, catalog.CheckPing, func(it Item) bool {
				loss, ok := factNumber(it, parse.FactPacketLoss)
				return ok && loss > 5 && loss < 100
			})
		},
	},
}

// rootCauses evaluates the fixed rule set, falls back to a count-based
// generic cause, sorts by severity descending (stable by encounter order)
// and truncates to the top three.
func rootCauses(items []Item, sum OverviewSummary) []RootCause {
	var causes []RootCause
	for _, rule := range causeRules {
		item, ok := rule.match(items)
		if !ok {
			continue
		}
		causes = append(causes, RootCause{
			Title:    rule.title,
			Evidence: causeEvidence(item, rule.fallback),
			Severity: rule.severity,
		})
	}

	if len(causes) == 0 && len(items) > 0 && sum.Running == 0 {
		switch {
		case sum.Failed > 0:
			causes = append(causes, RootCause{
				Title:    "Some checks failed",
				Evidence: "At least one diagnostic check did not pass.",
				Severity: SeverityHigh,
			})
		case sum.Warning > 0:
			causes = append(causes, RootCause{
				Title:    "Some checks reported warnings",
				Evidence: "At least one diagnostic check reported a warning.",
				Severity: SeverityMedium,
			})
		default:
			causes = append(causes, RootCause{
				Title:    "All checks completed, nothing found",
				Evidence: "Every diagnostic check passed.",
				Severity: SeverityLow,
			})
		}
	}

	sort.SliceStable(causes, func(i, j int) bool {
		return severityRank(causes[i].Severity) > severityRank(causes[j].Severity)
	})
	if len(causes) > maxRootCauses {
		causes = causes[:maxRootCauses]
	}
	return causes
}

// causeEvidence prefers the triggering item's first non-blank evidence line,
// then its first diagnosis line, then the rule's canned sentence.
func causeEvidence(item Item, fallback string) string {
	for _, e := range item.Evidence {
		if strings.TrimSpace(e) != "" {
			return e
		}
	}
	for _, d := range item.Diagnosis {
		if strings.TrimSpace(d) != "" {
			return d
		}
	}
	return fallback
}
