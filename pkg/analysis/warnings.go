package analysis

import (
	"strings"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/parse"
)

// DefaultWarningKeywords is the diagnosis-line vocabulary that flags a
// completed item as a warning when no check-specific rule applies. The list
// mixes English and Chinese because the underlying tools do; additional
// locales are a configuration concern, not a code change.
var DefaultWarningKeywords = []string{
	"fail", "timeout", "timed out", "unreachable", "unstable",
	"失败", "超时", "不通", "无法访问", "不稳定", "丢包",
}

// Config tunes the aggregation engine. The zero value uses the defaults.
type Config struct {
	// WarningKeywords overrides DefaultWarningKeywords when non-empty.
	WarningKeywords []string
}

func (c Config) keywords() []string {
	if len(c.WarningKeywords) > 0 {
		return c.WarningKeywords
	}
	return DefaultWarningKeywords
}

// hasWarning classifies one item. Only completed items are evaluated; a
// timed-out item always warns, check-specific rules override the generic
// rule, and the generic rule falls back to loss/fact/keyword checks.
func hasWarning(item Item, cfg Config) bool {
	if item.Status != StatusCompleted {
		return false
	}
	if factBool(item, parse.FactTimedOut) {
		return true
	}

	switch item.CheckID {
	case catalog.CheckAdapters:
		count, ok := factNumber(item, parse.FactAdapterCount)
		if !ok || count <= 0 {
			return false
		}
		up, _ := factNumber(item, parse.FactAdapterUpCount)
		return up == 0 || factBool(item, parse.FactVirtualDefaultRoute)
	case catalog.CheckSystemProxy:
		return factBool(item, parse.FactProxyConflict)
	}

	if loss, ok := factNumber(item, parse.FactPacketLoss); ok && loss > 5 {
		return true
	}
	if explicitlyFalse(item, parse.FactHasDefaultRoute) || explicitlyFalse(item, parse.FactResolved) {
		return true
	}
	return diagnosisMatches(item.Diagnosis, cfg.keywords())
}

// diagnosisMatches reports whether any diagnosis line contains a warning
// keyword, case-insensitively.
func diagnosisMatches(diagnosis, keywords []string) bool {
	for _, line := range diagnosis {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func factBool(item Item, key string) bool {
	v, ok := item.Structured[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// explicitlyFalse distinguishes a fact stored as false from an absent fact.
func explicitlyFalse(item Item, key string) bool {
	v, ok := item.Structured[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && !b
}

// factNumber reads a numeric fact stored as int or float64.
func factNumber(item Item, key string) (float64, bool) {
	switch v := item.Structured[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
