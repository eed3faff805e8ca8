// Package parse turns raw diagnostic command output into structured facts
// plus human-readable diagnosis and evidence lines.
//
// Every parser is a pure function over the full output text; none spawns a
// process or keeps state, so each is unit-testable in isolation. Dispatch is
// a closed table over check ids. Parse never panics: unparseable input
// degrades to a generic low-confidence result.
package parse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
)

// Structured fact keys. Values are one of string, bool, int or float64.
const (
	FactTimedOut            = "timedOut"
	FactTimeoutSeconds      = "timeoutSeconds"
	FactPacketLoss          = "packetLossPercent"
	FactAvgLatency          = "avgLatencyMs"
	FactResolved            = "resolved"
	FactIPv4Count           = "ipv4Count"
	FactIPv6Count           = "ipv6Count"
	FactHopCount            = "hopCount"
	FactTimeoutHopCount     = "timeoutHopCount"
	FactMostlyTimingOut     = "mostlyTimingOut"
	FactHasDefaultRoute     = "hasDefaultRoute"
	FactDefaultRouteCount   = "defaultRouteCount"
	FactGatewayAddress      = "gatewayAddress"
	FactGatewayReachable    = "gatewayReachable"
	FactNeighborState       = "neighborState"
	FactGatewayNeighborOK   = "gatewayNeighborOk"
	FactNeighborCount       = "neighborCount"
	FactProxyEnabled        = "proxyEnabled"
	FactProxyServer         = "proxyServer"
	FactEnvProxyPresent     = "envProxyPresent"
	FactProxyConflict       = "proxyConflict"
	FactAdapterCount        = "adapterCount"
	FactAdapterUpCount      = "adapterUpCount"
	FactVirtualDefaultRoute = "virtualAdapterOwnsDefaultRoute"
	FactSupported           = "supportedOnCurrentPlatform"
	FactFeature             = "feature"
	FactExitCode            = "exitCode"
)

const maxEvidenceLines = 8

// Result is the output of one parse: an open fact mapping, ordered diagnosis
// sentences and short evidence strings justifying them. Evidence is never
// empty for any input.
type Result struct {
	Structured map[string]any `json:"structured"`
	Diagnosis  []string       `json:"diagnosis"`
	Evidence   []string       `json:"evidence"`
}

type parserFunc func(text string, exitCode *int) Result

// parsers is the closed dispatch table. It is populated once at package init
// and never mutated afterwards.
var parsers = map[string]parserFunc{
	catalog.CheckPing:           parsePing,
	catalog.CheckDNS:            parseDNS,
	catalog.CheckTraceroute:     parseTraceroute,
	catalog.CheckRouteTable:     parseRouteTable,
	catalog.CheckGatewayPing:    parseGatewayPing,
	catalog.CheckARP:            parseARP,
	catalog.CheckAdapters:       parseAdapters,
	catalog.CheckSystemProxy:    parseSystemProxy,
	catalog.CheckEnvProxy:       parseEnvProxy,
	catalog.CheckWinsockCatalog: parseWinsock,
}

// Parse dispatches to the check-specific parser.
//
// An output containing the unsupported-platform sentinel short-circuits to a
// dedicated result regardless of check id. Unknown check ids fall back to a
// generic result carrying the exit code.
func Parse(checkID, output string, exitCode *int) (res Result) {
	defer func() {
		// Parsers are pure pattern matching and should not panic, but the
		// contract is that Parse never does, for any input.
		if r := recover(); r != nil {
			res = Result{
				Diagnosis: []string{fmt.Sprintf("Could not parse %s output.", checkID)},
			}
			finalize(&res)
		}
	}()

	if feature, ok := extractUnsupported(output); ok {
		res = Result{
			Structured: map[string]any{
				FactSupported: false,
				FactFeature:   feature,
			},
			Diagnosis: []string{fmt.Sprintf("The %s check is not supported on this platform.", feature)},
		}
		finalize(&res)
		return res
	}

	p, ok := parsers[checkID]
	if !ok {
		res = fallbackResult(exitCode)
		finalize(&res)
		return res
	}
	res = p(output, exitCode)
	finalize(&res)
	return res
}

// Known reports whether a dedicated parser exists for the check id.
func Known(checkID string) bool {
	_, ok := parsers[checkID]
	return ok
}

// extractUnsupported scans for the catalog sentinel and returns the feature
// name that follows it.
func extractUnsupported(output string) (string, bool) {
	idx := strings.Index(output, catalog.UnsupportedSentinel)
	if idx < 0 {
		return "", false
	}
	rest := output[idx+len(catalog.UnsupportedSentinel):]
	if nl := strings.IndexAny(rest, "\r\n"); nl >= 0 {
		rest = rest[:nl]
	}
	feature := strings.TrimSpace(rest)
	if feature == "" {
		feature = "unknown"
	}
	return feature, true
}

func fallbackResult(exitCode *int) Result {
	res := Result{
		Structured: map[string]any{},
		Diagnosis:  []string{"No structured rule for this command."},
	}
	if exitCode != nil {
		res.Structured[FactExitCode] = *exitCode
	}
	return res
}

// finalize normalizes a parser result: non-nil maps, synthesized evidence
// when the parser supplied none, and the evidence cap.
func finalize(res *Result) {
	if res.Structured == nil {
		res.Structured = map[string]any{}
	}
	if res.Diagnosis == nil {
		res.Diagnosis = []string{}
	}
	if len(res.Evidence) == 0 {
		res.Evidence = SynthesizeEvidence(res.Diagnosis, res.Structured)
	}
	if len(res.Evidence) > maxEvidenceLines {
		res.Evidence = res.Evidence[:maxEvidenceLines]
	}
}

// SynthesizeEvidence builds fallback evidence from the first three diagnosis
// lines and the first four structured facts rendered as key=value. The
// returned slice is never empty.
func SynthesizeEvidence(diagnosis []string, structured map[string]any) []string {
	var out []string
	for i, d := range diagnosis {
		if i >= 3 {
			break
		}
		if s := strings.TrimSpace(d); s != "" {
			out = append(out, s)
		}
	}

	keys := make([]string, 0, len(structured))
	for k := range structured {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i >= 4 {
			break
		}
		out = append(out, fmt.Sprintf("%s=%v", k, structured[k]))
	}

	if len(out) == 0 {
		out = []string{"no output captured"}
	}
	return out
}

// lines splits output into trimmed-right lines, tolerating CRLF.
func lines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		out = append(out, strings.TrimRight(l, "\r"))
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
