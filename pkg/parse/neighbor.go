package parse

import (
	"fmt"
	"regexp"
	"strings"
)

// gatewaySentinelRe matches the "gateway: <addr>" line the catalog's
// compound invocations prepend so the parser can correlate the gateway
// address with the rest of the output.
var gatewaySentinelRe = regexp.MustCompile(`(?m)^gateway:\s*(\S+)`)

// Neighbor-state vocabulary. ip-neigh states are uppercase; arp -a flags
// are lowercase words.
var (
	goodNeighborStates = []string{"REACHABLE", "PERMANENT", "STALE", "DELAY", "PROBE", "dynamic", "static", "动态", "静态"}
	badNeighborStates  = []string{"FAILED", "INCOMPLETE", "invalid", "无效"}
)

var macAddrRe = regexp.MustCompile(`(?i)\b[0-9a-f]{2}(?:[:-][0-9a-f]{2}){5}\b`)

func sentinelGateway(text string) string {
	if m := gatewaySentinelRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func parseGatewayPing(text string, _ *int) Result {
	res := Result{Structured: map[string]any{}}

	gw := sentinelGateway(text)
	if gw == "" {
		res.Structured[FactGatewayReachable] = false
		res.Diagnosis = append(res.Diagnosis, "Could not determine the default gateway address.")
		return res
	}
	res.Structured[FactGatewayAddress] = gw

	loss, lossOK, avg, avgOK := pingStats(text)
	if !lossOK {
		res.Structured[FactGatewayReachable] = false
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Could not parse packet loss from the gateway probe of %s.", gw))
		return res
	}
	res.Structured[FactPacketLoss] = loss
	if avgOK {
		res.Structured[FactAvgLatency] = avg
	}

	reachable := loss < 100
	res.Structured[FactGatewayReachable] = reachable
	if reachable {
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Gateway %s is reachable (%.0f%% packet loss).", gw, loss))
	} else {
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Gateway %s is unreachable (%.0f%% packet loss).", gw, loss))
	}
	return res
}

func parseARP(text string, _ *int) Result {
	res := Result{Structured: map[string]any{}}

	neighborCount := 0
	for _, line := range lines(text) {
		if macAddrRe.MatchString(line) {
			neighborCount++
		}
	}
	res.Structured[FactNeighborCount] = neighborCount

	gw := sentinelGateway(text)
	if gw != "" {
		res.Structured[FactGatewayAddress] = gw
	}

	state, ok := gatewayNeighborState(text, gw)
	if !ok {
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("No ARP entry found for the gateway; %d neighbors known.", neighborCount))
		return res
	}

	res.Structured[FactNeighborState] = state
	good := state == "present" || stateIn(state, goodNeighborStates)
	res.Structured[FactGatewayNeighborOK] = good
	if good {
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Gateway ARP entry is healthy (%s).", state))
	} else {
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Gateway ARP entry is in a problematic state (%s).", state))
	}
	return res
}

// gatewayNeighborState finds the neighbor-table line for the gateway (or the
// first line carrying a recognizable state when no gateway is known) and
// returns the state word.
func gatewayNeighborState(text, gateway string) (string, bool) {
	for _, line := range lines(text) {
		if gateway != "" && !strings.Contains(line, gateway) {
			continue
		}
		if gateway == "" && !macAddrRe.MatchString(line) && !containsAnyState(line) {
			continue
		}
		for _, s := range badNeighborStates {
			if strings.Contains(line, s) {
				return s, true
			}
		}
		for _, s := range goodNeighborStates {
			if strings.Contains(line, s) {
				return s, true
			}
		}
		if gateway != "" && strings.Contains(line, gateway) && macAddrRe.MatchString(line) {
			// Entry exists but uses an unknown state word; treat the MAC
			// presence itself as the state signal.
			return "present", true
		}
	}
	return "", false
}

func containsAnyState(line string) bool {
	for _, s := range append(append([]string{}, goodNeighborStates...), badNeighborStates...) {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

func stateIn(state string, set []string) bool {
	for _, s := range set {
		if state == s {
			return true
		}
	}
	return false
}
