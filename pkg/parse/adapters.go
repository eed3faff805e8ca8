package parse

import (
	"fmt"
	"regexp"
	"strings"
)

// virtualAdapterKeywords identify adapters that do not correspond to
// physical NICs. Used for the default-route takeover fact.
var virtualAdapterKeywords = []string{
	"vmware", "virtualbox", "vethernet", "hyper-v", "tap-", "zerotier", "tailscale", "虚拟",
}

func hasVirtualKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range virtualAdapterKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var (
	// ipconfig /all section headers: "Ethernet adapter vEthernet (WSL):"
	ipconfigHeaderRe = regexp.MustCompile(`(?i)^\S.*(?:adapter|适配器)\s+.+[:：]\s*$`)
	// ip -brief link rows: "eth0   UP   aa:bb:cc:dd:ee:ff <BROADCAST...>"
	briefLinkRe = regexp.MustCompile(`^(\S+)\s+(UP|DOWN|UNKNOWN|LOWERLAYERDOWN)\b`)
	// ifconfig -a section headers: "en0: flags=8863<UP,BROADCAST,..."
	ifconfigHeaderRe = regexp.MustCompile(`^(\w+):\s+flags=\d+<([^>]*)>`)

	mediaDisconnectedRe = regexp.MustCompile(`(?i)media disconnected|媒体已断开`)
	defaultGatewayRe    = regexp.MustCompile(`(?i)(?:default gateway|默认网关)[\s.]*[:：]\s*\S`)
)

func parseAdapters(text string, _ *int) Result {
	res := Result{Structured: map[string]any{}}

	count, up, virtualOwner := 0, 0, false
	switch {
	case ipconfigHeaderRe.MatchString(firstMatchingLine(text, ipconfigHeaderRe)):
		count, up, virtualOwner = parseIpconfigAdapters(text)
	case anyLineMatches(text, briefLinkRe):
		count, up = parseBriefLinkAdapters(text)
	case anyLineMatches(text, ifconfigHeaderRe):
		count, up = parseIfconfigAdapters(text)
	}

	res.Structured[FactAdapterCount] = count
	res.Structured[FactAdapterUpCount] = up
	res.Structured[FactVirtualDefaultRoute] = virtualOwner

	switch {
	case count == 0:
		res.Diagnosis = append(res.Diagnosis, "Could not parse any network adapters from the output.")
	case up == 0:
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("No network adapter is up (0 of %d).", count))
	default:
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("%d network adapters found, %d up.", count, up))
	}
	if virtualOwner {
		res.Diagnosis = append(res.Diagnosis,
			"A virtual network adapter holds the default gateway.")
	}
	return res
}

func firstMatchingLine(text string, re *regexp.Regexp) string {
	for _, l := range lines(text) {
		if re.MatchString(l) {
			return l
		}
	}
	return ""
}

func anyLineMatches(text string, re *regexp.Regexp) bool {
	return firstMatchingLine(text, re) != ""
}

// parseIpconfigAdapters walks ipconfig /all sections. An adapter is up when
// its section does not report disconnected media; a virtual adapter carrying
// a default gateway marks the takeover fact.
func parseIpconfigAdapters(text string) (count, up int, virtualOwner bool) {
	all := lines(text)
	var sectionIsVirtual, inSection, sectionUp bool

	flush := func() {
		if !inSection {
			return
		}
		count++
		if sectionUp {
			up++
		}
	}

	for _, line := range all {
		if ipconfigHeaderRe.MatchString(line) {
			flush()
			inSection = true
			sectionUp = true
			sectionIsVirtual = hasVirtualKeyword(line)
			continue
		}
		if !inSection {
			continue
		}
		if mediaDisconnectedRe.MatchString(line) {
			sectionUp = false
		}
		if hasVirtualKeyword(line) {
			sectionIsVirtual = true
		}
		if sectionIsVirtual && defaultGatewayRe.MatchString(line) {
			virtualOwner = true
		}
	}
	flush()
	return count, up, virtualOwner
}

func parseBriefLinkAdapters(text string) (count, up int) {
	for _, line := range lines(text) {
		m := briefLinkRe.FindStringSubmatch(line)
		if m == nil || m[1] == "lo" {
			continue
		}
		count++
		if m[2] == "UP" {
			up++
		}
	}
	return count, up
}

func parseIfconfigAdapters(text string) (count, up int) {
	for _, line := range lines(text) {
		m := ifconfigHeaderRe.FindStringSubmatch(line)
		if m == nil || m[1] == "lo0" {
			continue
		}
		count++
		flags := strings.Split(m[2], ",")
		for _, f := range flags {
			if f == "UP" {
				up++
				break
			}
		}
	}
	return count, up
}
