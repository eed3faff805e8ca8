package parse

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// dnsFailurePhrases are vendor failure wordings, matched case-insensitively.
var dnsFailurePhrases = []string{
	"can't find",
	"server failed",
	"non-existent domain",
	"nxdomain",
	"no response from server",
	"dns request timed out",
	"connection timed out",
	"refused",
	"找不到",
	"未知的",
	"请求超时",
	"服务器失败",
}

var (
	ipv4CandidateRe = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)
	// No word boundaries: compressed literals like ::1 start on a colon.
	// net.ParseIP weeds out the false candidates this admits.
	ipv6CandidateRe = regexp.MustCompile(`[0-9a-fA-F]{0,4}(?::[0-9a-fA-F]{0,4}){2,7}`)
)

// extractAddresses pulls de-duplicated IPv4 and IPv6 literals from anywhere
// in the text, validating candidates with net.ParseIP.
func extractAddresses(text string) (ipv4, ipv6 []string) {
	seen := map[string]bool{}
	for _, c := range ipv4CandidateRe.FindAllString(text, -1) {
		ip := net.ParseIP(c)
		if ip == nil || ip.To4() == nil || seen[c] {
			continue
		}
		seen[c] = true
		ipv4 = append(ipv4, c)
	}
	for _, c := range ipv6CandidateRe.FindAllString(text, -1) {
		if !strings.ContainsAny(c, "0123456789abcdefABCDEF") {
			continue
		}
		ip := net.ParseIP(c)
		if ip == nil || ip.To4() != nil || seen[c] {
			continue
		}
		seen[c] = true
		ipv6 = append(ipv6, c)
	}
	return ipv4, ipv6
}

func parseDNS(text string, _ *int) Result {
	res := Result{Structured: map[string]any{}}

	failed := false
	lower := strings.ToLower(text)
	for _, phrase := range dnsFailurePhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			failed = true
			break
		}
	}

	ipv4, ipv6 := extractAddresses(text)
	res.Structured[FactIPv4Count] = len(ipv4)
	res.Structured[FactIPv6Count] = len(ipv6)

	switch {
	case failed:
		res.Structured[FactResolved] = false
		res.Diagnosis = append(res.Diagnosis, "DNS resolution failed: the server reported a lookup failure.")
	case len(ipv4)+len(ipv6) == 0:
		res.Structured[FactResolved] = true
		res.Diagnosis = append(res.Diagnosis, "Name resolved but returned no address records.")
	default:
		res.Structured[FactResolved] = true
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Resolved %d IPv4 and %d IPv6 addresses.", len(ipv4), len(ipv6)))
	}

	for _, a := range append(append([]string{}, ipv4...), ipv6...) {
		if len(res.Evidence) >= 4 {
			break
		}
		res.Evidence = append(res.Evidence, "address: "+a)
	}
	if len(res.Evidence) > 0 {
		res.Evidence = append([]string{res.Diagnosis[0]}, res.Evidence...)
	}
	return res
}
