package parse

import (
	"fmt"
	"regexp"
	"strings"
)

// Winsock catalog entry headers, English and Chinese console output.
var winsockEntryRe = regexp.MustCompile(`(?i)provider entry|提供程序条目`)

// Providers shipped with Windows; anything else in the catalog is a
// third-party layered service provider.
var builtinWinsockProviders = []string{"mswsock", "microsoft", "tcpip", "rsvp", "ms afd", "af_unix"}

func parseWinsock(text string, _ *int) Result {
	res := Result{Structured: map[string]any{}}

	entries := 0
	thirdParty := 0
	for _, line := range lines(text) {
		if winsockEntryRe.MatchString(line) {
			entries++
		}
		lower := strings.ToLower(line)
		if !strings.Contains(lower, ".dll") {
			continue
		}
		builtin := false
		for _, p := range builtinWinsockProviders {
			if strings.Contains(lower, p) {
				builtin = true
				break
			}
		}
		if !builtin {
			thirdParty++
		}
	}

	res.Structured["catalogEntryCount"] = entries
	res.Structured["thirdPartyProviderCount"] = thirdParty

	switch {
	case entries == 0:
		res.Diagnosis = append(res.Diagnosis, "Could not parse any Winsock catalog entries.")
	case thirdParty > 0:
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Winsock catalog has %d entries; %d third-party providers are installed.", entries, thirdParty))
	default:
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Winsock catalog has %d entries, all from built-in providers.", entries))
	}
	return res
}
