package parse

import (
	"fmt"
	"regexp"
	"strings"
)

// hopLineRe matches numbered hop lines from both tracert and traceroute.
var hopLineRe = regexp.MustCompile(`^\s*[0-9]{1,2}[\s.]`)

func parseTraceroute(text string, _ *int) Result {
	res := Result{Structured: map[string]any{}}

	hops := 0
	timeouts := 0
	for _, line := range lines(text) {
		if !hopLineRe.MatchString(line) {
			continue
		}
		hops++
		if strings.Contains(line, "*") {
			timeouts++
		}
	}

	res.Structured[FactHopCount] = hops
	res.Structured[FactTimeoutHopCount] = timeouts
	mostly := hops > 0 && timeouts*2 > hops
	res.Structured[FactMostlyTimingOut] = mostly

	switch {
	case hops == 0:
		res.Diagnosis = append(res.Diagnosis, "Could not parse any hops from the trace output.")
	case mostly:
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Path is mostly timing out: %d of %d hops did not respond.", timeouts, hops))
	default:
		res.Diagnosis = append(res.Diagnosis,
			fmt.Sprintf("Traced %d hops; %d timed out.", hops, timeouts))
	}
	return res
}
