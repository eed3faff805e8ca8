package parse

import (
	"fmt"
	"regexp"
	"strings"
)

// Default-route phrasings:
//
//	Windows route print:  0.0.0.0   0.0.0.0   192.168.1.1   192.168.1.10   25
//	ip route / netstat:   default via 192.168.1.1 dev eth0
//	Windows (zh):         默认网关 / lines starting 默认
var (
	zerosRouteRe    = regexp.MustCompile(`^\s*0\.0\.0\.0\s+0\.0\.0\.0\s+(\S+)`)
	defaultKwRe     = regexp.MustCompile(`^(?i)\s*(?:default|默认)`)
	defaultGwViaRe  = regexp.MustCompile(`default\s+via\s+(\S+)`)
	defaultGwCol2Re = regexp.MustCompile(`^\s*default\s+(\S+)`)
)

func parseRouteTable(text string, _ *int) Result {
	res := Result{Structured: map[string]any{}}

	count := 0
	gateway := ""
	virtualOwner := false
	for _, line := range lines(text) {
		m := zerosRouteRe.FindStringSubmatch(line)
		isDefault := m != nil || defaultKwRe.MatchString(line)
		if !isDefault {
			continue
		}
		count++
		if gateway == "" {
			switch {
			case m != nil:
				gateway = m[1]
			default:
				if v := defaultGwViaRe.FindStringSubmatch(line); v != nil {
					gateway = v[1]
				} else if v := defaultGwCol2Re.FindStringSubmatch(strings.ToLower(line)); v != nil {
					gateway = v[1]
				}
			}
		}
		if hasVirtualKeyword(line) {
			virtualOwner = true
		}
	}

	res.Structured[FactHasDefaultRoute] = count > 0
	res.Structured[FactDefaultRouteCount] = count
	if virtualOwner {
		res.Structured[FactVirtualDefaultRoute] = true
	}
	if gateway != "" {
		res.Structured[FactGatewayAddress] = gateway
	}

	switch {
	case count == 0:
		res.Diagnosis = append(res.Diagnosis, "No default route found in the routing table.")
	case gateway != "":
		res.Diagnosis = append(res.Diagnosis, fmt.Sprintf("Default route present via %s.", gateway))
	default:
		res.Diagnosis = append(res.Diagnosis, "Default route present.")
	}
	if virtualOwner {
		res.Diagnosis = append(res.Diagnosis, "The default route is owned by a virtual network adapter.")
	}
	return res
}
