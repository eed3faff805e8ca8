// Package catalog defines the fixed allowlist of diagnostic checks and the
// per-platform command invocations that execute them.
//
// The catalog is the only source of executable paths and argument lists in
// the system. Callers supply a validated target, probe count and timeout;
// everything else in an invocation is a static table entry. A check that has
// no native tool on the current platform resolves to an invocation that
// prints the unsupported sentinel, so the execution pipeline stays uniform.
package catalog

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Check ids form a closed set. New checks require a table entry here and a
// parser in pkg/parse.
const (
	CheckPing           = "ping"
	CheckDNS            = "dns"
	CheckTraceroute     = "traceroute"
	CheckRouteTable     = "route-table"
	CheckGatewayPing    = "gateway-ping"
	CheckARP            = "arp"
	CheckAdapters       = "adapters"
	CheckSystemProxy    = "system-proxy"
	CheckEnvProxy       = "env-proxy"
	CheckWinsockCatalog = "winsock-catalog"
)

// UnsupportedSentinel is the fixed prefix a command prints when the current
// platform has no native tool for a check. The parser registry short-circuits
// on it before any check-specific parsing.
const UnsupportedSentinel = "UNSUPPORTED_CHECK:"

// Input carries the caller-validated parameters for building an invocation.
type Input struct {
	// Target is the host or address the check probes. Checks that inspect
	// local state (route table, adapters, proxies) ignore it.
	Target string

	// Count is the number of probes for repeating checks (ping).
	Count int

	// TimeoutSeconds is the tool-level timeout passed to commands that
	// support one. The job deadline is derived from it by the job manager.
	TimeoutSeconds int
}

// Invocation is a fully resolved command ready to spawn.
type Invocation struct {
	// Path is the executable name or path.
	Path string

	// Args is the argument list, not including Path.
	Args []string

	// Display is the human-readable command line shown in the start event.
	Display string
}

// Check describes one catalog entry.
type Check struct {
	// ID is the check id.
	ID string

	// Title is the display title used in job snapshots and events.
	Title string

	// UsesTarget reports whether the check probes Input.Target.
	UsesTarget bool
}

// builder constructs an invocation for one check on one platform.
type builder func(in Input) Invocation

type entry struct {
	check    Check
	builders map[string]builder // keyed by GOOS; "" is the default
}

// Catalog resolves check ids to invocations for a fixed platform.
//
// Construct one with New (current platform) or NewForPlatform (tests).
type Catalog struct {
	goos    string
	entries map[string]entry
	order   []string
}

// New returns the catalog for the current platform.
func New() *Catalog {
	return NewForPlatform(runtime.GOOS)
}

// NewForPlatform returns a catalog resolving invocations for the given GOOS.
// Used by tests to exercise platform tables without running on that platform.
func NewForPlatform(goos string) *Catalog {
	c := &Catalog{goos: goos, entries: map[string]entry{}}
	for _, e := range tableEntries() {
		c.entries[e.check.ID] = e
		c.order = append(c.order, e.check.ID)
	}
	return c
}

// Known reports whether the check id is in the catalog.
func (c *Catalog) Known(checkID string) bool {
	_, ok := c.entries[checkID]
	return ok
}

// Describe returns the check metadata for a check id.
func (c *Catalog) Describe(checkID string) (Check, bool) {
	e, ok := c.entries[checkID]
	return e.check, ok
}

// List returns all checks in stable catalog order.
func (c *Catalog) List() []Check {
	out := make([]Check, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].check)
	}
	return out
}

// Build resolves the invocation for a check id on the catalog's platform.
//
// Unknown ids return an error; checks without a tool on this platform return
// a sentinel invocation, never an error.
func (c *Catalog) Build(checkID string, in Input) (Invocation, error) {
	e, ok := c.entries[checkID]
	if !ok {
		return Invocation{}, fmt.Errorf("check %q is not in the catalog", checkID)
	}
	if in.Count <= 0 {
		in.Count = 4
	}
	if in.TimeoutSeconds <= 0 {
		in.TimeoutSeconds = 10
	}
	b, ok := e.builders[c.goos]
	if !ok {
		b, ok = e.builders[""]
	}
	if !ok {
		return unsupported(c.goos, checkID), nil
	}
	inv := b(in)
	if inv.Display == "" {
		inv.Display = strings.TrimSpace(inv.Path + " " + strings.Join(inv.Args, " "))
	}
	return inv, nil
}

// unsupported builds an invocation printing the sentinel for a check that has
// no native tool on the platform.
func unsupported(goos, checkID string) Invocation {
	text := UnsupportedSentinel + " " + checkID
	if goos == "windows" {
		return Invocation{Path: "cmd", Args: []string{"/c", "echo", text}, Display: "echo " + text}
	}
	return Invocation{Path: "echo", Args: []string{text}, Display: "echo " + text}
}

func tableEntries() []entry {
	return []entry{
		{
			check: Check{ID: CheckPing, Title: "Connectivity (ping)", UsesTarget: true},
			builders: map[string]builder{
				"windows": func(in Input) Invocation {
					return Invocation{Path: "ping", Args: []string{"-n", strconv.Itoa(in.Count), "-w", strconv.Itoa(in.TimeoutSeconds * 1000), in.Target}}
				},
				"": func(in Input) Invocation {
					return Invocation{Path: "ping", Args: []string{"-c", strconv.Itoa(in.Count), "-W", strconv.Itoa(in.TimeoutSeconds), in.Target}}
				},
			},
		},
		{
			check: Check{ID: CheckDNS, Title: "DNS resolution", UsesTarget: true},
			builders: map[string]builder{
				"": func(in Input) Invocation {
					return Invocation{Path: "nslookup", Args: []string{in.Target}}
				},
			},
		},
		{
			check: Check{ID: CheckTraceroute, Title: "Route path trace", UsesTarget: true},
			builders: map[string]builder{
				"windows": func(in Input) Invocation {
					return Invocation{Path: "tracert", Args: []string{"-h", "15", "-w", "2000", in.Target}}
				},
				"darwin": func(in Input) Invocation {
					return Invocation{Path: "traceroute", Args: []string{"-m", "15", "-w", "2", in.Target}}
				},
				"": func(in Input) Invocation {
					return Invocation{Path: "traceroute", Args: []string{"-m", "15", "-w", "2", in.Target}}
				},
			},
		},
		{
			check: Check{ID: CheckRouteTable, Title: "Routing table"},
			builders: map[string]builder{
				"windows": func(Input) Invocation {
					return Invocation{Path: "route", Args: []string{"print"}}
				},
				"darwin": func(Input) Invocation {
					return Invocation{Path: "netstat", Args: []string{"-rn"}}
				},
				"": func(Input) Invocation {
					return Invocation{Path: "ip", Args: []string{"route"}}
				},
			},
		},
		{
			check: Check{ID: CheckGatewayPing, Title: "Gateway reachability"},
			builders: map[string]builder{
				// The script prefixes the ping output with a "gateway: <addr>"
				// sentinel line so the parser can correlate address and loss.
				"windows": func(in Input) Invocation {
					script := `for /f "tokens=3" %g in ('route print 0.0.0.0 ^| findstr /r /c:" *0\.0\.0\.0 *0\.0\.0\.0"') do @(echo gateway: %g & ping -n ` + strconv.Itoa(in.Count) + ` %g & exit /b)`
					return Invocation{Path: "cmd", Args: []string{"/c", script}, Display: "ping <default gateway>"}
				},
				"darwin": func(in Input) Invocation {
					script := `gw=$(route -n get default 2>/dev/null | awk '/gateway/ {print $2; exit}'); echo "gateway: $gw"; [ -n "$gw" ] && ping -c ` + strconv.Itoa(in.Count) + ` "$gw"`
					return Invocation{Path: "sh", Args: []string{"-c", script}, Display: "ping <default gateway>"}
				},
				"": func(in Input) Invocation {
					script := `gw=$(ip route show default 2>/dev/null | awk '{print $3; exit}'); echo "gateway: $gw"; [ -n "$gw" ] && ping -c ` + strconv.Itoa(in.Count) + ` -W 2 "$gw"`
					return Invocation{Path: "sh", Args: []string{"-c", script}, Display: "ping <default gateway>"}
				},
			},
		},
		{
			check: Check{ID: CheckARP, Title: "ARP neighbor table"},
			builders: map[string]builder{
				"windows": func(Input) Invocation {
					return Invocation{Path: "arp", Args: []string{"-a"}}
				},
				"darwin": func(Input) Invocation {
					return Invocation{Path: "arp", Args: []string{"-a"}}
				},
				"": func(Input) Invocation {
					script := `gw=$(ip route show default 2>/dev/null | awk '{print $3; exit}'); echo "gateway: $gw"; ip neigh`
					return Invocation{Path: "sh", Args: []string{"-c", script}, Display: "ip neigh"}
				},
			},
		},
		{
			check: Check{ID: CheckAdapters, Title: "Network adapters"},
			builders: map[string]builder{
				"windows": func(Input) Invocation {
					return Invocation{Path: "ipconfig", Args: []string{"/all"}}
				},
				"darwin": func(Input) Invocation {
					return Invocation{Path: "ifconfig", Args: []string{"-a"}}
				},
				"": func(Input) Invocation {
					return Invocation{Path: "ip", Args: []string{"-brief", "link"}}
				},
			},
		},
		{
			check: Check{ID: CheckSystemProxy, Title: "System proxy"},
			builders: map[string]builder{
				// netsh shows the WinHTTP proxy; the trailing `set` dump lets
				// the parser see environment proxies in the same output and
				// flag a system/environment conflict.
				"windows": func(Input) Invocation {
					return Invocation{Path: "cmd", Args: []string{"/c", "netsh winhttp show proxy & set"}, Display: "netsh winhttp show proxy"}
				},
				"darwin": func(Input) Invocation {
					return Invocation{Path: "scutil", Args: []string{"--proxy"}}
				},
			},
		},
		{
			check: Check{ID: CheckEnvProxy, Title: "Environment proxy"},
			builders: map[string]builder{
				"windows": func(Input) Invocation {
					return Invocation{Path: "cmd", Args: []string{"/c", "set"}, Display: "set"}
				},
				"": func(Input) Invocation {
					return Invocation{Path: "env", Args: nil}
				},
			},
		},
		{
			check: Check{ID: CheckWinsockCatalog, Title: "Winsock catalog"},
			builders: map[string]builder{
				"windows": func(Input) Invocation {
					return Invocation{Path: "netsh", Args: []string{"winsock", "show", "catalog"}}
				},
			},
		},
	}
}
