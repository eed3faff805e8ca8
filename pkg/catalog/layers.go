package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layer groups checks for dashboard roll-up. The topology is static input to
// the aggregation engine, never derived from runtime data.
type Layer struct {
	ID      string   `yaml:"id" json:"id"`
	Label   string   `yaml:"label" json:"label"`
	Members []string `yaml:"members" json:"members"`
}

// DefaultLayers returns the built-in layer topology, ordered physical-first.
func DefaultLayers() []Layer {
	return []Layer{
		{ID: "physical", Label: "Network adapters", Members: []string{CheckAdapters}},
		{ID: "gateway", Label: "Local gateway", Members: []string{CheckGatewayPing, CheckARP}},
		{ID: "routing", Label: "Routing", Members: []string{CheckRouteTable, CheckTraceroute}},
		{ID: "dns", Label: "DNS", Members: []string{CheckDNS}},
		{ID: "internet", Label: "Internet egress", Members: []string{CheckPing}},
		{ID: "proxy", Label: "Proxy configuration", Members: []string{CheckSystemProxy, CheckEnvProxy, CheckWinsockCatalog}},
	}
}

// LoadLayers reads a layer topology from a YAML file.
//
// The file holds a top-level `layers:` list of {id, label, members}. An empty
// path returns the default topology.
func LoadLayers(path string) ([]Layer, error) {
	if path == "" {
		return DefaultLayers(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layers file: %w", err)
	}
	var doc struct {
		Layers []Layer `yaml:"layers"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse layers file: %w", err)
	}
	if len(doc.Layers) == 0 {
		return nil, fmt.Errorf("layers file %s defines no layers", path)
	}
	return doc.Layers, nil
}
