package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
)

const windowsRoutePrint = `
IPv4 Route Table
===========================================================================
Active Routes:
Network Destination        Netmask          Gateway       Interface  Metric
          0.0.0.0          0.0.0.0      192.168.1.1    192.168.1.10     25
        127.0.0.0        255.0.0.0         On-link         127.0.0.1    331
===========================================================================
`

const linuxIPRoute = `default via 192.168.1.1 dev eth0 proto dhcp metric 100
10.0.0.0/8 via 10.44.0.1 dev eth1
192.168.1.0/24 dev eth0 proto kernel scope link
`

func TestParseRouteTableWindows(t *testing.T) {
	res := Parse(catalog.CheckRouteTable, windowsRoutePrint, nil)

	assert.Equal(t, true, res.Structured[FactHasDefaultRoute])
	assert.Equal(t, 1, res.Structured[FactDefaultRouteCount])
	assert.Equal(t, "192.168.1.1", res.Structured[FactGatewayAddress])
	assert.Equal(t, "Default route present via 192.168.1.1.", res.Diagnosis[0])
}

func TestParseRouteTableLinux(t *testing.T) {
	res := Parse(catalog.CheckRouteTable, linuxIPRoute, nil)

	assert.Equal(t, true, res.Structured[FactHasDefaultRoute])
	assert.Equal(t, 1, res.Structured[FactDefaultRouteCount])
	assert.Equal(t, "192.168.1.1", res.Structured[FactGatewayAddress])
}

func TestParseRouteTableNoDefaultRoute(t *testing.T) {
	output := "192.168.1.0/24 dev eth0 proto kernel scope link\n"

	res := Parse(catalog.CheckRouteTable, output, nil)

	assert.Equal(t, false, res.Structured[FactHasDefaultRoute])
	assert.Equal(t, 0, res.Structured[FactDefaultRouteCount])
	assert.Equal(t, "No default route found in the routing table.", res.Diagnosis[0])
	_, present := res.Structured[FactGatewayAddress]
	assert.False(t, present)
}

func TestParseRouteTableMultipleDefaults(t *testing.T) {
	output := `default via 192.168.1.1 dev eth0 metric 100
default via 10.8.0.1 dev tap-vpn metric 50
`
	res := Parse(catalog.CheckRouteTable, output, nil)

	assert.Equal(t, 2, res.Structured[FactDefaultRouteCount])
	assert.Equal(t, "192.168.1.1", res.Structured[FactGatewayAddress])
	assert.Equal(t, true, res.Structured[FactVirtualDefaultRoute])
	assert.Contains(t, res.Diagnosis, "The default route is owned by a virtual network adapter.")
}

func TestParseRouteTableNetstatStyle(t *testing.T) {
	output := `Routing tables

Internet:
Destination        Gateway            Flags
default            192.168.1.1        UGScg
127.0.0.1          127.0.0.1          UH
`
	res := Parse(catalog.CheckRouteTable, output, nil)

	assert.Equal(t, true, res.Structured[FactHasDefaultRoute])
	assert.Equal(t, "192.168.1.1", res.Structured[FactGatewayAddress])
}
