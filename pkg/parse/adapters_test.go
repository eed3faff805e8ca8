package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
)

const ipconfigAllOutput = `
Windows IP Configuration

Ethernet adapter Ethernet:

   Connection-specific DNS Suffix  . :
   IPv4 Address. . . . . . . . . . . : 192.168.1.10
   Default Gateway . . . . . . . . . : 192.168.1.1

Wireless LAN adapter Wi-Fi:

   Media State . . . . . . . . . . . : Media disconnected

Ethernet adapter vEthernet (WSL):

   IPv4 Address. . . . . . . . . . . : 172.28.0.1
`

func TestParseAdaptersIpconfig(t *testing.T) {
	res := Parse(catalog.CheckAdapters, ipconfigAllOutput, nil)

	assert.Equal(t, 3, res.Structured[FactAdapterCount])
	assert.Equal(t, 2, res.Structured[FactAdapterUpCount])
	assert.Equal(t, false, res.Structured[FactVirtualDefaultRoute])
	assert.Equal(t, "3 network adapters found, 2 up.", res.Diagnosis[0])
}

func TestParseAdaptersVirtualTakeover(t *testing.T) {
	output := `Ethernet adapter vEthernet (WSL):

   IPv4 Address. . . . . . . . . . . : 172.28.0.1
   Default Gateway . . . . . . . . . : 172.28.0.254
`
	res := Parse(catalog.CheckAdapters, output, nil)

	assert.Equal(t, true, res.Structured[FactVirtualDefaultRoute])
	assert.Contains(t, res.Diagnosis, "A virtual network adapter holds the default gateway.")
}

func TestParseAdaptersBriefLink(t *testing.T) {
	output := `lo               UNKNOWN        00:00:00:00:00:00 <LOOPBACK,UP,LOWER_UP>
eth0             UP             aa:bb:cc:dd:ee:ff <BROADCAST,MULTICAST,UP,LOWER_UP>
wlan0            DOWN           11:22:33:44:55:66 <BROADCAST,MULTICAST>
`
	res := Parse(catalog.CheckAdapters, output, nil)

	assert.Equal(t, 2, res.Structured[FactAdapterCount])
	assert.Equal(t, 1, res.Structured[FactAdapterUpCount])
}

func TestParseAdaptersIfconfig(t *testing.T) {
	output := `lo0: flags=8049<UP,LOOPBACK,RUNNING,MULTICAST> mtu 16384
en0: flags=8863<UP,BROADCAST,SMART,RUNNING,SIMPLEX,MULTICAST> mtu 1500
	inet 192.168.1.10 netmask 0xffffff00
en1: flags=8822<BROADCAST,SMART,SIMPLEX,MULTICAST> mtu 1500
`
	res := Parse(catalog.CheckAdapters, output, nil)

	assert.Equal(t, 2, res.Structured[FactAdapterCount])
	assert.Equal(t, 1, res.Structured[FactAdapterUpCount])
}

func TestParseAdaptersNoneUp(t *testing.T) {
	output := `eth0             DOWN           aa:bb:cc:dd:ee:ff <BROADCAST>
`
	res := Parse(catalog.CheckAdapters, output, nil)

	assert.Equal(t, 1, res.Structured[FactAdapterCount])
	assert.Equal(t, 0, res.Structured[FactAdapterUpCount])
	assert.Equal(t, "No network adapter is up (0 of 1).", res.Diagnosis[0])
}

func TestParseAdaptersUnknownFormat(t *testing.T) {
	res := Parse(catalog.CheckAdapters, "nothing recognizable here\n", nil)

	assert.Equal(t, 0, res.Structured[FactAdapterCount])
	assert.Equal(t, "Could not parse any network adapters from the output.", res.Diagnosis[0])
}

func TestHasVirtualKeyword(t *testing.T) {
	assert.True(t, hasVirtualKeyword("Ethernet adapter vEthernet (WSL):"))
	assert.True(t, hasVirtualKeyword("VMware Network Adapter VMnet8"))
	assert.True(t, hasVirtualKeyword("tailscale0"))
	assert.False(t, hasVirtualKeyword("Intel(R) Ethernet Connection I219-LM"))
}
