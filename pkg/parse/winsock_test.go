package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
)

const winsockCatalogOutput = `
Winsock Catalog Provider Entry
------------------------------------------------------
Entry Type:                         Base Service Provider
Description:                        MSAFD Tcpip [TCP/IP]
Provider Path:                      %SystemRoot%\system32\mswsock.dll

Winsock Catalog Provider Entry
------------------------------------------------------
Entry Type:                         Layered Service Provider
Description:                        Acme Traffic Shaper
Provider Path:                      C:\Program Files\Acme\acmelsp.dll
`

func TestParseWinsockCountsEntriesAndThirdParties(t *testing.T) {
	res := Parse(catalog.CheckWinsockCatalog, winsockCatalogOutput, nil)

	assert.Equal(t, 2, res.Structured["catalogEntryCount"])
	assert.Equal(t, 1, res.Structured["thirdPartyProviderCount"])
	assert.Equal(t, "Winsock catalog has 2 entries; 1 third-party providers are installed.", res.Diagnosis[0])
}

func TestParseWinsockBuiltinOnly(t *testing.T) {
	output := `Provider Entry
Provider Path:   %SystemRoot%\system32\mswsock.dll
`
	res := Parse(catalog.CheckWinsockCatalog, output, nil)

	assert.Equal(t, 1, res.Structured["catalogEntryCount"])
	assert.Equal(t, 0, res.Structured["thirdPartyProviderCount"])
	assert.Contains(t, res.Diagnosis[0], "all from built-in providers")
}

func TestParseWinsockNoEntries(t *testing.T) {
	res := Parse(catalog.CheckWinsockCatalog, "garbage\n", nil)

	assert.Equal(t, 0, res.Structured["catalogEntryCount"])
	assert.Equal(t, "Could not parse any Winsock catalog entries.", res.Diagnosis[0])
}
