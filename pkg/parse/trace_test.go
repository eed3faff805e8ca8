package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
)

const tracertOutput = `
Tracing route to example.com [93.184.216.34]
over a maximum of 15 hops:

  1    <1 ms    <1 ms    <1 ms  192.168.1.1
  2     3 ms     2 ms     3 ms  10.44.0.1
  3     *        *        *     Request timed out.
  4    20 ms    19 ms    21 ms  93.184.216.34

Trace complete.
`

func TestParseTracerouteCountsHopsAndTimeouts(t *testing.T) {
	res := Parse(catalog.CheckTraceroute, tracertOutput, nil)

	assert.Equal(t, 4, res.Structured[FactHopCount])
	assert.Equal(t, 1, res.Structured[FactTimeoutHopCount])
	assert.Equal(t, false, res.Structured[FactMostlyTimingOut])
	assert.Equal(t, "Traced 4 hops; 1 timed out.", res.Diagnosis[0])
}

func TestParseTracerouteMostlyTimingOut(t *testing.T) {
	output := ` 1  192.168.1.1  1.2 ms
 2  * * *
 3  * * *
 4  * * *
`
	res := Parse(catalog.CheckTraceroute, output, nil)

	assert.Equal(t, 4, res.Structured[FactHopCount])
	assert.Equal(t, 3, res.Structured[FactTimeoutHopCount])
	assert.Equal(t, true, res.Structured[FactMostlyTimingOut])
	assert.Equal(t, "Path is mostly timing out: 3 of 4 hops did not respond.", res.Diagnosis[0])
}

func TestParseTracerouteExactlyHalfTimingOutIsNotMostly(t *testing.T) {
	output := ` 1  192.168.1.1  1.2 ms
 2  * * *
`
	res := Parse(catalog.CheckTraceroute, output, nil)
	assert.Equal(t, false, res.Structured[FactMostlyTimingOut])
}

func TestParseTracerouteNoHops(t *testing.T) {
	res := Parse(catalog.CheckTraceroute, "Unable to resolve target system name.\n", nil)

	assert.Equal(t, 0, res.Structured[FactHopCount])
	assert.Equal(t, "Could not parse any hops from the trace output.", res.Diagnosis[0])
}
