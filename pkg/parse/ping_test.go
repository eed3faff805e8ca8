package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
)

const windowsPingOK = `
Pinging example.com [93.184.216.34] with 32 bytes of data:
Reply from 93.184.216.34: bytes=32 time=20ms TTL=56

Ping statistics for 93.184.216.34:
    Packets: Sent = 4, Received = 4, Lost = 0 (0% loss),
Approximate round trip times in milli-seconds:
    Minimum = 19ms, Maximum = 21ms, Average = 20ms
`

const unixPingOK = `
PING example.com (93.184.216.34) 56(84) bytes of data.
64 bytes from 93.184.216.34: icmp_seq=1 ttl=56 time=20.1 ms

--- example.com ping statistics ---
4 packets transmitted, 4 received, 0% packet loss, time 3004ms
rtt min/avg/max/mdev = 19.931/20.052/20.221/0.118 ms
`

const chinesePingLoss = `
来自 192.168.1.1 的回复: 字节=32 时间=3ms TTL=64

192.168.1.1 的 Ping 统计信息:
    数据包: 已发送 = 4，已接收 = 3，丢失 = 1 (25% 丢失)，
往返行程的估计时间(以毫秒为单位):
    最短 = 2ms，最长 = 5ms，平均 = 3ms
`

func TestParsePingWindowsCleanRun(t *testing.T) {
	res := Parse(catalog.CheckPing, windowsPingOK, nil)

	assert.Equal(t, 0.0, res.Structured[FactPacketLoss])
	assert.Equal(t, 20.0, res.Structured[FactAvgLatency])
	require.Len(t, res.Diagnosis, 2)
	assert.Equal(t, "Connectivity is acceptable: 0% packet loss.", res.Diagnosis[0])
	assert.Equal(t, "Average round-trip time 20 ms.", res.Diagnosis[1])
}

func TestParsePingUnixCleanRun(t *testing.T) {
	res := Parse(catalog.CheckPing, unixPingOK, nil)

	assert.Equal(t, 0.0, res.Structured[FactPacketLoss])
	assert.InDelta(t, 20.052, res.Structured[FactAvgLatency], 0.001)
	assert.Contains(t, res.Diagnosis[0], "acceptable")
}

func TestParsePingChineseLocale(t *testing.T) {
	res := Parse(catalog.CheckPing, chinesePingLoss, nil)

	assert.Equal(t, 25.0, res.Structured[FactPacketLoss])
	assert.Equal(t, 3.0, res.Structured[FactAvgLatency])
	assert.Contains(t, res.Diagnosis[0], "unstable")
}

func TestParsePingLossClassification(t *testing.T) {
	tests := []struct {
		name string
		loss string
		want string
	}{
		{"zero", "0", "Connectivity is acceptable: 0% packet loss."},
		{"boundary five percent is acceptable", "5", "Connectivity is acceptable: 5% packet loss."},
		{"above five is unstable", "6", "Connection is unstable: 6% packet loss."},
		{"fifty is unstable", "50", "Connection is unstable: 50% packet loss."},
		{"hundred is unreachable", "100", "Target is unreachable: 100% packet loss."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := "4 packets transmitted, 0 received, " + tt.loss + "% packet loss, time 3004ms\n"
			res := Parse(catalog.CheckPing, output, nil)
			require.NotEmpty(t, res.Diagnosis)
			assert.Equal(t, tt.want, res.Diagnosis[0])
		})
	}
}

func TestParsePingWithoutStatsLine(t *testing.T) {
	res := Parse(catalog.CheckPing, "Request timed out.\nRequest timed out.\n", nil)

	_, hasLoss := res.Structured[FactPacketLoss]
	assert.False(t, hasLoss)
	require.NotEmpty(t, res.Diagnosis)
	assert.Equal(t, "Could not parse packet loss from ping output.", res.Diagnosis[0])
}

func TestPingStatsIndependentFields(t *testing.T) {
	loss, lossOK, _, avgOK := pingStats("3 packets transmitted, 3 received, 0% packet loss")
	assert.True(t, lossOK)
	assert.Equal(t, 0.0, loss)
	assert.False(t, avgOK)

	_, lossOK, avg, avgOK := pingStats("rtt min/avg/max/mdev = 1.0/2.5/4.0/0.2 ms")
	assert.False(t, lossOK)
	assert.True(t, avgOK)
	assert.Equal(t, 2.5, avg)
}
