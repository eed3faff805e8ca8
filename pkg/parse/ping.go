package parse

import (
	"fmt"
	"regexp"
	"strconv"
)

// Loss percentage phrasings across vendors and locales:
//
//	Windows (en):  Packets: Sent = 4, Received = 4, Lost = 0 (0% loss)
//	Windows (zh):  数据包: 已发送 = 4，已接收 = 4，丢失 = 0 (0% 丢失)
//	Unix:          4 packets transmitted, 4 received, 0% packet loss
var (
	lossParenRe = regexp.MustCompile(`\(\s*([0-9]+(?:\.[0-9]+)?)\s*%\s*(?:loss|丢失)\s*\)`)
	lossPlainRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%\s*(?:packet\s+loss|loss|丢失)`)
)

// Average round-trip phrasings:
//
//	Windows (en):  Minimum = 19ms, Maximum = 21ms, Average = 20ms
//	Windows (zh):  最短 = 19ms，最长 = 21ms，平均 = 20ms
//	Unix:          rtt min/avg/max/mdev = 19.931/20.052/20.221/0.118 ms
var (
	avgSummaryRe = regexp.MustCompile(`(?i)(?:Average|平均)\s*=\s*([0-9]+(?:\.[0-9]+)?)\s*ms`)
	avgTupleRe   = regexp.MustCompile(`=\s*[0-9.]+/([0-9.]+)/[0-9.]+`)
)

// pingStats extracts loss percentage and average latency from ping output.
// Either value may be absent independently.
func pingStats(text string) (loss float64, lossOK bool, avg float64, avgOK bool) {
	if m := lossParenRe.FindStringSubmatch(text); m != nil {
		loss, lossOK = parseFloat(m[1])
	} else if m := lossPlainRe.FindStringSubmatch(text); m != nil {
		loss, lossOK = parseFloat(m[1])
	}
	if m := avgSummaryRe.FindStringSubmatch(text); m != nil {
		avg, avgOK = parseFloat(m[1])
	} else if m := avgTupleRe.FindStringSubmatch(text); m != nil {
		avg, avgOK = parseFloat(m[1])
	}
	return loss, lossOK, avg, avgOK
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parsePing(text string, _ *int) Result {
	res := Result{Structured: map[string]any{}}

	loss, lossOK, avg, avgOK := pingStats(text)
	if avgOK {
		res.Structured[FactAvgLatency] = avg
	}
	if !lossOK {
		// Never silently report zero loss when the stats line is missing.
		res.Diagnosis = append(res.Diagnosis, "Could not parse packet loss from ping output.")
		return res
	}
	res.Structured[FactPacketLoss] = loss

	switch {
	case loss >= 100:
		res.Diagnosis = append(res.Diagnosis, fmt.Sprintf("Target is unreachable: %.0f%% packet loss.", loss))
	case loss > 5:
		res.Diagnosis = append(res.Diagnosis, fmt.Sprintf("Connection is unstable: %.0f%% packet loss.", loss))
	default:
		res.Diagnosis = append(res.Diagnosis, fmt.Sprintf("Connectivity is acceptable: %.0f%% packet loss.", loss))
	}
	if avgOK {
		res.Diagnosis = append(res.Diagnosis, fmt.Sprintf("Average round-trip time %.0f ms.", avg))
	}
	return res
}
