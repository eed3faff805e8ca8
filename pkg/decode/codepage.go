// Package decode converts raw process output bytes into text, tolerating
// multi-byte sequences split across chunk boundaries and the Windows console
// code-page zoo.
package decode

import (
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

var (
	consoleOnce sync.Once
	consoleEnc  encoding.Encoding
)

// ConsoleEncoding returns the encoding of the platform's console output.
//
// On Windows the active code page is probed once (chcp) and mapped through a
// fixed table; every other platform is UTF-8 unconditionally. Probe failure
// falls back to GBK, the most common non-UTF-8 console in the field.
func ConsoleEncoding() encoding.Encoding {
	consoleOnce.Do(func() {
		consoleEnc = detectConsoleEncoding(runtime.GOOS)
	})
	return consoleEnc
}

func detectConsoleEncoding(goos string) encoding.Encoding {
	if goos != "windows" {
		return unicode.UTF8
	}
	out, err := exec.Command("chcp.com").Output()
	if err != nil {
		return simplifiedchinese.GBK
	}
	cp, ok := parseCodePage(string(out))
	if !ok {
		return unicode.UTF8
	}
	return EncodingForCodePage(cp)
}

var codePageRe = regexp.MustCompile(`(\d+)`)

// parseCodePage extracts the code page number from chcp output, which is
// localized ("Active code page: 936", "活动代码页: 936").
func parseCodePage(s string) (int, bool) {
	matches := codePageRe.FindAllString(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	cp, err := strconv.Atoi(matches[len(matches)-1])
	if err != nil {
		return 0, false
	}
	return cp, true
}

// EncodingForCodePage maps a Windows code page to a character encoding.
// Unknown pages map to UTF-8 as a hopeful default.
func EncodingForCodePage(cp int) encoding.Encoding {
	switch cp {
	case 65001:
		return unicode.UTF8
	case 936:
		return simplifiedchinese.GBK
	case 54936:
		return simplifiedchinese.GB18030
	case 950:
		return traditionalchinese.Big5
	case 932:
		return japanese.ShiftJIS
	case 949:
		return korean.EUCKR
	case 1252:
		return charmap.Windows1252
	default:
		return unicode.UTF8
	}
}
