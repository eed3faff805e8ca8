package decode

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// mojibakePatterns are byte sequences characteristic of UTF-8 Chinese text
// that was mis-decoded as GBK. Seeing one means the upstream tool ignored
// the console code page and emitted UTF-8 anyway.
var mojibakePatterns = []string{
	"锘",   // UTF-8 BOM read as GBK
	"锟斤拷", // replacement-character churn
	"鈥",   // curly quote
	"鐨",   // 的
	"鏄",   // 是
}

// Stream incrementally decodes one output stream (stdout or stderr).
//
// Incomplete trailing multi-byte sequences are buffered between Write calls
// and either completed by the next chunk or emitted as replacement runes by
// Flush. When mojibake recovery is enabled and the decoded text matches a
// known mis-decode pattern, the stream swaps to UTF-8 and re-decodes the
// current chunk; the swap happens at most once per stream.
type Stream struct {
	enc     encoding.Encoding
	tr      transform.Transformer
	pending []byte
	detect  bool
	swapped bool
}

// Option configures a Stream.
type Option func(*Stream)

// WithMojibakeRecovery enables the one-shot mid-stream swap to UTF-8 for
// tools known to emit UTF-8 regardless of the configured code page.
func WithMojibakeRecovery() Option {
	return func(s *Stream) { s.detect = true }
}

// NewStream creates a decoder for one stream direction using enc.
func NewStream(enc encoding.Encoding, opts ...Option) *Stream {
	if enc == nil {
		enc = unicode.UTF8
	}
	s := &Stream{enc: enc, tr: enc.NewDecoder()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Swapped reports whether mojibake recovery has fired on this stream.
func (s *Stream) Swapped() bool {
	return s.swapped
}

// Write decodes one raw chunk and returns the text it completes. Bytes that
// end mid-sequence are held back for the next Write or Flush.
func (s *Stream) Write(chunk []byte) string {
	raw := make([]byte, 0, len(s.pending)+len(chunk))
	raw = append(raw, s.pending...)
	raw = append(raw, chunk...)

	text, rest := s.run(raw, false)
	s.pending = rest

	if s.detect && !s.swapped && s.enc != unicode.UTF8 && looksLikeMojibake(text) {
		s.swapped = true
		s.enc = unicode.UTF8
		s.tr = unicode.UTF8.NewDecoder()
		text, rest = s.run(raw, false)
		s.pending = rest
	}
	return text
}

// Flush emits any remaining buffered bytes, substituting replacement runes
// for truncated sequences. Flushing an empty stream is a no-op.
func (s *Stream) Flush() string {
	if len(s.pending) == 0 {
		return ""
	}
	text, _ := s.run(s.pending, true)
	s.pending = nil
	return text
}

// run decodes src, returning the completed text and any unconsumed trailing bytes.
func (s *Stream) run(src []byte, atEOF bool) (string, []byte) {
	var out []byte
	dst := make([]byte, len(src)*utf8.UTFMax+utf8.UTFMax)
	for {
		nDst, nSrc, err := s.tr.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]
		switch {
		case err == nil:
			return string(out), nil
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			if atEOF {
				// Truncated final sequence: substitute and drop it.
				out = utf8.AppendRune(out, utf8.RuneError)
				return string(out), nil
			}
			return string(out), append([]byte(nil), src...)
		default:
			// x/text decoders substitute rather than error; this path only
			// fires for a transformer that gives up entirely. Skip a byte to
			// guarantee progress.
			if len(src) > 0 {
				out = utf8.AppendRune(out, utf8.RuneError)
				src = src[1:]
				continue
			}
			return string(out), nil
		}
	}
}

func looksLikeMojibake(text string) bool {
	for _, p := range mojibakePatterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
