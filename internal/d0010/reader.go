package d0010

// reader.go prepares raw file bytes for line parsing.
//
// Flow files arrive from many systems. Two artifacts are common enough to
// handle before parsing:
//
//   - A UTF-8 byte order mark (0xEF 0xBB 0xBF) written by Windows tools, which
//     would otherwise glue itself to the first record tag.
//   - Invalid UTF-8 bytes, which are replaced with U+FFFD line by line.

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewReader wraps r so a leading UTF-8 BOM is skipped.
func NewReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)

	head, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	return br
}

// sanitizeLine replaces invalid UTF-8 sequences with the replacement rune.
func sanitizeLine(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}
