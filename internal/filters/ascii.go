package filters

import (
	"bytes"
	"encoding/ascii85"
	"fmt"
)

// ASCIIHexDecode decodes pairs of hex digits. Whitespace is ignored, '>'
// ends the data and an odd final digit is padded with 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var (
		hi      byte
		pending bool
	)
	for i, c := range data {
		if isWhitespace(c) {
			continue
		}
		if c == '>' {
			break
		}
		v, ok := hexDigit(c)
		if !ok {
			return nil, fmt.Errorf("invalid hex digit %q at offset %d", c, i)
		}
		if pending {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		pending = !pending
	}
	if pending {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes base-85 data. An optional "<~" prefix is skipped and
// "~>" ends the data; 'z' groups and whitespace are handled by encoding/ascii85.
func ASCII85Decode(data []byte) ([]byte, error) {
	src := bytes.TrimLeft(data, " \t\r\n\f\x00")
	src = bytes.TrimPrefix(src, []byte("<~"))
	if end := bytes.Index(src, []byte("~>")); end >= 0 {
		src = src[:end]
	}

	out := make([]byte, 4*len(src)+4) // a single z expands to four bytes
	n, _, err := ascii85.Decode(out, src, true)
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out[:n], nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
