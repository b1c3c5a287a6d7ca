package core

import (
	"bytes"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// DecodeTextString converts a PDF text string (document info, outline
// titles) to UTF-8. Strings starting with a UTF-16BE or UTF-8 byte order mark
// are decoded accordingly; anything else is treated as Latin-1, which is the
// printable subset PDFDocEncoding shares with it.
func DecodeTextString(s String) string {
	raw := []byte(s)

	var dec *encoding.Decoder
	switch {
	case bytes.HasPrefix(raw, bomUTF16BE):
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(raw, bomUTF8):
		dec = unicode.UTF8BOM.NewDecoder()
	case isASCII(raw):
		return string(raw)
	default:
		dec = charmap.ISO8859_1.NewDecoder()
	}

	out, err := dec.Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
