package filters

import (
	"bytes"
	stdlzw "compress/lzw"
	"errors"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// LZWDecode decompresses LZW data with 8-bit literals in MSB-first order.
// EarlyChange 1 (the default) widens codes one entry early, like TIFF; the
// TIFF reader from x/image implements exactly that variant. EarlyChange 0 is
// the textbook algorithm of compress/lzw. A missing EOD code is tolerated.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var r io.ReadCloser
	switch early := getIntParam(params, "EarlyChange", 1); early {
	case 1:
		r = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	case 0:
		r = stdlzw.NewReader(bytes.NewReader(data), stdlzw.MSB, 8)
	default:
		return nil, fmt.Errorf("invalid EarlyChange: %d", early)
	}
	defer r.Close()

	decompressed, err := io.ReadAll(r)
	if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && len(decompressed) > 0) {
		return nil, fmt.Errorf("lzw decompression failed: %w", err)
	}

	return applyPredictor(decompressed, params)
}
