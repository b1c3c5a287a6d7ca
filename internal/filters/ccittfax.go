package filters

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes CCITT Group 3/4 fax data into packed 1-bit rows.
//
// Parameters from the decode parameters dictionary:
//   - K: <0 selects Group 4, otherwise Group 3
//   - Columns: image width in pixels (default 1728)
//   - Rows: image height; 0 lets the decoder detect it
//   - BlackIs1: inverts the bit sense (default false)
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)

	sf := ccitt.Group3
	if getIntParam(params, "K", 0) < 0 {
		sf = ccitt.Group4
	}
	if rows == 0 {
		rows = ccitt.AutoDetectHeight
	}

	opts := &ccitt.Options{Invert: getBoolParam(params, "BlackIs1", false)}
	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, opts)
	return io.ReadAll(r)
}
