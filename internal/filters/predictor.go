package filters

import "fmt"

// applyPredictor undoes the prediction selected by the Predictor parameter.
// 1 (or absent) is identity, 2 is TIFF Predictor 2, 10-15 are PNG predictors
// where each row carries its own algorithm tag.
func applyPredictor(data []byte, params Params) ([]byte, error) {
	predictor := getIntParam(params, "Predictor", 1)
	switch {
	case predictor == 1:
		return data, nil
	case predictor == 2:
		return undoTIFFPredictor(data, params)
	case predictor >= 10 && predictor <= 15:
		return undoPNGPredictor(data, params)
	}
	return nil, fmt.Errorf("unsupported predictor: %d", predictor)
}

// predictorGeometry returns bytes per complete pixel (at least 1) and bytes
// per row for the Colors/BitsPerComponent/Columns parameters.
func predictorGeometry(params Params) (bpp, rowBytes int, err error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)

	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return 0, 0, fmt.Errorf("invalid BitsPerComponent: %d", bpc)
	}
	if columns < 1 || colors < 1 {
		return 0, 0, fmt.Errorf("invalid predictor geometry: Columns=%d Colors=%d", columns, colors)
	}

	bpp = (colors*bpc + 7) / 8
	rowBytes = (columns*colors*bpc + 7) / 8
	return bpp, rowBytes, nil
}

// undoTIFFPredictor reverses TIFF Predictor 2 for 8-bit components: every
// sample is stored as the difference from the sample one pixel to its left.
func undoTIFFPredictor(data []byte, params Params) ([]byte, error) {
	if bpc := getIntParam(params, "BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor only supports 8 bits per component, got %d", bpc)
	}
	colors := getIntParam(params, "Colors", 1)
	_, rowBytes, err := predictorGeometry(params)
	if err != nil {
		return nil, err
	}
	if len(data)%rowBytes != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowBytes)
	}

	out := make([]byte, len(data))
	copy(out, data)
	for row := 0; row < len(out); row += rowBytes {
		for i := row + colors; i < row+rowBytes; i++ {
			out[i] += out[i-colors]
		}
	}
	return out, nil
}

// undoPNGPredictor reverses PNG row filters. Each encoded row is one tag byte
// (0 None, 1 Sub, 2 Up, 3 Average, 4 Paeth) followed by rowBytes of data.
func undoPNGPredictor(data []byte, params Params) ([]byte, error) {
	bpp, rowBytes, err := predictorGeometry(params)
	if err != nil {
		return nil, err
	}
	stride := rowBytes + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), stride)
	}

	rows := len(data) / stride
	out := make([]byte, rows*rowBytes)
	prev := make([]byte, rowBytes) // row above the first row is all zero

	for r := 0; r < rows; r++ {
		tag := data[r*stride]
		src := data[r*stride+1 : (r+1)*stride]
		dst := out[r*rowBytes : (r+1)*rowBytes]

		for i := range src {
			var left, upLeft byte
			if i >= bpp {
				left = dst[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]

			switch tag {
			case 0:
				dst[i] = src[i]
			case 1:
				dst[i] = src[i] + left
			case 2:
				dst[i] = src[i] + up
			case 3:
				dst[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				dst[i] = src[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG predictor %d in row %d", tag, r)
			}
		}
		prev = dst
	}
	return out, nil
}

// paeth picks whichever of left, up and upper-left is closest to left+up-upLeft.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
