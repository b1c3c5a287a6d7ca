package filters

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFilter is wrapped by every error caused by a filter name this
// package cannot decode.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// abbreviations maps the short names allowed in inline images (and accepted
// by most readers in stream dictionaries) to their full names.
var abbreviations = map[string]string{
	"AHx": "ASCIIHexDecode",
	"A85": "ASCII85Decode",
	"LZW": "LZWDecode",
	"Fl":  "FlateDecode",
	"RL":  "RunLengthDecode",
	"CCF": "CCITTFaxDecode",
	"DCT": "DCTDecode",
}

// Canonical returns the full filter name for an abbreviation, or name itself.
func Canonical(name string) string {
	if full, ok := abbreviations[name]; ok {
		return full
	}
	return name
}

// Step is a single named decode step with its parameters.
type Step struct {
	Name   string
	Params Params
}

// Chain is an ordered sequence of decode steps.
type Chain []Step

// Names returns the canonical filter names of the chain.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, step := range c {
		names[i] = Canonical(step.Name)
	}
	return names
}

// String renders the chain as "FlateDecode -> ASCII85Decode".
func (c Chain) String() string {
	return strings.Join(c.Names(), " -> ")
}

// Decode applies each step in order. An empty chain returns data unchanged.
// The error names the failing step.
func (c Chain) Decode(data []byte) ([]byte, error) {
	for i, step := range c {
		out, err := Decode(step.Name, data, step.Params)
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s) failed: %w", i, Canonical(step.Name), err)
		}
		data = out
	}
	return data, nil
}

// Decode applies the single filter name to data.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	switch Canonical(name) {
	case "FlateDecode":
		return FlateDecode(data, params)
	case "LZWDecode":
		return LZWDecode(data, params)
	case "ASCIIHexDecode":
		return ASCIIHexDecode(data)
	case "ASCII85Decode":
		return ASCII85Decode(data)
	case "RunLengthDecode":
		return RunLengthDecode(data)
	case "CCITTFaxDecode":
		return CCITTFaxDecode(data, params)
	case "DCTDecode", "JPXDecode":
		// Encoded image bytes are the useful form.
		return data, nil
	case "JBIG2Decode", "Crypt":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
	}
	return nil, fmt.Errorf("%w: unknown filter %s", ErrUnsupportedFilter, name)
}
