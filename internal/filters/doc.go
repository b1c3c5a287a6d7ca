// Package filters implements the PDF stream decode filters and the chain
// runner that applies them in sequence.
//
// # Supported Filters
//
//   - FlateDecode (zlib), with PNG (10-15) and TIFF (2) predictors
//   - LZWDecode, honouring EarlyChange and the same predictors
//   - ASCIIHexDecode and ASCII85Decode
//   - RunLengthDecode
//   - CCITTFaxDecode (Group 3 and Group 4)
//
// DCTDecode and JPXDecode are image codecs whose encoded bytes are the useful
// form, so they pass data through unchanged. JBIG2Decode, Crypt and unknown
// names fail with an error wrapping [ErrUnsupportedFilter].
//
// # Chains
//
// A [Chain] is an ordered list of [Step] values. [Chain.Decode] feeds the
// output of each step into the next:
//
//	chain := filters.Chain{
//	    {Name: "ASCII85Decode"},
//	    {Name: "FlateDecode", Params: filters.Params{"Predictor": 12, "Columns": 5}},
//	}
//	decoded, err := chain.Decode(data)
package filters
