// Package eligibility decides whether a stream's filters should be applied
// when the stream is extracted.
//
// The decision is made by walking the object's dictionary. Every Name value
// reached by the walk is checked against a denylist of filter names (by
// default the image codecs DCTDecode, JPXDecode and CCITTFaxDecode). The
// first denylisted name turns decoding off for the rest of the walk; nothing
// turns it back on.
//
// The walk descends into dictionaries only when they appear as array
// elements. A dictionary stored directly under a key is not inspected, so
//
//	<< /DecodeParms << /Filter /DCTDecode >> >>
//
// stays eligible while
//
//	<< /ColorSpace [ /Indexed /DeviceRGB 255 << /Filter /DCTDecode >> ] >>
//
// does not.
//
// While walking, the evaluator writes a one-line rendering of the dictionary:
//
//	var buf strings.Builder
//	eligible, err := eligibility.Default().Evaluate(&buf, dict, true)
//	// buf: "<< /Filter /FlateDecode /Length 42 >>"
package eligibility
