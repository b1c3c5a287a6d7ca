// Package resolver follows PDF indirect references.
//
// Objects refer to one another with indirect references such as "5 0 R".
// A resolver loads the referenced objects through an ObjectReader, follows
// chains of references and reports circular ones as errors.
//
// # Basic Usage
//
//	res := resolver.NewResolver(r)
//	obj, err := res.Resolve(ref)
//
// # Resolving Dictionary Entries
//
// ResolveEntries expands every reference below selected dictionary keys,
// which is how the stream extractor obtains /Filter and /DecodeParms without
// pulling in the rest of the file:
//
//	dict, err := res.ResolveEntries(stream.Dict, "Filter", "DecodeParms")
//
// The recursion limit is configurable:
//
//	res := resolver.NewResolver(r, resolver.WithMaxDepth(50))
package resolver
