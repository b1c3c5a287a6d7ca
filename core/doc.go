// Package core provides the low-level PDF object model and parsing primitives
// used to walk a document's indirect objects.
//
// # Object Types
//
// Every PDF value satisfies the [Object] interface:
//
//   - [Null], [Bool], [Int], [Real], [String] and [Name] are scalars
//   - [Array] and [Dict] are containers
//   - [Stream] is a dictionary followed by raw, still-encoded bytes
//   - [IndirectRef] is a "num gen R" reference to another object
//
// # Parsing
//
// [Lexer] tokenizes PDF syntax and [Parser] builds objects from tokens. A parser
// in lenient mode recovers stream data whose /Length entry is missing or wrong
// by scanning for the endstream keyword.
//
// # Cross-Reference Data
//
// [XRefParser] reads classic xref tables, xref streams (PDF 1.5+) and hybrid
// files, following /Prev chains. [Reconstruct] rebuilds a table by scanning the
// whole file when the recorded one is unusable.
//
// # Filter Chains
//
// [Stream.FilterChain] turns the /Filter and /DecodeParms entries of a stream
// dictionary into an ordered chain of decode steps; [Stream.Decode] runs it.
package core
