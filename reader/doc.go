// Package reader provides PDF file reading and object access.
//
// This package ties the lower-level core package together: it finds the
// header, loads the cross-reference data including incremental updates and
// xref streams, and loads objects on demand, including those stored inside
// object streams.
//
// # Opening PDF Files
//
// Use [Open] to open a PDF file for reading:
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
// Or use [NewReader] with any io.ReaderAt.
//
// # Tolerant Parsing
//
// Readers are lenient by default. A lenient reader rebuilds unusable
// cross-reference data by scanning the file for object headers, retries
// objects whose recorded offset is wrong, recovers streams with a bad
// /Length, and skips objects it cannot load. Everything it works around is
// recorded and available from [Reader.Warnings]. Pass WithLenient(false) to
// fail on the first problem instead.
//
// # Objects
//
//   - GetObject(objNum) - load object by number
//   - ResolveReference(ref) - resolve an IndirectRef
//   - Objects() - every in-use object, in object-number order
//   - Info() - decoded title, author, producer and creator
//
// # Object Caching
//
// Loaded objects are cached for the lifetime of the Reader, so the objects
// of an object stream are decoded once however many of them are read.
package reader
