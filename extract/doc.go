// Package extract copies object streams into files.
//
// An Extractor takes an object, the eligibility decided for it and a sink.
// Eligible streams are run through their filter chain; if any step fails
// the raw bytes are written instead. Ineligible streams are always written
// raw. The sink is closed on every path, and file sinks are synced to disk
// before they report success.
//
// Output files live in a directory that PrepareDir empties and recreates,
// and are named by the object's ordinal among all objects:
//
//	FileName("pdf", 7, "dat") // "pdf_0007_0.dat"
package extract
