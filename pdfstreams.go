// Package pdfstreams provides a fluent API for extracting the streams of
// every object in a PDF file.
//
// Basic usage:
//
//	report, warnings, err := pdfstreams.Open("document.pdf").Run()
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pdfstreams.FormatWarnings(warnings))
//	}
//	fmt.Println(report.Count(extract.Decoded), "streams decoded into", report.OutputDir)
//
// Each stream is written to its own file in "<input>.pdfstreams_out". Streams
// whose dictionaries mention an image codec (DCTDecode, JPXDecode,
// CCITTFaxDecode) are copied as they are; the rest are decoded, falling back
// to the raw bytes when decoding fails.
//
// With options:
//
//	report, _, err := pdfstreams.Open("report.pdf").
//	    OutputDir("out").
//	    Naming("obj", "bin").
//	    Diagnostics(os.Stdout).
//	    Run()
//
// For lower-level access, the reader, eligibility and extract packages are
// also available.
package pdfstreams

import (
	"errors"

	"github.com/tsawler/pdfstreams/reader"
)

// ErrInvocation reports that the command line did not name exactly one
// input file.
var ErrInvocation = errors.New("incorrect parameter(s)")

// Open returns an Extractor for the PDF file at filename. Nothing is read
// until Run is called.
//
// Example:
//
//	report, warnings, err := pdfstreams.Open("document.pdf").Run()
func Open(filename string) *Extractor {
	return &Extractor{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromReader creates an Extractor from an already-opened reader.Reader.
// name is used in diagnostics and, unless OutputDir is given, to derive the
// output directory.
// Note: The caller is responsible for closing the reader.
//
// Example:
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer r.Close()
//	report, warnings, err := pdfstreams.FromReader(r, "document.pdf").Run()
func FromReader(r *reader.Reader, name string) *Extractor {
	return &Extractor{
		filename:     name,
		reader:       r,
		ownsReader:   false,
		readerOpened: true,
		options:      defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustRun is a helper that wraps a call to Run and panics if the error is
// non-nil. It discards warnings and returns just the report.
//
// Example:
//
//	report := pdfstreams.MustRun(pdfstreams.Open("document.pdf").Run())
func MustRun[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
