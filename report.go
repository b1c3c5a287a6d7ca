package pdfstreams

import (
	"time"

	"github.com/tsawler/pdfstreams/extract"
	"github.com/tsawler/pdfstreams/reader"
)

// Report summarizes a run.
type Report struct {
	Input     string
	OutputDir string
	Version   reader.PDFVersion
	Info      reader.Info
	Repaired  bool // cross-reference data was rebuilt by scanning the file
	Objects   int  // objects loaded, with or without a stream
	Streams   []StreamResult
	Elapsed   time.Duration
}

// StreamResult is the outcome for one object that owns a stream.
type StreamResult struct {
	extract.Result

	Ordinal   int    // position among all objects, from 1
	Path      string // output file
	Rendering string // dictionary as shown in diagnostics
	Eligible  bool
}

// Count returns how many streams took outcome o and were written.
func (r *Report) Count(o extract.Outcome) int {
	n := 0
	for _, s := range r.Streams {
		if s.Outcome == o && s.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns how many streams could not be written.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Streams {
		if s.Err != nil {
			n++
		}
	}
	return n
}
