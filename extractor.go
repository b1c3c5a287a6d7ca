package pdfstreams

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/tsawler/pdfstreams/config"
	"github.com/tsawler/pdfstreams/eligibility"
	"github.com/tsawler/pdfstreams/extract"
	"github.com/tsawler/pdfstreams/reader"
)

// Extractor provides a fluent interface for extracting the streams of a PDF.
// Each configuration method returns a new Extractor instance, so a
// configured Extractor can be used as a template for several runs.
type Extractor struct {
	// Source
	filename string

	reader *reader.Reader

	// Lifecycle
	ownsReader   bool // true if we opened the reader and should close it
	readerOpened bool // true if reader has been opened

	// Configuration
	options RunOptions

	// Accumulated error (fail-fast)
	err error

	// Warnings of the current run
	warnings []Warning

	// readerWarnings counts the reader warnings already copied to warnings
	readerWarnings int
}

// clone creates a shallow copy of the Extractor with a deep copy of options.
// This ensures immutability - each chain method returns a new instance.
func (e *Extractor) clone() *Extractor {
	return &Extractor{
		filename:       e.filename,
		reader:         e.reader,
		ownsReader:     e.ownsReader,
		readerOpened:   e.readerOpened,
		options:        e.options.clone(),
		err:            e.err,
		warnings:       append([]Warning(nil), e.warnings...),
		readerWarnings: e.readerWarnings,
	}
}

// ensureReader opens the reader if not already open.
func (e *Extractor) ensureReader() error {
	if e.readerOpened {
		return nil
	}
	if e.filename == "" {
		return fmt.Errorf("no filename specified")
	}

	r, err := reader.Open(e.filename, reader.WithLenient(e.options.lenient))
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	e.reader = r
	e.readerWarnings = 0
	e.ownsReader = true
	e.readerOpened = true
	return nil
}

// Close releases resources associated with the Extractor.
// It is safe to call Close multiple times.
func (e *Extractor) Close() error {
	if e.ownsReader && e.reader != nil {
		err := e.reader.Close()
		e.reader = nil
		e.ownsReader = false
		e.readerOpened = false
		return err
	}
	return nil
}

// ============================================================================
// Configuration Methods (return new Extractor instance)
// ============================================================================

// OutputDir sets the directory that receives the stream files. It replaces
// the default "<input>.<suffix>_out". The directory is emptied before use.
func (e *Extractor) OutputDir(dir string) *Extractor {
	newExt := e.clone()
	newExt.options.outputDir = dir
	return newExt
}

// Suffix changes the suffix of the derived output directory.
func (e *Extractor) Suffix(suffix string) *Extractor {
	newExt := e.clone()
	newExt.options.suffix = suffix
	return newExt
}

// Naming sets the prefix and extension of output files, which are named
// "<prefix>_<4-digit ordinal>_0.<ext>".
func (e *Extractor) Naming(prefix, ext string) *Extractor {
	newExt := e.clone()
	newExt.options.prefix = prefix
	newExt.options.extension = ext
	return newExt
}

// Denylist replaces the filter names whose streams are copied undecoded.
// Calling it with no names decodes everything.
func (e *Extractor) Denylist(names ...string) *Extractor {
	newExt := e.clone()
	newExt.options.denylist = append([]string{}, names...)
	return newExt
}

// Lenient controls tolerant parsing of damaged files (default: true).
func (e *Extractor) Lenient(lenient bool) *Extractor {
	newExt := e.clone()
	newExt.options.lenient = lenient
	return newExt
}

// Diagnostics sets where the human-readable progress text goes. By default
// it is discarded.
func (e *Extractor) Diagnostics(w io.Writer) *Extractor {
	newExt := e.clone()
	if w == nil {
		w = io.Discard
	}
	newExt.options.diagnostics = w
	return newExt
}

// Logger sets the structured logger for operational events. By default
// nothing is logged.
func (e *Extractor) Logger(l *slog.Logger) *Extractor {
	newExt := e.clone()
	if l != nil {
		newExt.options.logger = l
	}
	return newExt
}

// WithConfig applies output, decoding and parsing settings from cfg.
func (e *Extractor) WithConfig(cfg *config.Config) *Extractor {
	newExt := e.clone()
	if err := cfg.Validate(); err != nil {
		newExt.err = fmt.Errorf("invalid config: %w", err)
		return newExt
	}
	newExt.options.apply(cfg)
	return newExt
}

// ============================================================================
// Terminal Operations
// ============================================================================

// outputDir returns the directory that receives the stream files.
func (e *Extractor) outputDir() (string, error) {
	if e.options.outputDir != "" {
		return e.options.outputDir, nil
	}
	if e.filename == "" {
		return "", fmt.Errorf("no output directory: set OutputDir or give an input name")
	}
	return extract.OutputDir(e.filename, e.options.suffix), nil
}

// Run extracts every stream in the file and returns a report of what was
// written. The error is non-nil only when the file cannot be parsed at all
// or the output directory cannot be prepared; problems with single objects
// are returned as warnings and recorded in the report.
//
// Example:
//
//	report, warnings, err := pdfstreams.Open("document.pdf").
//	    Diagnostics(os.Stdout).
//	    Run()
func (e *Extractor) Run() (*Report, []Warning, error) {
	if e.err != nil {
		return nil, nil, e.err
	}
	// Warnings describe a single run; the reader's are reported again in full.
	e.warnings = nil
	e.readerWarnings = 0

	start := time.Now()
	diag := e.options.diagnostics
	log := e.options.logger

	fmt.Fprintf(diag, "Parsing file '%s':\n", e.filename)

	if err := e.ensureReader(); err != nil {
		return nil, nil, err
	}
	defer e.Close()

	objects, err := e.reader.Objects()
	e.collectReaderWarnings()
	if err != nil {
		return nil, e.warnings, fmt.Errorf("failed to load objects: %w", err)
	}

	report := &Report{
		Input:    e.filename,
		Version:  e.reader.Version(),
		Repaired: e.reader.Repaired(),
		Objects:  len(objects),
	}
	if info, err := e.reader.Info(); err != nil {
		log.Debug("document info unavailable", "error", err)
	} else {
		report.Info = info
	}
	log.Info("document loaded",
		"file", e.filename,
		"version", report.Version.String(),
		"objects", report.Objects,
		"repaired", report.Repaired,
		"title", report.Info.Title,
		"producer", report.Info.Producer,
	)

	dir, err := e.outputDir()
	if err != nil {
		return nil, e.warnings, err
	}
	if err := extract.PrepareDir(dir); err != nil {
		return nil, e.warnings, err
	}
	report.OutputDir = dir

	evaluator := eligibility.New(e.options.denylist...)
	extractor := extract.New(e.reader)

	for i, obj := range objects {
		ordinal := i + 1
		if !obj.HasStream() {
			continue
		}

		fmt.Fprintf(diag, "    Object %d has stream ", ordinal)
		var rendering strings.Builder
		eligible, _ := evaluator.Evaluate(io.MultiWriter(&rendering, diag), obj.Dict(), true)

		path := filepath.Join(dir, extract.FileName(e.options.prefix, ordinal, e.options.extension))
		result := extractor.ExtractFile(obj, eligible, path)

		fmt.Fprint(diag, result.Outcome.Annotation())
		if result.Err != nil {
			fmt.Fprint(diag, " (output failed)")
		}
		fmt.Fprintln(diag)

		e.recordResult(ordinal, path, result)
		report.Streams = append(report.Streams, StreamResult{
			Result:    result,
			Ordinal:   ordinal,
			Path:      path,
			Rendering: rendering.String(),
			Eligible:  eligible,
		})
	}

	e.collectReaderWarnings()
	report.Elapsed = time.Since(start)
	log.Info("extraction finished",
		"dir", dir,
		"streams", len(report.Streams),
		"decoded", report.Count(extract.Decoded),
		"omitted", report.Count(extract.OmittedByPolicy),
		"fallback", report.Count(extract.OmittedByFailure),
		"failed", report.Failed(),
		"denylist", strings.Join(evaluator.Denylist(), " "),
		"elapsed", report.Elapsed,
	)

	return report, e.warnings, nil
}

// recordResult logs one extraction and turns its problems into warnings.
func (e *Extractor) recordResult(ordinal int, path string, result extract.Result) {
	log := e.options.logger
	num := result.Ref.Number

	switch {
	case result.Err != nil:
		log.Error("stream not written", "object", num, "ordinal", ordinal, "path", path, "error", result.Err)
		e.warnings = append(e.warnings, Warning{
			Object:  num,
			Message: fmt.Sprintf("stream not written to %s: %v", path, result.Err),
		})
	case result.Outcome == extract.OmittedByFailure:
		log.Warn("decoding failed, raw stream written", "object", num, "ordinal", ordinal, "error", result.DecodeErr)
		e.warnings = append(e.warnings, Warning{
			Object:  num,
			Message: fmt.Sprintf("decoding failed, raw stream written: %v", result.DecodeErr),
		})
	default:
		log.Debug("stream written",
			"object", num,
			"ordinal", ordinal,
			"outcome", result.Outcome.String(),
			"filters", strings.Join(result.Filters, " "),
			"bytes", result.Written,
		)
	}
}

// collectReaderWarnings copies reader warnings not seen before into the
// run's warnings and logs them.
func (e *Extractor) collectReaderWarnings() {
	if e.reader == nil {
		return
	}
	pending := e.reader.Warnings()[e.readerWarnings:]
	e.readerWarnings += len(pending)
	for _, w := range pending {
		e.options.logger.Warn("damaged file worked around", "object", w.Object, "detail", w.Message)
		e.warnings = append(e.warnings, Warning{Object: w.Object, Message: w.Message})
	}
}
