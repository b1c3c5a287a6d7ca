package pdfstreams

import (
	"io"
	"log/slog"

	"github.com/tsawler/pdfstreams/config"
)

// RunOptions holds configuration for a run.
type RunOptions struct {
	// Output location and naming
	outputDir string // explicit directory; empty derives it from the input
	suffix    string
	prefix    string
	extension string

	// Decoding policy
	denylist []string

	// Parsing
	lenient bool

	// Reporting
	diagnostics io.Writer
	logger      *slog.Logger
}

// defaultOptions returns the default run options, taken from config.Default.
func defaultOptions() RunOptions {
	opts := RunOptions{
		diagnostics: io.Discard,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	opts.apply(config.Default())
	return opts
}

// apply copies the settings of cfg into o.
func (o *RunOptions) apply(cfg *config.Config) {
	o.outputDir = cfg.Output.Dir
	o.suffix = cfg.Output.Suffix
	o.prefix = cfg.Output.Prefix
	o.extension = cfg.Output.Extension
	o.denylist = append([]string(nil), cfg.Decode.Denylist...)
	o.lenient = cfg.Parse.Lenient
}

// clone creates a deep copy of RunOptions.
func (o RunOptions) clone() RunOptions {
	newOpts := o
	if o.denylist != nil {
		newOpts.denylist = make([]string, len(o.denylist))
		copy(newOpts.denylist, o.denylist)
	}
	return newOpts
}
