// Command pdfstreams writes every stream of a PDF file to its own file.
//
// Usage:
//
//	pdfstreams [flags] <pdf>
//
// Streams are written to "<pdf>.pdfstreams_out/pdf_NNNN_0.dat", where NNNN
// is the position of the owning object in the file. Streams compressed with
// a filter on the denylist (DCTDecode, JPXDecode and CCITTFaxDecode by
// default) are copied as stored; all others are decoded.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tsawler/pdfstreams"
	"github.com/tsawler/pdfstreams/config"
)

// configEnv names the config file when -config is not given.
const configEnv = "PDFSTREAMS_CONFIG"

const (
	exitOK         = 0
	exitFailure    = 1
	exitInvocation = 2
)

type options struct {
	pdfPath    string
	configPath string
	outDir     string
	quiet      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code. Failures are
// reported on stdout next to the diagnostics, even with -q; stderr carries
// usage text and logs.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stdout, "Incorrect parameter(s)")
		return exitInvocation
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdout, "pdfstreams: %v\n", err)
		return exitFailure
	}
	if opts.outDir != "" {
		cfg.Output.Dir = opts.outDir
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	var diag io.Writer = stdout
	if opts.quiet {
		diag = io.Discard
	}

	start := time.Now()
	_, _, err = pdfstreams.Open(opts.pdfPath).
		WithConfig(cfg).
		Diagnostics(diag).
		Logger(logger).
		Run()
	if err != nil {
		fmt.Fprintf(stdout, "pdfstreams: %v\n", err)
		return exitFailure
	}

	fmt.Fprintf(diag, "\nExecution time: %.3f sec.\n", time.Since(start).Seconds())
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pdfstreams", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdfstreams [flags] <pdf>\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", os.Getenv(configEnv), "YAML config file (default $"+configEnv+")")
	fs.StringVar(&opts.outDir, "out", "", "Output directory (default <pdf>.<suffix>_out)")
	fs.BoolVar(&opts.quiet, "q", false, "Do not print per-object diagnostics")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if fs.NArg() != 1 {
		return options{}, fmt.Errorf("%w: expected one input file, got %d", pdfstreams.ErrInvocation, fs.NArg())
	}
	opts.pdfPath = fs.Arg(0)
	return opts, nil
}

// loadConfig returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
