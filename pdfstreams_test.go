package pdfstreams

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/tsawler/pdfstreams/config"
	"github.com/tsawler/pdfstreams/extract"
	"github.com/tsawler/pdfstreams/internal/pdftest"
	"github.com/tsawler/pdfstreams/reader"
)

var (
	jpegBytes    = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	corruptFlate = []byte{0x78, 0x9C, 0xFF, 0xFF, 0xFF, 0x00, 0x01}
)

type sample struct {
	path  string
	lines []string // expected per-object diagnostic lines
}

// writeSample stores a file with six objects: a catalog, a Flate stream, a
// JPEG stream, a plain dictionary, a corrupt Flate stream and a Flate stream
// whose colour space mentions DCTDecode.
func writeSample(t *testing.T) sample {
	t.Helper()
	flate := pdftest.Deflate([]byte("BT (hello world) Tj ET"))
	image := pdftest.Deflate([]byte{1, 2, 3, 4})

	b := pdftest.New("1.6")
	b.Object(1, "<< /Type /Catalog >>")
	b.Stream(2, "/Filter /FlateDecode", flate)
	b.Stream(3, "/Filter /DCTDecode", jpegBytes)
	b.Object(4, "<< /Producer (test) >>")
	b.Stream(5, "/Filter /FlateDecode", corruptFlate)
	b.Stream(6, "/Filter /FlateDecode /ColorSpace [/Indexed /DeviceRGB 255 << /Filter /DCTDecode >>]", image)
	data := b.Finish(b.XRefTable(7, "/Root 1 0 R /Info 4 0 R"))

	return sample{
		path: pdftest.WriteFile(t, "sample.pdf", data),
		lines: []string{
			fmt.Sprintf("    Object 2 has stream << /Filter /FlateDecode /Length %d >>", len(flate)),
			fmt.Sprintf("    Object 3 has stream << /Filter /DCTDecode /Length %d >> (filter is omitted)", len(jpegBytes)),
			fmt.Sprintf("    Object 5 has stream << /Filter /FlateDecode /Length %d >> (filter not supported)", len(corruptFlate)),
			fmt.Sprintf("    Object 6 has stream << /ColorSpace Indexed  DeviceRGB    << /Filter /DCTDecode >> /Filter /FlateDecode /Length %d >> (filter is omitted)", len(image)),
		},
	}
}

// readOutput returns the files of dir by name.
func readOutput(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	files := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			t.Fatal(err)
		}
		files[entry.Name()] = data
	}
	return files
}

func fileNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestOpen(t *testing.T) {
	_, _, err := Open("nonexistent.pdf").Run()
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestRun(t *testing.T) {
	s := writeSample(t)
	var diag bytes.Buffer

	report, warnings, err := Open(s.path).Diagnostics(&diag).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantDiag := "Parsing file '" + s.path + "':\n" + strings.Join(s.lines, "\n") + "\n"
	if diag.String() != wantDiag {
		t.Errorf("diagnostics =\n%s\nwant\n%s", diag.String(), wantDiag)
	}

	if report.OutputDir != s.path+".pdfstreams_out" {
		t.Errorf("OutputDir = %q", report.OutputDir)
	}
	if report.Objects != 6 {
		t.Errorf("Objects = %d, want 6", report.Objects)
	}
	if report.Version.String() != "1.6" {
		t.Errorf("Version = %s", report.Version)
	}
	if report.Info.Producer != "test" {
		t.Errorf("Info.Producer = %q", report.Info.Producer)
	}

	files := readOutput(t, report.OutputDir)
	if got := fmt.Sprint(fileNames(files)); got != "[pdf_0002_0.dat pdf_0003_0.dat pdf_0005_0.dat pdf_0006_0.dat]" {
		t.Fatalf("files = %s", got)
	}
	if string(files["pdf_0002_0.dat"]) != "BT (hello world) Tj ET" {
		t.Errorf("object 2 output = %q", files["pdf_0002_0.dat"])
	}
	if !bytes.Equal(files["pdf_0003_0.dat"], jpegBytes) {
		t.Errorf("object 3 output = %v, want raw JPEG bytes", files["pdf_0003_0.dat"])
	}
	if !bytes.Equal(files["pdf_0005_0.dat"], corruptFlate) {
		t.Errorf("object 5 output = %v, want raw bytes", files["pdf_0005_0.dat"])
	}

	counts := []struct {
		outcome extract.Outcome
		want    int
	}{
		{extract.Decoded, 1},
		{extract.OmittedByPolicy, 2},
		{extract.OmittedByFailure, 1},
	}
	for _, c := range counts {
		if got := report.Count(c.outcome); got != c.want {
			t.Errorf("Count(%v) = %d, want %d", c.outcome, got, c.want)
		}
	}
	if report.Failed() != 0 {
		t.Errorf("Failed() = %d", report.Failed())
	}

	if len(warnings) != 1 || warnings[0].Object != 5 {
		t.Errorf("warnings = %v, want one for object 5", warnings)
	}

	third := report.Streams[2]
	if third.Ordinal != 5 || !third.Eligible || third.DecodeErr == nil {
		t.Errorf("stream result = %+v", third)
	}
}

func TestRunRemovesStaleFiles(t *testing.T) {
	s := writeSample(t)
	dir := s.path + ".pdfstreams_out"
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "pdf_0099_0.dat")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Open(s.path).Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file survived the rerun")
	}
	if _, err := os.Stat(filepath.Join(dir, "nested")); !os.IsNotExist(err) {
		t.Error("stale directory survived the rerun")
	}
}

func TestRunDeterministic(t *testing.T) {
	s := writeSample(t)

	first, _, err := Open(s.path).Run()
	if err != nil {
		t.Fatal(err)
	}
	firstFiles := readOutput(t, first.OutputDir)

	second, _, err := Open(s.path).Run()
	if err != nil {
		t.Fatal(err)
	}
	secondFiles := readOutput(t, second.OutputDir)

	if fmt.Sprint(fileNames(firstFiles)) != fmt.Sprint(fileNames(secondFiles)) {
		t.Fatalf("file names differ: %v vs %v", fileNames(firstFiles), fileNames(secondFiles))
	}
	for name, data := range firstFiles {
		if !bytes.Equal(data, secondFiles[name]) {
			t.Errorf("%s differs between runs", name)
		}
	}
}

func TestRunNotPDF(t *testing.T) {
	path := pdftest.WriteFile(t, "notes.pdf", []byte("just some text\n"))

	var diag bytes.Buffer
	_, _, err := Open(path).Diagnostics(&diag).Run()
	if !errors.Is(err, reader.ErrNotPDF) {
		t.Fatalf("Run() error = %v, want ErrNotPDF", err)
	}
	if !strings.HasPrefix(diag.String(), "Parsing file '") {
		t.Errorf("diagnostics = %q", diag.String())
	}
	if _, err := os.Stat(path + ".pdfstreams_out"); !os.IsNotExist(err) {
		t.Error("output directory should not be created for an unparseable file")
	}
}

func TestRunOutputDirFailure(t *testing.T) {
	s := writeSample(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Open(s.path).OutputDir(filepath.Join(blocker, "out")).Run(); err == nil {
		t.Error("expected error when the output directory cannot be created")
	}
}

func TestRunNaming(t *testing.T) {
	s := writeSample(t)
	dir := filepath.Join(t.TempDir(), "streams")

	report, _, err := Open(s.path).OutputDir(dir).Naming("obj", "bin").Run()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "obj_0002_0.bin")); err != nil {
		t.Errorf("expected obj_0002_0.bin: %v", err)
	}
	if report.Streams[0].Path != filepath.Join(dir, "obj_0002_0.bin") {
		t.Errorf("Path = %q", report.Streams[0].Path)
	}

	report, _, err = Open(s.path).Suffix("x").Run()
	if err != nil {
		t.Fatal(err)
	}
	if report.OutputDir != s.path+".x_out" {
		t.Errorf("OutputDir = %q", report.OutputDir)
	}
}

func TestRunEmptyDenylist(t *testing.T) {
	s := writeSample(t)

	report, _, err := Open(s.path).Denylist().Run()
	if err != nil {
		t.Fatal(err)
	}
	jpeg := report.Streams[1]
	if !jpeg.Eligible || jpeg.Outcome != extract.Decoded {
		t.Errorf("JPEG stream = %+v, want eligible and decoded", jpeg)
	}
	files := readOutput(t, report.OutputDir)
	if !bytes.Equal(files["pdf_0003_0.dat"], jpegBytes) {
		t.Error("DCTDecode passes image data through unchanged")
	}
}

func TestWithConfig(t *testing.T) {
	s := writeSample(t)

	cfg := config.Default()
	cfg.Output.Prefix = "stream"
	cfg.Output.Dir = filepath.Join(t.TempDir(), "cfg")
	report, _, err := Open(s.path).WithConfig(cfg).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.OutputDir != cfg.Output.Dir {
		t.Errorf("OutputDir = %q", report.OutputDir)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, "stream_0002_0.dat")); err != nil {
		t.Error(err)
	}

	bad := config.Default()
	bad.Output.Extension = ""
	if _, _, err := Open(s.path).WithConfig(bad).Run(); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestFromReader(t *testing.T) {
	s := writeSample(t)
	r, err := reader.Open(s.path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	report, _, err := FromReader(r, s.path).OutputDir(filepath.Join(t.TempDir(), "out")).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Streams) != 4 {
		t.Errorf("got %d streams, want 4", len(report.Streams))
	}
	if _, err := r.GetObject(1); err != nil {
		t.Errorf("reader should stay usable after Run: %v", err)
	}
}

func TestRunDamagedFile(t *testing.T) {
	s := writeSample(t)
	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	// Cut the file off inside the xref table.
	cut := bytes.LastIndex(data, []byte("\nxref\n"))
	path := pdftest.WriteFile(t, "damaged.pdf", data[:cut+10])

	report, warnings, err := Open(path).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.Repaired {
		t.Error("Repaired = false, want true")
	}
	if len(report.Streams) != 4 {
		t.Errorf("got %d streams, want 4", len(report.Streams))
	}
	if len(warnings) < 2 {
		t.Errorf("expected repair and decode warnings, got %v", warnings)
	}

	if _, _, err := Open(path).Lenient(false).Run(); err == nil {
		t.Error("strict run should fail on a damaged file")
	}
}

func TestRunTwice(t *testing.T) {
	s := writeSample(t)
	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	cut := bytes.LastIndex(data, []byte("\nxref\n"))
	path := pdftest.WriteFile(t, "damaged.pdf", data[:cut+10])

	x := Open(path)
	_, first, err := x.Run()
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	_, second, err := x.Run()
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if FormatWarnings(first) != FormatWarnings(second) {
		t.Errorf("second run warnings differ:\n%s\nfirst run:\n%s", FormatWarnings(second), FormatWarnings(first))
	}
}

// dirOnMatch passes writes to buf and creates a directory at path once the
// text written so far contains match.
type dirOnMatch struct {
	buf   bytes.Buffer
	match string
	path  string
	err   error
	done  bool
}

func (w *dirOnMatch) Write(p []byte) (int, error) {
	n, _ := w.buf.Write(p)
	if !w.done && strings.Contains(w.buf.String(), w.match) {
		w.done = true
		w.err = os.Mkdir(w.path, 0o755)
	}
	return n, nil
}

func TestRunContinuesAfterOutputFailure(t *testing.T) {
	s := writeSample(t)
	dir := s.path + ".pdfstreams_out"
	diag := &dirOnMatch{
		match: "Object 3 has stream",
		path:  filepath.Join(dir, "pdf_0003_0.dat"),
	}

	report, warnings, err := Open(s.path).Diagnostics(diag).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diag.err != nil {
		t.Fatalf("failed to block output path: %v", diag.err)
	}

	if !strings.Contains(diag.buf.String(), s.lines[1]+" (output failed)\n") {
		t.Errorf("diagnostics missing failed output annotation:\n%s", diag.buf.String())
	}
	if want := s.lines[2] + "\n" + s.lines[3] + "\n"; !strings.HasSuffix(diag.buf.String(), want) {
		t.Errorf("later objects not reported:\n%s", diag.buf.String())
	}

	if report.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", report.Failed())
	}
	blocked := report.Streams[1]
	if blocked.Ordinal != 3 || blocked.Err == nil || blocked.Outcome != extract.OmittedByPolicy {
		t.Errorf("object 3 result = %+v", blocked)
	}

	found := false
	for _, w := range warnings {
		if w.Object == 3 && strings.Contains(w.Message, "stream not written") {
			found = true
		}
	}
	if !found {
		t.Errorf("no warning for object 3 in %v", warnings)
	}

	for _, name := range []string{"pdf_0002_0.dat", "pdf_0005_0.dat", "pdf_0006_0.dat"} {
		if info, err := os.Stat(filepath.Join(dir, name)); err != nil || info.IsDir() {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestRunLogging(t *testing.T) {
	s := writeSample(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if _, _, err := Open(s.path).Logger(logger).Run(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"document loaded", "decoding failed", "stream written", "extraction finished", "decoded=1", `denylist="CCITTFaxDecode DCTDecode JPXDecode"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestChainImmutability(t *testing.T) {
	base := Open("doc.pdf")
	named := base.Naming("obj", "bin")
	denied := base.Denylist("FlateDecode")

	if base.options.prefix != "pdf" || base.options.extension != "dat" {
		t.Error("Naming modified the original extractor")
	}
	if named.options.prefix != "obj" {
		t.Error("Naming did not apply")
	}
	if fmt.Sprint(base.options.denylist) != "[DCTDecode JPXDecode CCITTFaxDecode]" {
		t.Errorf("Denylist modified the original: %v", base.options.denylist)
	}
	if fmt.Sprint(denied.options.denylist) != "[FlateDecode]" {
		t.Errorf("denylist = %v", denied.options.denylist)
	}
}

func TestCloseIdempotent(t *testing.T) {
	ext := Open(writeSample(t).path)
	if err := ext.ensureReader(); err != nil {
		t.Fatal(err)
	}
	if err := ext.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := ext.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestFormatWarnings(t *testing.T) {
	got := FormatWarnings([]Warning{
		{Message: "cross-reference data rebuilt"},
		{Object: 5, Message: "decoding failed"},
	})
	want := "cross-reference data rebuilt\nobject 5: decoding failed"
	if got != want {
		t.Errorf("FormatWarnings() = %q, want %q", got, want)
	}
	if FormatWarnings(nil) != "" {
		t.Error("FormatWarnings(nil) should be empty")
	}
}

func TestMust(t *testing.T) {
	if got := Must(42, nil); got != 42 {
		t.Errorf("Must() = %d", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRun should panic on error")
		}
	}()
	MustRun(Open("nonexistent.pdf").Run())
}
