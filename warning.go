package pdfstreams

import (
	"fmt"
	"strings"
)

// Warning is a non-fatal problem met during a run: a damaged part of the
// file that was worked around, a stream that could not be decoded, or an
// output file that could not be written. Object is the object number, or
// zero when the warning concerns the whole file.
type Warning struct {
	Object  int
	Message string
}

func (w Warning) String() string {
	if w.Object == 0 {
		return w.Message
	}
	return fmt.Sprintf("object %d: %s", w.Object, w.Message)
}

// FormatWarnings renders warnings one per line.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
