package eligibility

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/tsawler/pdfstreams/core"
)

// DefaultDenylist names the filters whose output is an image rather than
// bytes worth decoding.
var DefaultDenylist = []string{"DCTDecode", "JPXDecode", "CCITTFaxDecode"}

// Evaluator walks stream dictionaries and reports decode eligibility. It
// holds no per-object state, so one Evaluator can serve a whole document.
type Evaluator struct {
	denied map[string]bool

	// Trace, when set, is called for every Name the walk reaches with the
	// eligibility in effect after that name.
	Trace func(name string, eligible bool)
}

// New creates an evaluator that refuses to decode the given filter names.
// With no names every filter is eligible.
func New(denylist ...string) *Evaluator {
	e := &Evaluator{denied: make(map[string]bool, len(denylist))}
	for _, name := range denylist {
		e.denied[name] = true
	}
	return e
}

// Default creates an evaluator using DefaultDenylist.
func Default() *Evaluator {
	return New(DefaultDenylist...)
}

// Denylist returns the denied names in sorted order.
func (e *Evaluator) Denylist() []string {
	names := make([]string, 0, len(e.denied))
	for name := range e.denied {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Evaluate walks dict, writing its rendering to w as it goes, and returns
// the eligibility that results from starting with eligible. The result is
// never true when eligible is false. Keys are visited in sorted order.
// The error is the first write error, if any; the walk completes regardless.
func (e *Evaluator) Evaluate(w io.Writer, dict core.Dict, eligible bool) (bool, error) {
	ew := &errWriter{w: w}
	eligible = e.walk(ew, dict, eligible)
	return eligible, ew.err
}

// Render is Evaluate into a string.
func (e *Evaluator) Render(dict core.Dict, eligible bool) (string, bool) {
	var sb strings.Builder
	eligible, _ = e.Evaluate(&sb, dict, eligible)
	return sb.String(), eligible
}

func (e *Evaluator) walk(w *errWriter, dict core.Dict, eligible bool) bool {
	w.WriteString("<< ")
	for _, key := range dict.Keys() {
		w.WriteString("/" + key)

		switch v := dict[key].(type) {
		case core.Name:
			eligible = e.check(string(v), eligible)
			w.WriteString(" /" + string(v) + " ")
		case core.Int:
			w.WriteString(" " + strconv.FormatInt(int64(v), 10) + " ")
		case core.Real:
			w.WriteString(" " + v.String() + " ")
		case core.Array:
			for _, item := range v {
				w.WriteString(" ")
				switch elem := item.(type) {
				case core.Dict:
					nested := e.walk(w, elem, eligible)
					if eligible {
						eligible = nested
					}
				case core.Name:
					eligible = e.check(string(elem), eligible)
					w.WriteString(string(elem))
				}
				w.WriteString(" ")
			}
		}
	}
	w.WriteString(">>")
	return eligible
}

// check applies the denylist to name. Once eligibility is lost the name is
// not consulted.
func (e *Evaluator) check(name string, eligible bool) bool {
	if eligible {
		eligible = !e.denied[name]
	}
	if e.Trace != nil {
		e.Trace(name, eligible)
	}
	return eligible
}

// errWriter keeps the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) WriteString(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}
