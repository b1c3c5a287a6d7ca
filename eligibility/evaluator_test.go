package eligibility

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/tsawler/pdfstreams/core"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		dict         core.Dict
		wantRender   string
		wantEligible bool
	}{
		{
			name:         "flate",
			dict:         core.Dict{"Filter": core.Name("FlateDecode"), "Length": core.Int(42)},
			wantRender:   "<< /Filter /FlateDecode /Length 42 >>",
			wantEligible: true,
		},
		{
			name:         "dct",
			dict:         core.Dict{"Filter": core.Name("DCTDecode")},
			wantRender:   "<< /Filter /DCTDecode >>",
			wantEligible: false,
		},
		{
			name: "denylisted name inside array dictionary",
			dict: core.Dict{
				"Filter": core.Name("FlateDecode"),
				"ColorSpace": core.Array{
					core.Name("Indexed"),
					core.Name("DeviceRGB"),
					core.Int(255),
					core.Dict{"Filter": core.Name("DCTDecode")},
				},
			},
			wantRender:   "<< /ColorSpace Indexed  DeviceRGB    << /Filter /DCTDecode >> /Filter /FlateDecode >>",
			wantEligible: false,
		},
		{
			name: "filter array",
			dict: core.Dict{"Filter": core.Array{core.Name("ASCII85Decode"), core.Name("JPXDecode")}},
			// Names inside arrays are written without a slash.
			wantRender:   "<< /Filter ASCII85Decode  JPXDecode >>",
			wantEligible: false,
		},
		{
			name:         "direct dictionary value is not inspected",
			dict:         core.Dict{"DecodeParms": core.Dict{"Filter": core.Name("CCITTFaxDecode")}},
			wantRender:   "<< /DecodeParms>>",
			wantEligible: true,
		},
		{
			name:         "any key counts",
			dict:         core.Dict{"Subtype": core.Name("JPXDecode")},
			wantRender:   "<< /Subtype /JPXDecode >>",
			wantEligible: false,
		},
		{
			name: "other kinds render nothing",
			dict: core.Dict{
				"Length":   core.IndirectRef{Number: 7},
				"Title":    core.String("x"),
				"Inverted": core.Bool(true),
				"Null":     core.Null{},
			},
			wantRender:   "<< /Inverted/Length/Null/Title>>",
			wantEligible: true,
		},
		{
			name:         "real",
			dict:         core.Dict{"Scale": core.Real(0.5)},
			wantRender:   "<< /Scale 0.5 >>",
			wantEligible: true,
		},
		{
			name:         "nested array element",
			dict:         core.Dict{"K": core.Array{core.Array{core.Name("DCTDecode")}, core.Int(1)}},
			wantRender:   "<< /K    >>",
			wantEligible: true,
		},
		{
			name:         "empty",
			dict:         core.Dict{},
			wantRender:   "<< >>",
			wantEligible: true,
		},
	}

	e := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			render, eligible := e.Render(tt.dict, true)
			if render != tt.wantRender {
				t.Errorf("rendering = %q, want %q", render, tt.wantRender)
			}
			if eligible != tt.wantEligible {
				t.Errorf("eligible = %v, want %v", eligible, tt.wantEligible)
			}
		})
	}
}

type traceStep struct {
	name     string
	eligible bool
}

func tracing(e *Evaluator) *[]traceStep {
	var steps []traceStep
	e.Trace = func(name string, eligible bool) {
		steps = append(steps, traceStep{name, eligible})
	}
	return &steps
}

func TestPropagationPoint(t *testing.T) {
	dict := core.Dict{
		"ColorSpace": core.Array{
			core.Name("Indexed"),
			core.Name("DeviceRGB"),
			core.Int(255),
			core.Dict{"Filter": core.Name("DCTDecode"), "Next": core.Name("FlateDecode")},
		},
		"Filter": core.Name("FlateDecode"),
	}

	e := Default()
	steps := tracing(e)
	if _, eligible := e.Render(dict, true); eligible {
		t.Fatal("eligible = true, want false")
	}

	want := []traceStep{
		{"Indexed", true},
		{"DeviceRGB", true},
		{"DCTDecode", false},
		{"FlateDecode", false},
		{"FlateDecode", false},
	}
	if fmt.Sprint(*steps) != fmt.Sprint(want) {
		t.Errorf("trace = %v, want %v", *steps, want)
	}
}

func TestIncomingIneligible(t *testing.T) {
	e := Default()
	steps := tracing(e)

	render, eligible := e.Render(core.Dict{"Filter": core.Name("FlateDecode")}, false)
	if eligible {
		t.Error("eligibility must not be restored")
	}
	if render != "<< /Filter /FlateDecode >>" {
		t.Errorf("rendering = %q", render)
	}
	if len(*steps) != 1 || (*steps)[0].eligible {
		t.Errorf("trace = %v", *steps)
	}
}

func TestPerObjectReset(t *testing.T) {
	e := Default()
	objects := []struct {
		dict core.Dict
		want bool
	}{
		{core.Dict{"Filter": core.Name("DCTDecode")}, false},
		{core.Dict{"Filter": core.Name("FlateDecode")}, true},
		{core.Dict{"Filter": core.Name("CCITTFaxDecode")}, false},
		{core.Dict{}, true},
	}
	for i, obj := range objects {
		if _, got := e.Render(obj.dict, true); got != obj.want {
			t.Errorf("object %d: eligible = %v, want %v", i+1, got, obj.want)
		}
	}
}

func TestCustomDenylist(t *testing.T) {
	e := New("FlateDecode")
	if _, eligible := e.Render(core.Dict{"Filter": core.Name("DCTDecode")}, true); !eligible {
		t.Error("DCTDecode should be eligible with a custom denylist")
	}
	if _, eligible := e.Render(core.Dict{"Filter": core.Name("FlateDecode")}, true); eligible {
		t.Error("FlateDecode should be denied")
	}

	if _, eligible := New().Render(core.Dict{"Filter": core.Name("JPXDecode")}, true); !eligible {
		t.Error("empty denylist should allow everything")
	}

	if got := fmt.Sprint(Default().Denylist()); got != "[CCITTFaxDecode DCTDecode JPXDecode]" {
		t.Errorf("Denylist() = %s", got)
	}
}

type failingWriter struct {
	writes int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, errors.New("disk full")
}

func TestEvaluateWriteError(t *testing.T) {
	w := &failingWriter{}
	eligible, err := Default().Evaluate(w, core.Dict{"A": core.Int(1), "Filter": core.Name("DCTDecode")}, true)
	if err == nil {
		t.Fatal("expected write error")
	}
	if eligible {
		t.Error("walk should finish despite the write error")
	}
	if w.writes != 1 {
		t.Errorf("writes after failure = %d, want 1", w.writes)
	}
}

var sampleNames = []string{
	"FlateDecode", "DCTDecode", "Indexed", "DeviceRGB",
	"JPXDecode", "ASCII85Decode", "CCITTFaxDecode", "XObject",
}

func randomDict(rng *rand.Rand, depth int) core.Dict {
	d := core.Dict{}
	for i, n := 0, rng.Intn(5); i < n; i++ {
		d[fmt.Sprintf("K%d", rng.Intn(8))] = randomValue(rng, depth)
	}
	return d
}

func randomValue(rng *rand.Rand, depth int) core.Object {
	switch k := rng.Intn(7); {
	case k == 0 || k == 1:
		return core.Name(sampleNames[rng.Intn(len(sampleNames))])
	case k == 2:
		return core.Int(rng.Intn(100))
	case k == 3 && depth < 4:
		arr := make(core.Array, rng.Intn(5))
		for i := range arr {
			arr[i] = randomValue(rng, depth+1)
		}
		return arr
	case k == 4 && depth < 4:
		return randomDict(rng, depth+1)
	case k == 5:
		return core.String("s")
	default:
		return core.Null{}
	}
}

// reachableNames lists the names the walk visits, in order.
func reachableNames(d core.Dict) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var names []string
	for _, k := range keys {
		switch v := d[k].(type) {
		case core.Name:
			names = append(names, string(v))
		case core.Array:
			for _, item := range v {
				switch elem := item.(type) {
				case core.Name:
					names = append(names, string(elem))
				case core.Dict:
					names = append(names, reachableNames(elem)...)
				}
			}
		}
	}
	return names
}

func TestMonotonicEligibility(t *testing.T) {
	rng := rand.New(rand.NewSource(20240611))
	denied := map[string]bool{"DCTDecode": true, "JPXDecode": true, "CCITTFaxDecode": true}

	for i := 0; i < 500; i++ {
		dict := randomDict(rng, 0)
		e := Default()
		steps := tracing(e)
		_, eligible := e.Render(dict, true)

		names := reachableNames(dict)
		if len(*steps) != len(names) {
			t.Fatalf("tree %d: visited %d names, want %d", i, len(*steps), len(names))
		}

		expect := true
		for k, step := range *steps {
			if step.name != names[k] {
				t.Fatalf("tree %d: name %d = %s, want %s", i, k, step.name, names[k])
			}
			if denied[step.name] {
				expect = false
			}
			if step.eligible != expect {
				t.Fatalf("tree %d: eligibility after %s (position %d) = %v, want %v",
					i, step.name, k, step.eligible, expect)
			}
		}
		if eligible != expect {
			t.Fatalf("tree %d: result = %v, want %v", i, eligible, expect)
		}
	}
}

func BenchmarkEvaluate(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	dict := randomDict(rng, 0)
	e := Default()
	for i := 0; i < b.N; i++ {
		e.Render(dict, true)
	}
}
