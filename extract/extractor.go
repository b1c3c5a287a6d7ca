package extract

import (
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/pdfstreams/core"
	"github.com/tsawler/pdfstreams/resolver"
)

// ErrNoStream is returned for objects that do not own a stream.
var ErrNoStream = errors.New("object has no stream")

// Outcome says which path an extraction took.
type Outcome int

const (
	// Decoded means the filter chain was applied.
	Decoded Outcome = iota
	// OmittedByPolicy means the stream was ineligible and copied raw.
	OmittedByPolicy
	// OmittedByFailure means decoding failed and the raw bytes were copied.
	OmittedByFailure
)

func (o Outcome) String() string {
	switch o {
	case Decoded:
		return "decoded"
	case OmittedByPolicy:
		return "omitted by policy"
	case OmittedByFailure:
		return "omitted by failure"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Annotation is the suffix appended to an object's diagnostic line.
func (o Outcome) Annotation() string {
	switch o {
	case OmittedByPolicy:
		return " (filter is omitted)"
	case OmittedByFailure:
		return " (filter not supported)"
	default:
		return ""
	}
}

// Result describes one extraction.
type Result struct {
	Ref     core.IndirectRef
	Outcome Outcome
	Filters []string // filter names in chain order, when the chain could be built
	Written int64

	// DecodeErr is why decoding was abandoned for OmittedByFailure.
	DecodeErr error
	// Err is set when the bytes could not be written or the sink not closed.
	Err error
}

// OK reports whether the sink received every byte.
func (r Result) OK() bool {
	return r.Err == nil
}

// Extractor writes object streams to sinks.
type Extractor struct {
	res *resolver.ObjectResolver
}

// New creates an extractor. When objects is non-nil, indirect references in
// /Filter and /DecodeParms are resolved through it.
func New(objects resolver.ObjectReader) *Extractor {
	x := &Extractor{}
	if objects != nil {
		x.res = resolver.NewResolver(objects)
	}
	return x
}

// Extract writes the stream of obj to sink, decoded when eligible is true
// and decoding succeeds, raw otherwise. The stream is decoded completely
// before anything is written, so a failed decode leaves no partial output
// ahead of the raw bytes. sink is closed before Extract returns.
func (x *Extractor) Extract(obj *core.IndirectObject, eligible bool, sink io.WriteCloser) Result {
	result, data := x.prepare(obj, eligible)
	if result.Err != nil {
		if err := sink.Close(); err != nil {
			result.Err = fmt.Errorf("%w (close: %v)", result.Err, err)
		}
		return result
	}
	return x.write(obj, result, data, sink)
}

// ExtractFile is Extract into a new file at path. When the file cannot be
// created the Result still carries the Outcome the stream would have had.
func (x *Extractor) ExtractFile(obj *core.IndirectObject, eligible bool, path string) Result {
	result, data := x.prepare(obj, eligible)
	if result.Err != nil {
		return result
	}
	sink, err := CreateFile(path)
	if err != nil {
		result.Err = fmt.Errorf("failed to create output for object %d: %w", obj.Ref.Number, err)
		return result
	}
	return x.write(obj, result, data, sink)
}

// prepare picks the extraction path for obj and returns the bytes to write.
func (x *Extractor) prepare(obj *core.IndirectObject, eligible bool) (Result, []byte) {
	result := Result{Ref: obj.Ref}

	stream := obj.Stream()
	if stream == nil {
		result.Err = ErrNoStream
		return result, nil
	}

	data := stream.Data
	result.Outcome = OmittedByPolicy

	names, decoded, err := x.decode(stream, eligible)
	result.Filters = names
	if eligible {
		if err != nil {
			result.Outcome = OmittedByFailure
			result.DecodeErr = err
		} else {
			result.Outcome = Decoded
			data = decoded
		}
	}
	return result, data
}

// write copies data to sink and closes it.
func (x *Extractor) write(obj *core.IndirectObject, result Result, data []byte, sink io.WriteCloser) Result {
	n, werr := sink.Write(data)
	result.Written = int64(n)
	if werr != nil {
		result.Err = fmt.Errorf("failed to write stream of object %d: %w", obj.Ref.Number, werr)
	}
	if cerr := sink.Close(); cerr != nil && result.Err == nil {
		result.Err = fmt.Errorf("failed to close output of object %d: %w", obj.Ref.Number, cerr)
	}
	return result
}

// decode builds the filter chain and, when run is true, applies it.
func (x *Extractor) decode(stream *core.Stream, run bool) ([]string, []byte, error) {
	dict := stream.Dict
	if x.res != nil {
		resolved, err := x.res.ResolveEntries(dict, "Filter", "DecodeParms", "DP")
		if err != nil {
			return nil, nil, err
		}
		dict = resolved
	}

	chain, err := core.FilterChain(dict)
	if err != nil {
		return nil, nil, err
	}
	if !run {
		return chain.Names(), nil, nil
	}

	data, err := chain.Decode(stream.Data)
	if err != nil {
		return chain.Names(), nil, err
	}
	return chain.Names(), data, nil
}
