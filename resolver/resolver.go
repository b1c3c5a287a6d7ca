package resolver

import (
	"fmt"

	"github.com/tsawler/pdfstreams/core"
)

// ObjectReader loads the object an indirect reference points to.
// *reader.Reader satisfies it.
type ObjectReader interface {
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// ObjectResolver follows indirect references, optionally through the whole
// tree below an object, detecting cycles along each path.
type ObjectResolver struct {
	reader   ObjectReader
	maxDepth int
}

// Option configures the resolver
type Option func(*ObjectResolver)

// WithMaxDepth sets the maximum recursion depth (default: 100)
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		r.maxDepth = depth
	}
}

// NewResolver creates a new object resolver
func NewResolver(reader ObjectReader, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{
		reader:   reader,
		maxDepth: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve follows obj while it is an indirect reference, so a reference to
// a reference yields the final object. Containers are returned as they are.
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	return r.resolve(obj, false, 0, make(map[int]bool))
}

// resolveDeep returns a copy of obj with every reference in the tree below
// it replaced by its target. Stream data is shared with the original.
func (r *ObjectResolver) resolveDeep(obj core.Object) (core.Object, error) {
	return r.resolve(obj, true, 0, make(map[int]bool))
}

// ResolveEntries returns a shallow copy of dict in which the values of keys
// are fully resolved, down to every reference below them. Other entries are left untouched, references included.
// Missing keys are skipped.
func (r *ObjectResolver) ResolveEntries(dict core.Dict, keys ...string) (core.Dict, error) {
	out := dict.Clone()
	for _, key := range keys {
		val, ok := dict[key]
		if !ok {
			continue
		}
		resolved, err := r.resolveDeep(val)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve /%s: %w", key, err)
		}
		out[key] = resolved
	}
	return out, nil
}

func (r *ObjectResolver) resolve(obj core.Object, deep bool, depth int, path map[int]bool) (core.Object, error) {
	if depth >= r.maxDepth {
		return nil, fmt.Errorf("maximum recursion depth (%d) exceeded", r.maxDepth)
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		if path[v.Number] {
			return nil, fmt.Errorf("circular reference detected for object %d", v.Number)
		}
		path[v.Number] = true
		defer delete(path, v.Number)

		target, err := r.reader.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference %s: %w", v, err)
		}
		return r.resolve(target, deep, depth+1, path)

	case core.Dict:
		if !deep {
			return v, nil
		}
		out := make(core.Dict, len(v))
		for key, val := range v {
			resolved, err := r.resolve(val, deep, depth+1, path)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve dict key %s: %w", key, err)
			}
			out[key] = resolved
		}
		return out, nil

	case core.Array:
		if !deep {
			return v, nil
		}
		out := make(core.Array, len(v))
		for i, elem := range v {
			resolved, err := r.resolve(elem, deep, depth+1, path)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve array element %d: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil

	case *core.Stream:
		if !deep {
			return v, nil
		}
		dict, err := r.resolve(v.Dict, deep, depth+1, path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stream dict: %w", err)
		}
		return &core.Stream{Dict: dict.(core.Dict), Data: v.Data}, nil
	}

	return obj, nil
}
