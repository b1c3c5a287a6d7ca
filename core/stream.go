package core

import (
	"fmt"

	"github.com/tsawler/pdfstreams/internal/filters"
)

// Decode runs the stream data through its filter chain. A stream without
// /Filter decodes to its raw data.
func (s *Stream) Decode() ([]byte, error) {
	chain, err := s.FilterChain()
	if err != nil {
		return nil, err
	}
	return chain.Decode(s.Data)
}

// FilterChain returns the decode steps declared by the stream dictionary.
func (s *Stream) FilterChain() (filters.Chain, error) {
	return FilterChain(s.Dict)
}

// FilterChain reads /Filter and /DecodeParms from a stream dictionary. Both
// entries must already be direct objects. /Filter may be a single name or an
// array of names; /DecodeParms may be a dictionary, null, or an array that
// parallels the filters. A lone dictionary applies to every step.
func FilterChain(dict Dict) (filters.Chain, error) {
	var names []Name
	switch f := dict.Get("Filter").(type) {
	case nil, Null:
		return nil, nil
	case Name:
		names = []Name{f}
	case Array:
		for i, el := range f {
			name, ok := el.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is not a name: %T", i, el)
			}
			names = append(names, name)
		}
	default:
		return nil, fmt.Errorf("invalid Filter type: %T", f)
	}

	parms := dict.Get("DecodeParms")
	if parms == nil {
		parms = dict.Get("DP")
	}

	chain := make(filters.Chain, len(names))
	for i, name := range names {
		var p Object = parms
		if arr, ok := parms.(Array); ok {
			p = arr.Get(i)
		}
		chain[i] = filters.Step{Name: string(name), Params: dictToParams(p)}
	}
	return chain, nil
}

// dictToParams converts a DecodeParms dictionary to filters.Params, turning
// PDF scalars into Go values. Anything but a dictionary yields nil.
func dictToParams(obj Object) filters.Params {
	dict, ok := obj.(Dict)
	if !ok || len(dict) == 0 {
		return nil
	}

	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch val := v.(type) {
		case Int:
			params[k] = int(val)
		case Real:
			params[k] = float64(val)
		case Bool:
			params[k] = bool(val)
		case String:
			params[k] = string(val)
		case Name:
			params[k] = string(val)
		default:
			params[k] = v
		}
	}
	return params
}
