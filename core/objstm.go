package core

import (
	"bytes"
	"fmt"
)

// ObjectStream gives access to the objects packed into a /Type /ObjStm
// stream. The stream is decoded lazily on first access.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	extends *IndirectRef
	entries []objStmEntry
	objects map[int]Object // by index
	decoded []byte
}

// objStmEntry is one pair from the stream header.
type objStmEntry struct {
	number int
	offset int // relative to First
}

// NewObjectStream validates the dictionary of an object stream.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type: %v", stream.Dict.Get("Type"))
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N: %v", stream.Dict.Get("N"))
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First: %v", stream.Dict.Get("First"))
	}

	o := &ObjectStream{
		stream:  stream,
		n:       int(n),
		first:   int(first),
		objects: make(map[int]Object),
	}
	if ext := stream.Dict.Get("Extends"); ext != nil {
		ref, ok := ext.(IndirectRef)
		if !ok {
			return nil, fmt.Errorf("invalid /Extends type: %T", ext)
		}
		o.extends = &ref
	}
	return o, nil
}

// N returns the number of objects stored in the stream.
func (o *ObjectStream) N() int { return o.n }

// First returns the offset of the first object in the decoded data.
func (o *ObjectStream) First() int { return o.first }

// Extends returns the object stream this one extends, or nil.
func (o *ObjectStream) Extends() *IndirectRef { return o.extends }

func (o *ObjectStream) decode() error {
	if o.decoded != nil {
		return nil
	}
	decoded, err := o.stream.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	if o.first > len(decoded) {
		return fmt.Errorf("/First %d exceeds decoded length %d", o.first, len(decoded))
	}

	p := NewParser(bytes.NewReader(decoded[:o.first]))
	entries := make([]objStmEntry, 0, o.n)
	for i := 0; i < o.n; i++ {
		num, err := p.expectInteger("object number")
		if err != nil {
			return fmt.Errorf("object stream header pair %d: %w", i, err)
		}
		off, err := p.expectInteger("object offset")
		if err != nil {
			return fmt.Errorf("object stream header pair %d: %w", i, err)
		}
		entries = append(entries, objStmEntry{number: num, offset: off})
	}

	o.decoded = decoded
	o.entries = entries
	return nil
}

// GetObjectByIndex returns the object at index in the header together with
// its object number.
func (o *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := o.decode(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(o.entries) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(o.entries))
	}
	num := o.entries[index].number
	if obj, ok := o.objects[index]; ok {
		return obj, num, nil
	}

	start := o.first + o.entries[index].offset
	end := len(o.decoded)
	if index+1 < len(o.entries) {
		if next := o.first + o.entries[index+1].offset; next >= start && next < end {
			end = next
		}
	}
	if start < o.first || start >= len(o.decoded) {
		return nil, 0, fmt.Errorf("object %d offset %d outside decoded data", num, start)
	}

	obj, err := NewParser(bytes.NewReader(o.decoded[start:end])).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object %d at index %d: %w", num, index, err)
	}
	o.objects[index] = obj
	return obj, num, nil
}

// GetObjectByNumber returns the object with the given number and its index.
func (o *ObjectStream) GetObjectByNumber(objNum int) (Object, int, error) {
	if err := o.decode(); err != nil {
		return nil, 0, err
	}
	for i, e := range o.entries {
		if e.number == objNum {
			obj, _, err := o.GetObjectByIndex(i)
			return obj, i, err
		}
	}
	return nil, 0, fmt.Errorf("object %d not found in object stream", objNum)
}

// ObjectNumbers lists the object numbers in header order.
func (o *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := o.decode(); err != nil {
		return nil, err
	}
	nums := make([]int, len(o.entries))
	for i, e := range o.entries {
		nums[i] = e.number
	}
	return nums, nil
}
