package core

import (
	"testing"
)

// makeObjStm packs bodies into an object stream with object numbers nums
func makeObjStm(nums []int, bodies []string, compress bool) *Stream {
	var header, content string
	for i, body := range bodies {
		header += itoa(nums[i]) + " " + itoa(len(content)) + " "
		content += body + " "
	}
	data := []byte(header + content)
	dict := Dict{
		"Type":  Name("ObjStm"),
		"N":     Int(len(bodies)),
		"First": Int(len(header)),
	}
	if compress {
		data = zlibCompress(data)
		dict["Filter"] = Name("FlateDecode")
	}
	return &Stream{Dict: dict, Data: data}
}

func TestObjectStream(t *testing.T) {
	stream := makeObjStm(
		[]int{10, 11, 12},
		[]string{"<< /Type /Font /Subtype /Type1 >>", "[1 2 0 R]", "(hello)"},
		true,
	)

	objStm, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("NewObjectStream() error = %v", err)
	}
	if objStm.N() != 3 {
		t.Errorf("N() = %d, want 3", objStm.N())
	}

	nums, err := objStm.ObjectNumbers()
	if err != nil {
		t.Fatalf("ObjectNumbers() error = %v", err)
	}
	if len(nums) != 3 || nums[0] != 10 || nums[2] != 12 {
		t.Errorf("ObjectNumbers() = %v", nums)
	}

	obj, num, err := objStm.GetObjectByIndex(0)
	if err != nil {
		t.Fatalf("GetObjectByIndex(0) error = %v", err)
	}
	if num != 10 {
		t.Errorf("object number = %d, want 10", num)
	}
	if typ, _ := obj.(Dict).GetName("Subtype"); typ != "Type1" {
		t.Errorf("Subtype = %v", typ)
	}

	obj, idx, err := objStm.GetObjectByNumber(11)
	if err != nil {
		t.Fatalf("GetObjectByNumber(11) error = %v", err)
	}
	if idx != 1 {
		t.Errorf("index = %d, want 1", idx)
	}
	arr, ok := obj.(Array)
	if !ok || len(arr) != 2 || arr[1] != (IndirectRef{Number: 2, Generation: 0}) {
		t.Errorf("object 11 = %v", obj)
	}

	obj, _, err = objStm.GetObjectByNumber(12)
	if err != nil || obj != String("hello") {
		t.Errorf("object 12 = %v, %v", obj, err)
	}

	if _, _, err := objStm.GetObjectByNumber(99); err == nil {
		t.Error("expected error for missing object")
	}
	if _, _, err := objStm.GetObjectByIndex(3); err == nil {
		t.Error("expected error for index out of range")
	}
}

func TestObjectStreamCaching(t *testing.T) {
	objStm, err := NewObjectStream(makeObjStm([]int{5}, []string{"<< /A 1 >>"}, false))
	if err != nil {
		t.Fatalf("NewObjectStream() error = %v", err)
	}
	first, _, err := objStm.GetObjectByIndex(0)
	if err != nil {
		t.Fatal(err)
	}
	first.(Dict)["B"] = Int(2)
	second, _, _ := objStm.GetObjectByIndex(0)
	if !second.(Dict).Has("B") {
		t.Error("second lookup should return the cached object")
	}
}

func TestObjectStreamExtends(t *testing.T) {
	stream := makeObjStm([]int{1}, []string{"null"}, false)
	stream.Dict["Extends"] = IndirectRef{Number: 20}

	objStm, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("NewObjectStream() error = %v", err)
	}
	if ext := objStm.Extends(); ext == nil || ext.Number != 20 {
		t.Errorf("Extends() = %v, want 20 0 R", ext)
	}

	stream.Dict["Extends"] = Int(20)
	if _, err := NewObjectStream(stream); err == nil {
		t.Error("expected error for non-reference /Extends")
	}
}

func TestNewObjectStreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		stream *Stream
	}{
		{"nil", nil},
		{"wrong type", &Stream{Dict: Dict{"Type": Name("XRef"), "N": Int(1), "First": Int(0)}}},
		{"missing N", &Stream{Dict: Dict{"Type": Name("ObjStm"), "First": Int(0)}}},
		{"negative First", &Stream{Dict: Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(-1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewObjectStream(tt.stream); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestObjectStreamHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		n    int
		frst int
	}{
		{"First beyond data", "1 0 null", 1, 100},
		{"short header", "1 ", 2, 2},
		{"non-integer header", "/A 0 null", 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objStm, err := NewObjectStream(&Stream{
				Dict: Dict{"Type": Name("ObjStm"), "N": Int(tt.n), "First": Int(tt.frst)},
				Data: []byte(tt.data),
			})
			if err != nil {
				t.Fatalf("NewObjectStream() error = %v", err)
			}
			if _, err := objStm.ObjectNumbers(); err == nil {
				t.Error("expected header error")
			}
		})
	}
}
