// Package pdftest assembles small PDF files in memory for tests. Offsets in
// the cross-reference data it writes are always exact, so tests can damage
// them deliberately when they need a broken file.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Builder accumulates the bytes of a PDF file.
type Builder struct {
	buf     bytes.Buffer
	offsets map[int]int
}

// New starts a file with a %PDF header and a binary comment line.
func New(version string) *Builder {
	b := &Builder{offsets: make(map[int]int)}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", version)
	return b
}

// Raw appends bytes verbatim.
func (b *Builder) Raw(s string) {
	b.buf.WriteString(s)
}

// Len returns the current size of the file.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Offset returns where object num was written, or -1.
func (b *Builder) Offset(num int) int {
	if off, ok := b.offsets[num]; ok {
		return off
	}
	return -1
}

// Object writes "num 0 obj body endobj" and returns its offset.
func (b *Builder) Object(num int, body string) int {
	off := b.buf.Len()
	b.offsets[num] = off
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
	return off
}

// Stream writes a stream object. dict holds the dictionary entries without
// the surrounding << >>; /Length is added.
func (b *Builder) Stream(num int, dict string, data []byte) int {
	off := b.buf.Len()
	b.offsets[num] = off
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", num, dict, len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	return off
}

// ObjectStream writes object num as a FlateDecode object stream holding
// bodies as objects members, and returns its offset. Members get no offset
// of their own; xref rows for them have to be added by hand.
func (b *Builder) ObjectStream(num int, members []int, bodies []string) int {
	var header, content bytes.Buffer
	for i, body := range bodies {
		fmt.Fprintf(&header, "%d %d ", members[i], content.Len())
		content.WriteString(body)
		content.WriteByte(' ')
	}
	dict := fmt.Sprintf("/Type /ObjStm /N %d /First %d /Filter /FlateDecode", len(bodies), header.Len())
	return b.Stream(num, dict, Deflate(append(header.Bytes(), content.Bytes()...)))
}

// XRefTable writes a classic table for objects 0..size-1 followed by a
// trailer with /Size and the extra entries, and returns its offset.
func (b *Builder) XRefTable(size int, trailer string) int {
	off := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", size)
	for i := 0; i < size; i++ {
		if o, ok := b.offsets[i]; ok {
			fmt.Fprintf(&b.buf, "%010d 00000 n \n", o)
		} else {
			b.buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d %s >>\n", size, trailer)
	return off
}

// XRefRow is one xref stream entry.
type XRefRow struct {
	Type, Field2, Field3 int64
}

// Rows returns type 1 rows for every object written so far and free rows for
// the gaps, covering objects 0..size-1.
func (b *Builder) Rows(size int) []XRefRow {
	rows := make([]XRefRow, size)
	for i := range rows {
		if off, ok := b.offsets[i]; ok {
			rows[i] = XRefRow{Type: 1, Field2: int64(off)}
		}
	}
	return rows
}

// XRefStream writes object num as a FlateDecode xref stream with /W [1 4 2]
// and returns its offset. dict holds extra entries such as /Root or /Index.
func (b *Builder) XRefStream(num int, rows []XRefRow, dict string) int {
	var raw []byte
	for _, r := range rows {
		raw = append(raw, byte(r.Type))
		raw = append(raw, byte(r.Field2>>24), byte(r.Field2>>16), byte(r.Field2>>8), byte(r.Field2))
		raw = append(raw, byte(r.Field3>>8), byte(r.Field3))
	}
	return b.Stream(num, "/Type /XRef /W [1 4 2] /Filter /FlateDecode "+dict, Deflate(raw))
}

// Finish writes startxref and %%EOF and returns the file contents.
func (b *Builder) Finish(xrefOffset int) []byte {
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return b.Bytes()
}

// Bytes returns a copy of the file contents.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// Deflate zlib-compresses data.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// WriteFile stores data as name inside a fresh temporary directory and
// returns the path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
