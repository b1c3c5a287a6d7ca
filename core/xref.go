package core

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// XRefEntryType distinguishes the three kinds of cross-reference entries.
type XRefEntryType int

const (
	XRefEntryFree         XRefEntryType = iota // free or null object
	XRefEntryUncompressed                      // object at a byte offset
	XRefEntryCompressed                        // object stored inside an object stream
)

func (t XRefEntryType) String() string {
	switch t {
	case XRefEntryFree:
		return "free"
	case XRefEntryUncompressed:
		return "uncompressed"
	case XRefEntryCompressed:
		return "compressed"
	}
	return "unknown"
}

// XRefEntry represents a single cross-reference entry.
//
// For compressed entries Offset holds the object number of the containing
// object stream and Generation holds the index inside it.
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64 // byte offset, next free object, or object stream number
	Generation int   // generation number, or index within the object stream
	InUse      bool
}

// XRefTable is one cross-reference section with its trailer. For xref
// streams the trailer is the stream dictionary.
type XRefTable struct {
	Entries  map[int]*XRefEntry
	Trailer  Dict
	IsStream bool
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// XRefParser parses cross-reference sections, classic tables as well as
// xref streams.
type XRefParser struct {
	reader io.ReadSeeker
}

// NewXRefParser creates a new XRef parser
func NewXRefParser(r io.ReadSeeker) *XRefParser {
	return &XRefParser{reader: r}
}

// startxrefWindow is how far from the end of the file startxref is searched.
const startxrefWindow = 1024

// FindXRef returns the offset named by the last startxref keyword.
func (x *XRefParser) FindXRef() (int64, error) {
	fileSize, err := x.reader.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to end: %w", err)
	}

	readSize := int64(startxrefWindow)
	if fileSize < readSize {
		readSize = fileSize
	}
	if _, err := x.reader.Seek(fileSize-readSize, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to startxref area: %w", err)
	}
	buf := make([]byte, readSize)
	n, err := io.ReadFull(x.reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("failed to read startxref area: %w", err)
	}
	buf = buf[:n]

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found")
	}
	fields := bytes.Fields(buf[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("startxref has no offset")
	}
	offset, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	if offset < 0 || offset >= fileSize {
		return 0, fmt.Errorf("xref offset %d outside file of %d bytes", offset, fileSize)
	}
	return offset, nil
}

// isXRefStream reports whether the section at the current position is an
// xref stream ("N G obj") rather than a classic table ("xref"). The read
// position is restored.
func (x *XRefParser) isXRefStream() (bool, error) {
	pos, err := x.reader.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	defer x.reader.Seek(pos, io.SeekStart)

	head := make([]byte, 32)
	n, err := io.ReadFull(x.reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	head = bytes.TrimLeft(head[:n], " \t\r\n\f\x00")

	switch {
	case bytes.HasPrefix(head, []byte("xref")):
		return false, nil
	case len(head) > 0 && isDigit(head[0]):
		return true, nil
	}
	return false, fmt.Errorf("no cross-reference section at offset %d", pos)
}

// ParseXRef parses the cross-reference section at offset, whichever form it
// takes. A classic trailer carrying /XRefStm (a hybrid file) has the entries
// of that stream folded in.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to xref: %w", err)
	}

	isStream, err := x.isXRefStream()
	if err != nil {
		return nil, err
	}
	if isStream {
		return x.parseXRefStream()
	}

	table, err := x.parseTable()
	if err != nil {
		return nil, err
	}

	if stmOffset, ok := table.Trailer.GetInt("XRefStm"); ok {
		if _, err := x.reader.Seek(int64(stmOffset), io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to seek to /XRefStm: %w", err)
		}
		hidden, err := x.parseXRefStream()
		if err != nil {
			return nil, fmt.Errorf("failed to parse /XRefStm: %w", err)
		}
		for num, entry := range hidden.Entries {
			if cur, ok := table.Get(num); !ok || !cur.InUse {
				table.Set(num, entry)
			}
		}
	}
	return table, nil
}

// parseTable parses a classic "xref" table and its trailer from the current
// position.
func (x *XRefParser) parseTable() (*XRefTable, error) {
	p := NewParser(x.reader)
	if !p.currentToken.isKeyword("xref") {
		return nil, fmt.Errorf("expected 'xref' keyword")
	}
	p.nextToken()

	table := NewXRefTable()
	for {
		p.skipComments()
		if p.currentToken.isKeyword("trailer") {
			p.nextToken()
			obj, err := p.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary, got %T", obj)
			}
			table.Trailer = trailer
			return table, nil
		}

		first, err := p.expectInteger("subsection start")
		if err != nil {
			return nil, err
		}
		count, err := p.expectInteger("subsection count")
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			entry, err := p.parseTableEntry()
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", first+i, err)
			}
			table.Set(first+i, entry)
		}
	}
}

// parseTableEntry parses "offset generation n|f".
func (p *Parser) parseTableEntry() (*XRefEntry, error) {
	if p.currentToken == nil || p.currentToken.Type != TokenInteger {
		return nil, fmt.Errorf("expected entry offset")
	}
	offset, err := strconv.ParseInt(string(p.currentToken.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q: %w", p.currentToken.Value, err)
	}
	p.nextToken()

	gen, err := p.expectInteger("generation")
	if err != nil {
		return nil, err
	}

	entry := &XRefEntry{Offset: offset, Generation: gen}
	switch {
	case p.currentToken.isKeyword("n"):
		entry.Type = XRefEntryUncompressed
		entry.InUse = true
	case p.currentToken.isKeyword("f"):
		entry.Type = XRefEntryFree
	default:
		return nil, fmt.Errorf("invalid in-use flag")
	}
	p.nextToken()
	return entry, nil
}

// parseXRefStream parses an xref stream object from the current position.
func (x *XRefParser) parseXRefStream() (*XRefTable, error) {
	obj, err := NewParser(x.reader).ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream object: %w", err)
	}
	stream := obj.Stream()
	if stream == nil {
		return nil, fmt.Errorf("object %d is not a stream", obj.Ref.Number)
	}

	dict := stream.Dict
	if typ, _ := dict.GetName("Type"); typ != "XRef" {
		return nil, fmt.Errorf("xref stream has /Type %v", dict.Get("Type"))
	}
	size, ok := dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}
	wArr, ok := dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream /W must be an array of 3 integers")
	}
	w := make([]int, 3)
	for i, el := range wArr {
		n, ok := el.(Int)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("invalid /W element %v", el)
		}
		w[i] = int(n)
	}

	index := []int{0, int(size)}
	if idxArr, ok := dict.GetArray("Index"); ok {
		if len(idxArr)%2 != 0 {
			return nil, fmt.Errorf("xref stream /Index has odd length %d", len(idxArr))
		}
		index = index[:0]
		for _, el := range idxArr {
			n, ok := el.(Int)
			if !ok {
				return nil, fmt.Errorf("invalid /Index element %v", el)
			}
			index = append(index, int(n))
		}
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.IsStream = true
	table.Trailer = dict.Clone()

	for i := 0; i < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			entry, n, err := x.parseXRefStreamEntry(data, w)
			if err != nil {
				return nil, fmt.Errorf("xref stream entry %d: %w", first+j, err)
			}
			data = data[n:]
			table.Set(first+j, entry)
		}
	}
	return table, nil
}

// parseXRefStreamEntry decodes one binary entry laid out by /W and returns it
// with the number of bytes consumed. A zero-width type field means type 1.
func (x *XRefParser) parseXRefStreamEntry(data []byte, w []int) (*XRefEntry, int, error) {
	total := w[0] + w[1] + w[2]
	if len(data) < total {
		return nil, 0, fmt.Errorf("need %d bytes, have %d", total, len(data))
	}

	typ := int64(1)
	if w[0] > 0 {
		typ = readBigEndianInt(data, w[0])
	}
	field2 := readBigEndianInt(data[w[0]:], w[1])
	field3 := readBigEndianInt(data[w[0]+w[1]:], w[2])

	entry := &XRefEntry{Offset: field2, Generation: int(field3)}
	switch typ {
	case 1:
		entry.Type = XRefEntryUncompressed
		entry.InUse = true
	case 2:
		entry.Type = XRefEntryCompressed
		entry.InUse = true
	default:
		// Type 0 and unknown types both refer to the null object.
		entry.Type = XRefEntryFree
	}
	return entry, total, nil
}

// readBigEndianInt reads width bytes of data as an unsigned big-endian
// integer. Width 0 yields 0.
func readBigEndianInt(data []byte, width int) int64 {
	var v int64
	for i := 0; i < width && i < len(data); i++ {
		v = v<<8 | int64(data[i])
	}
	return v
}

// ParseXRefFromEOF finds and parses the newest cross-reference section.
func (x *XRefParser) ParseXRefFromEOF() (*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to find xref: %w", err)
	}
	table, err := x.ParseXRef(offset)
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref at %d: %w", offset, err)
	}
	return table, nil
}

// ParseAllXRefs parses the newest section and every older one reachable
// through /Prev, returning them oldest first. A /Prev chain that loops is
// cut at the first repeated offset.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to find xref: %w", err)
	}

	var tables []*XRefTable
	seen := make(map[int64]bool)
	for {
		seen[offset] = true
		table, err := x.ParseXRef(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to parse xref at %d: %w", offset, err)
		}
		tables = append([]*XRefTable{table}, tables...)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok || seen[int64(prev)] {
			break
		}
		offset = int64(prev)
	}
	return tables, nil
}

// MergeXRefTables merges sections given oldest first. Later entries override
// earlier ones, and the newest trailer wins, keeping /Root and /Info from
// older trailers when the newest omits them.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		trailer := table.Trailer.Clone()
		for _, key := range []string{"Root", "Info"} {
			if !trailer.Has(key) && merged.Trailer.Has(key) {
				trailer[key] = merged.Trailer[key]
			}
		}
		merged.Trailer = trailer
		merged.IsStream = table.IsStream
	}
	return merged
}

var objHeaderPattern = regexp.MustCompile(`(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// Reconstruct rebuilds a cross-reference table by scanning the whole file for
// "N G obj" headers, for files whose xref data is missing or damaged. A later
// definition of the same object number replaces an earlier one. The trailer
// is the last "trailer" dictionary found; without one a minimal trailer with
// /Size is synthesized.
func Reconstruct(r io.ReaderAt, size int64) (*XRefTable, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("failed to read file for repair: %w", err)
	}

	table := NewXRefTable()
	maxNum := -1
	for _, m := range objHeaderPattern.FindAllSubmatchIndex(data, -1) {
		start := m[0]
		if start > 0 && !isWhitespace(data[start-1]) && !isDelimiter(data[start-1]) {
			continue
		}
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		table.Set(num, &XRefEntry{
			Type:       XRefEntryUncompressed,
			Offset:     int64(start),
			Generation: gen,
			InUse:      true,
		})
		if num > maxNum {
			maxNum = num
		}
	}
	if table.Size() == 0 {
		return nil, fmt.Errorf("repair failed: no objects found")
	}

	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		p := NewParser(bytes.NewReader(data[idx+len("trailer"):]))
		if obj, err := p.ParseObject(); err == nil {
			if dict, ok := obj.(Dict); ok {
				table.Trailer = dict
			}
		}
	}
	if _, ok := table.Trailer.GetInt("Size"); !ok {
		table.Trailer["Size"] = Int(maxNum + 1)
	}
	return table, nil
}
