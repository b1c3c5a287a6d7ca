package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/tsawler/pdfstreams/core"
	"github.com/tsawler/pdfstreams/resolver"
)

// ErrNotPDF is returned when no %PDF-x.y header can be found.
var ErrNotPDF = errors.New("not a PDF file")

// headerWindow is how far into the file a lenient reader looks for the header.
const headerWindow = 1024

var versionPattern = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Warning records something the reader had to work around. Object is zero
// for problems that concern the file as a whole.
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

// Option configures a Reader
type Option func(*Reader)

// WithLenient controls tolerant parsing (default: true). A lenient reader
// accepts a header anywhere in the first kilobyte, rebuilds unusable
// cross-reference data by scanning the file, recovers streams whose /Length
// is wrong, and skips objects it cannot load.
func WithLenient(lenient bool) Option {
	return func(r *Reader) {
		r.lenient = lenient
	}
}

// Reader represents a PDF file reader
type Reader struct {
	src      io.ReaderAt
	closer   io.Closer
	fileSize int64
	lenient  bool

	xrefTable *core.XRefTable
	trailer   core.Dict
	version   PDFVersion
	repaired  bool

	// repairTable holds object offsets found by scanning the file. It is
	// built on first use when an xref offset turns out to be wrong.
	repairTable *core.XRefTable

	objCache map[int]*core.IndirectObject
	objStms  map[int]*core.ObjectStream
	loading  map[int]bool
	warnings []Warning
}

// NewReader reads the header and cross-reference data of the size bytes in
// src. Objects are loaded on demand.
func NewReader(src io.ReaderAt, size int64, opts ...Option) (*Reader, error) {
	r := &Reader{
		src:      src,
		fileSize: size,
		lenient:  true,
		objCache: make(map[int]*core.IndirectObject),
		objStms:  make(map[int]*core.ObjectStream),
		loading:  make(map[int]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	version, err := r.parseHeader()
	if err != nil {
		return nil, err
	}
	r.version = version

	xrefTable, err := r.loadXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to load xref: %w", err)
	}
	r.xrefTable = xrefTable
	r.trailer = xrefTable.Trailer
	if r.trailer == nil {
		r.trailer = core.Dict{}
	}

	return r, nil
}

// Open opens a PDF file and returns a Reader
func Open(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	r, err := NewReader(file, info.Size(), opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file

	return r, nil
}

// Close closes the PDF file
func (r *Reader) Close() error {
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

// parseHeader finds %PDF-x.y at offset 0, or anywhere in the first
// kilobyte when lenient.
func (r *Reader) parseHeader() (PDFVersion, error) {
	window := int64(headerWindow)
	if window > r.fileSize {
		window = r.fileSize
	}
	buf := make([]byte, window)
	n, err := r.src.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return PDFVersion{}, fmt.Errorf("failed to read header: %w", err)
	}
	buf = buf[:n]

	loc := versionPattern.FindSubmatchIndex(buf)
	if loc == nil {
		return PDFVersion{}, fmt.Errorf("%w: missing %%PDF header", ErrNotPDF)
	}
	if loc[0] != 0 && !r.lenient {
		return PDFVersion{}, fmt.Errorf("%w: header at offset %d instead of 0", ErrNotPDF, loc[0])
	}
	if loc[0] != 0 {
		r.warn(0, "header found at offset %d", loc[0])
	}

	major, _ := strconv.Atoi(string(buf[loc[2]:loc[3]]))
	minor, _ := strconv.Atoi(string(buf[loc[4]:loc[5]]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// loadXRef loads the cross-reference data, following /Prev through every
// incremental update. A lenient reader falls back to scanning the file.
func (r *Reader) loadXRef() (*core.XRefTable, error) {
	xrefParser := core.NewXRefParser(io.NewSectionReader(r.src, 0, r.fileSize))
	tables, err := xrefParser.ParseAllXRefs()
	if err == nil {
		return core.MergeXRefTables(tables...), nil
	}
	if !r.lenient {
		return nil, err
	}

	table, rerr := core.Reconstruct(r.src, r.fileSize)
	if rerr != nil {
		return nil, fmt.Errorf("%w (%v)", rerr, err)
	}
	r.repaired = true
	r.repairTable = table
	r.xrefTable = table
	r.warn(0, "cross-reference data unusable (%v), rebuilt from %d object headers", err, table.Size())
	r.addCompressedEntries(table)
	return table, nil
}

// addCompressedEntries registers the objects held by every object stream
// found during a scan. Objects also found directly in the file keep their
// direct entry.
func (r *Reader) addCompressedEntries(table *core.XRefTable) {
	nums := make([]int, 0, len(table.Entries))
	for num := range table.Entries {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	for _, num := range nums {
		stm, err := r.objectStream(num)
		if err != nil {
			continue
		}
		members, err := stm.ObjectNumbers()
		if err != nil {
			r.warn(num, "object stream header unreadable: %v", err)
			continue
		}
		for idx, member := range members {
			if _, ok := table.Get(member); ok {
				continue
			}
			table.Set(member, &core.XRefEntry{
				Type:       core.XRefEntryCompressed,
				Offset:     int64(num),
				Generation: idx,
				InUse:      true,
			})
		}
	}
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// Repaired reports whether the cross-reference data was rebuilt by scanning.
func (r *Reader) Repaired() bool {
	return r.repaired
}

// Warnings returns what the reader has worked around so far.
func (r *Reader) Warnings() []Warning {
	return r.warnings
}

func (r *Reader) warn(obj int, format string, args ...any) {
	r.warnings = append(r.warnings, Warning{Object: obj, Message: fmt.Sprintf(format, args...)})
}

// GetObject loads an object by its number
// Uses caching to avoid re-reading objects
func (r *Reader) GetObject(objNum int) (*core.IndirectObject, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}

	entry, ok := r.xrefTable.Get(objNum)
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref table", objNum)
	}
	if !entry.InUse {
		return nil, fmt.Errorf("object %d is not in use", objNum)
	}

	// An indirect /Length can lead back to the object being loaded.
	if r.loading[objNum] {
		return nil, fmt.Errorf("object %d refers to itself while loading", objNum)
	}
	r.loading[objNum] = true
	defer delete(r.loading, objNum)

	var (
		obj *core.IndirectObject
		err error
	)
	if entry.Type == core.XRefEntryCompressed {
		obj, err = r.loadCompressed(objNum, entry)
	} else {
		obj, err = r.loadAt(objNum, entry.Offset)
	}
	if err != nil {
		return nil, err
	}

	r.objCache[objNum] = obj
	return obj, nil
}

// loadAt parses object objNum at offset. A lenient reader retries at the
// offset a file scan reports when the recorded one is wrong.
func (r *Reader) loadAt(objNum int, offset int64) (*core.IndirectObject, error) {
	obj, err := r.parseAt(objNum, offset)
	if err != nil && r.lenient {
		if alt, ok := r.scannedOffset(objNum); ok && alt != offset {
			if retry, rerr := r.parseAt(objNum, alt); rerr == nil {
				r.warn(objNum, "xref offset %d is wrong, object found at %d", offset, alt)
				return retry, nil
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
	}
	return obj, nil
}

func (r *Reader) parseAt(objNum int, offset int64) (*core.IndirectObject, error) {
	if offset < 0 || offset >= r.fileSize {
		return nil, fmt.Errorf("offset %d outside file of %d bytes", offset, r.fileSize)
	}

	parser := core.NewParser(io.NewSectionReader(r.src, offset, r.fileSize-offset))
	parser.SetReferenceResolver(r)
	parser.SetLenient(r.lenient)

	obj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	if obj.Ref.Number != objNum {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, obj.Ref.Number)
	}
	return obj, nil
}

func (r *Reader) scannedOffset(objNum int) (int64, bool) {
	if r.repairTable == nil {
		table, err := core.Reconstruct(r.src, r.fileSize)
		if err != nil {
			table = core.NewXRefTable()
		}
		r.repairTable = table
	}
	entry, ok := r.repairTable.Get(objNum)
	if !ok || entry.Type != core.XRefEntryUncompressed {
		return 0, false
	}
	return entry.Offset, true
}

// loadCompressed reads an object stored in an object stream. The index
// from the xref entry is tried first, then the stream header is searched.
func (r *Reader) loadCompressed(objNum int, entry *core.XRefEntry) (*core.IndirectObject, error) {
	stmNum := int(entry.Offset)
	stm, err := r.objectStream(stmNum)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", objNum, err)
	}

	obj, num, err := stm.GetObjectByIndex(entry.Generation)
	if err != nil || num != objNum {
		obj, _, err = stm.GetObjectByNumber(objNum)
		if err != nil {
			return nil, fmt.Errorf("object %d in object stream %d: %w", objNum, stmNum, err)
		}
	}

	return &core.IndirectObject{Ref: core.IndirectRef{Number: objNum}, Object: obj}, nil
}

func (r *Reader) objectStream(stmNum int) (*core.ObjectStream, error) {
	if stm, ok := r.objStms[stmNum]; ok {
		return stm, nil
	}

	holder, err := r.GetObject(stmNum)
	if err != nil {
		return nil, fmt.Errorf("failed to load object stream %d: %w", stmNum, err)
	}
	stream := holder.Stream()
	if stream == nil {
		return nil, fmt.Errorf("object %d is not a stream", stmNum)
	}

	dict, err := resolver.NewResolver(r).ResolveEntries(stream.Dict, "Filter", "DecodeParms", "DP", "N", "First")
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", stmNum, err)
	}
	stm, err := core.NewObjectStream(&core.Stream{Dict: dict, Data: stream.Data})
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", stmNum, err)
	}

	r.objStms[stmNum] = stm
	return stm, nil
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, err := r.GetObject(ref.Number)
	if err != nil {
		return nil, err
	}
	return obj.Object, nil
}

// Objects returns every in-use object in ascending object-number order.
// A lenient reader skips objects that fail to load and records a warning for
// each; a strict reader stops at the first failure.
func (r *Reader) Objects() ([]*core.IndirectObject, error) {
	nums := make([]int, 0, len(r.xrefTable.Entries))
	for num, entry := range r.xrefTable.Entries {
		if entry.InUse && num > 0 {
			nums = append(nums, num)
		}
	}
	sort.Ints(nums)

	objs := make([]*core.IndirectObject, 0, len(nums))
	for _, num := range nums {
		obj, err := r.GetObject(num)
		if err != nil {
			if !r.lenient {
				return nil, err
			}
			r.warn(num, "skipped: %v", err)
			continue
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// Info holds the decoded text entries of the document information dictionary.
type Info struct {
	Title    string
	Author   string
	Producer string
	Creator  string
}

// IsZero reports whether no entry was found.
func (i Info) IsZero() bool {
	return i == Info{}
}

// Info returns the document information dictionary's text entries. Files
// without /Info yield a zero Info.
func (r *Reader) Info() (Info, error) {
	infoObj := r.trailer.Get("Info")
	if infoObj == nil {
		return Info{}, nil
	}

	res := resolver.NewResolver(r)
	resolved, err := res.Resolve(infoObj)
	if err != nil {
		return Info{}, fmt.Errorf("failed to resolve info: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return Info{}, fmt.Errorf("info is not a dictionary: %T", resolved)
	}

	dict, err = res.ResolveEntries(dict, "Title", "Author", "Producer", "Creator")
	if err != nil {
		return Info{}, fmt.Errorf("failed to resolve info: %w", err)
	}
	text := func(key string) string {
		s, _ := dict.GetString(key)
		return core.DecodeTextString(s)
	}

	return Info{
		Title:    text("Title"),
		Author:   text("Author"),
		Producer: text("Producer"),
		Creator:  text("Creator"),
	}, nil
}
