package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword     // obj, endobj, stream, endstream, true, false, null, ...
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64 // Offset of the first byte of the token
}

// Lexer performs lexical analysis of PDF syntax
type Lexer struct {
	reader *bufio.Reader
	pos    int64
}

// NewLexer creates a new lexer reading from r
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r)}
}

// Pos returns the number of bytes consumed so far
func (l *Lexer) Pos() int64 {
	return l.pos
}

// NextToken returns the next token from the input. Whitespace is skipped and
// never returned.
func (l *Lexer) NextToken() (*Token, error) {
	if err := l.skipWhitespace(); err != nil && err != io.EOF {
		return nil, err
	}

	b, err := l.peek()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: l.pos}, nil
	}
	if err != nil {
		return nil, err
	}

	start := l.pos
	switch b {
	case '%':
		return l.readComment()
	case '[':
		l.readByte()
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case ']':
		l.readByte()
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if next, err := l.reader.Peek(2); err == nil && next[1] == '<' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if next, err := l.reader.Peek(2); err == nil && next[1] == '>' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return nil, fmt.Errorf("unexpected '>' at position %d", start)
	case '/':
		return l.readName()
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber()
	}
	if isAlpha(b) {
		return l.readKeyword()
	}

	return nil, fmt.Errorf("unexpected character %q at position %d", b, start)
}

func (l *Lexer) readByte() (byte, error) {
	b, err := l.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

func (l *Lexer) peek() (byte, error) {
	buf, err := l.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// skipWhitespace skips PDF whitespace: space, tab, LF, CR, FF and NUL
func (l *Lexer) skipWhitespace() error {
	for {
		b, err := l.peek()
		if err != nil {
			return err
		}
		if !isWhitespace(b) {
			return nil
		}
		l.readByte()
	}
}

// readComment reads from % to the end of the line
func (l *Lexer) readComment() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if b == '\r' || b == '\n' {
			l.skipEOL()
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}
	return &Token{Type: TokenComment, Value: buf.Bytes(), Pos: start}, nil
}

// skipEOL consumes a single CR, LF or CRLF sequence if present
func (l *Lexer) skipEOL() {
	b, err := l.peek()
	if err != nil {
		return
	}
	if b == '\r' {
		l.readByte()
		b, err = l.peek()
		if err != nil {
			return
		}
	}
	if b == '\n' {
		l.readByte()
	}
}

// readString reads a literal string, handling nested parentheses and escapes
func (l *Lexer) readString() (*Token, error) {
	start := l.pos
	l.readByte() // (

	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated string at position %d: %w", start, err)
		}
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\\':
			if err := l.readEscape(&buf); err != nil {
				return nil, err
			}
		default:
			buf.WriteByte(b)
		}
	}
	return &Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
}

func (l *Lexer) readEscape(buf *bytes.Buffer) error {
	next, err := l.readByte()
	if err != nil {
		return err
	}
	switch next {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		// line continuation
		if b, err := l.peek(); err == nil && b == '\n' {
			l.readByte()
		}
	case '\n':
	case '0', '1', '2', '3', '4', '5', '6', '7':
		val := next - '0'
		for i := 0; i < 2; i++ {
			b, err := l.peek()
			if err != nil || !isOctalDigit(b) {
				break
			}
			l.readByte()
			val = val*8 + (b - '0')
		}
		buf.WriteByte(val)
	default:
		buf.WriteByte(next)
	}
	return nil
}

// readHexString reads <...>, returning the hex digits with whitespace removed
func (l *Lexer) readHexString() (*Token, error) {
	start := l.pos
	l.readByte() // <

	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated hex string at position %d: %w", start, err)
		}
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, fmt.Errorf("invalid hex digit %q at position %d", b, l.pos-1)
		}
		buf.WriteByte(b)
	}
	return &Token{Type: TokenHexString, Value: buf.Bytes(), Pos: start}, nil
}

// readName reads /Name, decoding #xx escapes
func (l *Lexer) readName() (*Token, error) {
	start := l.pos
	l.readByte() // /

	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.readByte()
		if b == '#' {
			if hex, err := l.reader.Peek(2); err == nil && isHexDigit(hex[0]) && isHexDigit(hex[1]) {
				l.readByte()
				l.readByte()
				buf.WriteByte(hexValue(hex[0])<<4 | hexValue(hex[1]))
				continue
			}
		}
		buf.WriteByte(b)
	}
	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: start}, nil
}

// readNumber reads an integer or real number
func (l *Lexer) readNumber() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	hasDecimal := false

scan:
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch {
		case b == '.' && !hasDecimal:
			hasDecimal = true
		case isDigit(b):
		case (b == '-' || b == '+') && buf.Len() == 0:
		default:
			break scan
		}
		l.readByte()
		buf.WriteByte(b)
	}

	typ := TokenInteger
	if hasDecimal {
		typ = TokenReal
	}
	return &Token{Type: typ, Value: buf.Bytes(), Pos: start}, nil
}

// readKeyword reads a bare keyword; a lone R is an indirect reference marker
func (l *Lexer) readKeyword() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !isAlpha(b) && !isDigit(b) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}

	value := buf.Bytes()
	if len(value) == 1 && value[0] == 'R' {
		return &Token{Type: TokenIndirectRef, Value: value, Pos: start}, nil
	}
	return &Token{Type: TokenKeyword, Value: value, Pos: start}, nil
}

// SkipStreamEOL consumes the end-of-line marker that must follow the stream
// keyword: LF or CRLF. A lone CR is accepted as well.
func (l *Lexer) SkipStreamEOL() error {
	// Some writers put spaces between the keyword and the EOL.
	for {
		b, err := l.peek()
		if err != nil {
			return err
		}
		if b != ' ' && b != '\t' {
			break
		}
		l.readByte()
	}
	l.skipEOL()
	return nil
}

// ReadBytes reads exactly n bytes of binary data
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	data := make([]byte, n)
	read, err := io.ReadFull(l.reader, data)
	l.pos += int64(read)
	if err != nil {
		return data[:read], fmt.Errorf("unexpected EOF: expected %d bytes, got %d", n, read)
	}
	return data, nil
}

// ReadUntil consumes input up to and including marker and returns the bytes
// that preceded it. If marker never appears, everything up to EOF is returned
// together with io.ErrUnexpectedEOF.
func (l *Lexer) ReadUntil(marker []byte) ([]byte, error) {
	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err == io.EOF {
			return buf.Bytes(), io.ErrUnexpectedEOF
		}
		if err != nil {
			return buf.Bytes(), err
		}
		buf.WriteByte(b)
		if bytes.HasSuffix(buf.Bytes(), marker) {
			return buf.Bytes()[:buf.Len()-len(marker)], nil
		}
	}
}

// KeywordAhead reports whether the next token is the given keyword, without
// consuming any input. Only whitespace is allowed before it.
func (l *Lexer) KeywordAhead(keyword string) bool {
	ahead, _ := l.reader.Peek(len(keyword) + 64)
	ahead = bytes.TrimLeft(ahead, " \t\r\n\f\x00")
	if !bytes.HasPrefix(ahead, []byte(keyword)) {
		return false
	}
	rest := ahead[len(keyword):]
	return len(rest) == 0 || !isAlpha(rest[0])
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
