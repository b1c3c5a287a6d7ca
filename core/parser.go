package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references. The parser uses it for
// stream /Length entries that point at another object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds PDF objects from the tokens produced by a Lexer.
type Parser struct {
	lexer        *Lexer
	currentToken *Token
	peekToken    *Token
	err          error // first lexer error, reported when tokens run out
	resolver     ReferenceResolver
	lenient      bool
}

// NewParser creates a new PDF parser for the given reader and loads the first
// two tokens for lookahead.
func NewParser(r io.Reader) *Parser {
	p := &Parser{lexer: NewLexer(r)}
	p.nextToken()
	p.nextToken()
	return p
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// SetLenient switches stream parsing to recovery mode: a missing or wrong
// /Length is tolerated by scanning for endstream, and a missing endobj
// keyword is ignored.
func (p *Parser) SetLenient(lenient bool) {
	p.lenient = lenient
}

// nextToken shifts the lookahead window by one token.
func (p *Parser) nextToken() {
	p.currentToken = p.peekToken

	// Binary data follows the stream keyword; parseStream reads it directly.
	if p.currentToken != nil && p.currentToken.isKeyword("stream") {
		p.peekToken = nil
		return
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		if p.err == nil {
			p.err = err
		}
		p.peekToken = nil
		return
	}
	p.peekToken = token
}

func (t *Token) isKeyword(kw string) bool {
	return t != nil && t.Type == TokenKeyword && string(t.Value) == kw
}

func (p *Parser) skipComments() {
	for p.currentToken != nil && p.currentToken.Type == TokenComment {
		p.nextToken()
	}
}

func (p *Parser) endOfInput(context string) error {
	if p.err != nil {
		return fmt.Errorf("%s: %w", context, p.err)
	}
	return fmt.Errorf("%s: unexpected end of input", context)
}

// ParseObject parses and returns the next PDF object from the input.
func (p *Parser) ParseObject() (Object, error) {
	p.skipComments()
	if p.currentToken == nil {
		return nil, p.endOfInput("parse object")
	}

	tok := p.currentToken
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			p.nextToken()
			return Null{}, nil
		case "true":
			p.nextToken()
			return Bool(true), nil
		case "false":
			p.nextToken()
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at position %d", tok.Value, tok.Pos)

	case TokenInteger:
		return p.parseNumber()

	case TokenReal:
		val, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number %q: %w", tok.Value, err)
		}
		p.nextToken()
		return Real(val), nil

	case TokenString:
		p.nextToken()
		return String(tok.Value), nil

	case TokenHexString:
		p.nextToken()
		return String(decodeHexDigits(tok.Value)), nil

	case TokenName:
		p.nextToken()
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()
	}

	return nil, fmt.Errorf("unexpected token %q at position %d", tok.Value, tok.Pos)
}

// decodeHexDigits converts hex digits to bytes; an odd trailing digit is
// padded with 0.
func decodeHexDigits(digits []byte) []byte {
	out := make([]byte, 0, (len(digits)+1)/2)
	for i := 0; i < len(digits); i += 2 {
		hi := hexValue(digits[i])
		var lo byte
		if i+1 < len(digits) {
			lo = hexValue(digits[i+1])
		}
		out = append(out, hi<<4|lo)
	}
	return out
}

// parseNumber parses an integer, a real number that the lexer classified as an
// integer, or an indirect reference "num gen R".
func (p *Parser) parseNumber() (Object, error) {
	first := string(p.currentToken.Value)
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(first, 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid number %q", first)
		}
		p.nextToken()
		return Real(f), nil
	}

	if p.peekToken != nil && p.peekToken.Type == TokenInteger {
		gen, err := strconv.ParseInt(string(p.peekToken.Value), 10, 64)
		if err == nil {
			p.nextToken() // current is now the generation number
			if p.peekToken != nil && p.peekToken.Type == TokenIndirectRef {
				p.nextToken()
				p.nextToken()
				return IndirectRef{Number: int(n), Generation: int(gen)}, nil
			}
			// Not a reference: the second integer stays current.
			return Int(n), nil
		}
	}

	p.nextToken()
	return Int(n), nil
}

// parseArray parses "[obj1 obj2 ...]".
func (p *Parser) parseArray() (Object, error) {
	p.nextToken() // [

	arr := Array{}
	for {
		p.skipComments()
		if p.currentToken == nil {
			return nil, p.endOfInput("array")
		}
		switch p.currentToken.Type {
		case TokenArrayEnd:
			p.nextToken()
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in array")
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

// parseDict parses "<< /Key value ... >>".
func (p *Parser) parseDict() (Object, error) {
	p.nextToken() // <<

	dict := make(Dict)
	for {
		p.skipComments()
		if p.currentToken == nil {
			return nil, p.endOfInput("dictionary")
		}
		switch p.currentToken.Type {
		case TokenDictEnd:
			p.nextToken()
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in dictionary")
		case TokenName:
		default:
			return nil, fmt.Errorf("expected name for dictionary key, got %q at position %d",
				p.currentToken.Value, p.currentToken.Pos)
		}

		key := string(p.currentToken.Value)
		p.nextToken()

		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing dictionary value for key '%s': %w", key, err)
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses "num gen obj <object> endobj", where the object
// may be a dictionary followed by stream data.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	p.skipComments()

	num, err := p.expectInteger("object number")
	if err != nil {
		return nil, err
	}
	gen, err := p.expectInteger("generation number")
	if err != nil {
		return nil, err
	}
	if !p.currentToken.isKeyword("obj") {
		return nil, fmt.Errorf("expected 'obj' keyword for object %d", num)
	}
	p.nextToken()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("error parsing indirect object value: %w", err)
	}

	if p.currentToken.isKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream must follow a dictionary")
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("error parsing stream: %w", err)
		}
		obj = stream
	}

	if p.currentToken.isKeyword("endobj") {
		p.nextToken()
	} else if !p.lenient {
		return nil, fmt.Errorf("expected 'endobj' keyword for object %d", num)
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen},
		Object: obj,
	}, nil
}

func (p *Parser) expectInteger(what string) (int, error) {
	if p.currentToken == nil {
		return 0, p.endOfInput(what)
	}
	if p.currentToken.Type != TokenInteger {
		return 0, fmt.Errorf("expected %s, got %q", what, p.currentToken.Value)
	}
	n, err := strconv.Atoi(string(p.currentToken.Value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", what, err)
	}
	p.nextToken()
	return n, nil
}

var endstreamKeyword = []byte("endstream")

// parseStream reads the binary data that follows the stream keyword. The
// lexer is positioned right after the keyword when this is called.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, fmt.Errorf("failed to skip EOL after stream keyword: %w", err)
	}

	var (
		data        []byte
		consumedEnd bool
	)
	length, lerr := p.streamLength(dict)
	switch {
	case lerr == nil:
		read, err := p.lexer.ReadBytes(length)
		if err == nil && p.lexer.KeywordAhead("endstream") {
			data = read
			break
		}
		if !p.lenient {
			if err != nil {
				return nil, fmt.Errorf("failed to read stream data: %w", err)
			}
			return nil, fmt.Errorf("stream data of /Length %d is not followed by 'endstream'", length)
		}
		data, consumedEnd = p.recoverStreamData(read)
	case p.lenient:
		data, consumedEnd = p.recoverStreamData(nil)
	default:
		return nil, lerr
	}

	// Reload the lookahead window past the binary data.
	p.currentToken, p.peekToken = nil, nil
	p.nextToken()
	p.nextToken()
	if p.currentToken.isKeyword("endstream") {
		p.nextToken()
	} else if !consumedEnd && !p.lenient {
		return nil, fmt.Errorf("expected 'endstream' keyword")
	}

	return &Stream{Dict: dict, Data: data}, nil
}

// recoverStreamData finds the real end of a stream whose declared length was
// wrong. read holds the bytes already consumed using the declared length. The
// endstream keyword is consumed unless the input ended first.
func (p *Parser) recoverStreamData(read []byte) ([]byte, bool) {
	if idx := bytes.Index(read, endstreamKeyword); idx >= 0 {
		// Declared length overshot; bytes after endstream are dropped and the
		// caller tolerates a missing endobj.
		return trimTrailingEOL(read[:idx]), true
	}
	rest, err := p.lexer.ReadUntil(endstreamKeyword)
	data := append(read, rest...)
	return trimTrailingEOL(data), err == nil
}

// trimTrailingEOL removes the single EOL marker that precedes endstream
func trimTrailingEOL(data []byte) []byte {
	switch {
	case bytes.HasSuffix(data, []byte("\r\n")):
		return data[:len(data)-2]
	case bytes.HasSuffix(data, []byte("\n")), bytes.HasSuffix(data, []byte("\r")):
		return data[:len(data)-1]
	}
	return data
}

// streamLength resolves the /Length entry of a stream dictionary
func (p *Parser) streamLength(dict Dict) (int, error) {
	lengthObj := dict.Get("Length")
	if lengthObj == nil {
		return 0, fmt.Errorf("stream dictionary missing 'Length' entry")
	}

	if ref, ok := lengthObj.(IndirectRef); ok {
		if p.resolver == nil {
			return 0, fmt.Errorf("indirect stream length %s requires a reference resolver", ref)
		}
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve stream length reference: %w", err)
		}
		lengthObj = resolved
	}

	length, ok := lengthObj.(Int)
	if !ok {
		return 0, fmt.Errorf("invalid type for stream length: %T", lengthObj)
	}
	if length < 0 {
		return 0, fmt.Errorf("invalid stream length: %d", length)
	}
	return int(length), nil
}
