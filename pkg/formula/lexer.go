package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pos is a 1-based line and column inside a formula body.
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of formula"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	// text is the identifier name, the punctuator, or the decoded string
	// literal.
	text string
	num  float64
	pos  Pos
	// nl is set when at least one line break separates this token from the
	// previous one.
	nl bool
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of formula"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return "'" + t.text + "'"
	}
}

// Longest punctuators first.
var punctuators = []string{
	"===", "!==", "**=",
	"**", "==", "!=", "<=", ">=", "&&", "||", "=>", "+=", "-=", "*=", "/=", "%=",
	"+", "-", "*", "/", "%", "<", ">", "=", "!", "(", ")", "{", "}", ",", ";", ".", "?", ":",
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	var toks []token
	for {
		nl, err := l.skipSpace()
		if err != nil {
			return nil, err
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tok.nl = nl
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) pos() Pos {
	return Pos{Line: l.line, Col: l.col}
}

func (l *lexer) errorf(p Pos, format string, args ...any) error {
	return &CompileError{Pos: p, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peek(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// skipSpace consumes whitespace and comments and reports whether a line break
// was crossed.
func (l *lexer) skipSpace() (bool, error) {
	nl := false
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == '\n':
			nl = true
			l.advance()
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.advance()
		case c == '/' && l.peek(1) == '/':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance()
			}
		case c == '/' && l.peek(1) == '*':
			start := l.pos()
			l.advance()
			l.advance()
			closed := false
			for l.off < len(l.src) {
				if l.src[l.off] == '*' && l.peek(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				if l.advance() == '\n' {
					nl = true
				}
			}
			if !closed {
				return nl, l.errorf(start, "unterminated comment")
			}
		default:
			r, _ := utf8.DecodeRuneInString(l.src[l.off:])
			if r == '\u2028' || r == '\u2029' {
				nl = true
				l.advance()
				continue
			}
			if r == '\ufeff' || unicode.Is(unicode.Zs, r) {
				l.advance()
				continue
			}
			return nl, nil
		}
	}
	return nl, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (l *lexer) next() (token, error) {
	p := l.pos()
	if l.off >= len(l.src) {
		return token{kind: tokEOF, pos: p}, nil
	}

	c := l.src[l.off]
	r, _ := utf8.DecodeRuneInString(l.src[l.off:])

	switch {
	case isIdentStart(r):
		start := l.off
		for l.off < len(l.src) {
			r, _ := utf8.DecodeRuneInString(l.src[l.off:])
			if !isIdentPart(r) {
				break
			}
			l.advance()
		}
		return token{kind: tokIdent, text: l.src[start:l.off], pos: p}, nil
	case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
		return l.number(p)
	case c == '"' || c == '\'':
		return l.str(p, c)
	case c == '`':
		return token{}, l.errorf(p, "template literals are not supported")
	}

	for _, punct := range punctuators {
		if strings.HasPrefix(l.src[l.off:], punct) {
			for range punct {
				l.advance()
			}
			return token{kind: tokPunct, text: punct, pos: p}, nil
		}
	}

	return token{}, l.errorf(p, "unexpected character %q", r)
}

func (l *lexer) number(p Pos) (token, error) {
	start := l.off
	for l.off < len(l.src) && isDigit(l.src[l.off]) {
		l.advance()
	}
	if l.off < len(l.src) && l.src[l.off] == '.' {
		l.advance()
		for l.off < len(l.src) && isDigit(l.src[l.off]) {
			l.advance()
		}
	}
	if l.off < len(l.src) && (l.src[l.off] == 'e' || l.src[l.off] == 'E') {
		save, saveLine, saveCol := l.off, l.line, l.col
		l.advance()
		if l.off < len(l.src) && (l.src[l.off] == '+' || l.src[l.off] == '-') {
			l.advance()
		}
		if l.off >= len(l.src) || !isDigit(l.src[l.off]) {
			l.off, l.line, l.col = save, saveLine, saveCol
			return token{}, l.errorf(p, "malformed number exponent")
		}
		for l.off < len(l.src) && isDigit(l.src[l.off]) {
			l.advance()
		}
	}

	text := l.src[start:l.off]
	if l.off < len(l.src) {
		r, _ := utf8.DecodeRuneInString(l.src[l.off:])
		if isIdentStart(r) {
			return token{}, l.errorf(p, "invalid or unexpected token after number %s", text)
		}
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// Out of range literals overflow to Infinity like any float64.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return token{}, l.errorf(p, "invalid number %s", text)
		}
	}
	return token{kind: tokNumber, text: text, num: v, pos: p}, nil
}

func (l *lexer) str(p Pos, quote byte) (token, error) {
	l.advance()
	var sb strings.Builder
	for {
		if l.off >= len(l.src) {
			return token{}, l.errorf(p, "unterminated string")
		}
		c := l.src[l.off]
		if c == quote {
			l.advance()
			return token{kind: tokString, text: sb.String(), pos: p}, nil
		}
		if c == '\n' {
			return token{}, l.errorf(p, "unterminated string")
		}
		if c != '\\' {
			sb.WriteRune(l.advance())
			continue
		}

		l.advance()
		if l.off >= len(l.src) {
			return token{}, l.errorf(p, "unterminated string")
		}
		esc := l.advance()
		switch esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\n':
			// Line continuation.
		case 'u':
			if l.off+4 > len(l.src) {
				return token{}, l.errorf(p, "invalid unicode escape")
			}
			n, err := strconv.ParseUint(l.src[l.off:l.off+4], 16, 32)
			if err != nil {
				return token{}, l.errorf(p, "invalid unicode escape")
			}
			for i := 0; i < 4; i++ {
				l.advance()
			}
			sb.WriteRune(rune(n))
		default:
			sb.WriteRune(esc)
		}
	}
}
