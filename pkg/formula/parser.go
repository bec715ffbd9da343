package formula

import (
	"fmt"
)

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"import": true, "in": true, "instanceof": true, "let": true, "new": true,
	"null": true, "return": true, "super": true, "switch": true, "this": true,
	"throw": true, "true": true, "try": true, "typeof": true, "var": true,
	"void": true, "while": true, "with": true, "yield": true, "await": true,
	"static": true, "implements": true, "interface": true, "package": true,
	"private": true, "protected": true, "public": true,
}

// IsIdentifier reports whether name can be used as a formula parameter or a
// local binding.
func IsIdentifier(name string) bool {
	toks, err := lex(name)
	if err != nil || len(toks) != 2 {
		return false
	}
	return toks[0].kind == tokIdent && !reservedWords[toks[0].text]
}

// maxNesting bounds how deeply statements and expressions may nest.
const maxNesting = 256

type parser struct {
	toks []token
	i    int
	// closing maps the index of each '(' to its matching ')', or -1.
	closing []int
	depth   int
}

func matchParens(toks []token) []int {
	closing := make([]int, len(toks))
	var open []int
	for i, t := range toks {
		closing[i] = -1
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(":
			open = append(open, i)
		case ")":
			if n := len(open); n > 0 {
				closing[open[n-1]] = i
				open = open[:n-1]
			}
		}
	}
	return closing
}

func parse(src string) (*blockStmt, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, closing: matchParens(toks)}

	body := &blockStmt{pos: Pos{Line: 1, Col: 1}}
	for p.tok().kind != tokEOF {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if s != nil {
			body.stmts = append(body.stmts, s)
		}
	}
	return body, nil
}

// enter records one more level of nesting. Callers defer leave right away.
func (p *parser) enter() error {
	p.depth++
	if p.depth > maxNesting {
		return p.errorf(p.tok().pos, "formula is nested more than %d levels deep", maxNesting)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) tok() token {
	return p.toks[p.i]
}

func (p *parser) peekTok(n int) token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) is(punct string) bool {
	t := p.tok()
	return t.kind == tokPunct && t.text == punct
}

func (p *parser) isKeyword(kw string) bool {
	t := p.tok()
	return t.kind == tokIdent && t.text == kw
}

func (p *parser) errorf(pos Pos, format string, args ...any) error {
	return &CompileError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected() error {
	t := p.tok()
	return p.errorf(t.pos, "unexpected %s", t.describe())
}

func (p *parser) expect(punct string) (token, error) {
	if !p.is(punct) {
		t := p.tok()
		return t, p.errorf(t.pos, "expected '%s' but found %s", punct, t.describe())
	}
	return p.next(), nil
}

func (p *parser) ident() (token, error) {
	t := p.tok()
	if t.kind != tokIdent {
		return t, p.errorf(t.pos, "expected identifier but found %s", t.describe())
	}
	if reservedWords[t.text] {
		return t, p.errorf(t.pos, "unexpected reserved word '%s'", t.text)
	}
	return p.next(), nil
}

// endStmt consumes the optional semicolon ending a simple statement. A line
// break, a closing brace or the end of the formula terminate a statement too.
func (p *parser) endStmt() error {
	if p.is(";") {
		p.next()
		return nil
	}
	t := p.tok()
	if t.kind == tokEOF || t.nl || p.is("}") {
		return nil
	}
	return p.unexpected()
}

func (p *parser) parseStmt() (stmt, error) {
	err := p.enter()
	defer p.leave()
	if err != nil {
		return nil, err
	}

	t := p.tok()

	if p.is(";") {
		p.next()
		return nil, nil
	}
	if p.is("{") {
		return p.parseBlock()
	}

	if t.kind == tokIdent {
		switch t.text {
		case "const", "let", "var":
			s, err := p.parseDecl()
			if err != nil {
				return nil, err
			}
			return s, p.endStmt()
		case "if":
			return p.parseIf()
		case "return":
			s, err := p.parseReturn()
			if err != nil {
				return nil, err
			}
			return s, p.endStmt()
		case "for", "while", "do", "function", "switch", "class", "throw", "try",
			"break", "continue", "import", "export", "with", "debugger":
			return nil, p.errorf(t.pos, "'%s' statements are not supported in formulas", t.text)
		}
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &exprStmt{x: x}, p.endStmt()
}

func (p *parser) parseBlock() (*blockStmt, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	b := &blockStmt{pos: open.pos}
	for !p.is("}") {
		if p.tok().kind == tokEOF {
			return nil, p.errorf(open.pos, "unterminated block")
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if s != nil {
			b.stmts = append(b.stmts, s)
		}
	}
	p.next()
	return b, nil
}

func (p *parser) parseDecl() (*declStmt, error) {
	kw := p.next()
	d := &declStmt{kind: declKind(kw.text), pos: kw.pos}
	for {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		dc := declarator{name: name.text, pos: name.pos}
		if p.is("=") {
			p.next()
			dc.init, err = p.parseAssign()
			if err != nil {
				return nil, err
			}
		} else if d.kind == declConst {
			return nil, p.errorf(name.pos, "missing initializer in const declaration")
		}
		d.decls = append(d.decls, dc)

		if !p.is(",") {
			return d, nil
		}
		p.next()
	}
}

func (p *parser) parseIf() (*ifStmt, error) {
	kw := p.next()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	s := &ifStmt{cond: cond, pos: kw.pos}
	if s.then, err = p.parseBranch(); err != nil {
		return nil, err
	}
	if p.isKeyword("else") {
		p.next()
		if s.els, err = p.parseBranch(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) parseBranch() (stmt, error) {
	t := p.tok()
	if t.kind == tokIdent && (t.text == "const" || t.text == "let") {
		return nil, p.errorf(t.pos, "lexical declaration cannot appear in a single-statement context")
	}
	s, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &blockStmt{pos: t.pos}
	}
	return s, nil
}

func (p *parser) parseReturn() (*returnStmt, error) {
	kw := p.next()
	s := &returnStmt{pos: kw.pos}

	t := p.tok()
	if t.kind == tokEOF || t.nl || p.is(";") || p.is("}") {
		return s, nil
	}
	var err error
	s.value, err = p.parseExpr()
	return s, err
}

func (p *parser) parseExpr() (expr, error) {
	x, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if p.is(",") {
		return nil, p.errorf(p.tok().pos, "the comma operator is not supported")
	}
	return x, nil
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "**=": true,
}

func (p *parser) parseAssign() (expr, error) {
	err := p.enter()
	defer p.leave()
	if err != nil {
		return nil, err
	}

	if p.isArrowStart() {
		return p.parseArrow()
	}

	t := p.tok()
	if t.kind == tokIdent {
		op := p.peekTok(1)
		if op.kind == tokPunct && assignOps[op.text] {
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			p.next()
			value, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			return &assignExpr{name: name.text, op: op.text, value: value, pos: op.pos}, nil
		}
	}

	x, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.tok().kind == tokPunct && assignOps[p.tok().text] {
		return nil, p.errorf(p.tok().pos, "invalid left-hand side in assignment")
	}
	return x, nil
}

// isArrowStart looks ahead for `x =>` or `( ... ) =>`.
func (p *parser) isArrowStart() bool {
	t := p.tok()
	if t.kind == tokIdent {
		n := p.peekTok(1)
		return n.kind == tokPunct && n.text == "=>"
	}
	if !p.is("(") {
		return false
	}
	j := p.closing[p.i]
	if j < 0 {
		return false
	}
	n := p.toks[j+1]
	return n.kind == tokPunct && n.text == "=>" && !n.nl
}

func (p *parser) parseArrow() (expr, error) {
	start := p.tok()
	fn := &arrowFunc{pos: start.pos}

	if start.kind == tokIdent {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		fn.params = []string{name.text}
	} else {
		p.next()
		for !p.is(")") {
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			fn.params = append(fn.params, name.text)
			if p.is(",") {
				p.next()
				continue
			}
			if !p.is(")") {
				return nil, p.unexpected()
			}
		}
		p.next()
	}
	if _, err := p.expect("=>"); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, name := range fn.params {
		if seen[name] {
			return nil, p.errorf(start.pos, "duplicate parameter name '%s'", name)
		}
		seen[name] = true
	}

	var err error
	if p.is("{") {
		fn.body, err = p.parseBlock()
	} else {
		fn.value, err = p.parseAssign()
	}
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *parser) parseConditional() (expr, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.is("?") {
		return cond, nil
	}
	q := p.next()
	a, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	b, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &condExpr{cond: cond, a: a, b: b, pos: q.pos}, nil
}

// Binary operator precedence, lowest first. ** is handled by parseExponent.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"==", "!=", "===", "!=="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) matchLevel(level int) (token, bool) {
	t := p.tok()
	if t.kind != tokPunct {
		return t, false
	}
	for _, op := range binaryLevels[level] {
		if t.text == op {
			return t, true
		}
	}
	return t, false
}

func (p *parser) parseBinary(level int) (expr, error) {
	if level == len(binaryLevels) {
		return p.parseExponent()
	}
	l, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchLevel(level)
		if !ok {
			return l, nil
		}
		p.next()
		r, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		if op.text == "||" || op.text == "&&" {
			l = &logicalExpr{op: op.text, l: l, r: r, pos: op.pos}
		} else {
			l = &binaryExpr{op: op.text, l: l, r: r, pos: op.pos}
		}
	}
}

func (p *parser) parseExponent() (expr, error) {
	unary := p.is("-") || p.is("+") || p.is("!")
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.is("**") {
		return base, nil
	}
	if unary {
		return nil, p.errorf(p.tok().pos, "unary operator used immediately before exponentiation expression; use parentheses")
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	op := p.next()
	exp, err := p.parseExponent()
	if err != nil {
		return nil, err
	}
	return &binaryExpr{op: "**", l: base, r: exp, pos: op.pos}, nil
}

func (p *parser) parseUnary() (expr, error) {
	t := p.tok()
	if t.kind == tokPunct && (t.text == "-" || t.text == "+" || t.text == "!") {
		err := p.enter()
		defer p.leave()
		if err != nil {
			return nil, err
		}
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: t.text, x: x, pos: t.pos}, nil
	}
	if t.kind == tokIdent && (t.text == "typeof" || t.text == "void" || t.text == "delete" || t.text == "new") {
		return nil, p.errorf(t.pos, "'%s' is not supported in formulas", t.text)
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.is("."):
			p.next()
			name := p.tok()
			if name.kind != tokIdent {
				return nil, p.errorf(name.pos, "expected property name but found %s", name.describe())
			}
			p.next()
			x = &memberExpr{x: x, name: name.text, pos: name.pos}
		case p.is("(") && !p.tok().nl:
			open := p.next()
			call := &callExpr{fn: x, pos: open.pos}
			for !p.is(")") {
				arg, err := p.parseAssign()
				if err != nil {
					return nil, err
				}
				call.args = append(call.args, arg)
				if p.is(",") {
					p.next()
					continue
				}
				if !p.is(")") {
					return nil, p.unexpected()
				}
			}
			p.next()
			x = call
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (expr, error) {
	t := p.tok()
	switch t.kind {
	case tokNumber:
		p.next()
		return &numberLit{v: t.num, pos: t.pos}, nil
	case tokString:
		p.next()
		return &stringLit{v: t.text, pos: t.pos}, nil
	case tokIdent:
		switch t.text {
		case "true", "false":
			p.next()
			return &boolLit{v: t.text == "true", pos: t.pos}, nil
		case "null":
			return nil, p.errorf(t.pos, "'null' is not supported in formulas; use undefined")
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		return &identExpr{name: name.text, pos: name.pos}, nil
	case tokPunct:
		if t.text == "(" {
			p.next()
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	}
	return nil, p.unexpected()
}
