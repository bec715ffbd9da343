package formula

type node interface {
	position() Pos
}

type stmt interface {
	node
	stmtNode()
}

type expr interface {
	node
	exprNode()
}

type declKind string

const (
	declConst declKind = "const"
	declLet   declKind = "let"
	declVar   declKind = "var"
)

type declarator struct {
	name string
	init expr // nil means undefined
	pos  Pos
}

type declStmt struct {
	kind  declKind
	decls []declarator
	pos   Pos
}

type ifStmt struct {
	cond expr
	then stmt
	els  stmt // may be nil
	pos  Pos
}

type blockStmt struct {
	stmts []stmt
	pos   Pos
}

type returnStmt struct {
	value expr // nil returns undefined
	pos   Pos
}

type exprStmt struct {
	x expr
}

type (
	numberLit struct {
		v   float64
		pos Pos
	}
	stringLit struct {
		v   string
		pos Pos
	}
	boolLit struct {
		v   bool
		pos Pos
	}
	identExpr struct {
		name string
		pos  Pos
	}
	unaryExpr struct {
		op  string
		x   expr
		pos Pos
	}
	binaryExpr struct {
		op   string
		l, r expr
		pos  Pos
	}
	// logicalExpr short-circuits and yields one of its operands.
	logicalExpr struct {
		op   string
		l, r expr
		pos  Pos
	}
	condExpr struct {
		cond, a, b expr
		pos        Pos
	}
	callExpr struct {
		fn   expr
		args []expr
		pos  Pos
	}
	memberExpr struct {
		x    expr
		name string
		pos  Pos
	}
	assignExpr struct {
		name  string
		op    string // "=", "+=", ...
		value expr
		pos   Pos
	}
	arrowFunc struct {
		params []string
		// Exactly one of body and value is set.
		body  *blockStmt
		value expr
		pos   Pos
	}
)

func (s *declStmt) position() Pos   { return s.pos }
func (s *ifStmt) position() Pos     { return s.pos }
func (s *blockStmt) position() Pos  { return s.pos }
func (s *returnStmt) position() Pos { return s.pos }
func (s *exprStmt) position() Pos   { return s.x.position() }

func (*declStmt) stmtNode()   {}
func (*ifStmt) stmtNode()     {}
func (*blockStmt) stmtNode()  {}
func (*returnStmt) stmtNode() {}
func (*exprStmt) stmtNode()   {}

func (e *numberLit) position() Pos   { return e.pos }
func (e *stringLit) position() Pos   { return e.pos }
func (e *boolLit) position() Pos     { return e.pos }
func (e *identExpr) position() Pos   { return e.pos }
func (e *unaryExpr) position() Pos   { return e.pos }
func (e *binaryExpr) position() Pos  { return e.pos }
func (e *logicalExpr) position() Pos { return e.pos }
func (e *condExpr) position() Pos    { return e.pos }
func (e *callExpr) position() Pos    { return e.pos }
func (e *memberExpr) position() Pos  { return e.pos }
func (e *assignExpr) position() Pos  { return e.pos }
func (e *arrowFunc) position() Pos   { return e.pos }

func (*numberLit) exprNode()   {}
func (*stringLit) exprNode()   {}
func (*boolLit) exprNode()     {}
func (*identExpr) exprNode()   {}
func (*unaryExpr) exprNode()   {}
func (*binaryExpr) exprNode()  {}
func (*logicalExpr) exprNode() {}
func (*condExpr) exprNode()    {}
func (*callExpr) exprNode()    {}
func (*memberExpr) exprNode()  {}
func (*assignExpr) exprNode()  {}
func (*arrowFunc) exprNode()   {}
