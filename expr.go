package dbgraph

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// exprLexer tokenizes computed-node expressions such as "(paste first (union a b))".
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Ident", Pattern: `[^ \t\r\n()]+`},
})

var exprParser = participle.MustBuild[Expr](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
)

// Expr is either a field reference or a function applied to sub-expressions.
type Expr struct {
	Pos lexer.Position

	Call  *Call  `  "(" @@ ")"`
	Ident string `| @Ident`
}

// Call applies a function tag to its arguments.
type Call struct {
	Fn   string  `@Ident`
	Args []*Expr `@@*`
}

// ParseExpr parses a field name or a parenthesised computed-node expression.
func ParseExpr(s string) (*Expr, error) {
	e, err := exprParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidExpression, s, err)
	}

	return e, nil
}

// Normalize returns the canonical node name for an expression, collapsing
// whitespace so it matches the name AddComputedNode derives.
func Normalize(s string) (string, error) {
	e, err := ParseExpr(s)
	if err != nil {
		return "", err
	}

	return e.String(), nil
}

// String returns the canonical name of the expression.
func (e *Expr) String() string {
	if e.Call == nil {
		return e.Ident
	}

	args := make([]string, len(e.Call.Args))
	for i, a := range e.Call.Args {
		args[i] = a.String()
	}

	return ComputedName(e.Call.Fn, args)
}

// Leaves returns the field references at the bottom of the expression, left to right.
func (e *Expr) Leaves() []string {
	if e.Call == nil {
		return []string{e.Ident}
	}

	var out []string
	for _, a := range e.Call.Args {
		out = append(out, a.Leaves()...)
	}

	return out
}

// Define declares every computed node in expr, innermost first, and returns the
// canonical name of the outermost one. A bare field name must already exist.
// Everything is checked before the first node is created.
func (db *Database) Define(expr string) (string, error) {
	e, err := ParseExpr(expr)
	if err != nil {
		return "", db.reject(err)
	}

	if err := db.checkExpr(e); err != nil {
		return "", db.reject(err)
	}

	return db.defineExpr(e)
}

// DefineAll is Define over several expressions. Every expression is parsed and
// checked before any node is created, so a failure leaves the graph unchanged.
// The returned names are in input order.
func (db *Database) DefineAll(exprs []string) ([]string, error) {
	parsed := make([]*Expr, len(exprs))

	for i, expr := range exprs {
		e, err := ParseExpr(expr)
		if err != nil {
			return nil, db.reject(err)
		}

		if err := db.checkExpr(e); err != nil {
			return nil, db.reject(err)
		}

		parsed[i] = e
	}

	out := make([]string, len(parsed))

	for i, e := range parsed {
		name, err := db.defineExpr(e)
		if err != nil {
			return nil, err
		}

		out[i] = name
	}

	return out, nil
}

func (db *Database) checkExpr(e *Expr) error {
	if e.Call == nil {
		if _, ok := db.fields[e.Ident]; !ok {
			return fmt.Errorf("%w: field %q", ErrNotFound, e.Ident)
		}

		return nil
	}

	if len(e.Call.Args) == 0 {
		return fmt.Errorf("%w: computed node %q has no inputs", ErrValidation, e.Call.Fn)
	}

	if n, ok := db.fields[e.String()]; ok && !n.kind.IsComputed() {
		return fmt.Errorf("%w: %q is already a plain field", ErrValidation, e.String())
	}

	for _, a := range e.Call.Args {
		if err := db.checkExpr(a); err != nil {
			return err
		}
	}

	return nil
}

func (db *Database) defineExpr(e *Expr) (string, error) {
	if e.Call == nil {
		return e.Ident, nil
	}

	args := make([]string, len(e.Call.Args))

	for i, a := range e.Call.Args {
		name, err := db.defineExpr(a)
		if err != nil {
			return "", err
		}

		args[i] = name
	}

	return db.AddComputedNode(e.Call.Fn, args)
}
