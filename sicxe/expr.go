package sicxe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shepheb/psec"
)

// Expr is an EQU/ORG expression AST node. Unlike the teacher's
// core.Expression (which evaluates against a whole-file AssemblyState),
// Expr evaluates against a simple symbol lookup function and the current
// LOCCTR, which is all Pass 1 has on hand when it evaluates EQU/ORG inline.
type Expr interface {
	Eval(lookup SymbolLookup, curLoc int) (int, error)
}

// SymbolLookup resolves a name to its current value within the control
// section evaluating the expression.
type SymbolLookup func(name string) (int, bool)

// constExpr is a literal numeric value.
type constExpr struct{ v int }

func (c constExpr) Eval(SymbolLookup, int) (int, error) { return c.v, nil }

// starExpr is '*', the current LOCCTR.
type starExpr struct{}

func (starExpr) Eval(_ SymbolLookup, curLoc int) (int, error) { return curLoc, nil }

// symExpr is a bare symbol reference.
type symExpr struct{ name string }

func (s symExpr) Eval(lookup SymbolLookup, _ int) (int, error) {
	v, ok := lookup(s.name)
	if !ok {
		return 0, fmt.Errorf("undefined symbol %q", s.name)
	}
	return v, nil
}

// binExpr is lhs OP rhs, where OP is '+' or '-' or '*' or '/'.
type binExpr struct {
	lhs, rhs Expr
	op       byte
}

func (b binExpr) Eval(lookup SymbolLookup, curLoc int) (int, error) {
	l, err := b.lhs.Eval(lookup, curLoc)
	if err != nil {
		return 0, err
	}
	r, err := b.rhs.Eval(lookup, curLoc)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unknown operator %q", b.op)
}

var exprGrammar = buildExprGrammar()

func buildExprGrammar() *psec.Grammar {
	g := psec.NewGrammar()

	g.AddSymbol("ws", psec.ManyDrop(psec.OneOf(" \t")))

	g.AddSymbol("letterish",
		psec.Alt(psec.OneOf("$_@"), psec.Range('a', 'z'), psec.Range('A', 'Z')))
	g.WithAction("identifier",
		psec.Stringify(psec.Seq(sym("letterish"),
			psec.Many(psec.Alt(psec.Range('0', '9'), sym("letterish"))))),
		func(r interface{}, loc *psec.Loc) (interface{}, error) {
			return symExpr{name: r.(string)}, nil
		})

	g.WithAction("number", psec.Stringify(psec.Many1(psec.Range('0', '9'))),
		func(r interface{}, loc *psec.Loc) (interface{}, error) {
			n, err := strconv.Atoi(r.(string))
			if err != nil {
				return nil, err
			}
			return constExpr{v: n}, nil
		})

	g.WithAction("star", psec.Literal("*"),
		func(r interface{}, loc *psec.Loc) (interface{}, error) {
			return starExpr{}, nil
		})

	g.AddSymbol("term", psec.Alt(sym("star"), sym("number"), sym("identifier")))

	g.WithAction("op", psec.OneOf("+-*/"),
		func(r interface{}, loc *psec.Loc) (interface{}, error) {
			return r.(byte), nil
		})

	// Single binary level: term (op term)* -- spec.md's EQU restriction of
	// "at most one level" and ORG's general arithmetic are both satisfied by
	// this left-associative chain; ParseEquExpr rejects a second operator
	// itself (see countTopLevelOps below) since the grammar alone can't
	// distinguish the two call sites.
	g.WithAction("expr",
		psec.Seq(sym("ws"), sym("term"), sym("ws"),
			psec.Many(psec.Seq(sym("op"), sym("ws"), sym("term"), sym("ws")))),
		func(r interface{}, loc *psec.Loc) (interface{}, error) {
			rs := r.([]interface{})
			expr := rs[1].(Expr)
			tail := rs[3].([]interface{})
			for _, chunk := range tail {
				seq := chunk.([]interface{})
				op := seq[0].(byte)
				rhs := seq[2].(Expr)
				expr = binExpr{lhs: expr, op: op, rhs: rhs}
			}
			return expr, nil
		})

	return g
}

func sym(name string) psec.Parser { return psec.Symbol(name) }

// ParseExpr parses an ORG operand or a general arithmetic expression.
func ParseExpr(text string) (Expr, error) {
	r, err := exprGrammar.ParseStringWith("expr", text, "expr")
	if err != nil {
		return nil, err
	}
	return r.(Expr), nil
}

// ParseEquExpr parses an EQU operand, which per spec.md §4.4/§9 may contain
// at most one binary operator.
func ParseEquExpr(text string) (Expr, error) {
	if ops := countTopLevelOps(text); ops > 1 {
		return nil, fmt.Errorf("EQU expressions support at most one operator, got %d", ops)
	}
	return ParseExpr(text)
}

// countTopLevelOps is a rough heuristic: it counts +/-/*// characters that
// aren't the leading sign of the whole expression. Good enough to reject
// "A+B+C" while accepting "A+B", "-A" and "*".
func countTopLevelOps(text string) int {
	text = strings.TrimSpace(text)
	count := 0
	for i, c := range text {
		if i == 0 {
			continue
		}
		if c == '+' || c == '-' || c == '*' || c == '/' {
			count++
		}
	}
	return count
}

var literalGrammar = buildLiteralGrammar()

// buildLiteralGrammar recognizes a C'...' or X'...' constant body, the same
// hex-digit-set and Stringify-the-run shape the teacher's "hex literal"
// symbol uses for 0x... constants (core/expressions.go), generalized to
// SIC/XE's closing-quote-delimited C/X constants instead of a fixed-length
// numeric prefix.
func buildLiteralGrammar() *psec.Grammar {
	g := psec.NewGrammar()

	g.AddSymbol("hexDigit", psec.Alt(psec.Range('0', '9'), psec.Range('a', 'f'), psec.Range('A', 'F')))

	g.WithAction("cLiteral",
		psec.Seq(psec.OneOf("Cc"), psec.Literal("'"), psec.Stringify(psec.Many(psec.NoneOf("'"))), psec.Literal("'")),
		func(r interface{}, loc *psec.Loc) (interface{}, error) {
			rs := r.([]interface{})
			return []byte(rs[2].(string)), nil
		})

	g.WithAction("xLiteral",
		psec.Seq(psec.OneOf("Xx"), psec.Literal("'"), psec.Stringify(psec.Many(sym("hexDigit"))), psec.Literal("'")),
		func(r interface{}, loc *psec.Loc) (interface{}, error) {
			rs := r.([]interface{})
			body := rs[2].(string)
			if len(body)%2 != 0 {
				return nil, fmt.Errorf("hex constant has an odd digit count")
			}
			out := make([]byte, len(body)/2)
			for i := range out {
				b, err := strconv.ParseUint(body[i*2:i*2+2], 16, 8)
				if err != nil {
					return nil, err
				}
				out[i] = byte(b)
			}
			return out, nil
		})

	g.AddSymbol("constant", psec.Alt(sym("cLiteral"), sym("xLiteral")))

	return g
}

// DecodeConstant decodes a C'...' or X'...' constant body (used by BYTE and
// by literal operands) into its raw bytes, per spec.md §6.2.
func DecodeConstant(text string) ([]byte, error) {
	r, err := literalGrammar.ParseStringWith("constant", text, "constant")
	if err != nil {
		return nil, fmt.Errorf("constant %q: %v", text, err)
	}
	return r.([]byte), nil
}

// WordBytes encodes an integer operand to WORD's 3-byte big-endian form.
func WordBytes(v int) []byte {
	u := uint32(v) & 0xFFFFFF
	return []byte{byte(u >> 16), byte(u >> 8), byte(u)}
}
