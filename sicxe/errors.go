package sicxe

import "fmt"

// Pos is the source position carried by every error this package returns.
// Line is the 1-based line number in the source file; non-blank lines
// produced by a macro expansion carry the invocation line's number. The
// listing numbers the expanded line stream instead, so the two agree only
// for source without macros.
type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// PosError is implemented by every error kind this package produces, so
// callers can sort or group a collected []error by source position.
type PosError interface {
	error
	Position() Pos
}

// ParseError reports a source line that could not be decomposed into
// label/mnemonic/operand fields.
type ParseError struct {
	Pos  Pos
	Text string
	Msg  string
}

func (e *ParseError) Position() Pos { return e.Pos }
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %s (in %q)", e.Pos, e.Msg, e.Text)
}

// UnknownMnemonic reports a token in opcode position that is neither an
// opcode, a directive, nor a defined macro.
type UnknownMnemonic struct {
	Pos      Pos
	Mnemonic string
}

func (e *UnknownMnemonic) Position() Pos { return e.Pos }
func (e *UnknownMnemonic) Error() string {
	return fmt.Sprintf("%s: unknown mnemonic %q", e.Pos, e.Mnemonic)
}

// DuplicateSymbol reports a label already present in the current control
// section's symbol table.
type DuplicateSymbol struct {
	Pos     Pos
	Symbol  string
	Section string
}

func (e *DuplicateSymbol) Position() Pos { return e.Pos }
func (e *DuplicateSymbol) Error() string {
	return fmt.Sprintf("%s: symbol %q redeclared in section %q", e.Pos, e.Symbol, e.Section)
}

// UndefinedSymbol reports an operand referencing a name not declared in the
// current control section and not listed as EXTREF.
type UndefinedSymbol struct {
	Pos     Pos
	Symbol  string
	Section string
}

func (e *UndefinedSymbol) Position() Pos { return e.Pos }
func (e *UndefinedSymbol) Error() string {
	return fmt.Sprintf("%s: undefined symbol %q in section %q", e.Pos, e.Symbol, e.Section)
}

// MacroError reports unterminated definitions, recursive invocations, or
// argument-count mismatches from the macro preprocessor.
type MacroError struct {
	Pos   Pos
	Macro string
	Msg   string
}

func (e *MacroError) Position() Pos { return e.Pos }
func (e *MacroError) Error() string {
	return fmt.Sprintf("%s: macro %q: %s", e.Pos, e.Macro, e.Msg)
}

// LiteralError reports a malformed literal body, such as an odd hex digit
// count in an X'...' literal.
type LiteralError struct {
	Pos  Pos
	Text string
	Msg  string
}

func (e *LiteralError) Position() Pos { return e.Pos }
func (e *LiteralError) Error() string {
	return fmt.Sprintf("%s: bad literal %q: %s", e.Pos, e.Text, e.Msg)
}

// DisplacementOutOfRange reports an operand for which PC-relative,
// base-relative and (if permitted) format-4 addressing all fail.
type DisplacementOutOfRange struct {
	Pos      Pos
	Mnemonic string
	Target   int
}

func (e *DisplacementOutOfRange) Position() Pos { return e.Pos }
func (e *DisplacementOutOfRange) Error() string {
	return fmt.Sprintf("%s: %s: displacement to 0x%X out of range for PC-relative, base-relative and format 4",
		e.Pos, e.Mnemonic, e.Target)
}

// FormatError reports a mnemonic used with a format it doesn't support, such
// as a format-4 (+) prefix on a format-2 instruction.
type FormatError struct {
	Pos      Pos
	Mnemonic string
	Msg      string
}

func (e *FormatError) Position() Pos { return e.Pos }
func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Mnemonic, e.Msg)
}

// ExpressionError reports an EQU/ORG expression using an unsupported
// operator, or referencing a symbol that never resolves.
type ExpressionError struct {
	Pos  Pos
	Text string
	Msg  string
}

func (e *ExpressionError) Position() Pos { return e.Pos }
func (e *ExpressionError) Error() string {
	return fmt.Sprintf("%s: bad expression %q: %s", e.Pos, e.Text, e.Msg)
}
