package sicxe

import (
	"strings"

	"github.com/shepheb/psec"
)

// lineGrammar tokenizes the part of a source line that follows any label
// into a whitespace-delimited field and everything after it, the same
// token/rest split the teacher's own core.AddBasicParsers performs with
// "ws"/"ws1" (core/parser.go), generalized from single-space-delimited
// tokens to runs of spaces or tabs.
var lineGrammar = buildLineGrammar()

func buildLineGrammar() *psec.Grammar {
	g := psec.NewGrammar()

	g.AddSymbol("ws", psec.ManyDrop(psec.OneOf(" \t")))
	g.AddSymbol("token", psec.Stringify(psec.Many1(psec.NoneOf(" \t"))))
	// "\x00" never appears in source text, so excluding only it yields an
	// any-character parser built from the same NoneOf(singleChar) shape the
	// teacher uses for comment's to-end-of-line scan (core/parser.go).
	g.AddSymbol("rest", psec.Stringify(psec.Many(psec.NoneOf("\x00"))))

	g.WithAction("fields",
		psec.Seq(sym("ws"), sym("token"), sym("ws"), sym("rest")),
		func(r interface{}, loc *psec.Loc) (interface{}, error) {
			rs := r.([]interface{})
			return [2]string{rs[1].(string), rs[3].(string)}, nil
		})

	return g
}

// splitField runs one token/rest split through lineGrammar. It fails only
// when s has no token at all (blank/whitespace-only).
func splitField(s string) (token, rest string, ok bool) {
	r, err := lineGrammar.ParseStringWith("line", s, "fields")
	if err != nil {
		return "", "", false
	}
	f := r.([2]string)
	return f[0], f[1], true
}

// ParseLine decomposes one raw source line into label/mnemonic/operand
// fields per spec.md §4.1. It is total: it never fails, since bad mnemonics
// and malformed operands are surfaced later, in Pass 1/Pass 2.
//
// The label/mnemonic split is column-sensitive (a non-blank column 0 marks
// a label) rather than a blind whitespace tokenizer, so quoted operand
// bodies such as C'EOF OK' never need special-casing here: whatever follows
// the mnemonic token is kept verbatim as the operand, embedded whitespace
// and all. The column check itself stays plain Go, since none of the
// corpus's psec grammars dispatch on column position — they're all
// content-driven — but the token/rest split it feeds into lineGrammar.
// Grounded on lassandro-golc3/pkg/assembler/assembler.go's character-
// scanning line reader for the column-0 label rule, and on the teacher's
// core.AddBasicParsers (core/parser.go) for the psec-driven tokenizing,
// generalized from LC-3's fixed 3-field shape to SIC/XE's optional '+'
// extended-format prefix.
func ParseLine(pos Pos, raw string) *SourceLine {
	trimmed := strings.TrimRight(raw, "\r\n")
	noLeading := strings.TrimLeft(trimmed, " \t")

	if noLeading == "" || strings.HasPrefix(noLeading, ".") {
		return &SourceLine{Pos: pos, Raw: raw, Blank: true}
	}

	hasLabel := len(trimmed) > 0 && trimmed[0] != ' ' && trimmed[0] != '\t'

	rest := noLeading
	sl := &SourceLine{Pos: pos, Raw: raw}

	if hasLabel {
		label, tail, ok := splitField(rest)
		if !ok {
			sl.Blank = true
			return sl
		}
		sl.Label = label
		rest = tail
	}

	mnemonic, tail, ok := splitField(rest)
	if !ok {
		sl.Blank = true
		return sl
	}
	if strings.HasPrefix(mnemonic, "+") {
		sl.Extended = true
		mnemonic = mnemonic[1:]
	}
	sl.Mnemonic = strings.ToUpper(mnemonic)
	sl.Operand = strings.TrimSpace(tail)

	return sl
}

// SplitFields splits a comma-separated operand list (EXTDEF/EXTREF/macro
// arguments) on commas that are not inside a C'...'/X'...' quoted body, so
// a literal argument such as C'A,B' is never torn in two. Each returned
// field is trimmed of surrounding whitespace.
func SplitFields(operand string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	runes := []rune(operand)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inQuote:
			cur.WriteRune(c)
			if c == '\'' {
				inQuote = false
			}
		case c == '\'':
			inQuote = true
			cur.WriteRune(c)
		case c == ',':
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	if cur.Len() > 0 || len(fields) > 0 {
		fields = append(fields, strings.TrimSpace(cur.String()))
	}
	return fields
}
