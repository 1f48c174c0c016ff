package sicxe

import (
	"bufio"
	"strings"
)

// AssembleResult is the pair of output artifacts spec.md §6.3/§6.4 define:
// the object program and the listing, plus the assembled Program value they
// were derived from.
type AssembleResult struct {
	Program       *Program
	ObjectProgram string
	Listing       string
}

// Assemble runs the full pipeline spec.md §2 describes: line parsing, macro
// expansion, Pass 1, Pass 2, and the two output emitters. Per spec.md §7's
// error policy, any failing stage collects its errors and returns
// immediately without producing output; the object program and listing are
// only written on a fully successful assembly.
func Assemble(filename, source string) (*AssembleResult, []error) {
	lines := splitLines(filename, source)

	mt := NewMacroTable()
	expanded, errs := mt.Expand(lines)
	if len(errs) > 0 {
		return nil, errs
	}

	optab := LoadOpTable()

	p1, errs := Pass1(expanded, optab)
	if len(errs) > 0 {
		return nil, errs
	}

	p2, errs := Pass2(p1, optab)
	if len(errs) > 0 {
		return nil, errs
	}

	entryAddr := 0
	if len(p1.Sections) > 0 {
		entryAddr = p1.Sections[0].StartAddr
	}

	// spec.md §9's Open Question decision: END may not name an external
	// entry point, so an END operand is only checked for resolving, never
	// used as the actual entry address (see DESIGN.md). The program name
	// given on START resolves too, although it is not itself a symbol.
	if end := findEndOperand(p1.Lines); end != "" && len(p1.Sections) > 0 && end != p1.Sections[0].Name {
		last := p1.Sections[len(p1.Sections)-1]
		if _, ok := last.Symbols[end]; !ok {
			return nil, []error{&UndefinedSymbol{Symbol: end, Section: last.Name}}
		}
	}

	prog := &Program{Sections: p1.Sections, EntryAddr: entryAddr}
	return &AssembleResult{
		Program:       prog,
		ObjectProgram: EmitObjectProgram(p1.Sections, entryAddr),
		Listing:       EmitListing(p1.Lines, p2.BytesByLine),
	}, nil
}

func splitLines(filename, source string) []*SourceLine {
	var out []*SourceLine
	sc := bufio.NewScanner(strings.NewReader(source))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		out = append(out, ParseLine(Pos{File: filename, Line: lineNo}, sc.Text()))
	}
	return out
}

func findEndOperand(lines []*LineInfo) string {
	for _, li := range lines {
		if li.Line != nil && li.Line.Mnemonic == "END" {
			return strings.TrimSpace(li.Line.Operand)
		}
	}
	return ""
}
