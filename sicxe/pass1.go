package sicxe

import (
	"strconv"
	"strings"
)

// LineInfo carries everything Pass 1 determined about one line, for Pass 2
// and the listing emitter to reuse without recomputing it.
type LineInfo struct {
	Line            *SourceLine
	Section         *ControlSection
	Block           string
	Offset          int // in-block LOCCTR at the start of this line
	AbsAddr         int // filled in once block layout is known
	Format          Format
	Length          int
	FlushedLiterals []*Literal // literals placed by this line's LTORG/END/auto-flush
}

// Pass1Result is everything Pass 1 hands to Pass 2: the finished control
// sections (symbol tables, literal tables, external def/ref lists, block
// layout) and a LineInfo per source line, in source order.
type Pass1Result struct {
	Sections     []*ControlSection
	Lines        []*LineInfo
	EntryOperand string
}

var formatLength = map[Format]int{Format1: 1, Format2: 2, Format3: 3, Format4: 4}

// Pass1 walks the macro-expanded line stream once, assigning a LOCCTR to
// every line and populating each control section's symbol table, literal
// table and external def/ref lists. Grounded on
// original_source/assembler.py's pass1(): the block/CSECT bookkeeping, the
// literal auto-flush threshold, and the EQU/ORG/USE/EXTDEF/EXTREF handling
// all follow its structure, reworked into the typed-error idiom borrowed
// from lassandro-golc3 instead of the prototype's print-and-continue style.
func Pass1(lines []*SourceLine, optab OpTable) (*Pass1Result, []error) {
	var errs []error
	var sections []*ControlSection
	var infos []*LineInfo
	var cur *ControlSection
	started := false

	closeSection := func() {
		if cur == nil {
			return
		}
		cur.flushLiterals()
		total := 0
		for _, name := range cur.blockOrder {
			total += cur.blocks[name].locctr
		}
		cur.Length = total
		sections = append(sections, cur)
	}

	emit := func(line *SourceLine, offset, length int, format Format) *LineInfo {
		li := &LineInfo{Line: line, Length: length, Format: format}
		if cur != nil {
			li.Section = cur
			li.Block = cur.curBlock
			li.Offset = offset
		}
		infos = append(infos, li)
		return li
	}

	done := false
	for _, line := range lines {
		if done {
			// Anything after END is ignored, per spec.md §4.4's END handling.
			infos = append(infos, &LineInfo{Line: line})
			continue
		}

		if line.Blank {
			infos = append(infos, &LineInfo{Line: line})
			continue
		}

		switch line.Mnemonic {
		case "START":
			if started {
				errs = append(errs, &ParseError{Pos: line.Pos, Text: line.Raw, Msg: "START must be the first statement"})
				continue
			}
			started = true
			addr := parseHex(line.Operand, 0)
			cur = newControlSection(line.Label, addr)
			emit(line, 0, 0, 0)
			continue

		case "CSECT":
			closeSection()
			cur = newControlSection(line.Label, 0)
			started = true
			emit(line, 0, 0, 0)
			continue
		}

		if cur == nil {
			cur = newControlSection("", 0)
			started = true
		}

		switch line.Mnemonic {
		case "EQU":
			val, err := evalInSection(cur, line.Operand, true)
			if err != nil {
				errs = append(errs, &ExpressionError{Pos: line.Pos, Text: line.Operand, Msg: err.Error()})
			} else if line.Label != "" {
				if derr := cur.defineSymbol(line.Label, val, SymEquate, false, line.Pos); derr != nil {
					errs = append(errs, derr)
				}
			}
			emit(line, cur.locctr(), 0, 0)

		case "ORG":
			val, err := evalInSection(cur, line.Operand, false)
			if err != nil {
				errs = append(errs, &ExpressionError{Pos: line.Pos, Text: line.Operand, Msg: err.Error()})
			} else {
				// ORG's operand is an absolute target address; block "" stores
				// block-relative offsets like every other block, so the absolute
				// target is converted back down by StartAddr. A block-relative
				// ORG target inside a USE block isn't supported: that block's base
				// isn't known until Pass 1's layout step finishes (see DESIGN.md).
				rel := val
				if cur.curBlock == "" {
					rel = val - cur.StartAddr
				}
				cur.setLocctr(rel)
			}
			emit(line, cur.locctr(), 0, 0)

		case "USE":
			cur.useBlock(strings.TrimSpace(line.Operand))
			emit(line, cur.locctr(), 0, 0)

		case "EXTDEF":
			for _, name := range SplitFields(line.Operand) {
				if name == "" {
					continue
				}
				cur.ExternDefs = append(cur.ExternDefs, name)
			}
			emit(line, cur.locctr(), 0, 0)

		case "EXTREF":
			for _, name := range SplitFields(line.Operand) {
				if name == "" {
					continue
				}
				cur.ExternRefs = append(cur.ExternRefs, name)
				cur.Symbols[name] = &Symbol{Name: name, Section: cur.Name, Kind: SymExternRef, DefPos: line.Pos}
			}
			emit(line, cur.locctr(), 0, 0)

		case "LTORG":
			if line.Label != "" {
				if derr := cur.defineSymbol(line.Label, cur.locctr(), SymLabel, true, line.Pos); derr != nil {
					errs = append(errs, derr)
				}
			}
			li := emit(line, cur.locctr(), 0, 0)
			li.FlushedLiterals = cur.flushLiterals()

		case "END":
			if line.Label != "" {
				if derr := cur.defineSymbol(line.Label, cur.locctr(), SymLabel, true, line.Pos); derr != nil {
					errs = append(errs, derr)
				}
			}
			li := emit(line, cur.locctr(), 0, 0)
			li.FlushedLiterals = cur.flushLiterals()
			closeSection()
			cur = nil
			done = true

		case "BASE", "NOBASE":
			emit(line, cur.locctr(), 0, 0)

		case "BYTE":
			if line.Label != "" {
				if derr := cur.defineSymbol(line.Label, cur.locctr(), SymLabel, true, line.Pos); derr != nil {
					errs = append(errs, derr)
				}
			}
			data, err := DecodeConstant(line.Operand)
			if err != nil {
				errs = append(errs, &LiteralError{Pos: line.Pos, Text: line.Operand, Msg: err.Error()})
				emit(line, cur.locctr(), 0, 0)
				continue
			}
			addr := cur.advance(len(data))
			emit(line, addr, len(data), 0)

		case "WORD":
			if line.Label != "" {
				if derr := cur.defineSymbol(line.Label, cur.locctr(), SymLabel, true, line.Pos); derr != nil {
					errs = append(errs, derr)
				}
			}
			addr := cur.advance(3)
			emit(line, addr, 3, 0)

		case "RESB":
			n, err := strconv.Atoi(strings.TrimSpace(line.Operand))
			if err != nil {
				errs = append(errs, &ExpressionError{Pos: line.Pos, Text: line.Operand, Msg: "RESB operand must be a decimal count"})
				n = 0
			}
			var flushed []*Literal
			if n > 100 {
				flushed = cur.flushLiterals()
			}
			if line.Label != "" {
				if derr := cur.defineSymbol(line.Label, cur.locctr(), SymLabel, true, line.Pos); derr != nil {
					errs = append(errs, derr)
				}
			}
			addr := cur.advance(n)
			li := emit(line, addr, n, 0)
			li.FlushedLiterals = flushed

		case "RESW":
			n, err := strconv.Atoi(strings.TrimSpace(line.Operand))
			if err != nil {
				errs = append(errs, &ExpressionError{Pos: line.Pos, Text: line.Operand, Msg: "RESW operand must be a decimal count"})
				n = 0
			}
			var flushed []*Literal
			if n*3 > 100 {
				flushed = cur.flushLiterals()
			}
			if line.Label != "" {
				if derr := cur.defineSymbol(line.Label, cur.locctr(), SymLabel, true, line.Pos); derr != nil {
					errs = append(errs, derr)
				}
			}
			addr := cur.advance(n * 3)
			li := emit(line, addr, n*3, 0)
			li.FlushedLiterals = flushed

		default:
			entry, ok := optab[line.Mnemonic]
			if !ok {
				errs = append(errs, &UnknownMnemonic{Pos: line.Pos, Mnemonic: line.Mnemonic})
				emit(line, cur.locctr(), 0, 0)
				continue
			}
			format, ferr := chooseFormat(entry, line.Extended, line.Pos, line.Mnemonic)
			if ferr != nil {
				errs = append(errs, ferr)
				format = Format3
				if !entry.Formats[Format3] {
					for f := range entry.Formats {
						format = f
						break
					}
				}
			}

			if line.Label != "" {
				if derr := cur.defineSymbol(line.Label, cur.locctr(), SymLabel, true, line.Pos); derr != nil {
					errs = append(errs, derr)
				}
			}

			if strings.HasPrefix(line.Operand, "=") {
				if _, lerr := cur.registerLiteral(line.Operand, line.Pos); lerr != nil {
					errs = append(errs, &LiteralError{Pos: line.Pos, Text: line.Operand, Msg: lerr.Error()})
				}
			}

			length := formatLength[format]
			addr := cur.advance(length)
			emit(line, addr, length, format)
		}
	}

	if !done {
		closeSection()
	}

	result := &Pass1Result{Sections: sections, Lines: infos}

	// Resolve absolute addresses now that every section's block layout is
	// final, per spec.md §4.4's "end of Pass 1, block offsets are computed".
	for _, cs := range sections {
		bases := cs.blockBases()
		for _, li := range infos {
			if li.Section == cs {
				li.AbsAddr = cs.StartAddr + bases[li.Block] + li.Offset
			}
		}
		for _, lit := range cs.Literals {
			if lit.Placed {
				lit.Addr = cs.StartAddr + bases[lit.Pool] + lit.Addr
			}
		}
		for _, sym := range cs.Symbols {
			if sym.Kind == SymLabel {
				sym.Value = cs.StartAddr + bases[sym.Block] + sym.Value
			}
		}
		cs.resolved = true
	}

	return result, errs
}

func parseHex(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return def
	}
	return int(v)
}

func evalInSection(cs *ControlSection, operand string, isEqu bool) (int, error) {
	var expr Expr
	var err error
	if isEqu {
		expr, err = ParseEquExpr(operand)
	} else {
		expr, err = ParseExpr(operand)
	}
	if err != nil {
		return 0, err
	}
	// '*' means the current absolute LOCCTR. Block "" stores block-relative
	// offsets like every other block, so StartAddr is added back in here; for
	// any other (USE) block the absolute base isn't known until Pass 1's
	// layout step finishes, so '*' there falls back to the block-relative
	// offset (see DESIGN.md).
	curLoc := cs.locctr()
	if cs.curBlock == "" {
		curLoc += cs.StartAddr
	}
	return expr.Eval(cs.lookupFn(), curLoc)
}

func chooseFormat(entry *OpEntry, extended bool, pos Pos, mnemonic string) (Format, error) {
	if extended {
		if !entry.Formats[Format4] {
			return 0, &FormatError{Pos: pos, Mnemonic: mnemonic, Msg: "does not support extended format 4"}
		}
		return Format4, nil
	}
	if entry.Formats[Format3] {
		return Format3, nil
	}
	if entry.Formats[Format2] {
		return Format2, nil
	}
	if entry.Formats[Format1] {
		return Format1, nil
	}
	return 0, &FormatError{Pos: pos, Mnemonic: mnemonic, Msg: "has no usable format"}
}
