package sicxe

import (
	"strconv"
	"strings"
)

// Pass2Output carries what Pass 2 produced for the listing emitter: the
// object bytes generated for each instruction/data line, keyed by the same
// *LineInfo Pass 1 produced.
type Pass2Output struct {
	BytesByLine map[*LineInfo][]byte
}

// Pass2 walks the same line stream Pass 1 already addressed, generating
// object bytes and modification records per line and accumulating them
// into each control section's text records. Grounded on
// original_source/assembler.py's pass2() (select_smart_base,
// calculate_pc_relative_disp, generate_format2_code/generate_format4_code)
// and on the teacher's rq/instructions.go multi-shape dispatch style
// (opRI/opRRR/opBranch), generalized to SIC/XE's format/addressing-mode
// combinations.
func Pass2(pr *Pass1Result, optab OpTable) (*Pass2Output, []error) {
	var errs []error
	out := &Pass2Output{BytesByLine: make(map[*LineInfo][]byte)}

	var cur *ControlSection
	var curText *TextRecord
	base := -1

	closeText := func() {
		if cur != nil && curText != nil && len(curText.Bytes) > 0 {
			cur.Texts = append(cur.Texts, curText)
		}
		curText = nil
	}

	appendRaw := func(addr int, data []byte) {
		if len(data) == 0 || cur == nil {
			return
		}
		if curText != nil && curText.Full(len(data)) {
			closeText()
		}
		if curText == nil {
			curText = &TextRecord{StartAddr: addr}
		}
		curText.Bytes = append(curText.Bytes, data...)
	}

	appendLine := func(li *LineInfo, data []byte) {
		appendRaw(li.AbsAddr, data)
		if len(data) > 0 {
			out.BytesByLine[li] = data
		}
	}

	for _, li := range pr.Lines {
		line := li.Line
		if line == nil || line.Blank {
			continue
		}

		switch line.Mnemonic {
		case "START", "CSECT":
			closeText()
			cur = li.Section
			base = -1
			continue
		}

		if cur == nil {
			cur = li.Section
		}

		switch line.Mnemonic {
		case "EQU", "ORG", "USE", "EXTDEF", "EXTREF":
			continue

		case "BASE":
			v, err := evalInSection(cur, line.Operand, false)
			if err != nil {
				errs = append(errs, &ExpressionError{Pos: line.Pos, Text: line.Operand, Msg: err.Error()})
				continue
			}
			base = v
			continue

		case "NOBASE":
			base = -1
			continue

		case "LTORG":
			for _, lit := range li.FlushedLiterals {
				appendRaw(lit.Addr, lit.Bytes)
			}
			continue

		case "END":
			for _, lit := range li.FlushedLiterals {
				appendRaw(lit.Addr, lit.Bytes)
			}
			closeText()
			continue

		case "BYTE":
			data, err := DecodeConstant(line.Operand)
			if err != nil {
				errs = append(errs, &LiteralError{Pos: line.Pos, Text: line.Operand, Msg: err.Error()})
				continue
			}
			appendLine(li, data)
			continue

		case "WORD":
			val, mods, err := resolveWordValue(cur, line.Operand)
			if err != nil {
				errs = append(errs, &ExpressionError{Pos: line.Pos, Text: line.Operand, Msg: err.Error()})
				continue
			}
			appendLine(li, WordBytes(val))
			for _, m := range mods {
				m.Addr = li.AbsAddr
				cur.Mods = append(cur.Mods, m)
			}
			continue

		case "RESB", "RESW":
			for _, lit := range li.FlushedLiterals {
				appendRaw(lit.Addr, lit.Bytes)
			}
			closeText()
			continue
		}

		entry, ok := optab[line.Mnemonic]
		if !ok {
			// Pass 1 already reported UnknownMnemonic for this line and the
			// driver short-circuits before Pass 2 runs on a failing Pass 1;
			// this branch only matters if Pass2 is invoked standalone.
			continue
		}

		data, mods, err := assembleInstruction(cur, li, entry, base)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		appendLine(li, data)
		cur.Mods = append(cur.Mods, mods...)
	}
	closeText()

	return out, errs
}

func assembleInstruction(cur *ControlSection, li *LineInfo, entry *OpEntry, base int) ([]byte, []*ModRecord, error) {
	line := li.Line
	switch li.Format {
	case Format1:
		return []byte{entry.Opcode}, nil, nil
	case Format2:
		r1, r2, err := parseFormat2Operand(line.Operand)
		if err != nil {
			return nil, nil, &FormatError{Pos: line.Pos, Mnemonic: line.Mnemonic, Msg: err.Error()}
		}
		return []byte{entry.Opcode, byte(r1<<4 | r2&0x0F)}, nil, nil
	default:
		return assembleFormat34(cur, li, entry, base)
	}
}

type operandMode struct {
	Immediate bool
	Indirect  bool
	Indexed   bool
	Text      string
}

func decodeOperand(raw string) operandMode {
	s := strings.TrimSpace(raw)
	om := operandMode{}
	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, ",X") {
		om.Indexed = true
		s = strings.TrimSpace(s[:len(s)-2])
	}
	if strings.HasPrefix(s, "#") {
		om.Immediate = true
		s = s[1:]
	} else if strings.HasPrefix(s, "@") {
		om.Indirect = true
		s = s[1:]
	}
	om.Text = strings.TrimSpace(s)
	return om
}

// resolveOperandTarget resolves a decoded operand body to a numeric target.
// isNumericConst distinguishes a bare number (which goes straight into the
// displacement field, per spec.md §4.6) from a symbol or literal address
// (which needs PC-relative/base-relative/format-4 encoding).
func resolveOperandTarget(cur *ControlSection, text string) (target int, relocatable bool, externalName string, isNumericConst bool, numericVal int, err error) {
	if text == "" {
		return 0, false, "", true, 0, nil
	}
	if strings.HasPrefix(text, "=") {
		lit, lerr := cur.registerLiteral(text, Pos{})
		if lerr != nil {
			return 0, false, "", false, 0, lerr
		}
		return lit.Addr, true, "", false, 0, nil
	}
	if n, perr := strconv.Atoi(text); perr == nil {
		return n, false, "", true, n, nil
	}
	sym, ok := cur.Symbols[text]
	if !ok {
		return 0, false, "", false, 0, &UndefinedSymbol{Symbol: text, Section: cur.Name}
	}
	if sym.Kind == SymExternRef {
		return 0, false, text, false, 0, nil
	}
	return sym.Value, sym.Relocatable, "", false, 0, nil
}

func assembleFormat34(cur *ControlSection, li *LineInfo, entry *OpEntry, base int) ([]byte, []*ModRecord, error) {
	line := li.Line
	om := decodeOperand(line.Operand)

	n, i := 1, 1
	if om.Immediate {
		n, i = 0, 1
	} else if om.Indirect {
		n, i = 1, 0
	}
	opbyte := (entry.Opcode &^ 0x03) | byte(n<<1) | byte(i)

	xFlag := byte(0)
	if om.Indexed {
		xFlag = 1
	}

	// RSUB and other no-operand instructions: ni bits only, everything else
	// zero. Supplemented per original_source/assembler.py's handling of
	// empty-operand mnemonics (see SPEC_FULL.md §3).
	if om.Text == "" {
		if li.Format == Format4 {
			return []byte{opbyte, 0x10, 0x00, 0x00}, nil, nil
		}
		return []byte{opbyte, 0x00, 0x00}, nil, nil
	}

	target, relocatable, externalName, isNumeric, numericVal, err := resolveOperandTarget(cur, om.Text)
	if err != nil {
		if ue, ok := err.(*UndefinedSymbol); ok {
			ue.Pos = line.Pos
		}
		return nil, nil, err
	}

	if li.Format == Format4 {
		b2 := (xFlag << 7) | 0x10 // p=0, b=0, e=1
		addr := target & 0xFFFFF
		data := []byte{opbyte, b2 | byte(addr>>16), byte(addr >> 8), byte(addr)}
		var mods []*ModRecord
		if externalName != "" {
			mods = append(mods, &ModRecord{Addr: li.AbsAddr + 1, Length: 5, Symbol: externalName})
		} else if relocatable {
			mods = append(mods, &ModRecord{Addr: li.AbsAddr + 1, Length: 5, Symbol: cur.Name})
		}
		return data, mods, nil
	}

	// Bare numeric constant: goes straight into the 12-bit displacement
	// field, no PC/base-relative computation needed.
	if isNumeric {
		if numericVal < -2048 || numericVal > 4095 {
			return nil, nil, &DisplacementOutOfRange{Pos: line.Pos, Mnemonic: line.Mnemonic, Target: numericVal}
		}
		disp := numericVal & 0xFFF
		b2 := (xFlag << 7) | byte(disp>>8)
		return []byte{opbyte, b2, byte(disp)}, nil, nil
	}

	if externalName != "" {
		if !entry.Formats[Format4] {
			return nil, nil, &DisplacementOutOfRange{Pos: line.Pos, Mnemonic: line.Mnemonic, Target: 0}
		}
		b2 := (xFlag << 7) | 0x10
		data := []byte{opbyte, b2, 0x00, 0x00}
		mods := []*ModRecord{{Addr: li.AbsAddr + 1, Length: 5, Symbol: externalName}}
		return data, mods, nil
	}

	pcDisp := target - (li.AbsAddr + 3)
	if pcDisp >= -2048 && pcDisp <= 2047 {
		disp := pcDisp & 0xFFF
		b2 := (xFlag << 7) | 0x20 // p=1
		return []byte{opbyte, b2 | byte(disp>>8), byte(disp)}, nil, nil
	}

	if base >= 0 {
		if baseDisp := target - base; baseDisp >= 0 && baseDisp <= 4095 {
			disp := baseDisp & 0xFFF
			b2 := (xFlag << 7) | 0x40 // b=1
			return []byte{opbyte, b2 | byte(disp>>8), byte(disp)}, nil, nil
		}
	}

	if candidate, ok := selectSmartBase(cur, target); ok {
		if baseDisp := target - candidate; baseDisp >= 0 && baseDisp <= 4095 {
			disp := baseDisp & 0xFFF
			b2 := (xFlag << 7) | 0x40
			return []byte{opbyte, b2 | byte(disp>>8), byte(disp)}, nil, nil
		}
	}

	if entry.Formats[Format4] {
		b2 := (xFlag << 7) | 0x10
		addr := target & 0xFFFFF
		data := []byte{opbyte, b2 | byte(addr>>16), byte(addr >> 8), byte(addr)}
		var mods []*ModRecord
		if relocatable {
			mods = append(mods, &ModRecord{Addr: li.AbsAddr + 1, Length: 5, Symbol: cur.Name})
		}
		return data, mods, nil
	}

	return nil, nil, &DisplacementOutOfRange{Pos: line.Pos, Mnemonic: line.Mnemonic, Target: target}
}

// selectSmartBase deterministically picks a BASE candidate when PC-relative
// addressing and any declared BASE both fail: among the already-defined
// labels at or below target, the one nearest to (target-2048), breaking
// ties toward the higher address, per spec.md §9's Design Notes.
// Grounded on original_source/assembler.py's select_smart_base, whose
// `max(0, sym_addr - 2048)` formula is this function's `ideal`.
func selectSmartBase(cur *ControlSection, target int) (int, bool) {
	ideal := target - 2048
	if ideal < 0 {
		ideal = 0
	}
	best := -1
	bestDist := -1
	for _, sym := range cur.Symbols {
		if sym.Kind != SymLabel || sym.Value > target {
			continue
		}
		dist := ideal - sym.Value
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist || (dist == bestDist && sym.Value > best) {
			best, bestDist = sym.Value, dist
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func parseFormat2Operand(operand string) (int, int, error) {
	fields := SplitFields(operand)
	if len(fields) == 0 || fields[0] == "" {
		return 0, 0, nil
	}
	r1, err := resolveFormat2Operand(fields[0])
	if err != nil {
		return 0, 0, err
	}
	r2 := 0
	if len(fields) > 1 {
		r2, err = resolveFormat2Operand(fields[1])
		if err != nil {
			return 0, 0, err
		}
	}
	return r1, r2, nil
}

func resolveFormat2Operand(tok string) (int, error) {
	tok = strings.TrimSpace(tok)
	if n, ok := registerNumbers[strings.ToUpper(tok)]; ok {
		return n, nil
	}
	return strconv.Atoi(tok)
}

// wordTerm is one signed term of a WORD directive's +/- expression.
type wordTerm struct {
	sign         int
	isExternal   bool
	externalName string
	value        int // resolved only when !isExternal
}

// collectWordTerms walks a +/- chain of constant/symbol terms the way
// original_source/assembler.py's WORD handling does (assembler.py:818-852):
// an external term becomes its own signed M record and contributes nothing
// to the base value, while every other term (constant, local symbol, '*')
// adds its signed value straight into the base value with no M record, even
// when that symbol is itself relocatable — two same-section relocatable
// symbols in a length expression like BUFEND-BUFFER cancel out, which is
// exactly the common case this idiom exists for. ok is false when expr
// isn't a plain +/- chain (e.g. it uses '*' or '/'), so the caller can fall
// back to evaluating it as a single expression instead.
func collectWordTerms(cur *ControlSection, expr Expr, sign int, curLoc int) ([]wordTerm, bool) {
	switch e := expr.(type) {
	case binExpr:
		if e.op != '+' && e.op != '-' {
			return nil, false
		}
		lhsTerms, ok := collectWordTerms(cur, e.lhs, sign, curLoc)
		if !ok {
			return nil, false
		}
		rhsSign := sign
		if e.op == '-' {
			rhsSign = -sign
		}
		rhsTerms, ok := collectWordTerms(cur, e.rhs, rhsSign, curLoc)
		if !ok {
			return nil, false
		}
		return append(lhsTerms, rhsTerms...), true
	case symExpr:
		if sym, ok := cur.Symbols[e.name]; ok && sym.Kind == SymExternRef {
			return []wordTerm{{sign: sign, isExternal: true, externalName: e.name}}, true
		}
		v, err := e.Eval(cur.lookupFn(), curLoc)
		if err != nil {
			return nil, false
		}
		return []wordTerm{{sign: sign, value: v}}, true
	case constExpr, starExpr:
		v, err := expr.Eval(cur.lookupFn(), curLoc)
		if err != nil {
			return nil, false
		}
		return []wordTerm{{sign: sign, value: v}}, true
	default:
		return nil, false
	}
}

// resolveWordValue resolves a WORD directive's operand, which is almost
// always a single symbol or small integer, but may be a +/- chain of terms
// such as BUFEND-BUFFER (a same-section length idiom) or A-EXTSYM (a
// difference against an external symbol, per spec.md §3's "multi-symbol
// expression crossing sections"). Returns the resolved constant part plus
// one signed M record per external term.
func resolveWordValue(cur *ControlSection, operand string) (value int, mods []*ModRecord, err error) {
	text := strings.TrimSpace(operand)
	if sym, ok := cur.Symbols[text]; ok && sym.Kind == SymExternRef {
		return 0, []*ModRecord{{Length: 6, Symbol: text}}, nil
	}

	expr, perr := ParseExpr(text)
	if perr != nil {
		return 0, nil, perr
	}

	curLoc := cur.locctr()
	_, isChain := expr.(binExpr)
	if terms, ok := collectWordTerms(cur, expr, 1, curLoc); isChain && ok {
		for _, t := range terms {
			if t.isExternal {
				mods = append(mods, &ModRecord{Length: 6, Negative: t.sign < 0, Symbol: t.externalName})
				continue
			}
			value += t.sign * t.value
		}
		return value, mods, nil
	}

	v, eerr := expr.Eval(cur.lookupFn(), curLoc)
	if eerr != nil {
		return 0, nil, eerr
	}
	if se, ok := expr.(symExpr); ok {
		if sym, ok := cur.Symbols[se.name]; ok && sym.Relocatable {
			return v, []*ModRecord{{Length: 6, Symbol: cur.Name}}, nil
		}
	}
	return v, nil, nil
}
