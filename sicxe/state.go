package sicxe

import (
	"strconv"
)

// defineSymbol enters a new symbol into the section's table, enforcing
// spec.md §3's uniqueness invariant (within one control section, names are
// unique). An EXTREF placeholder at the same name is overwritten rather
// than treated as a collision: a name can be imported and then locally
// resolved to look itself up, matching spec.md's scoped-lookup rule.
func (cs *ControlSection) defineSymbol(name string, value int, kind SymbolKind, relocatable bool, pos Pos) error {
	if existing, ok := cs.Symbols[name]; ok && existing.Kind != SymExternRef {
		return &DuplicateSymbol{Pos: pos, Symbol: name, Section: cs.Name}
	}
	cs.Symbols[name] = &Symbol{
		Name:        name,
		Section:     cs.Name,
		Value:       value,
		Kind:        kind,
		Relocatable: relocatable,
		Block:       cs.curBlock,
		DefPos:      pos,
	}
	return nil
}

// lookupFn adapts the section's symbol table to the SymbolLookup shape
// expr.go's EQU/ORG evaluator expects. External references are reported as
// unknown here: their value isn't known until link time, so an EQU or ORG
// expression referencing one is an ExpressionError, not a deferred fixup.
func (cs *ControlSection) lookupFn() SymbolLookup {
	return func(name string) (int, bool) {
		sym, ok := cs.Symbols[name]
		if !ok || sym.Kind == SymExternRef {
			return 0, false
		}
		// A SymLabel's Value is still a block-relative offset until Pass 1's
		// final layout step resolves it; for the default block that offset's
		// absolute address is already knowable, so EQU/ORG expressions
		// referencing an earlier label in the default block see its real
		// address rather than its raw offset.
		if !cs.resolved && sym.Kind == SymLabel && sym.Block == "" {
			return cs.StartAddr + sym.Value, true
		}
		return sym.Value, true
	}
}

// registerLiteral records a literal operand's first occurrence in this
// section (=C'...', =X'...', or =W'n'), decoding its bytes immediately.
// Per spec.md §3, a second occurrence of the same textual form in the same
// section reuses the existing entry rather than decoding or placing it
// again.
func (cs *ControlSection) registerLiteral(text string, pos Pos) (*Literal, error) {
	if lit, ok := cs.literalIdx[text]; ok {
		return lit, nil
	}

	body := text[1:] // strip the leading '='
	var data []byte
	var err error
	if len(body) >= 3 && (body[0] == 'W' || body[0] == 'w') && body[1] == '\'' {
		n, perr := strconv.Atoi(body[2 : len(body)-1])
		if perr != nil {
			return nil, perr
		}
		data = WordBytes(n)
	} else {
		data, err = DecodeConstant(body)
		if err != nil {
			return nil, err
		}
	}

	lit := &Literal{Text: text, Bytes: data, Addr: -1, FirstAt: pos}
	cs.literalIdx[text] = lit
	cs.Literals = append(cs.Literals, lit)
	cs.pendingLiterals = append(cs.pendingLiterals, lit)
	return lit, nil
}

// flushLiterals assigns an address to every not-yet-placed literal pending
// in this section, advancing the active block's LOCCTR as it goes, and
// returns the literals it placed. Called on LTORG, on END, and
// automatically before a RESB/RESW reservation over 100 bytes, per
// spec.md §4.5.
func (cs *ControlSection) flushLiterals() []*Literal {
	var flushed []*Literal
	for _, lit := range cs.pendingLiterals {
		if lit.Placed {
			continue
		}
		lit.Addr = cs.advance(len(lit.Bytes))
		lit.Pool = cs.curBlock
		lit.Placed = true
		flushed = append(flushed, lit)
	}
	cs.pendingLiterals = nil
	return flushed
}
