package sicxe

import (
	"fmt"
	"strings"
)

// EmitObjectProgram formats every control section's H/D/R/T/M/E records
// into the line-oriented object-program text spec.md §6.3 describes.
// Grounded on original_source/assembler.py's text-record-splitting and
// M-record emission in pass2()/assemble_file.
func EmitObjectProgram(sections []*ControlSection, entryAddr int) string {
	var b strings.Builder
	for idx, cs := range sections {
		b.WriteString(headerRecord(cs))
		b.WriteString("\n")
		if len(cs.ExternDefs) > 0 {
			b.WriteString(definitionRecord(cs))
			b.WriteString("\n")
		}
		if len(cs.ExternRefs) > 0 {
			b.WriteString(referenceRecord(cs))
			b.WriteString("\n")
		}
		for _, t := range cs.Texts {
			b.WriteString(textRecord(t))
			b.WriteString("\n")
		}
		for _, m := range cs.Mods {
			b.WriteString(modRecord(m))
			b.WriteString("\n")
		}
		if idx == 0 {
			b.WriteString(endRecord(entryAddr))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func padName(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func headerRecord(cs *ControlSection) string {
	return fmt.Sprintf("H%s%06X%06X", padName(cs.Name, 6), cs.StartAddr, cs.Length)
}

func definitionRecord(cs *ControlSection) string {
	var b strings.Builder
	b.WriteString("D")
	for _, name := range cs.ExternDefs {
		addr := 0
		if sym, ok := cs.Symbols[name]; ok {
			addr = sym.Value
		}
		fmt.Fprintf(&b, "%s%06X", padName(name, 6), addr)
	}
	return b.String()
}

func referenceRecord(cs *ControlSection) string {
	var b strings.Builder
	b.WriteString("R")
	for _, name := range cs.ExternRefs {
		b.WriteString(padName(name, 6))
	}
	return b.String()
}

func textRecord(t *TextRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "T%06X%02X", t.StartAddr, len(t.Bytes))
	for _, by := range t.Bytes {
		fmt.Fprintf(&b, "%02X", by)
	}
	return b.String()
}

func modRecord(m *ModRecord) string {
	sign := "+"
	if m.Negative {
		sign = "-"
	}
	return fmt.Sprintf("M%06X%02X%s%s", m.Addr, m.Length, sign, m.Symbol)
}

func endRecord(entryAddr int) string {
	return fmt.Sprintf("E%06X", entryAddr)
}
