package sicxe

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// optabCSV is the pre-parsed opcode table spec.md §6.5 hands to the core:
// mnemonic, opcode byte (hex), permitted format set. Grounded on
// original_source/assembler.py's load_optab, which reads the same three
// columns with pandas; embed+encoding/csv is the stdlib substitute, since
// nothing in the corpus pulls in a third-party CSV or dataframe library for
// a table this size.
//
//go:embed optab.csv
var optabCSV string

// OpTable is the immutable mnemonic -> OpEntry mapping used by both passes.
type OpTable map[string]*OpEntry

// LoadOpTable parses the embedded opcode table once. It panics on a
// malformed table, since that indicates a build-time defect, not a user
// input error.
func LoadOpTable() OpTable {
	r := csv.NewReader(strings.NewReader(optabCSV))
	records, err := r.ReadAll()
	if err != nil {
		panic(fmt.Sprintf("sicxe: malformed embedded opcode table: %v", err))
	}

	t := make(OpTable)
	for i, rec := range records {
		if i == 0 {
			continue // header row
		}
		if len(rec) != 3 {
			panic(fmt.Sprintf("sicxe: malformed opcode table row %v", rec))
		}
		mnemonic := strings.TrimSpace(rec[0])
		opcode, err := strconv.ParseUint(strings.TrimSpace(rec[1]), 0, 8)
		if err != nil {
			panic(fmt.Sprintf("sicxe: bad opcode for %s: %v", mnemonic, err))
		}
		formats := make(map[Format]bool)
		for _, f := range strings.Split(strings.TrimSpace(rec[2]), "/") {
			switch f {
			case "1":
				formats[Format1] = true
			case "2":
				formats[Format2] = true
			case "3", "4":
				formats[Format3] = true
				formats[Format4] = true
			default:
				panic(fmt.Sprintf("sicxe: bad format spec %q for %s", f, mnemonic))
			}
		}
		t[mnemonic] = &OpEntry{Mnemonic: mnemonic, Opcode: byte(opcode), Formats: formats}
	}
	return t
}

// directiveNames is the fixed vocabulary of directives, recognized
// separately from the opcode table per spec.md §4.3.
var directiveNames = map[string]bool{
	"START": true, "END": true, "BYTE": true, "WORD": true,
	"RESB": true, "RESW": true, "BASE": true, "NOBASE": true,
	"LTORG": true, "EQU": true, "USE": true, "CSECT": true,
	"EXTDEF": true, "EXTREF": true, "ORG": true,
}

func isDirective(mnemonic string) bool {
	return directiveNames[strings.ToUpper(mnemonic)]
}

// registerNumbers maps SIC/XE register names to their format-2 encoding,
// per spec.md §4.6.
var registerNumbers = map[string]int{
	"A": 0, "X": 1, "L": 2, "B": 3, "S": 4, "T": 5, "F": 6, "PC": 8, "SW": 9,
}
