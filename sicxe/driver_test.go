package sicxe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembleCopyProgram(t *testing.T) {
	src := "COPY   START  1000\n" +
		"       LDA    FIVE\n" +
		"FIVE   WORD   5\n" +
		"       END    COPY\n"

	res, errs := Assemble("copy.asm", src)
	assert.Empty(t, errs)
	assert.Len(t, res.Program.Sections, 1)
	assert.Equal(t, 6, res.Program.Sections[0].Length)
	assert.Equal(t,
		"HCOPY  001000000006\n"+
			"T00100006032000000005\n"+
			"E001000\n",
		res.ObjectProgram)
}

func TestAssembleExternRefWordProducesModRecord(t *testing.T) {
	src := "A      START  0\n" +
		"       EXTREF X\n" +
		"BUF    WORD   X\n" +
		"       END\n"

	res, errs := Assemble("extref.asm", src)
	assert.Empty(t, errs)
	assert.Equal(t,
		"HA     000000000003\n"+
			"RX     \n"+
			"T00000003000000\n"+
			"M00000006+X\n"+
			"E000000\n",
		res.ObjectProgram)
}

func TestAssembleWordDifferenceAgainstExternalProducesNegativeModRecord(t *testing.T) {
	src := "A      START  0\n" +
		"       EXTREF X\n" +
		"TGT    WORD   1\n" +
		"BUF    WORD   TGT-X\n" +
		"       END\n"

	res, errs := Assemble("worddiff.asm", src)
	assert.Empty(t, errs)
	assert.Equal(t,
		"HA     000000000006\n"+
			"RX     \n"+
			"T00000006000001000000\n"+
			"M00000306-X\n"+
			"E000000\n",
		res.ObjectProgram)
}

func TestAssembleDuplicateLabelsAcrossSectionsAreIndependent(t *testing.T) {
	src := "A      START  0\n" +
		"LOOP   LDA    LOOP\n" +
		"B      CSECT\n" +
		"LOOP   LDA    LOOP\n" +
		"       END\n"

	res, errs := Assemble("twosections.asm", src)
	assert.Empty(t, errs)
	assert.Len(t, res.Program.Sections, 2)
	assert.Equal(t, 0, res.Program.Sections[0].Symbols["LOOP"].Value)
	assert.Equal(t, 0, res.Program.Sections[1].Symbols["LOOP"].Value)
}

func TestAssembleFlushesLiteralBeforeLargeReservation(t *testing.T) {
	src := "A      START  0\n" +
		"       LDA    =C'EOF'\n" +
		"BIG    RESB   200\n" +
		"       END\n"

	res, errs := Assemble("litflush.asm", src)
	assert.Empty(t, errs)
	sect := res.Program.Sections[0]
	assert.Equal(t, 3, sect.Literals[0].Addr)
	assert.Equal(t, 6, sect.Symbols["BIG"].Value)
	assert.Equal(t,
		"HA     0000000000CE\n"+
			"T00000006032000454F46\n"+
			"E000000\n",
		res.ObjectProgram)
}

func TestAssembleFormat4PromotesWhenNoBaseCandidateExists(t *testing.T) {
	// A literal referenced once, then pushed far out of PC-relative range by
	// 2100 one-byte reservations (each under the auto-flush threshold, so
	// none of them forces the literal to be placed near its reference). No
	// label exists anywhere in the section, so the smart-base fallback has
	// no candidate either, and LDA -- being 3/4-eligible -- is silently
	// promoted to format 4 instead of erroring.
	var src strings.Builder
	src.WriteString("A      START  0\n")
	src.WriteString("       LDA    =C'X'\n")
	for i := 0; i < 2100; i++ {
		src.WriteString("       RESB   1\n")
	}
	src.WriteString("       END\n")

	res, errs := Assemble("far.asm", src.String())
	assert.Empty(t, errs)
	assert.Equal(t,
		"HA     000000000838\n"+
			"T0000000403100837\n"+
			"T0008370158\n"+
			"M00000105+A\n"+
			"E000000\n",
		res.ObjectProgram)
}

func TestAssembleBareNumericDisplacementOutOfRangeIsReported(t *testing.T) {
	src := "A      START  0\n" +
		"       LDA    5000\n" +
		"       END\n"
	_, errs := Assemble("badnum.asm", src)
	assert.Len(t, errs, 1)
	assert.IsType(t, &DisplacementOutOfRange{}, errs[0])
}

func TestAssembleUndefinedSymbolIsReported(t *testing.T) {
	src := "A      START  0\n" +
		"       LDA    MISSING\n" +
		"       END\n"
	_, errs := Assemble("undef.asm", src)
	assert.Len(t, errs, 1)
	assert.IsType(t, &UndefinedSymbol{}, errs[0])
}

func TestAssembleDuplicateSymbolWithinSameSectionIsReported(t *testing.T) {
	src := "A      START  0\n" +
		"LOOP   LDA    LOOP\n" +
		"LOOP   LDA    LOOP\n" +
		"       END\n"
	_, errs := Assemble("dup.asm", src)
	assert.Len(t, errs, 1)
	assert.IsType(t, &DuplicateSymbol{}, errs[0])
}
