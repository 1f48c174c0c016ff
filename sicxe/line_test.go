package sicxe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLineWithLabel(t *testing.T) {
	sl := ParseLine(Pos{Line: 1}, "COPY   START  1000")
	assert.False(t, sl.Blank)
	assert.Equal(t, "COPY", sl.Label)
	assert.Equal(t, "START", sl.Mnemonic)
	assert.Equal(t, "1000", sl.Operand)
}

func TestParseLineWithoutLabel(t *testing.T) {
	sl := ParseLine(Pos{Line: 2}, "       LDA    FIVE")
	assert.Equal(t, "", sl.Label)
	assert.Equal(t, "LDA", sl.Mnemonic)
	assert.Equal(t, "FIVE", sl.Operand)
}

func TestParseLineExtendedFormat(t *testing.T) {
	sl := ParseLine(Pos{Line: 3}, "       +LDT   LENGTH")
	assert.True(t, sl.Extended)
	assert.Equal(t, "LDT", sl.Mnemonic)
}

func TestParseLineCommentAndBlank(t *testing.T) {
	assert.True(t, ParseLine(Pos{}, ".   this is a comment").Blank)
	assert.True(t, ParseLine(Pos{}, "").Blank)
	assert.True(t, ParseLine(Pos{}, "   ").Blank)
}

func TestParseLinePreservesEmbeddedWhitespaceInQuotedOperand(t *testing.T) {
	sl := ParseLine(Pos{}, "BUF    BYTE   C'EOF OK'")
	assert.Equal(t, "C'EOF OK'", sl.Operand)
}

func TestSplitFieldsRespectsQuotedCommas(t *testing.T) {
	fields := SplitFields("C'A,B',X")
	assert.Equal(t, []string{"C'A,B'", "X"}, fields)
}

func TestSplitFieldsPlainList(t *testing.T) {
	fields := SplitFields("ALPHA,BETA,GAMMA")
	assert.Equal(t, []string{"ALPHA", "BETA", "GAMMA"}, fields)
}
