package sicxe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderRecordPadsNameToSixChars(t *testing.T) {
	cs := &ControlSection{Name: "PROG", StartAddr: 0x1000, Length: 0x20}
	assert.Equal(t, "HPROG  001000000020", headerRecord(cs))
}

func TestHeaderRecordTruncatesLongName(t *testing.T) {
	cs := &ControlSection{Name: "VERYLONGNAME", StartAddr: 0, Length: 0}
	assert.Equal(t, "HVERYLO000000000000", headerRecord(cs))
}

func TestTextRecordFormatsLengthAndBytes(t *testing.T) {
	tr := &TextRecord{StartAddr: 0x1000, Bytes: []byte{0x03, 0x20, 0x00}}
	assert.Equal(t, "T00100003032000", textRecord(tr))
}

func TestTextRecordFullAtThirtyBytes(t *testing.T) {
	tr := &TextRecord{Bytes: make([]byte, 28)}
	assert.False(t, tr.Full(2))
	assert.True(t, tr.Full(3))
}

func TestModRecordNegativeSign(t *testing.T) {
	m := &ModRecord{Addr: 0x10, Length: 6, Negative: true, Symbol: "A"}
	assert.Equal(t, "M00001006-A", modRecord(m))
}

func TestDefinitionAndReferenceRecords(t *testing.T) {
	cs := newControlSection("A", 0)
	cs.ExternDefs = []string{"LISTA"}
	cs.Symbols["LISTA"] = &Symbol{Name: "LISTA", Value: 0x36}
	cs.ExternRefs = []string{"LISTB", "ENDOFA"}

	assert.Equal(t, "DLISTA 000036", definitionRecord(cs))
	assert.Equal(t, "RLISTB ENDOFA", referenceRecord(cs))
}
