package sicxe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitListingIncludesBannerAndSourceLine(t *testing.T) {
	src := "COPY   START  1000\n       LDA    FIVE\nFIVE   WORD   5\n       END    COPY\n"
	res, errs := Assemble("copy.asm", src)
	assert.Empty(t, errs)

	assert.True(t, strings.HasPrefix(res.Listing, listingBanner))
	assert.Contains(t, res.Listing, "LDA    FIVE")
	assert.Contains(t, res.Listing, "032000")
}

func TestEmitListingShowsFlushedLiteralRow(t *testing.T) {
	src := "A      START  0\n       LDA    =C'EOF'\nBIG    RESB   200\n       END\n"
	res, errs := Assemble("lit.asm", src)
	assert.Empty(t, errs)
	assert.Contains(t, res.Listing, "*       =C'EOF'")
}

func TestHexBytesOfEmptySliceIsEmptyString(t *testing.T) {
	assert.Equal(t, "", hexBytes(nil))
	assert.Equal(t, "0A1B", hexBytes([]byte{0x0A, 0x1B}))
}
