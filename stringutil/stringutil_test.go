package stringutil

import (
	"strings"
	"testing"

	"github.com/mezonai/mnlight/common"
	"github.com/stretchr/testify/assert"
)

func TestShortenLog(t *testing.T) {
	assert.Equal(t, "abc", ShortenLog("abc"))
	assert.Equal(t, strings.Repeat("a", 16), ShortenLog(strings.Repeat("a", 16)))
	assert.Equal(t, "01234567...89abcdef", ShortenLog("0123456789"+strings.Repeat("x", 20)+"0123456789abcdef"))
}

func TestShortHash(t *testing.T) {
	h := common.Hash{0xff}
	s := ShortHash(h)
	assert.Len(t, s, 19)
	assert.True(t, strings.HasSuffix(h.String(), s[len(s)-8:]))
}
