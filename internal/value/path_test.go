package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePath(t *testing.T) {
	assert.Equal(t, []string{}, ParsePath(""))
	assert.Equal(t, []string{}, ParsePath("/"))
	assert.Equal(t, []string{"a", "x"}, ParsePath("/a/x"))
	assert.Equal(t, []string{"a", "x"}, ParsePath("a/x"))
	assert.Equal(t, []string{"a/b", "c~d"}, ParsePath("/a~1b/c~0d"))
}

func TestFormatPath(t *testing.T) {
	assert.Equal(t, "/", FormatPath(nil))
	assert.Equal(t, "/a/0", FormatPath([]string{"a", "0"}))
	assert.Equal(t, "/a~1b/c~0d", FormatPath([]string{"a/b", "c~d"}))
}

func TestPathRoundTrip(t *testing.T) {
	paths := [][]string{{"a"}, {"a", "b", "c"}, {"x/y", "~"}}
	for _, p := range paths {
		assert.Equal(t, p, ParsePath(FormatPath(p)))
	}
}
