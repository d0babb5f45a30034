package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutline(t *testing.T) {
	src := `
def title(s, sep=" ", *rest, **opts):
    """Title-case a string."""
    return s.title()

def plain(n=-1):
    return n

def _hidden():
    pass

shout = lambda s: s.upper()
`
	defs, err := outline("plugins/text.star", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, Outline{
		"title": {Line: 2, Doc: "Title-case a string."},
		"plain": {Line: 6},
	}, defs)
}

func TestOutline_SyntaxError(t *testing.T) {
	_, err := outline("bad.star", []byte("def (:\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.star:1")
}
