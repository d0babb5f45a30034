package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestRenderer_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	assert.Equal(t, "OK", r.Success("OK"))
	assert.Equal(t, "failed", r.Status(core.RunStatusFailed))
	r.Errorf(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
	assert.False(t, IsTerminal(&buf))
}

func TestRenderer_Styled(t *testing.T) {
	r := NewRendererWithTTY(new(bytes.Buffer), true)

	got := r.Status(core.RunStatusCompleted)
	assert.Contains(t, got, "completed")
	assert.Contains(t, got, "\x1b[")
	assert.NotEqual(t, r.Status(core.RunStatusCompleted), r.Status(core.RunStatusFailed))
}
