package output

import (
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	t.Parallel()

	out := RenderTable([]string{"File", "Faces", "Flags"},
		[][]string{{"a.jpg", "1", "ok"}, {"b.jpg"}},
		[]Alignment{AlignLeft, AlignRight})

	assert.Contains(t, out, "a.jpg")
	assert.Contains(t, out, "b.jpg")
	assert.Equal(t, 5, strings.Count(out, "\n"), "top, header, separator, two rows, bottom")
}

func TestRenderTableWithoutHeaders(t *testing.T) {
	t.Parallel()

	assert.Empty(t, RenderTable(nil, [][]string{{"x"}}, nil))
}

func TestFlagsAndFailure(t *testing.T) {
	color.NoColor = true

	assert.Equal(t, "ok", Flags(nil))
	assert.Equal(t, "no_face, looking_away", Flags([]string{"no_face", "looking_away"}))
	assert.Equal(t, "error: boom", Failure(errors.New("boom")))
}
