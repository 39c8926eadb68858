package tui

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportScrollRightKeepsEscapes(t *testing.T) {
	v := NewViewport(5, 1)
	v.SetContentLines([]string{"\x1b[31mhello world\x1b[0m"})
	v.ScrollRight(6)

	lines := v.renderScrolled()
	require.Len(t, lines, 1)
	assert.Equal(t, "world", ansi.Strip(lines[0]))
	assert.Equal(t, 5, ansi.StringWidth(lines[0]))
}

func TestViewportScrollsByDisplayWidth(t *testing.T) {
	v := NewViewport(4, 1)
	v.SetContentLines([]string{"东京大阪札幌"})

	assert.Equal(t, "东京", v.renderScrolled()[0])
	v.ScrollRight(4)
	assert.Equal(t, "大阪", v.renderScrolled()[0])
}

func TestViewportWrapsByDisplayWidth(t *testing.T) {
	v := NewViewport(4, 2)
	v.SetContentLines([]string{"东京大阪札幌", "ok"})
	v.ToggleWrap()

	for _, line := range v.wrappedLines() {
		assert.LessOrEqual(t, ansi.StringWidth(line), 4, "line %q", line)
	}
	assert.Equal(t, []string{"东京", "大阪", "札幌", "ok"}, v.wrappedLines())
	assert.Equal(t, 2, v.maxScrollY())

	v.End()
	assert.Equal(t, []string{"札幌", "ok"}, v.renderWrapped())
}
