package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marsContent = `Mars is the fourth planet from the [[Sun]].

== Name ==
Mars is named after the Roman god of war.[1]

=== Moons ===
Mars has two moons, Phobos and Deimos.`

func TestBuild(t *testing.T) {
	doc := Build("Mars", marsContent, []string{"Sun", "Phobos", "Roman god", "a"}, 80)

	assert.Equal(t, "Mars", doc.Title)
	assert.Equal(t, 80, doc.Width())
	assert.Equal(t, []string{"Sun", "Phobos", "Roman god"}, doc.Links)
	require.Len(t, doc.TOC, 2)
	assert.Equal(t, Heading{Title: "Name", RawLine: 1}, doc.TOC[0])
	assert.Equal(t, Heading{Title: "Moons", RawLine: 3}, doc.TOC[1])
	assert.Equal(t, []string{"Name", "Moons"}, doc.TOCTitles())

	for _, line := range doc.Lines {
		assert.NotContains(t, line, "[[")
		assert.NotContains(t, line, "[1]")
	}
	assert.Contains(t, doc.Lines[0], "[Sun]")
}

func TestExtractTOC(t *testing.T) {
	raw := []string{
		"intro",
		"== History ==",
		"= Single =",
		"  ==== Deep ====  ",
		"====",
		"text with == inside ==",
	}
	toc := ExtractTOC(raw)
	assert.Equal(t, []Heading{
		{Title: "History", RawLine: 1},
		{Title: "Deep", RawLine: 3},
	}, toc)
}

func TestLinkSpans(t *testing.T) {
	doc := &Document{
		Lines: []string{
			"the [Sun] and [sun]",
			"no links here",
			"[Solar System] plus [Sun]",
		},
		Links: []string{"Sun", "Solar System"},
	}
	spans := doc.LinkSpans()
	require.Len(t, spans, 4)
	assert.Equal(t, LinkSpan{Line: 0, Start: 4, End: 9, Target: "Sun"}, spans[0])
	assert.Equal(t, LinkSpan{Line: 0, Start: 14, End: 19, Target: "Sun"}, spans[1])
	assert.Equal(t, LinkSpan{Line: 2, Start: 0, End: 14, Target: "Solar System"}, spans[2])
	assert.Equal(t, LinkSpan{Line: 2, Start: 20, End: 25, Target: "Sun"}, spans[3])

	// Computed once.
	assert.Same(t, &spans[0], &doc.LinkSpans()[0])
}

func TestPageLinks(t *testing.T) {
	spans := []LinkSpan{{Line: 0}, {Line: 2}, {Line: 2, Start: 5}, {Line: 5}}
	assert.Len(t, PageLinks(spans, 0, 2), 1)
	assert.Len(t, PageLinks(spans, 2, 4), 2)
	assert.Empty(t, PageLinks(spans, 3, 5))
	assert.Len(t, PageLinks(spans, 0, 10), 4)
}

func TestRenderSelected(t *testing.T) {
	line := "the [Sun] rises"
	got := RenderSelected(line, LinkSpan{Start: 4, End: 9})
	assert.Equal(t, "the <Sun> rises", got)
	assert.Equal(t, line, RenderSelected(line, LinkSpan{Start: 4, End: 99}))
}

func TestSelectionCycle(t *testing.T) {
	s := None
	s = s.Next(3)
	assert.Equal(t, Selection(0), s)
	s = s.Next(3).Next(3)
	assert.Equal(t, Selection(2), s)
	assert.Equal(t, None, s.Next(3), "past the last clears")

	s = None.Prev(3)
	assert.Equal(t, Selection(2), s)
	assert.Equal(t, None, Selection(0).Prev(3), "before the first clears")

	assert.Equal(t, None, None.Next(0))
	assert.Equal(t, None, None.Prev(0))
	assert.True(t, Selection(1).Valid(2))
	assert.False(t, None.Valid(2))
	assert.False(t, Selection(2).Valid(2))
}

func TestHeadingPage(t *testing.T) {
	doc := Build("Mars", marsContent, nil, 80)
	// Raw lines: intro, "== Name ==", body, "=== Moons ===", body.
	// Reflowed: each raw line is its own paragraph separated by blanks.
	require.Len(t, doc.Lines, 9)

	assert.Equal(t, 1, doc.HeadingPage(0, 1))
	assert.Equal(t, 5, doc.HeadingPage(1, 1))
	assert.Equal(t, 1, doc.HeadingPage(1, 5))
	assert.Equal(t, 0, doc.HeadingPage(0, 5))
	assert.Equal(t, 0, doc.HeadingPage(7, 5), "unknown heading")
	assert.Equal(t, 0, doc.HeadingPage(0, 0))
}
