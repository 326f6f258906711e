// Package document holds a reflowed article together with its link and
// table-of-contents indices.
package document

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ziadkadry99/telewiki/internal/reflow"
)

var headingPattern = regexp.MustCompile(`^(={2,})([^=].*?)(={2,})\s*$`)

// Heading is a table-of-contents entry pointing at a raw source line.
type Heading struct {
	Title   string
	RawLine int
}

// LinkSpan is a bracketed link occurrence in the wrapped lines. Start and End
// are byte offsets into the line and include the brackets.
type LinkSpan struct {
	Line   int
	Start  int
	End    int
	Target string
}

// Document is a reflowed article. It is never modified after Build.
type Document struct {
	Title    string
	RawLines []string
	Lines    []string
	Links    []string
	TOC      []Heading

	width     int
	spansOnce sync.Once
	spans     []LinkSpan
}

// Build cleans content, extracts its table of contents and reflows it to width.
func Build(title, content string, links []string, width int) *Document {
	text := reflow.CollapseIndent(reflow.StripWikiMarkup(content))
	raw := strings.Split(text, "\n")
	valid := reflow.ValidLinks(links)
	return &Document{
		Title:    title,
		RawLines: raw,
		Lines:    reflow.Reflow(text, width, valid),
		Links:    valid,
		TOC:      ExtractTOC(raw),
		width:    width,
	}
}

// Width returns the column width the document was reflowed to.
func (d *Document) Width() int { return d.width }

// ExtractTOC finds "== Heading ==" lines with two or more equals signs.
func ExtractTOC(raw []string) []Heading {
	var toc []Heading
	for i, line := range raw {
		m := headingPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[2])
		if title == "" {
			continue
		}
		toc = append(toc, Heading{Title: title, RawLine: i})
	}
	return toc
}

// TOCTitles returns the heading titles in document order.
func (d *Document) TOCTitles() []string {
	titles := make([]string, len(d.TOC))
	for i, h := range d.TOC {
		titles[i] = h.Title
	}
	return titles
}

// LinkSpans returns every bracketed link occurrence in the wrapped lines,
// sorted by line and then start offset. The result is computed once.
func (d *Document) LinkSpans() []LinkSpan {
	d.spansOnce.Do(func() {
		d.spans = findSpans(d.Lines, d.Links)
	})
	return d.spans
}

func findSpans(lines, links []string) []LinkSpan {
	if len(links) == 0 {
		return nil
	}
	sorted := append([]string(nil), links...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	canonical := make(map[string]string, len(sorted))
	quoted := make([]string, len(sorted))
	for i, l := range sorted {
		quoted[i] = regexp.QuoteMeta(l)
		canonical[strings.ToLower(l)] = l
	}
	pattern := regexp.MustCompile(`(?i)\[(` + strings.Join(quoted, "|") + `)\]`)

	var spans []LinkSpan
	for i, line := range lines {
		for _, m := range pattern.FindAllStringSubmatchIndex(line, -1) {
			target, ok := canonical[strings.ToLower(line[m[2]:m[3]])]
			if !ok {
				continue
			}
			spans = append(spans, LinkSpan{Line: i, Start: m[0], End: m[1], Target: target})
		}
	}
	return spans
}

// PageLinks returns the spans that fall on lines [start, end).
func PageLinks(spans []LinkSpan, start, end int) []LinkSpan {
	lo := sort.Search(len(spans), func(i int) bool { return spans[i].Line >= start })
	hi := sort.Search(len(spans), func(i int) bool { return spans[i].Line >= end })
	if lo >= hi {
		return nil
	}
	return spans[lo:hi]
}

// RenderSelected replaces the brackets of span with angle brackets.
func RenderSelected(line string, span LinkSpan) string {
	if span.Start < 0 || span.End > len(line) || span.End-span.Start < 2 {
		return line
	}
	return line[:span.Start] + "<" + line[span.Start+1:span.End-1] + ">" + line[span.End:]
}

// HeadingPage returns the page that heading i starts on, measured by
// reflowing every raw line before it at the document width.
func (d *Document) HeadingPage(i, pageSize int) int {
	if i < 0 || i >= len(d.TOC) || pageSize < 1 {
		return 0
	}
	before := strings.Join(d.RawLines[:d.TOC[i].RawLine], "\n")
	n := 0
	if strings.TrimSpace(before) != "" {
		n = len(reflow.Reflow(before, d.width, d.Links))
	}
	page := n / pageSize
	total := (len(d.Lines) + pageSize - 1) / pageSize
	if total > 0 && page >= total {
		page = total - 1
	}
	return page
}
