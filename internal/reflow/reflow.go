// Package reflow re-wraps document text to a fixed column width while keeping
// link markup intact.
package reflow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// linkSpace stands in for spaces inside reinjected link text during the final
// wrap pass so a multi-word link stays on one line when it fits.
const linkSpace = '\x00'

var (
	footnotePattern = regexp.MustCompile(`\[\d+\]`)
	wikiLinkPattern = regexp.MustCompile(`\[\[([^|\]]+)(?:\|([^\]]+))?\]\]`)
	indentPattern   = regexp.MustCompile(`\n\s+`)
	runPattern      = regexp.MustCompile(`\S+|\s+`)
)

// Reflow converts raw document text into lines no wider than width display
// columns. Every case-insensitive occurrence of a link target is wrapped in
// square brackets using the casing found in the text, and numeric footnote
// markers are removed. Targets of one rune or less are ignored.
func Reflow(content string, width int, links []string) []string {
	width = clampWidth(width)
	content = strings.ReplaceAll(content, string(linkSpace), "")

	// Placeholders go in before any wrapping so link text is never split.
	content, placeholders := linkify(content, links)
	content = footnotePattern.ReplaceAllString(content, "")

	lines := wrapParagraphs(splitParagraphs(content), width, false)

	if len(placeholders) > 0 {
		pairs := make([]string, 0, len(placeholders)*2)
		for token, text := range placeholders {
			pairs = append(pairs, token, strings.ReplaceAll(text, " ", string(linkSpace)))
		}
		r := strings.NewReplacer(pairs...)
		for i, line := range lines {
			lines[i] = r.Replace(line)
		}
	}

	// Reinjected brackets can push a line past the limit.
	lines = wrapParagraphs(strings.Split(strings.Join(lines, "\n"), "\n\n"), width, true)
	for i, line := range lines {
		lines[i] = strings.ReplaceAll(line, string(linkSpace), " ")
	}
	return lines
}

// linkify replaces every link occurrence with a unique placeholder token and
// returns the token to bracketed-text mapping. All targets are matched in a
// single pass so overlapping targets can never be wrapped twice.
func linkify(content string, links []string) (string, map[string]string) {
	valid := ValidLinks(links)
	if len(valid) == 0 {
		return content, nil
	}
	// Longest first: at a given position the longer target wins.
	sort.SliceStable(valid, func(i, j int) bool { return len(valid[i]) > len(valid[j]) })

	quoted := make([]string, len(valid))
	for i, l := range valid {
		quoted[i] = regexp.QuoteMeta(l)
	}
	pattern := regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)

	placeholders := make(map[string]string)
	idx := 0
	out := pattern.ReplaceAllStringFunc(content, func(matched string) string {
		token := fmt.Sprintf("{PLCH%d}", idx)
		idx++
		placeholders[token] = "[" + matched + "]"
		return token
	})
	return out, placeholders
}

// ValidLinks returns the de-duplicated link targets longer than one rune.
func ValidLinks(links []string) []string {
	seen := make(map[string]bool, len(links))
	var out []string
	for _, l := range links {
		if utf8.RuneCountInString(l) <= 1 {
			continue
		}
		key := strings.ToLower(l)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// splitParagraphs splits text on blank lines, or on single newlines when the
// text has no blank lines at all.
func splitParagraphs(text string) []string {
	if strings.Contains(text, "\n\n") {
		return strings.Split(text, "\n\n")
	}
	return strings.Split(text, "\n")
}

// wrapParagraphs wraps each paragraph on its own, separating them with one
// empty line.
func wrapParagraphs(paras []string, width int, breakLong bool) []string {
	var lines []string
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lines = append(lines, wrap(p, width, breakLong)...)
		lines = append(lines, "")
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// Wrap greedily fills text into lines of at most width display columns.
// Runs of whitespace collapse to a single space and words longer than the
// width are broken.
func Wrap(text string, width int) []string {
	return wrap(text, clampWidth(width), true)
}

// WrapBlock wraps each line independently, keeping blank lines as paragraph
// separators and dropping trailing blank lines.
func WrapBlock(lines []string, width int) []string {
	width = clampWidth(width)
	var out []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}
		out = append(out, wrap(line, width, true)...)
	}
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return out
}

func wrap(text string, width int, breakLong bool) []string {
	var (
		lines []string
		cur   strings.Builder
		col   int
	)
	flush := func() {
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
			col = 0
		}
	}

	for _, word := range strings.Fields(text) {
		w := Width(word)
		if col > 0 && col+1+w <= width {
			cur.WriteByte(' ')
			cur.WriteString(word)
			col += 1 + w
			continue
		}
		flush()
		if w <= width || !breakLong {
			cur.WriteString(word)
			col = w
			continue
		}
		pieces := breakWord(word, width)
		lines = append(lines, pieces[:len(pieces)-1]...)
		last := pieces[len(pieces)-1]
		cur.WriteString(last)
		col = Width(last)
	}
	flush()
	return lines
}

// breakWord cuts a word into pieces of at most width columns. A word that
// carries protected link spaces is first split back into its words.
func breakWord(word string, width int) []string {
	if strings.ContainsRune(word, linkSpace) {
		return wrap(strings.ReplaceAll(word, string(linkSpace), " "), width, true)
	}
	var (
		pieces []string
		cur    strings.Builder
		col    int
	)
	for _, r := range word {
		rw := runeWidth(r)
		if col > 0 && col+rw > width {
			pieces = append(pieces, cur.String())
			cur.Reset()
			col = 0
		}
		cur.WriteRune(r)
		col += rw
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}

// Width returns the display width of s in terminal columns.
func Width(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

func runeWidth(r rune) int {
	if r == linkSpace {
		return 1
	}
	return runewidth.RuneWidth(r)
}

func clampWidth(width int) int {
	if width < 1 {
		return 1
	}
	return width
}

// StripWikiMarkup replaces [[Title]] with Title and [[Title|Shown]] with Shown.
func StripWikiMarkup(text string) string {
	return wikiLinkPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := wikiLinkPattern.FindStringSubmatch(m)
		if sub[2] != "" {
			return sub[2]
		}
		return sub[1]
	})
}

// CollapseIndent removes leading whitespace from every line after the first.
func CollapseIndent(text string) string {
	return indentPattern.ReplaceAllString(text, "\n")
}

// Runs splits s into alternating runs of whitespace and non-whitespace.
func Runs(s string) []string {
	return runPattern.FindAllString(s, -1)
}
