package session

import (
	"github.com/ziadkadry99/telewiki/internal/chat"
	"github.com/ziadkadry99/telewiki/internal/document"
	"github.com/ziadkadry99/telewiki/internal/pager"
	"github.com/ziadkadry99/telewiki/internal/search"
)

// Frame is the browsing state of one open document.
type Frame struct {
	Doc      *document.Document
	Spans    []document.LinkSpan
	Pager    pager.State
	Selected document.Selection
	Search   search.State
	// Chat is the assistant conversation about this document, created on
	// first use.
	Chat *chat.Conversation
	// notice replaces the blank line above the status line on the next draw.
	notice string
}

// NewFrame opens doc at page.
func NewFrame(doc *document.Document, pageSize, page int) *Frame {
	f := &Frame{
		Doc:      doc,
		Spans:    doc.LinkSpans(),
		Pager:    pager.NewState(len(doc.Lines), pageSize),
		Selected: document.None,
	}
	f.Pager.Jump(page)
	return f
}

// PageLinks returns the link spans on the current page.
func (f *Frame) PageLinks() []document.LinkSpan {
	start, end := f.Pager.Bounds()
	return document.PageLinks(f.Spans, start, end)
}

// SelectedLink returns the selected on-page span, if any.
func (f *Frame) SelectedLink() (document.LinkSpan, bool) {
	links := f.PageLinks()
	if !f.Selected.Valid(len(links)) {
		return document.LinkSpan{}, false
	}
	return links[f.Selected], true
}

// DisplayLine renders line i with the link selection and search highlight
// applied.
func (f *Frame) DisplayLine(i int) string {
	line := f.Doc.Lines[i]
	if span, ok := f.SelectedLink(); ok && span.Line == i {
		line = document.RenderSelected(line, span)
	}
	if f.Search.Active() {
		line = search.Highlight(line, f.Search.Term)
	}
	return line
}

// FrameStack holds the documents opened by following links. The top frame
// is the one on screen.
type FrameStack struct {
	frames []*Frame
}

// Push opens f on top of the stack.
func (s *FrameStack) Push(f *Frame) { s.frames = append(s.frames, f) }

// Pop removes and returns the top frame, or nil when empty.
func (s *FrameStack) Pop() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

// Top returns the frame on screen, or nil when empty.
func (s *FrameStack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Len returns the stack depth.
func (s *FrameStack) Len() int { return len(s.frames) }
