package document

// Selection is the index of the selected link among the spans of the
// current page, or None.
type Selection int

// None means no link is selected.
const None Selection = -1

// Valid reports whether s selects a link among n on-page spans.
func (s Selection) Valid(n int) bool {
	return s >= 0 && int(s) < n
}

// Next moves to the following link. From None it selects the first link and
// past the last it clears the selection.
func (s Selection) Next(n int) Selection {
	if n == 0 {
		return None
	}
	if s == None {
		return 0
	}
	if int(s)+1 >= n {
		return None
	}
	return s + 1
}

// Prev moves to the preceding link. From None it selects the last link and
// before the first it clears the selection.
func (s Selection) Prev(n int) Selection {
	if n == 0 {
		return None
	}
	if s == None || int(s) >= n {
		return Selection(n - 1)
	}
	if s == 0 {
		return None
	}
	return s - 1
}
