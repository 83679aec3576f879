package shifts

import "strings"

// block is one raw schedule entry as it appears in the text:
//
//	11 17:45 - 22:15
//	Do. Kasse - Total Kriftel
type block struct {
	Day     string
	Start   string
	End     string
	Weekday string
	Title   string
	At      int // rune offset where the match began
}

var weekdays = map[string]bool{
	"mo": true, "di": true, "mi": true, "do": true, "fr": true, "sa": true, "so": true,
}

// scanBlocks walks the text left to right and returns every non-overlapping
// block. A block may only begin at the start of the text or at a newline.
// Whitespace between tokens may span lines; the time line and the weekday
// line must be separated by at least one newline. Anything that deviates
// is skipped without a partial result.
func scanBlocks(text string) []block {
	rs := []rune(text)
	var out []block

	pos := 0
	for pos < len(rs) {
		next := -1
		for i := pos; i < len(rs); i++ {
			if i != 0 && rs[i] != '\n' {
				continue
			}
			from := i
			if rs[i] == '\n' {
				from = i + 1
			}
			if b, end, ok := matchBlock(rs, from); ok {
				b.At = i
				out = append(out, b)
				next = end
				break
			}
		}
		if next < 0 {
			break
		}
		pos = next
	}
	return out
}

// matchBlock tries to read one block starting at p. It returns the block and
// the offset just past the title.
func matchBlock(rs []rune, p int) (block, int, bool) {
	var b block

	p = skipSpace(rs, p)
	n := digitRun(rs, p)
	if n < 1 || n > 2 {
		return b, 0, false
	}
	b.Day = string(rs[p : p+n])
	p += n

	q := skipSpace(rs, p)
	if q == p {
		return b, 0, false
	}

	start, p, ok := readClock(rs, q)
	if !ok {
		return b, 0, false
	}
	b.Start = start

	p = skipSpace(rs, p)
	if p >= len(rs) || rs[p] != '-' {
		return b, 0, false
	}
	p = skipSpace(rs, p+1)

	end, p, ok := readClock(rs, p)
	if !ok {
		return b, 0, false
	}
	b.End = end

	q = skipSpace(rs, p)
	if !containsNewline(rs[p:q]) {
		return b, 0, false
	}
	p = q

	if p+2 > len(rs) {
		return b, 0, false
	}
	wd := strings.ToLower(string(rs[p : p+2]))
	if !weekdays[wd] {
		return b, 0, false
	}
	b.Weekday = wd

	title, endAt, ok := readTitle(rs, p+2)
	if !ok {
		return b, 0, false
	}
	b.Title = title
	return b, endAt, true
}

// readClock reads H:MM or HH:MM.
func readClock(rs []rune, p int) (string, int, bool) {
	h := digitRun(rs, p)
	if h < 1 || h > 2 {
		return "", 0, false
	}
	c := p + h
	if c+2 >= len(rs) || rs[c] != ':' || !isDigit(rs[c+1]) || !isDigit(rs[c+2]) {
		return "", 0, false
	}
	return string(rs[p : c+3]), c + 3, true
}

// readTitle consumes the optional whitespace, optional period and the rest of
// the line after a weekday. The title is one or more characters up to the
// next newline or the end of the text. Whitespace before the title may
// include newlines, so a title can sit on the line below the weekday. When
// the preferred split leaves nothing, whitespace is given back one character
// at a time until a non-empty title fits.
func readTitle(rs []rune, p int) (string, int, bool) {
	lead := skipSpace(rs, p)
	for a := lead; a >= p; a-- {
		afterDot := []int{a}
		if a < len(rs) && rs[a] == '.' {
			afterDot = []int{a + 1, a}
		}
		for _, d := range afterDot {
			gap := skipSpace(rs, d)
			for c := gap; c >= d; c-- {
				if e, ok := lineEnd(rs, c); ok {
					return string(rs[c:e]), e, true
				}
			}
		}
	}
	return "", 0, false
}

// lineEnd returns the offset of the newline (or end of text) that ends a
// non-empty title starting at p. Other line terminators inside the title
// make it unusable.
func lineEnd(rs []rune, p int) (int, bool) {
	e := p
	for e < len(rs) && rs[e] != '\n' {
		if isLineTerminator(rs[e]) {
			return 0, false
		}
		e++
	}
	return e, e > p
}

func isLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

func skipSpace(rs []rune, p int) int {
	for p < len(rs) && isSpace(rs[p]) {
		p++
	}
	return p
}

func digitRun(rs []rune, p int) int {
	n := 0
	for p+n < len(rs) && isDigit(rs[p+n]) {
		n++
	}
	return n
}

func containsNewline(rs []rune) bool {
	for _, r := range rs {
		if r == '\n' {
			return true
		}
	}
	return false
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// isSpace matches the whitespace class of common regex engines, including
// the Unicode space separators OCR output tends to carry.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}
