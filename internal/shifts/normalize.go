package shifts

import (
	"strings"
)

// OCRFix selects how the S→5 / O→0 misread correction is applied.
type OCRFix string

const (
	// OCRFixGlobal replaces every uppercase S and O in the text, including
	// inside ordinary words.
	OCRFixGlobal OCRFix = "global"
	// OCRFixNumeric only touches tokens that already look numeric, such as
	// "1S:4S" or "O8".
	OCRFixNumeric OCRFix = "numeric"
)

// ParseOCRFix maps a config value to an OCRFix, defaulting to global.
func ParseOCRFix(s string) OCRFix {
	if OCRFix(strings.ToLower(strings.TrimSpace(s))) == OCRFixNumeric {
		return OCRFixNumeric
	}
	return OCRFixGlobal
}

var (
	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	dashes      = strings.NewReplacer("\u2013", "-", "\u2014", "-")
	nbsp        = strings.NewReplacer("\u00a0", " ")
	misreads    = strings.NewReplacer("S", "5", "O", "0")
)

// Normalize cleans raw OCR text with the global misread correction.
func Normalize(text string) string {
	return NormalizeWith(text, OCRFixGlobal)
}

// NormalizeWith cleans raw OCR text: unified line endings, ASCII hyphens,
// ordinary spaces, S/O misread correction and collapsed horizontal
// whitespace, in that order. The result is stable under repeated application.
func NormalizeWith(text string, fix OCRFix) string {
	out := lineEndings.Replace(text)
	out = dashes.Replace(out)
	out = nbsp.Replace(out)
	if fix == OCRFixNumeric {
		out = fixNumericTokens(out)
	} else {
		out = misreads.Replace(out)
	}
	return collapseBlanks(out)
}

// collapseBlanks folds runs of spaces and tabs into one space. Newlines are kept.
func collapseBlanks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if !inRun {
				b.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

func fixNumericTokens(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := s[start:end]
		if looksNumeric(tok) {
			tok = misreads.Replace(tok)
		}
		b.WriteString(tok)
		start = -1
	}
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			flush(i)
			b.WriteRune(r)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(s))
	return b.String()
}

func looksNumeric(tok string) bool {
	digits := 0
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == 'S', r == 'O', r == ':', r == '.', r == '-':
		default:
			return false
		}
	}
	return digits > 0
}
