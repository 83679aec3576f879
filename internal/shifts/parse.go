package shifts

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"dienstplan/internal/model"
)

const (
	// DefaultTitle is used when a block carries no title text.
	DefaultTitle = "Dienst"
	// DefaultDescription marks events as machine-extracted.
	DefaultDescription = "Automatisch aus Screenshot extrahiert"
)

// Observer receives diagnostic key/value traces from a parse run.
type Observer func(msg string, kv ...any)

// Parser turns OCR text into shift events. The zero value is usable and
// behaves like ParseShifts.
type Parser struct {
	// Fix selects the S/O misread correction; empty means global.
	Fix OCRFix
	// DefaultTitle overrides DefaultTitle when non-empty.
	DefaultTitle string
	// Description overrides DefaultDescription when non-empty.
	Description string
	// Observer, if set, receives debug traces.
	Observer Observer
}

// ParseShifts parses raw OCR text with default settings. now supplies the
// year/month when the text names none, and the location of the results.
func ParseShifts(rawText string, now time.Time) []model.Event {
	var p Parser
	return p.Parse(rawText, now)
}

// Parse normalizes the text, detects the base month and extracts events in
// document order. It never fails; text without blocks yields an empty slice.
func (p *Parser) Parse(rawText string, now time.Time) []model.Event {
	fix := p.Fix
	if fix == "" {
		fix = OCRFixGlobal
	}
	text := NormalizeWith(rawText, fix)
	p.trace("normalized text", "before_len", len(rawText), "after_len", len(text), "preview", preview(text, 300))

	hint := DetectMonthYear(text)
	year, month := hint.Resolve(now)
	p.trace("base date", "year", year, "month", month, "year_detected", hint.Year != nil, "month_detected", hint.Month != nil)

	if p.Observer != nil {
		p.traceLines(text)
	}

	title := DefaultTitle
	if p.DefaultTitle != "" {
		title = p.DefaultTitle
	}
	desc := DefaultDescription
	if p.Description != "" {
		desc = p.Description
	}

	loc := now.Location()
	lastDay := 0
	events := make([]model.Event, 0)

	for i, b := range scanBlocks(text) {
		p.trace("match", "index", i+1, "day", b.Day, "start", b.Start, "end", b.End, "weekday", b.Weekday, "title", b.Title, "at", b.At)

		day, _ := strconv.Atoi(b.Day)

		m, y := Rollover(lastDay, month, year, day)
		if m != month || y != year {
			p.trace("month rollover", "year", y, "month", m)
		}
		month, year = m, y
		lastDay = day

		ev := model.Event{
			Title:       strings.TrimSpace(b.Title),
			Start:       wallClock(year, month, day, b.Start, loc),
			End:         wallClock(year, month, day, b.End, loc),
			Description: desc,
		}
		if ev.Title == "" {
			ev.Title = title
		}
		if !ev.End.After(ev.Start) {
			ev.End = ev.End.AddDate(0, 0, 1)
		}
		events = append(events, ev)
	}

	p.trace("parse done", "events", len(events))
	return events
}

// wallClock builds a local time from a day and an "H:MM" clock. Out-of-range
// values normalize the way time.Date does.
func wallClock(year, month, day int, hhmm string, loc *time.Location) time.Time {
	h, mm, _ := strings.Cut(hhmm, ":")
	hour, _ := strconv.Atoi(h)
	minute, _ := strconv.Atoi(mm)
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
}

var (
	reTimeLine    = regexp.MustCompile(`\d{1,2}\s+\d{1,2}:\d{2}\s*-\s*\d{1,2}:\d{2}`)
	reWeekdayLine = regexp.MustCompile(`(?i)^(mo|di|mi|do|fr|sa|so)\.?`)
)

// traceLines reports which lines look like time lines or weekday lines, so
// near misses can be diagnosed from the debug log.
func (p *Parser) traceLines(text string) {
	lines := strings.Split(text, "\n")
	p.trace("lines", "count", len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if reTimeLine.MatchString(l) {
			p.trace("time line", "line", i, "text", strconv.Quote(l))
			if i+1 < len(lines) {
				p.trace("next line", "line", i+1, "text", strconv.Quote(lines[i+1]))
			}
		}
		if reWeekdayLine.MatchString(strings.TrimSpace(l)) {
			p.trace("weekday line", "line", i, "text", strconv.Quote(l))
		}
	}
}

func (p *Parser) trace(msg string, kv ...any) {
	if p.Observer != nil {
		p.Observer(msg, kv...)
	}
}

func preview(s string, n int) string {
	rs := []rune(s)
	if len(rs) > n {
		rs = rs[:n]
	}
	return strconv.Quote(string(rs))
}

// Summary is the one-line result shown after a parse.
func Summary(n int) string {
	if n == 0 {
		return "Keine Termine erkannt."
	}
	return strconv.Itoa(n) + " Termin(e) erkannt."
}
