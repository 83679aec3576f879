package ics

import (
	"strconv"
	"strings"
	"time"

	"dienstplan/internal/model"
)

const (
	DefaultProductID = "-//Dienstplan OCR//DE"
	DefaultUIDDomain = "dienstplan.local"
	DefaultFileName  = "dienstplan.ics"
	ContentType      = "text/calendar; charset=utf-8"

	// localLayout is a floating DATE-TIME: no Z suffix, no TZID.
	localLayout = "20060102T150405"
	crlf        = "\r\n"
)

// Encoder serializes events into an iCalendar document.
type Encoder struct {
	ProductID string
	UIDDomain string
	// Now supplies the generation timestamp shared by DTSTAMP and UIDs.
	// If nil, time.Now is used.
	Now func() time.Time
}

// NewEncoder returns an Encoder with the default product id and UID domain.
func NewEncoder() *Encoder {
	return &Encoder{
		ProductID: DefaultProductID,
		UIDDomain: DefaultUIDDomain,
		Now:       time.Now,
	}
}

// BuildCalendar encodes events with the default Encoder.
func BuildCalendar(events []model.Event) string {
	return NewEncoder().Encode(events)
}

// Encode renders one VEVENT per event, in order, wrapped in a VCALENDAR
// envelope. Every line ends with CRLF. All timestamps are local wall-clock
// values without zone markers.
func (e *Encoder) Encode(events []model.Event) string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	prodID := e.ProductID
	if prodID == "" {
		prodID = DefaultProductID
	}
	domain := e.UIDDomain
	if domain == "" {
		domain = DefaultUIDDomain
	}

	stamp := FormatLocal(now())

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString(crlf)
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:" + prodID)
	line("CALSCALE:GREGORIAN")
	for i, ev := range events {
		line("BEGIN:VEVENT")
		line("UID:" + stamp + "-" + strconv.Itoa(i) + "@" + domain)
		line("DTSTAMP:" + stamp)
		line("DTSTART:" + FormatLocal(ev.Start))
		line("DTEND:" + FormatLocal(ev.End))
		line("SUMMARY:" + EscapeText(ev.Title))
		line("DESCRIPTION:" + EscapeText(ev.Description))
		line("END:VEVENT")
	}
	line("END:VCALENDAR")
	return b.String()
}

// FormatLocal renders t's wall clock as YYYYMMDDTHHMMSS.
func FormatLocal(t time.Time) string {
	return t.Format(localLayout)
}

// EscapeText escapes a TEXT value. Backslashes go first so the escapes added
// afterwards are not doubled.
func EscapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, ";", `\;`)
	return s
}
