package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "dienstplan/internal/log"
	"dienstplan/internal/model"
)

// Entry is a decoded VEVENT together with its UID.
type Entry struct {
	UID   string
	Event model.Event
}

// Decode parses an iCalendar payload into entries, in document order.
// Floating (zone-less) times are placed in loc; nil means time.Local.
// VEVENTs that cannot be read are logged and skipped. TEXT values come back
// unescaped from the parser.
func Decode(body []byte, loc *time.Location) ([]Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "bytes", len(body))
		return nil, err
	}

	entries := make([]Entry, 0)
	for _, comp := range cal.Events() {
		e, perr := decodeVEvent(comp, loc)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		entries = append(entries, e)
	}

	appLog.Debug("ics parse completed", "event_count", len(entries))
	return entries, nil
}

func decodeVEvent(ve *ical.VEvent, loc *time.Location) (Entry, error) {
	var out Entry

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Event.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Event.Description = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, fmt.Errorf("event %s: missing DTSTART", out.UID)
	}
	start, err := parseICSTime(startProp.Value, loc)
	if err != nil {
		return out, fmt.Errorf("event %s: DTSTART: %w", out.UID, err)
	}
	out.Event.Start = start

	// A missing DTEND means a zero-length event.
	out.Event.End = start
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, err := parseICSTime(endProp.Value, loc)
		if err != nil {
			return out, fmt.Errorf("event %s: DTEND: %w", out.UID, err)
		}
		out.Event.End = end
	}

	return out, nil
}

// parseICSTime parses a basic ICS date/date-time string.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse(localLayout+"Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation(localLayout, v, loc)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}
