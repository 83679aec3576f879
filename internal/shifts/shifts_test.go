package shifts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feb2026 = time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"line endings", "a\r\nb\rc", "a\nb\nc"},
		{"dashes", "17:45 \u2013 22:15 \u2014 x", "17:45 - 22:15 - x"},
		{"nbsp", "11\u00a017:45", "11 17:45"},
		{"nbsp around dash", "17:45\u00a0\u2013\u00a0\u00a022:15", "17:45 - 22:15"},
		{"misreads", "1S:4S - 2O:OO", "15:45 - 20:00"},
		{"misreads in words", "SOMMER Kasse", "50MMER Kasse"},
		{"blanks", "11 \t  17:45\t-\t22:15", "11 17:45 - 22:15"},
		{"newlines kept", "a  \n\n  b", "a \n\n b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeNumericScope(t *testing.T) {
	got := NormalizeWith("1S 1S:4S - 2O:OO\nSo. SOMMER O8", OCRFixNumeric)
	assert.Equal(t, "15 15:45 - 20:00\nSo. SOMMER 08", got)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Dienstplan Februar 2026\r\n11 17:45 \u2013 22:15\r\nDo. Kasse - Total Kriftel",
		"\t\t  SOS    O\r\r\n",
		"1S 1S:4S \u2014 2O:OO\nSo. SOMMER",
		"  \n \t \n",
	}
	for _, fix := range []OCRFix{OCRFixGlobal, OCRFixNumeric} {
		for _, in := range inputs {
			once := NormalizeWith(in, fix)
			assert.Equal(t, once, NormalizeWith(once, fix), "fix=%s input=%q", fix, in)
		}
	}
}

func TestParseOCRFix(t *testing.T) {
	assert.Equal(t, OCRFixNumeric, ParseOCRFix(" Numeric "))
	assert.Equal(t, OCRFixGlobal, ParseOCRFix(""))
	assert.Equal(t, OCRFixGlobal, ParseOCRFix("whatever"))
}

func TestDetectMonthYear(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantYear  int
		wantMonth int
	}{
		{"full name", "Dienstplan Februar 2026", 2026, 2},
		{"umlaut", "März 2025", 2025, 3},
		{"ascii folded", "maerz", 0, 3},
		{"abbreviation with period", "Okt. 2024", 2024, 10},
		{"table order beats text order", "Dezember bis Januar 2027", 2027, 1},
		{"first year wins", "2031 und 2032", 2031, 0},
		{"no match", "Kasse 1999 Maifeld 12026", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := DetectMonthYear(tt.in)
			if tt.wantYear == 0 {
				assert.Nil(t, h.Year)
			} else {
				require.NotNil(t, h.Year)
				assert.Equal(t, tt.wantYear, *h.Year)
			}
			if tt.wantMonth == 0 {
				assert.Nil(t, h.Month)
			} else {
				require.NotNil(t, h.Month)
				assert.Equal(t, tt.wantMonth, *h.Month)
			}
		})
	}
}

func TestRollover(t *testing.T) {
	tests := []struct {
		name                 string
		lastDay, month, year int
		day                  int
		wantMonth, wantYear  int
	}{
		{"first day seen", 0, 5, 2026, 30, 5, 2026},
		{"increasing", 12, 5, 2026, 13, 5, 2026},
		{"same day", 12, 5, 2026, 12, 5, 2026},
		{"decrease", 28, 2, 2026, 1, 3, 2026},
		{"december wraps", 25, 12, 2026, 1, 1, 2027},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, y := Rollover(tt.lastDay, tt.month, tt.year, tt.day)
			assert.Equal(t, tt.wantMonth, m)
			assert.Equal(t, tt.wantYear, y)
		})
	}
}

func TestParseShiftsExample(t *testing.T) {
	events := ParseShifts("11 17:45 - 22:15\nDo. Kasse - Total Kriftel", feb2026)
	require.Len(t, events, 1)
	assert.Equal(t, "Kasse - Total Kriftel", events[0].Title)
	assert.Equal(t, at(2026, 2, 11, 17, 45), events[0].Start)
	assert.Equal(t, at(2026, 2, 11, 22, 15), events[0].End)
	assert.Equal(t, DefaultDescription, events[0].Description)
}

func TestParseShiftsEmpty(t *testing.T) {
	events := ParseShifts("", feb2026)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	assert.Empty(t, ParseShifts("Kein Dienstplan hier", feb2026))
}

func TestParseShiftsRolloverIntoNextYear(t *testing.T) {
	dec := time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC)
	text := "25 08:00 - 16:00\nMi. Frueh\n1 08:00 - 16:00\nMo. Frueh"

	events := ParseShifts(text, dec)
	require.Len(t, events, 2)
	assert.Equal(t, at(2026, 12, 25, 8, 0), events[0].Start)
	assert.Equal(t, at(2027, 1, 1, 8, 0), events[1].Start)
}

func TestParseShiftsDetectedMonth(t *testing.T) {
	text := "Dienstplan Februar 2026\n28 17:45 - 22:15\nMi. Kasse\n2 09:00 - 12:00\nMo. Lager"

	events := ParseShifts(text, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, events, 2)
	assert.Equal(t, at(2026, 2, 28, 17, 45), events[0].Start)
	assert.Equal(t, at(2026, 3, 2, 9, 0), events[1].Start)
	assert.Equal(t, "Lager", events[1].Title)
}

func TestParseShiftsKeepsDocumentOrder(t *testing.T) {
	text := "15 13:45 - 22:15\nmo Spaet\n11 17:45 - 22:15\ndo Kasse"

	events := ParseShifts(text, feb2026)
	require.Len(t, events, 2)
	assert.Equal(t, at(2026, 2, 15, 13, 45), events[0].Start)
	// 11 < 15 reads as the following month.
	assert.Equal(t, at(2026, 3, 11, 17, 45), events[1].Start)
}

func TestParseShiftsMidnight(t *testing.T) {
	events := ParseShifts("3 23:30 - 01:00\nFr Nachtschicht", feb2026)
	require.Len(t, events, 1)
	assert.Equal(t, at(2026, 2, 3, 23, 30), events[0].Start)
	assert.Equal(t, at(2026, 2, 4, 1, 0), events[0].End)
	assert.Equal(t, events[0].Start.AddDate(0, 0, 1).Day(), events[0].End.Day())
}

func TestParseShiftsEqualTimesEndNextDay(t *testing.T) {
	events := ParseShifts("3 08:00 - 08:00\nFr Inventur", feb2026)
	require.Len(t, events, 1)
	assert.True(t, events[0].End.After(events[0].Start))
	assert.Equal(t, at(2026, 2, 4, 8, 0), events[0].End)
}

func TestParseShiftsTitleVariants(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		title string
	}{
		{"default title", "5 10:00 - 12:00\nsa. ", DefaultTitle},
		{"title on next line", "11 17:45 - 22:15\nDo.\nKasse", "Kasse"},
		{"blank lines between", "\n\n11 17:45 - 22:15\n\n  Do Kasse  ", "Kasse"},
		{"upper case weekday", "11 17:45 - 22:15\nDI. Kasse", "Kasse"},
		{"single digit hour", "11 7:45 - 9:15\nDo. Frueh", "Frueh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := ParseShifts(tt.text, feb2026)
			require.Len(t, events, 1)
			assert.Equal(t, tt.title, events[0].Title)
		})
	}
}

func TestParseShiftsSkipsNearMisses(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no line break", "11 17:45 - 22:15 Do. Kasse"},
		{"wrong weekday", "11 17:45 - 22:15\nXy. Kasse"},
		{"three digit day", "111 17:45 - 22:15\nDo. Kasse"},
		{"missing hyphen", "11 17:45 22:15\nDo. Kasse"},
		{"three digit minutes", "11 17:455 - 22:15\nDo. Kasse"},
		{"not at line start", "x 11 17:45 - 22:15\nDo. Kasse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, ParseShifts(tt.text, feb2026))
		})
	}
}

func TestParseShiftsSundayNeedsNumericFix(t *testing.T) {
	text := "15 13:45 - 22:15\nSo. Kasse"

	assert.Empty(t, ParseShifts(text, feb2026), "global fix turns So. into 5o.")

	p := Parser{Fix: OCRFixNumeric}
	events := p.Parse(text, feb2026)
	require.Len(t, events, 1)
	assert.Equal(t, at(2026, 2, 15, 13, 45), events[0].Start)
}

func TestParserOverridesAndObserver(t *testing.T) {
	var msgs []string
	p := Parser{
		DefaultTitle: "Schicht",
		Description:  "aus OCR",
		Observer: func(msg string, _ ...any) {
			msgs = append(msgs, msg)
		},
	}

	events := p.Parse("4 10:00 - 12:00\nmi  ", feb2026)
	require.Len(t, events, 1)
	assert.Equal(t, "Schicht", events[0].Title)
	assert.Equal(t, "aus OCR", events[0].Description)
	assert.Contains(t, msgs, "normalized text")
	assert.Contains(t, msgs, "time line")
	assert.Contains(t, msgs, "match")
	assert.Contains(t, msgs, "parse done")
}

func TestParseIsStateless(t *testing.T) {
	text := "28 08:00 - 16:00\nMo. A\n1 08:00 - 16:00\nDi. B"
	first := ParseShifts(text, feb2026)
	second := ParseShifts(text, feb2026)
	assert.Equal(t, first, second)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Keine Termine erkannt.", Summary(0))
	assert.Equal(t, "3 Termin(e) erkannt.", Summary(3))
}
