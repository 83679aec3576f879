package shifts

import (
	"regexp"
	"strconv"
	"strings"

	"dienstplan/internal/model"
)

var reYear = regexp.MustCompile(`\b(20\d{2})\b`)

// monthNames lists the German month spellings in calendar order. The first
// entry with any variant present in the text decides the month, regardless
// of where in the text it appears.
var monthNames = []struct {
	month    int
	variants []string
}{
	{1, []string{"januar", "jan"}},
	{2, []string{"februar", "feb"}},
	{3, []string{"märz", "maerz", "mrz"}},
	{4, []string{"april", "apr"}},
	{5, []string{"mai"}},
	{6, []string{"juni", "jun"}},
	{7, []string{"juli", "jul"}},
	{8, []string{"august", "aug"}},
	{9, []string{"september", "sep"}},
	{10, []string{"oktober", "okt"}},
	{11, []string{"november", "nov"}},
	{12, []string{"dezember", "dez"}},
}

type monthPattern struct {
	month int
	re    *regexp.Regexp
}

var monthPatterns = compileMonthPatterns()

func compileMonthPatterns() []monthPattern {
	out := make([]monthPattern, 0, 32)
	for _, m := range monthNames {
		for _, v := range m.variants {
			out = append(out, monthPattern{
				month: m.month,
				re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(v) + `\.?\b`),
			})
		}
	}
	return out
}

// DetectMonthYear infers the schedule's base month and year from month
// names and 20xx year tokens anywhere in the text.
func DetectMonthYear(text string) model.MonthYearHint {
	t := strings.ToLower(text)

	var hint model.MonthYearHint
	for _, p := range monthPatterns {
		if p.re.MatchString(t) {
			m := p.month
			hint.Month = &m
			break
		}
	}

	if sm := reYear.FindStringSubmatch(t); sm != nil {
		if y, err := strconv.Atoi(sm[1]); err == nil {
			hint.Year = &y
		}
	}
	return hint
}
