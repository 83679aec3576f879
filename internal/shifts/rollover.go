package shifts

// Rollover advances the month when a day number goes backwards, e.g. 28
// followed by 1. A lastDay of 0 means no day has been seen yet. December
// wraps to January of the following year.
func Rollover(lastDay, month, year, day int) (int, int) {
	if lastDay == 0 || day >= lastDay {
		return month, year
	}
	month++
	if month > 12 {
		month = 1
		year++
	}
	return month, year
}
