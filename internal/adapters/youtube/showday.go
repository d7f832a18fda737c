package youtube

import (
	"regexp"
	"strconv"
)

const maxShowDay = 100

// Broadcast titles carry the running day of the show in a handful of
// formats; more specific patterns are tried first.
var showDayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)LA CASA.*?DIA\s*(\d+)`),
	regexp.MustCompile(`(?i)DIA\s*(\d+)`),
	regexp.MustCompile(`(?i)DAY\s*(\d+)`),
}

// ShowDay extracts the show day from a broadcast title. Returns false
// when no pattern matches or the number is out of range.
func ShowDay(title string) (int, bool) {
	for _, re := range showDayPatterns {
		m := re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > maxShowDay {
			continue
		}
		return day, true
	}
	return 0, false
}
