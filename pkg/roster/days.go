package roster

import (
	"sort"
	"strconv"
	"strings"
)

var parenReplacer = strings.NewReplacer("（", "(", "）", ")")

// WeekdayToken extracts the weekday token from a day label such as
// "12(Tue)" or "12（火）". A label without parentheses is its own token.
func WeekdayToken(label string) (string, bool) {
	s := strings.TrimSpace(parenReplacer.Replace(label))
	if s == "" {
		return "", false
	}
	open := strings.LastIndex(s, "(")
	if open < 0 {
		if strings.Contains(s, ")") {
			return "", false
		}
		return s, true
	}
	end := strings.Index(s[open:], ")")
	if end < 0 {
		return "", false
	}
	tok := strings.TrimSpace(s[open+1 : open+end])
	return tok, tok != ""
}

// dayNumber returns the leading integer of a label, if any
func dayNumber(label string) (int, bool) {
	s := strings.TrimSpace(label)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	return n, err == nil
}

// sortDays orders labels by their leading day number, then lexically
func sortDays(days []string) {
	sort.SliceStable(days, func(i, j int) bool {
		a, aok := dayNumber(days[i])
		b, bok := dayNumber(days[j])
		switch {
		case aok && bok && a != b:
			return a < b
		case aok != bok:
			return aok
		}
		return days[i] < days[j]
	})
}
