package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeekdayToken(t *testing.T) {
	cases := []struct {
		label string
		want  string
		ok    bool
	}{
		{"12(Tue)", "Tue", true},
		{"12（火）", "火", true},
		{" 3 ( Wed ) ", "Wed", true},
		{"Sat", "Sat", true},
		{"1(a)(Mon)", "Mon", true},
		{"12(Tue", "", false},
		{"12)", "", false},
		{"12()", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := WeekdayToken(c.label)
		assert.Equal(t, c.ok, ok, c.label)
		assert.Equal(t, c.want, got, c.label)
	}
}

func TestSortDays(t *testing.T) {
	days := []string{"10(Thu)", "2(Tue)", "extra", "1(Mon)", "after"}
	sortDays(days)
	assert.Equal(t, []string{"1(Mon)", "2(Tue)", "10(Thu)", "after", "extra"}, days)
}
