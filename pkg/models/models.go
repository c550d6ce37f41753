package models

import "fmt"

// Category tags an employee as a real person or as one of the placeholder pools
type Category string

const (
	CategoryNormal    Category = "normal"
	CategoryShortage  Category = "shortage"
	CategoryUnneeded  Category = "unneeded"
	CategoryMedical   Category = "medical"
	CategoryTempStaff Category = "temp_staff"
)

// Categories lists every known category in a stable order
var Categories = []Category{
	CategoryNormal,
	CategoryShortage,
	CategoryUnneeded,
	CategoryMedical,
	CategoryTempStaff,
}

// ParseCategory validates a category name
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// IsSentinel reports whether the category is a placeholder rather than a person
func (c Category) IsSentinel() bool {
	return c != CategoryNormal
}

// CountsSlots reports whether variables for this category hold a slot count
// instead of a 0/1 occupancy
func (c Category) CountsSlots() bool {
	switch c {
	case CategoryShortage, CategoryUnneeded, CategoryMedical:
		return true
	}
	return false
}

// Sentinels maps placeholder categories to the literal identifiers that carry them
type Sentinels map[Category][]string

// Lookup returns the category configured for an identifier, or normal
func (s Sentinels) Lookup(id string) Category {
	for _, c := range Categories {
		for _, name := range s[c] {
			if name == id {
				return c
			}
		}
	}
	return CategoryNormal
}

// Dataset is the normalized roster input handed over by the table readers
type Dataset struct {
	Days              []string                   `json:"days,omitempty" yaml:"days,omitempty"`
	Roles             []string                   `json:"roles,omitempty" yaml:"roles,omitempty"`
	Availabilities    map[string]map[string]bool `json:"availabilities" yaml:"availabilities" binding:"required,min=1"`
	Capabilities      map[string]map[string]bool `json:"capabilities" yaml:"capabilities" binding:"required,min=1"`
	FullTime          map[string]bool            `json:"fulltime,omitempty" yaml:"fulltime,omitempty"`
	Weights           map[string]float64         `json:"weights,omitempty" yaml:"weights,omitempty"`
	RequiredHeadcount map[string]map[string]int  `json:"required_headcount,omitempty" yaml:"required_headcount,omitempty"`
	Categories        map[string]Category        `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// DaySchedule maps a role to the filled slots for one day
type DaySchedule map[string][]string

// Clone returns a deep copy
func (d DaySchedule) Clone() DaySchedule {
	out := make(DaySchedule, len(d))
	for role, emps := range d {
		out[role] = append([]string(nil), emps...)
	}
	return out
}

// ScheduleEntry is one (day, trial) row of the output
type ScheduleEntry struct {
	Label string      `json:"label"`
	Day   string      `json:"day"`
	Trial int         `json:"trial"`
	Roles DaySchedule `json:"roles"`
}

// DayFailure records why a day fell back to the unassigned schedule
type DayFailure struct {
	Day    string `json:"day"`
	Trial  int    `json:"trial"`
	Reason string `json:"reason"`
}

// ScheduleRequest is the data structure for the JSON scheduling endpoint
type ScheduleRequest struct {
	Dataset   Dataset  `json:"dataset"`
	Trials    int      `json:"trials,omitempty" binding:"omitempty,min=1,max=50"`
	Objective string   `json:"objective,omitempty" binding:"omitempty,oneof=penalty weighted"`
	Seed      *int64   `json:"seed,omitempty"`
	Days      []string `json:"only_days,omitempty"`
}

// ScheduleResponse is the data structure for the scheduling result
type ScheduleResponse struct {
	RunID    string          `json:"run_id"`
	Schedule []ScheduleEntry `json:"schedule"`
	Failures []DayFailure    `json:"failures,omitempty"`
}
