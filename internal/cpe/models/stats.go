package models

import "time"

// Summary is the per-user hour breakdown.
type Summary struct {
	TotalHours       float64
	CurrentYear      int
	CurrentYearHours float64
	ByCategory       map[Category]float64
	ByStatus         map[Status]int
	ActivitiesCount  int
}

// Overview is the admin-wide breakdown for a date range.
type Overview struct {
	ByStatus           map[Status]int
	ByCategory         map[Category]float64
	TotalApprovedHours float64
	AverageHours       float64
	From               time.Time
	To                 time.Time
}

// YearWindow is January 1 through December 31 of year.
func YearWindow(year int) Window {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return Window{From: &from, To: &to}
}
