package domain

import (
	"time"
)

// EmployeeRecord is one row of the personnel snapshot. Dates are UTC midnight.
type EmployeeRecord struct {
	EmployeeID  string     `json:"employee_id" validate:"required"`
	Name        string     `json:"name"`
	BirthDate   time.Time  `json:"birth_date" validate:"required"`
	EntryDate   time.Time  `json:"entry_date" validate:"required"`
	ExitDate    *time.Time `json:"exit_date,omitempty"`
	ReentryDate *time.Time `json:"reentry_date,omitempty"` // recorded but not analysed
	JobTitle    string     `json:"job_title" validate:"required"`
	Company     string     `json:"company"` // recorded but not analysed
}

// HasExit reports whether the record carries an exit date.
func (r EmployeeRecord) HasExit() bool {
	return r.ExitDate != nil
}

// Date returns t as a UTC midnight date value.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
