// Package features derives the per-employee model inputs from raw record dates.
package features

import (
	"fmt"
	"time"

	"hrcli/internal/encoder"
	apperrors "hrcli/internal/errors"
	"hrcli/pkg/contracts/domain"
)

// DaysPerYear converts calendar day differences into years.
const DaysPerYear = 365.25

// Age limits of the modeled bucket domain, in years.
const (
	MinAge = 0.0
	MaxAge = 100.0
)

// AgeBucket groups age at entry into fixed right-inclusive ranges.
type AgeBucket int

const (
	Young       AgeBucket = iota // (0,25]
	Mid                          // (25,35]
	Experienced                  // (35,45]
	Senior                       // (45,100]
)

var bucketUpper = [...]float64{25, 35, 45, MaxAge}

var bucketNames = [...]string{"Young", "Mid", "Experienced", "Senior"}

var bucketLabels = [...]string{"Jung", "Mittel", "Erfahren", "Senior"}

func (b AgeBucket) String() string {
	if b < Young || b > Senior {
		return fmt.Sprintf("AgeBucket(%d)", int(b))
	}
	return bucketNames[b]
}

// Label returns the German report label of the bucket.
func (b AgeBucket) Label() string {
	if b < Young || b > Senior {
		return b.String()
	}
	return bucketLabels[b]
}

// MarshalText encodes the bucket by name.
func (b AgeBucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// BucketForAge returns the bucket of age. Ages outside (0,100] are rejected.
func BucketForAge(age float64) (AgeBucket, error) {
	if age <= MinAge || age > MaxAge {
		return 0, apperrors.NewValueOutOfRangeError(
			fmt.Sprintf("age at entry %.4f outside (%g,%g]", age, MinAge, MaxAge)).
			WithContext("age", age)
	}
	for i, upper := range bucketUpper {
		if age <= upper {
			return AgeBucket(i), nil
		}
	}
	return Senior, nil
}

// Derived holds the features computed for one record.
type Derived struct {
	EmployeeID   string    `json:"employee_id"`
	AgeAtEntry   float64   `json:"age_at_entry"`
	TenureYears  float64   `json:"tenure_years"`
	EntryMonth   int       `json:"entry_month"`
	EntryYear    int       `json:"entry_year"`
	AgeBucket    AgeBucket `json:"age_bucket"`
	JobTitleCode int       `json:"job_title_code"`
	JobTitle     string    `json:"job_title"`
	Departed     bool      `json:"departed"`
}

// Label returns the classifier target: 1 when the employee has departed.
func (d Derived) Label() int {
	if d.Departed {
		return 1
	}
	return 0
}

// Set is the result of a derivation run.
type Set struct {
	Rows          []Derived
	JobTitles     encoder.Vocabulary
	ReferenceTime time.Time
}

// Derive computes features for every record. referenceTime stands in for the
// exit date of current employees. Job title codes come from a vocabulary fit
// on records in input order.
func Derive(records []domain.EmployeeRecord, referenceTime time.Time) (*Set, error) {
	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = r.JobTitle
	}
	codes, vocab := encoder.FitTransform(titles)

	ref := domain.Date(referenceTime)
	rows := make([]Derived, len(records))
	for i, r := range records {
		d, err := deriveOne(r, ref)
		if err != nil {
			if appErr, ok := err.(*apperrors.AppError); ok {
				appErr.WithContext("employee_id", r.EmployeeID).WithContext("record", i)
			}
			return nil, err
		}
		d.JobTitleCode = codes[i]
		rows[i] = d
	}

	return &Set{Rows: rows, JobTitles: vocab, ReferenceTime: referenceTime}, nil
}

func deriveOne(r domain.EmployeeRecord, ref time.Time) (Derived, error) {
	birth := domain.Date(r.BirthDate)
	entry := domain.Date(r.EntryDate)

	if err := checkDates(r, entry); err != nil {
		return Derived{}, err
	}

	age := YearsBetween(birth, entry)
	bucket, err := BucketForAge(age)
	if err != nil {
		return Derived{}, err
	}

	end := ref
	if r.ExitDate != nil {
		end = domain.Date(*r.ExitDate)
	}

	return Derived{
		EmployeeID:  r.EmployeeID,
		AgeAtEntry:  age,
		TenureYears: YearsBetween(entry, end),
		EntryMonth:  int(entry.Month()),
		EntryYear:   entry.Year(),
		AgeBucket:   bucket,
		JobTitle:    r.JobTitle,
		Departed:    r.HasExit(),
	}, nil
}

// checkDates enforces the exit and reentry ordering. A current employee whose
// entry lies after the reference time is valid and gets a negative tenure.
func checkDates(r domain.EmployeeRecord, entry time.Time) error {
	if r.ExitDate != nil && !domain.Date(*r.ExitDate).After(entry) {
		return apperrors.NewValueOutOfRangeError("exit date is not after entry date")
	}
	if r.ReentryDate != nil {
		if r.ExitDate == nil {
			return apperrors.NewValueOutOfRangeError("reentry date without exit date")
		}
		if !domain.Date(*r.ReentryDate).After(domain.Date(*r.ExitDate)) {
			return apperrors.NewValueOutOfRangeError("reentry date is not after exit date")
		}
	}
	return nil
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(domain.Date(b).Sub(domain.Date(a)).Hours() / 24)
}

// YearsBetween returns the calendar day difference from a to b in 365.25-day years.
func YearsBetween(a, b time.Time) float64 {
	return float64(DaysBetween(a, b)) / DaysPerYear
}

// Matrix returns the model inputs in FeatureNames order together with labels.
func (s *Set) Matrix() ([][]float64, []int) {
	x := make([][]float64, len(s.Rows))
	y := make([]int, len(s.Rows))
	for i, d := range s.Rows {
		x[i] = []float64{float64(d.EntryMonth), float64(d.EntryYear), d.AgeAtEntry, float64(d.JobTitleCode)}
		y[i] = d.Label()
	}
	return x, y
}

// FeatureNames labels the columns returned by Matrix.
var FeatureNames = []string{"Monat_Eintritt", "Jahr_Eintritt", "Alter_bei_Eintritt", "Berufsbezeichnung"}
