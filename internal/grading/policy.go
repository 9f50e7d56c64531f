package grading

import (
	"fmt"
	"math"

	"github.com/edumark/school-results-api/internal/models"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
)

// Score component bounds.
const (
	MaxCA   = 10.0
	MaxExam = 80.0
)

// Validate rejects subject lists with out-of-range component scores. Scores
// are never clamped silently; a bad component is the caller's error.
func Validate(subjects []models.SubjectScore) error {
	for i, s := range subjects {
		if s.SubjectName == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %d: name is required", i+1))
		}
		if s.CA1 < 0 || s.CA1 > MaxCA {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: ca1 must be between 0 and %.0f", s.SubjectName, MaxCA))
		}
		if s.CA2 < 0 || s.CA2 > MaxCA {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: ca2 must be between 0 and %.0f", s.SubjectName, MaxCA))
		}
		if s.Exam < 0 || s.Exam > MaxExam {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: exam must be between 0 and %.0f", s.SubjectName, MaxExam))
		}
	}
	return nil
}

// Compute derives per-subject totals, grades and remarks plus the result
// aggregate. Inputs must already pass Validate. Caller-supplied derived
// fields are overwritten unconditionally.
func Compute(subjects []models.SubjectScore) ([]models.SubjectScore, float64, float64) {
	computed := make([]models.SubjectScore, len(subjects))
	var totalScore float64
	for i, s := range subjects {
		s.Total = s.CA1 + s.CA2 + s.Exam
		s.Grade = Grade(s.Total)
		s.Remark = Remark(s.Total)
		s.SortOrder = i
		computed[i] = s
		totalScore += s.Total
	}

	var average float64
	if len(computed) > 0 {
		average = round2(totalScore / float64(len(computed)))
	}
	return computed, totalScore, average
}

// Grade maps a subject total (0-100) to a letter grade.
func Grade(total float64) string {
	switch {
	case total >= 80:
		return "A"
	case total >= 70:
		return "B"
	case total >= 60:
		return "C"
	case total >= 50:
		return "D"
	case total >= 40:
		return "E"
	default:
		return "F"
	}
}

// Remark maps a subject total to a performance remark. The remark ladder is
// independent of the grade ladder and must not be derived from it.
func Remark(total float64) string {
	switch {
	case total >= 70:
		return "Excellent"
	case total >= 60:
		return "Very Good"
	case total >= 50:
		return "Good"
	case total >= 40:
		return "Fair"
	default:
		return "Poor"
	}
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
