package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumark/school-results-api/internal/models"
)

func TestGradeThresholds(t *testing.T) {
	cases := []struct {
		total float64
		grade string
	}{
		{80, "A"}, {79, "B"},
		{70, "B"}, {69, "C"},
		{60, "C"}, {59, "D"},
		{50, "D"}, {49, "E"},
		{40, "E"}, {39, "F"},
		{100, "A"}, {0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, Grade(tc.total), "total %.0f", tc.total)
	}
}

func TestRemarkThresholds(t *testing.T) {
	cases := []struct {
		total  float64
		remark string
	}{
		{70, "Excellent"}, {69, "Very Good"},
		{60, "Very Good"}, {59, "Good"},
		{50, "Good"}, {49, "Fair"},
		{40, "Fair"}, {39, "Poor"},
		{80, "Excellent"}, {0, "Poor"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.remark, Remark(tc.total), "total %.0f", tc.total)
	}
}

func TestComputeDerivesTotalsAndAggregate(t *testing.T) {
	subjects := []models.SubjectScore{
		{SubjectName: "Mathematics", CA1: 8, CA2: 9, Exam: 70},
		{SubjectName: "English", CA1: 5, CA2: 6, Exam: 40},
	}

	computed, total, average := Compute(subjects)
	require.Len(t, computed, 2)

	assert.Equal(t, 87.0, computed[0].Total)
	assert.Equal(t, "A", computed[0].Grade)
	assert.Equal(t, "Excellent", computed[0].Remark)

	assert.Equal(t, 51.0, computed[1].Total)
	assert.Equal(t, "D", computed[1].Grade)
	assert.Equal(t, "Good", computed[1].Remark)

	assert.Equal(t, 138.0, total)
	assert.Equal(t, 69.0, average)
}

func TestComputeOverwritesCallerDerivedFields(t *testing.T) {
	subjects := []models.SubjectScore{
		{SubjectName: "Physics", CA1: 2, CA2: 3, Exam: 20, Total: 100, Grade: "A", Remark: "Excellent"},
	}
	computed, total, average := Compute(subjects)
	assert.Equal(t, 25.0, computed[0].Total)
	assert.Equal(t, "F", computed[0].Grade)
	assert.Equal(t, "Poor", computed[0].Remark)
	assert.Equal(t, 25.0, total)
	assert.Equal(t, 25.0, average)
}

func TestComputeAverageRoundsHalfAwayFromZero(t *testing.T) {
	// 87 + 88 = 175, average 87.5 stays 87.5; a third of 100 rounds to 33.33.
	_, _, average := Compute([]models.SubjectScore{
		{SubjectName: "A", CA1: 10, CA2: 10, Exam: 67},
		{SubjectName: "B", CA1: 10, CA2: 10, Exam: 68},
	})
	assert.Equal(t, 87.5, average)

	_, _, average = Compute([]models.SubjectScore{
		{SubjectName: "A", CA1: 10, CA2: 10, Exam: 80},
		{SubjectName: "B", CA1: 0, CA2: 0, Exam: 0},
		{SubjectName: "C", CA1: 0, CA2: 0, Exam: 0},
	})
	assert.Equal(t, 33.33, average)

	// .005 halves round up, not to even.
	_, _, average = Compute([]models.SubjectScore{
		{SubjectName: "A", CA1: 0.01, CA2: 0, Exam: 0},
		{SubjectName: "B", CA1: 0, CA2: 0, Exam: 0},
	})
	assert.Equal(t, 0.01, average)
}

func TestComputeEmptyList(t *testing.T) {
	computed, total, average := Compute(nil)
	assert.Empty(t, computed)
	assert.Equal(t, 0.0, total)
	assert.Equal(t, 0.0, average)
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	require.NoError(t, Validate([]models.SubjectScore{{SubjectName: "Math", CA1: 10, CA2: 10, Exam: 80}}))

	assert.Error(t, Validate([]models.SubjectScore{{SubjectName: "Math", CA1: 11, CA2: 0, Exam: 0}}))
	assert.Error(t, Validate([]models.SubjectScore{{SubjectName: "Math", CA1: 0, CA2: -1, Exam: 0}}))
	assert.Error(t, Validate([]models.SubjectScore{{SubjectName: "Math", CA1: 0, CA2: 0, Exam: 81}}))
	assert.Error(t, Validate([]models.SubjectScore{{SubjectName: "", CA1: 1, CA2: 1, Exam: 1}}))
}
