package service

import "github.com/coursetalk/coursetalk-backend/internal/model"

// UW-Madison grade points. AB and BC are half steps.
const (
	gradePointA  = 4.0
	gradePointAB = 3.5
	gradePointB  = 3.0
	gradePointBC = 2.5
	gradePointC  = 2.0
	gradePointD  = 1.0
	gradePointF  = 0.0
)

// summarize folds already de-duplicated rows into CourseStats.
func summarize(reviews []model.Review, grades []model.GradeDistribution) model.CourseStats {
	var stats model.CourseStats

	stats.ReviewCount = len(reviews)
	if n := len(reviews); n > 0 {
		var overall, difficulty, workload, teaching int
		for _, r := range reviews {
			overall += r.Overall
			difficulty += r.Difficulty
			workload += r.Workload
			teaching += r.Teaching
		}
		stats.Ratings = model.RatingAverages{
			Overall:    mean(overall, n),
			Difficulty: mean(difficulty, n),
			Workload:   mean(workload, n),
			Teaching:   mean(teaching, n),
		}
	}

	for _, g := range grades {
		stats.Grades.A += g.A
		stats.Grades.AB += g.AB
		stats.Grades.B += g.B
		stats.Grades.BC += g.BC
		stats.Grades.C += g.C
		stats.Grades.D += g.D
		stats.Grades.F += g.F
	}

	gc := stats.Grades
	stats.GradedTotal = gc.A + gc.AB + gc.B + gc.BC + gc.C + gc.D + gc.F
	if stats.GradedTotal > 0 {
		points := float64(gc.A)*gradePointA +
			float64(gc.AB)*gradePointAB +
			float64(gc.B)*gradePointB +
			float64(gc.BC)*gradePointBC +
			float64(gc.C)*gradePointC +
			float64(gc.D)*gradePointD +
			float64(gc.F)*gradePointF
		gpa := points / float64(stats.GradedTotal)
		stats.GPA = &gpa
	}

	return stats
}

func mean(sum, n int) *float64 {
	v := float64(sum) / float64(n)
	return &v
}
