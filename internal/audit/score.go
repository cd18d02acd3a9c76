package audit

import (
	"math"

	"github.com/whoisalfaz/site-audit/internal/model"
)

// fallbackWeight applies to any check name missing from checkTable. With the
// standard six checks it is never used.
const fallbackWeight = 0.10

// Aggregate combines check scores into a weighted overall score and grade.
func Aggregate(checks []model.CheckResult) (int, model.Grade) {
	var weighted, total float64
	for _, c := range checks {
		w := weightFor(c.Name)
		weighted += float64(c.Score) * w
		total += w
	}
	if total == 0 {
		return 0, GradeFor(0)
	}

	score := int(math.Round(weighted / total))
	return score, GradeFor(score)
}

func weightFor(name string) float64 {
	for _, spec := range checkTable {
		if spec.name == name {
			return spec.weight
		}
	}
	return fallbackWeight
}

// GradeFor maps an overall score onto the letter grade bands. Lower bounds are
// inclusive.
func GradeFor(score int) model.Grade {
	switch {
	case score >= 90:
		return model.GradeA
	case score >= 80:
		return model.GradeB
	case score >= 70:
		return model.GradeC
	case score >= 50:
		return model.GradeD
	default:
		return model.GradeF
	}
}
