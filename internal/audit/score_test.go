package audit

import (
	"math"
	"testing"

	"github.com/whoisalfaz/site-audit/internal/model"
)

func uniformChecks(score int) []model.CheckResult {
	checks := make([]model.CheckResult, numChecks)
	for id := range numChecks {
		checks[id] = model.CheckResult{Name: id.Name(), Score: score}
	}
	return checks
}

func TestCheckTable_WeightsSumToOne(t *testing.T) {
	var sum float64
	for _, spec := range checkTable {
		if spec.name == "" {
			t.Fatal("check table has an unnamed row")
		}
		sum += spec.weight
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("weights sum to %v, want 1", sum)
	}
}

func TestAggregate_Extremes(t *testing.T) {
	score, grade := Aggregate(uniformChecks(100))
	if score != 100 || grade != model.GradeA {
		t.Errorf("all 100: got (%d, %s), want (100, A)", score, grade)
	}

	score, grade = Aggregate(uniformChecks(0))
	if score != 0 || grade != model.GradeF {
		t.Errorf("all 0: got (%d, %s), want (0, F)", score, grade)
	}
}

func TestAggregate_IsWeighted(t *testing.T) {
	checks := uniformChecks(100)
	checks[CheckPerformance].Score = 0

	score, grade := Aggregate(checks)
	if score != 65 {
		t.Errorf("score = %d, want 65 (performance weighs 0.35)", score)
	}
	if grade != model.GradeF {
		t.Errorf("grade = %s, want F", grade)
	}

	checks = uniformChecks(100)
	checks[CheckDNS].Score = 0
	if score, _ := Aggregate(checks); score != 90 {
		t.Errorf("score with DNS at 0 = %d, want 90", score)
	}
}

func TestAggregate_UnknownNameUsesFallbackWeight(t *testing.T) {
	checks := []model.CheckResult{
		{Name: CheckPerformance.Name(), Score: 100},
		{Name: "Something New", Score: 0},
	}

	// (100*0.35 + 0*0.10) / 0.45 = 77.78
	score, grade := Aggregate(checks)
	if score != 78 || grade != model.GradeC {
		t.Errorf("got (%d, %s), want (78, C)", score, grade)
	}
}

func TestAggregate_Empty(t *testing.T) {
	score, grade := Aggregate(nil)
	if score != 0 || grade != model.GradeF {
		t.Errorf("got (%d, %s), want (0, F)", score, grade)
	}
}

func TestGradeFor_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  model.Grade
	}{
		{100, model.GradeA},
		{90, model.GradeA},
		{89, model.GradeB},
		{80, model.GradeB},
		{79, model.GradeC},
		{70, model.GradeC},
		{69, model.GradeD},
		{50, model.GradeD},
		{49, model.GradeF},
		{0, model.GradeF},
	}

	for _, tt := range tests {
		if got := GradeFor(tt.score); got != tt.want {
			t.Errorf("GradeFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
