package model

import "time"

// Status is the tri-state health classification of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Grade is the letter grade derived from an overall score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// CheckResult is the normalized outcome of one probe.
type CheckResult struct {
	Name    string    `json:"name" yaml:"name"`
	Status  Status    `json:"status" yaml:"status"`
	Score   int       `json:"score" yaml:"score"`
	Summary string    `json:"summary" yaml:"summary"`
	Details []Finding `json:"details" yaml:"details"`
}

// AuditResults is the aggregate of one audit run.
type AuditResults struct {
	URL          string        `json:"url" yaml:"url"`
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
	OverallScore int           `json:"overallScore" yaml:"overallScore"`
	Grade        Grade         `json:"grade" yaml:"grade"`
	Checks       []CheckResult `json:"checks" yaml:"checks"`
}

// Counts returns how many checks ended in each status.
func (r *AuditResults) Counts() (pass, warn, fail int) {
	for _, c := range r.Checks {
		switch c.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}
	return pass, warn, fail
}
