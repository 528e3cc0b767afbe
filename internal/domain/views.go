package domain

import "time"

// Grade is the letter bucket derived from a rounded productivity score.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
)

// TrendDirection classifies the change between two score windows.
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendDeclining        TrendDirection = "declining"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// Trend compares the average score of a recent window with the window before it.
// Averages and delta are nil when Direction is TrendInsufficientData.
type Trend struct {
	Direction    TrendDirection `json:"direction"`
	DeltaPercent *float64       `json:"delta_percent"`
	RecentAvg    *float64       `json:"recent_avg"`
	PriorAvg     *float64       `json:"prior_avg"`
	RecentCount  int            `json:"recent_count"`
	PriorCount   int            `json:"prior_count"`
}

// EmployeeScore is the read model served by the score endpoint and cached
// under the score namespace.
type EmployeeScore struct {
	EmployeeID string     `json:"employee_id"`
	Score      *float64   `json:"score"`
	Grade      *Grade     `json:"grade"`
	Breakdown  *Breakdown `json:"breakdown"`
	Trend      Trend      `json:"trend"`
	ComputedAt time.Time  `json:"computed_at"`
}

// RecommendationEntry explains why a candidate was ranked for a task.
type RecommendationEntry struct {
	EmployeeID       string  `json:"employee_id"`
	Name             string  `json:"name"`
	SkillOverlap     int     `json:"skill_overlap"`
	SkillOverlapRate float64 `json:"skill_overlap_rate"`
	ActiveTasks      int     `json:"active_tasks"`
	PerfScore        float64 `json:"perf_score"`
	Rank             float64 `json:"rank"`
}

// Recommendation is the ranked candidate list for one task.
type Recommendation struct {
	TaskID         string                `json:"task_id"`
	RequiredSkills []string              `json:"required_skills"`
	Candidates     []RecommendationEntry `json:"candidates"`
	ComputedAt     time.Time             `json:"computed_at"`
}

// SkillGapReport lists the peer-required skills an employee lacks.
type SkillGapReport struct {
	EmployeeID     string    `json:"employee_id"`
	Basis          string    `json:"basis"`
	CurrentSkills  []string  `json:"current_skills"`
	RequiredSkills []string  `json:"required_skills"`
	GapSkills      []string  `json:"gap_skills"`
	CoverageRate   float64   `json:"coverage_rate"`
	ComputedAt     time.Time `json:"computed_at"`
}

// Skill gap bases.
const (
	SkillGapBasisJobTitle   = "job_title"
	SkillGapBasisOwnHistory = "own_history"
)

// Dashboard aggregates organization-wide figures.
type Dashboard struct {
	OrgID             string         `json:"org_id"`
	ActiveEmployees   int            `json:"active_employees"`
	TasksByStatus     map[string]int `json:"tasks_by_status"`
	OverdueTasks      int            `json:"overdue_tasks"`
	ScoredEmployees   int            `json:"scored_employees"`
	AverageScore      *float64       `json:"average_score"`
	GradeDistribution map[Grade]int  `json:"grade_distribution"`
	ComputedAt        time.Time      `json:"computed_at"`
}
