package scoring

import "math"

// Rank weights of the normalized formula.
const (
	overlapWeight  = 50.0
	workloadWeight = 30.0
	perfWeight     = 20.0

	// workloadCap is the number of open tasks at which the workload factor
	// reaches zero.
	workloadCap = 10
)

// DefaultPerfScore is used for candidates without any score history.
const DefaultPerfScore = 50.0

// Rank computes the 0-100 fit of a candidate for a task:
//
//	overlapRate*50 + inverseActiveRate*30 + perfRate*20
//
// where overlapRate = overlap/max(required,1), inverseActiveRate =
// max(0, 10-active)/10 and perfRate = clamp(perf,0,100)/100.
func Rank(skillOverlap, requiredSkills, activeTasks int, perfScore float64) float64 {
	return OverlapRate(skillOverlap, requiredSkills)*overlapWeight +
		inverseActiveRate(activeTasks)*workloadWeight +
		perfRate(perfScore)*perfWeight
}

// OverlapRate normalizes a skill-overlap count by the number of required
// skills. A task that requires no skills divides by one.
func OverlapRate(skillOverlap, requiredSkills int) float64 {
	if skillOverlap < 0 {
		skillOverlap = 0
	}
	return float64(skillOverlap) / float64(max(requiredSkills, 1))
}

func inverseActiveRate(activeTasks int) float64 {
	if activeTasks < 0 {
		activeTasks = 0
	}
	return float64(max(0, workloadCap-activeTasks)) / workloadCap
}

func perfRate(perfScore float64) float64 {
	return math.Max(0, math.Min(100, perfScore)) / 100
}
