package scoring

import (
	"sort"
	"strings"
)

// NormalizeSkill returns the comparison form of a skill name.
func NormalizeSkill(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

// UnionSkills merges skill lists into one normalized, deduplicated, sorted list.
// Blank entries are dropped. The result is never nil.
func UnionSkills(lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, s := range list {
			if n := NormalizeSkill(s); n != "" {
				seen[n] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// SkillOverlap counts the required skills the employee has, ignoring case.
// Duplicates on either side count once, so the result never exceeds the size
// of the smaller set.
func SkillOverlap(employeeSkills, requiredSkills []string) int {
	have := skillSet(employeeSkills)
	count := 0
	for _, s := range UnionSkills(requiredSkills) {
		if _, ok := have[s]; ok {
			count++
		}
	}
	return count
}

// GapResult lists the missing skills and the share of the union already covered.
type GapResult struct {
	GapSkills    []string
	CoverageRate float64
}

// Gaps computes requiredUnion minus currentSkills, case-insensitively.
// An empty union is fully covered.
func Gaps(currentSkills, requiredUnion []string) GapResult {
	union := UnionSkills(requiredUnion)
	if len(union) == 0 {
		return GapResult{GapSkills: []string{}, CoverageRate: 1.0}
	}

	have := skillSet(currentSkills)
	gaps := make([]string, 0, len(union))
	for _, s := range union {
		if _, ok := have[s]; !ok {
			gaps = append(gaps, s)
		}
	}

	return GapResult{
		GapSkills:    gaps,
		CoverageRate: float64(len(union)-len(gaps)) / float64(len(union)),
	}
}

func skillSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if n := NormalizeSkill(s); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
