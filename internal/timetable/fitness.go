package timetable

import "sort"

// Weights for hard constraints (§4.4). A violated hard constraint must be
// zero for an "acceptable" result; non-zero hard violations place the
// timetable in the "unacceptable" quality tier regardless of raw fitness.
const (
	WeightFacultyConflict     = 500.0
	WeightSectionConflict     = 500.0
	WeightTheoryRoomConflict  = 400.0
	WeightLabRoomConflict     = 400.0
	WeightLabContinuity       = 200.0
	WeightProjectContinuity   = 300.0
	WeightDuplicateAssignment = 500.0
)

// Weights for soft constraints (§4.4).
//
// Open Question 1 (theory-in-afternoon weight): the source assigns this
// penalty three different values across the header, a comment about tripling
// it, and the initializer's own scoring pass. We pick a single, final weight
// — 100 per assignment — and apply it nowhere else; the initializer's own
// preference for mornings (§4.2) is a placement heuristic, not a second
// fitness term, which resolves Open Question 3 at the same time.
const (
	WeightGapPeriod         = 100.0
	WeightSameSubjectPerDay = 50.0
	WeightAfternoonTheory   = 100.0
	WeightSparseDay         = 30.0
)

const startingFitness = 1000.0

// ViolationReport holds the raw (unweighted) violation counts that went into
// a fitness score, split into the hard and soft categories of §4.4.
type ViolationReport struct {
	FacultyConflicts     int
	SectionConflicts     int
	TheoryRoomConflicts  int
	LabRoomConflicts     int
	LabContinuity        int
	ProjectContinuity    int
	DuplicateAssignments int

	Gaps             int
	SameSubjectPerDay int
	AfternoonTheory  int
	SparseDay        int
}

// HardCount sums every hard-constraint violation category. Per §4.4, a
// result with HardCount() > 0 is tier "unacceptable" no matter the score.
func (r ViolationReport) HardCount() int {
	return r.FacultyConflicts + r.SectionConflicts + r.TheoryRoomConflicts +
		r.LabRoomConflicts + r.LabContinuity + r.ProjectContinuity + r.DuplicateAssignments
}

// weightedPenalty returns the total score deduction this report represents.
func (r ViolationReport) weightedPenalty() float64 {
	return float64(r.FacultyConflicts)*WeightFacultyConflict +
		float64(r.SectionConflicts)*WeightSectionConflict +
		float64(r.TheoryRoomConflicts)*WeightTheoryRoomConflict +
		float64(r.LabRoomConflicts)*WeightLabRoomConflict +
		float64(r.LabContinuity)*WeightLabContinuity +
		float64(r.ProjectContinuity)*WeightProjectContinuity +
		float64(r.DuplicateAssignments)*WeightDuplicateAssignment +
		float64(r.Gaps)*WeightGapPeriod +
		float64(r.SameSubjectPerDay)*WeightSameSubjectPerDay +
		float64(r.AfternoonTheory)*WeightAfternoonTheory +
		float64(r.SparseDay)*WeightSparseDay
}

// QualityTier classifies a (hardCount, fitness) pair per §4.4.
func QualityTier(hardCount int, fitness float64) string {
	switch {
	case hardCount > 0:
		return "unacceptable"
	case fitness >= 950:
		return "excellent"
	case fitness >= 850:
		return "very good"
	case fitness >= 700:
		return "good"
	default:
		return "acceptable"
	}
}

// Evaluate is a pure function over a candidate's assignment list: it sums
// weighted hard-constraint violations and soft-preference penalties into a
// single non-negative score and returns the breakdown alongside it.
func Evaluate(assignments []Assignment, geometry Geometry) (float64, ViolationReport) {
	report := ViolationReport{
		FacultyConflicts:     countConflicts(assignments, func(a Assignment) (conflictKey, bool) {
			return conflictKey{"f", a.FacultyID, a.Day, a.Period}, a.FacultyID != ""
		}),
		SectionConflicts: countSectionConflicts(assignments),
		TheoryRoomConflicts: countConflicts(assignments, func(a Assignment) (conflictKey, bool) {
			return conflictKey{"rt", a.RoomID, a.Day, a.Period}, a.RoomID != "" && a.IsTheory
		}),
		LabRoomConflicts: countConflicts(assignments, func(a Assignment) (conflictKey, bool) {
			return conflictKey{"rl", a.RoomID, a.Day, a.Period}, a.RoomID != "" && !a.IsTheory
		}),
		LabContinuity:        countLabContinuity(assignments),
		ProjectContinuity:    countProjectContinuity(assignments, geometry),
		DuplicateAssignments: countDuplicates(assignments),
		Gaps:              countGaps(assignments),
		SameSubjectPerDay: countSameSubjectPerDay(assignments),
		AfternoonTheory:   countAfternoonTheory(assignments, geometry),
		SparseDay:         countSparseDay(assignments),
	}
	fitness := startingFitness - report.weightedPenalty()
	if fitness < 0 {
		fitness = 0
	}
	return fitness, report
}

type conflictKey struct {
	kind   string
	id     string
	day    int
	period int
}

// countConflicts implements the generic "for each (resource, day, period),
// if k assignments reference it, contribute k-1 violations" rule.
func countConflicts(assignments []Assignment, key func(Assignment) (conflictKey, bool)) int {
	counts := make(map[conflictKey]int)
	for _, a := range assignments {
		k, ok := key(a)
		if !ok {
			continue
		}
		counts[k]++
	}
	total := 0
	for _, c := range counts {
		if c > 1 {
			total += c - 1
		}
	}
	return total
}

// countSectionConflicts applies the one documented exception to resource
// double-booking: several non-theory assignments may share a (day, period,
// section) cell as long as every one of them carries a distinct batch
// number (parallel lab batches of the same section).
func countSectionConflicts(assignments []Assignment) int {
	type cell struct {
		day, period int
		sectionID   string
	}
	groups := make(map[cell][]Assignment)
	for _, a := range assignments {
		if a.SectionID == "" {
			continue
		}
		c := cell{a.Day, a.Period, a.SectionID}
		groups[c] = append(groups[c], a)
	}
	violations := 0
	for _, group := range groups {
		if len(group) <= 1 {
			continue
		}
		allNonTheoryDistinctBatches := true
		seenBatch := make(map[int]bool, len(group))
		for _, a := range group {
			if a.IsTheory || seenBatch[a.Batch] {
				allNonTheoryDistinctBatches = false
				break
			}
			seenBatch[a.Batch] = true
		}
		if allNonTheoryDistinctBatches {
			continue
		}
		violations += len(group) - 1
	}
	return violations
}

// countLabContinuity groups non-theory assignments by (subject, section,
// batch, day) and counts one violation per group whose periods are not a
// contiguous run.
func countLabContinuity(assignments []Assignment) int {
	type key struct {
		subject, section string
		batch, day       int
	}
	groups := make(map[key][]int)
	for _, a := range assignments {
		if a.IsTheory {
			continue
		}
		k := key{a.SubjectCode, a.SectionID, a.Batch, a.Day}
		groups[k] = append(groups[k], a.Period)
	}
	violations := 0
	for _, periods := range groups {
		if !isContiguous(periods) {
			violations++
		}
	}
	return violations
}

// countProjectContinuity counts one violation per (project subject, section,
// day) group whose periods are not exactly the afternoon block.
func countProjectContinuity(assignments []Assignment, geometry Geometry) int {
	type key struct {
		subject, section string
		day              int
	}
	groups := make(map[key][]int)
	for _, a := range assignments {
		if a.SubjectType != SubjectProject {
			continue
		}
		k := key{a.SubjectCode, a.SectionID, a.Day}
		groups[k] = append(groups[k], a.Period)
	}
	afternoon := geometry.afternoonPeriods()
	violations := 0
	for _, periods := range groups {
		if !samePeriodSet(periods, afternoon) {
			violations++
		}
	}
	return violations
}

// countDuplicates implements the fix for Open Question 2: crossover can
// clone the same subject-hour into two assignments (identical subject,
// section, batch, day, period and faculty/room). The source never penalized
// this directly; we add an explicit hard-constraint category so "good
// fitness, bad timetable" candidates can't hide behind resource conflicts
// that happen to be masked by other operators.
func countDuplicates(assignments []Assignment) int {
	counts := make(map[Assignment]int, len(assignments))
	for _, a := range assignments {
		counts[a]++
	}
	violations := 0
	for _, c := range counts {
		if c > 1 {
			violations += c - 1
		}
	}
	return violations
}

// countGaps contributes (span - count) * 2 per (section, day) with at least
// one assignment, where span is the inclusive period range and count is the
// number of assignments that day.
func countGaps(assignments []Assignment) int {
	type key struct {
		section string
		day     int
	}
	groups := make(map[key][]int)
	for _, a := range assignments {
		k := key{a.SectionID, a.Day}
		groups[k] = append(groups[k], a.Period)
	}
	total := 0
	for _, periods := range groups {
		if len(periods) == 0 {
			continue
		}
		min, max := periods[0], periods[0]
		for _, p := range periods {
			if p < min {
				min = p
			}
			if p > max {
				max = p
			}
		}
		span := max - min + 1
		total += (span - len(periods)) * 2
	}
	return total
}

// countSameSubjectPerDay contributes max(0, count-2) per (subject, section,
// day) group.
func countSameSubjectPerDay(assignments []Assignment) int {
	type key struct {
		subject, section string
		day              int
	}
	counts := make(map[key]int)
	for _, a := range assignments {
		counts[key{a.SubjectCode, a.SectionID, a.Day}]++
	}
	total := 0
	for _, c := range counts {
		if c > 2 {
			total += c - 2
		}
	}
	return total
}

// countAfternoonTheory counts one violation per theory assignment (project
// blocks excluded — they are legitimately scheduled in the afternoon) placed
// in an afternoon period.
func countAfternoonTheory(assignments []Assignment, geometry Geometry) int {
	total := 0
	for _, a := range assignments {
		if a.IsTheory && a.SubjectType != SubjectProject && !geometry.isMorning(a.Period) {
			total++
		}
	}
	return total
}

// countSparseDay contributes (3 - count) for each (section, day) whose
// assignment count is 1 or 2.
func countSparseDay(assignments []Assignment) int {
	type key struct {
		section string
		day     int
	}
	counts := make(map[key]int)
	for _, a := range assignments {
		counts[key{a.SectionID, a.Day}]++
	}
	total := 0
	for _, c := range counts {
		if c == 1 || c == 2 {
			total += 3 - c
		}
	}
	return total
}

func isContiguous(periods []int) bool {
	if len(periods) <= 1 {
		return true
	}
	sorted := append([]int{}, periods...)
	sort.Ints(sorted)
	return sorted[len(sorted)-1]-sorted[0]+1 == len(sorted)
}

func samePeriodSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := append([]int{}, a...), append([]int{}, b...)
	sort.Ints(sa)
	sort.Ints(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
