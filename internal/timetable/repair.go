package timetable

// Repair implements §4.6: a post-optimization sweep that mends two-hour lab
// sessions whose periods are not adjacent, run exactly once on best_ever
// before the final evaluation. It returns the number of sessions it
// successfully relocated; the caller is responsible for recomputing fitness
// afterward.
func Repair(cand *Candidate, geometry Geometry) int {
	type key struct {
		subject, section string
		batch, day       int
	}
	groups := make(map[key][]int) // value: indices into cand.Assignments
	for i, a := range cand.Assignments {
		if a.IsTheory {
			continue
		}
		k := key{a.SubjectCode, a.SectionID, a.Batch, a.Day}
		groups[k] = append(groups[k], i)
	}

	repaired := 0
	for _, indices := range groups {
		if len(indices) != 2 {
			continue
		}
		i, j := indices[0], indices[1]
		if isContiguous([]int{cand.Assignments[i].Period, cand.Assignments[j].Period}) {
			continue
		}
		if relocateBrokenLab(cand, i, j, geometry) {
			repaired++
		}
	}
	if repaired > 0 {
		cand.ReplaceAssignments(cand.Assignments)
	}
	return repaired
}

// relocateBrokenLab attempts to move the pair of assignments at indices i, j
// onto two contiguous periods, trying the broken session's own day first,
// then every other day, ignoring the two broken assignments themselves
// while testing freeness.
func relocateBrokenLab(cand *Candidate, i, j int, geometry Geometry) bool {
	a, b := cand.Assignments[i], cand.Assignments[j]

	cand.Index.Remove(a)
	cand.Index.Remove(b)

	startCandidates := []int{0, 2, 4}
	days := make([]int, 0, geometry.Days)
	days = append(days, a.Day)
	for d := 0; d < geometry.Days; d++ {
		if d != a.Day {
			days = append(days, d)
		}
	}

	for _, day := range days {
		for _, start := range startCandidates {
			if start+LabBlockSize > geometry.Periods {
				continue
			}
			free := true
			for _, p := range []int{start, start + 1} {
				if !cand.Index.IsAvailable(day, p, a.FacultyID, a.SectionID, a.RoomID, false) {
					free = false
					break
				}
			}
			if !free {
				continue
			}
			cand.Assignments[i].Day, cand.Assignments[i].Period = day, start
			cand.Assignments[j].Day, cand.Assignments[j].Period = day, start+1
			cand.Index.Add(cand.Assignments[i])
			cand.Index.Add(cand.Assignments[j])
			return true
		}
	}

	// No slot anywhere: restore the original assignments in the index.
	cand.Index.Add(a)
	cand.Index.Add(b)
	return false
}
