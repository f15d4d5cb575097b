package timetable

import (
	"fmt"
	"math/rand"
	"sort"
)

// Initializer is the CSP-guided constructive builder of §4.2: it produces
// one complete, nearly-feasible candidate from the subject list in four
// phases of strictly decreasing priority (project blocks, parallel lab
// rotation, remaining single labs, theory hours).
type Initializer struct {
	Geometry Geometry
	Sections map[string]Section
	LabRooms map[string]LabRoom
	Master   []MasterScheduleEntry
}

// NewInitializer builds an Initializer over static reference data shared by
// every candidate constructed during a solve.
func NewInitializer(geometry Geometry, sections map[string]Section, labRooms map[string]LabRoom, master []MasterScheduleEntry) *Initializer {
	return &Initializer{Geometry: geometry, Sections: sections, LabRooms: labRooms, Master: master}
}

// Construct produces one candidate. Construction is single-shot: callers
// that want another attempt build a fresh candidate rather than resuming a
// failed one. Failures to place a required hour are recorded as warnings
// rather than aborting the build — the resulting gaps surface later as
// fitness loss.
func (init *Initializer) Construct(subjects []Subject, rng *rand.Rand) (*Candidate, []string) {
	cand := NewCandidate(init.Master)
	var warnings []string

	var projects, labOnly, theoryBearing []Subject
	for _, s := range subjects {
		switch {
		case s.IsProject():
			if s.LabHours > 0 {
				projects = append(projects, s)
			}
		case s.LabHours > 0:
			labOnly = append(labOnly, s)
		}
		if s.TheoryHours > 0 && !s.IsProject() {
			theoryBearing = append(theoryBearing, s)
		}
	}

	// Phase 1 — project blocks.
	for _, s := range projects {
		warnings = append(warnings, init.scheduleProject(cand, s, rng)...)
	}

	// Phase 2 — parallel lab rotation, grouped by section.
	bySection := make(map[string][]Subject)
	for _, s := range labOnly {
		bySection[s.SectionID] = append(bySection[s.SectionID], s)
	}
	var rotated = make(map[string]bool)
	sectionIDs := sortedKeys(bySection)
	for _, sectionID := range sectionIDs {
		group := bySection[sectionID]
		if len(group) < 2 {
			continue
		}
		warnings = append(warnings, init.scheduleLabRotation(cand, sectionID, group, rng)...)
		for _, s := range group {
			rotated[s.Code+"|"+s.SectionID] = true
		}
	}

	// Phase 3 — remaining single-lab subjects.
	for _, sectionID := range sectionIDs {
		for _, s := range bySection[sectionID] {
			if rotated[s.Code+"|"+s.SectionID] {
				continue
			}
			warnings = append(warnings, init.scheduleSingleLab(cand, s, rng)...)
		}
	}

	// Phase 4 — theory hours, flattened into single-hour tasks and shuffled.
	var tasks []Subject
	for _, s := range theoryBearing {
		for i := 0; i < s.TheoryHours; i++ {
			tasks = append(tasks, s)
		}
	}
	rng.Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })
	for _, s := range tasks {
		if !init.scheduleTheoryHour(cand, s, rng) {
			warnings = append(warnings, fmt.Sprintf("could not place a theory hour of %s for section %s", s.Code, s.SectionID))
		}
	}

	return cand, warnings
}

func (init *Initializer) scheduleProject(cand *Candidate, s Subject, rng *rand.Rand) []string {
	section, ok := init.Sections[s.SectionID]
	if !ok {
		return []string{fmt.Sprintf("project %s: unknown section %s", s.Code, s.SectionID)}
	}
	blocksNeeded := s.LabHours / ProjectBlockSize
	afternoon := init.Geometry.afternoonPeriods()

	order := permOf(rng, init.Geometry.Days)
	placed := 0
	for _, day := range order {
		if placed >= blocksNeeded {
			break
		}
		free := true
		for _, p := range afternoon {
			if !cand.Index.IsAvailable(day, p, s.LabFaculty, s.SectionID, section.Classroom, true) {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		for _, p := range afternoon {
			cand.Add(Assignment{
				Day: day, Period: p,
				SubjectCode: s.Code, SubjectName: s.Name, SubjectType: s.Type,
				FacultyID: s.LabFaculty, SectionID: s.SectionID, RoomID: section.Classroom,
				Batch: WholeSectionBatch, IsTheory: true,
			})
		}
		placed++
	}
	if placed < blocksNeeded {
		return []string{fmt.Sprintf("project %s for section %s: placed %d/%d blocks", s.Code, s.SectionID, placed, blocksNeeded)}
	}
	return nil
}

// scheduleLabRotation implements §4.2 phase 2: N lab subjects in a section
// rotate through N sessions such that every batch encounters every lab
// exactly once.
func (init *Initializer) scheduleLabRotation(cand *Candidate, sectionID string, labs []Subject, rng *rand.Rand) []string {
	n := len(labs)
	var warnings []string
	startCandidates := []int{0, 2, 4}
	for i := 0; i < n; i++ {
		placed := false
		dayOrder := permOf(rng, init.Geometry.Days)
		for _, day := range dayOrder {
			if placed {
				break
			}
			for _, start := range startCandidates {
				if start+LabBlockSize > init.Geometry.Periods {
					continue
				}
				rooms := init.freeLabRooms(cand, day, start, LabBlockSize)
				if len(rooms) < n {
					continue
				}
				facultyFree := true
				for _, lab := range labs {
					for p := start; p < start+LabBlockSize; p++ {
						if !cand.Index.IsAvailable(day, p, lab.LabFaculty, "", "", false) {
							facultyFree = false
							break
						}
					}
					if !facultyFree {
						break
					}
				}
				if !facultyFree {
					continue
				}
				sectionFree := true
				for p := start; p < start+LabBlockSize; p++ {
					if !cand.Index.IsAvailable(day, p, "", sectionID, "", false) {
						sectionFree = false
						break
					}
				}
				if !sectionFree {
					continue
				}

				for j := 0; j < n; j++ {
					subject := labs[(j+i)%n]
					room := rooms[j]
					for h := 0; h < LabBlockSize; h++ {
						cand.Add(Assignment{
							Day: day, Period: start + h,
							SubjectCode: subject.Code, SubjectName: subject.Name, SubjectType: subject.Type,
							FacultyID: subject.LabFaculty, SectionID: sectionID, RoomID: room,
							Batch: j + 1, IsTheory: false,
						})
					}
				}
				placed = true
				break
			}
		}
		if !placed {
			warnings = append(warnings, fmt.Sprintf("lab rotation session %d/%d for section %s could not be placed", i+1, n, sectionID))
		}
	}
	return warnings
}

func (init *Initializer) scheduleSingleLab(cand *Candidate, s Subject, rng *rand.Rand) []string {
	var warnings []string
	sessions := s.LabHours / LabBlockSize
	startCandidates := []int{0, 2, 4}
	for session := 0; session < sessions; session++ {
		placed := false
		dayOrder := permOf(rng, init.Geometry.Days)
		for _, day := range dayOrder {
			if placed {
				break
			}
			for _, start := range startCandidates {
				if start+LabBlockSize > init.Geometry.Periods {
					continue
				}
				rooms := init.freeLabRooms(cand, day, start, LabBlockSize)
				if len(rooms) < s.NoOfBatches {
					continue
				}
				facultyFree := true
				for p := start; p < start+LabBlockSize; p++ {
					if !cand.Index.IsAvailable(day, p, s.LabFaculty, "", "", false) {
						facultyFree = false
						break
					}
				}
				if !facultyFree {
					continue
				}
				for batch := 0; batch < s.NoOfBatches; batch++ {
					room := rooms[batch]
					for h := 0; h < LabBlockSize; h++ {
						cand.Add(Assignment{
							Day: day, Period: start + h,
							SubjectCode: s.Code, SubjectName: s.Name, SubjectType: s.Type,
							FacultyID: s.LabFaculty, SectionID: s.SectionID, RoomID: room,
							Batch: batch + 1, IsTheory: false,
						})
					}
				}
				placed = true
				break
			}
		}
		if !placed {
			warnings = append(warnings, fmt.Sprintf("lab session %d/%d of %s for section %s could not be placed", session+1, sessions, s.Code, s.SectionID))
		}
	}
	return warnings
}

// scheduleTheoryHour places one theory hour using the §4.2 slot-scoring
// heuristic: base 100, +80 for continuity with the section's same-day
// neighbor, -15 per period of distance otherwise, -100 for same-subject
// same-day clustering, +50 for period 0, afternoon tried only as a fallback.
func (init *Initializer) scheduleTheoryHour(cand *Candidate, s Subject, rng *rand.Rand) bool {
	section, ok := init.Sections[s.SectionID]
	room := ""
	if ok {
		room = section.Classroom
	}

	bestScore := -1 << 30
	bestDay, bestPeriod := -1, -1
	for day := 0; day < init.Geometry.Days; day++ {
		for _, period := range init.Geometry.morningPeriods() {
			if !cand.Index.IsAvailable(day, period, s.TheoryFaculty, s.SectionID, room, true) {
				continue
			}
			score := scoreSlot(cand, day, period, s.SectionID, s.Code, init.Geometry, false)
			if score > bestScore {
				bestScore, bestDay, bestPeriod = score, day, period
			}
		}
	}
	if bestDay == -1 {
		// Afternoon fallback, carrying the afternoon penalty on this scoring pass.
		for day := 0; day < init.Geometry.Days; day++ {
			for _, period := range init.Geometry.afternoonPeriods() {
				if !cand.Index.IsAvailable(day, period, s.TheoryFaculty, s.SectionID, room, true) {
					continue
				}
				score := scoreSlot(cand, day, period, s.SectionID, s.Code, init.Geometry, true)
				if score > bestScore {
					bestScore, bestDay, bestPeriod = score, day, period
				}
			}
		}
	}
	if bestDay == -1 {
		return false
	}
	cand.Add(Assignment{
		Day: bestDay, Period: bestPeriod,
		SubjectCode: s.Code, SubjectName: s.Name, SubjectType: s.Type,
		FacultyID: s.TheoryFaculty, SectionID: s.SectionID, RoomID: room,
		Batch: WholeSectionBatch, IsTheory: true,
	})
	return true
}

func scoreSlot(cand *Candidate, day, period int, sectionID, subjectCode string, geometry Geometry, afternoon bool) int {
	score := 100
	var dayPeriods []int
	sameSubjectToday := false
	for _, a := range cand.Assignments {
		if a.SectionID != sectionID || a.Day != day {
			continue
		}
		dayPeriods = append(dayPeriods, a.Period)
		if a.SubjectCode == subjectCode {
			sameSubjectToday = true
		}
	}
	if len(dayPeriods) > 0 {
		adjacent := false
		minDist := 1 << 30
		for _, p := range dayPeriods {
			d := period - p
			if d < 0 {
				d = -d
			}
			if d == 1 {
				adjacent = true
			}
			if d < minDist {
				minDist = d
			}
		}
		if adjacent {
			score += 80
		} else {
			score -= minDist * 15
		}
	}
	if sameSubjectToday {
		score -= 100
	}
	if period == 0 {
		score += 50
	}
	if afternoon {
		score -= 200
	}
	return score
}

func (init *Initializer) freeLabRooms(cand *Candidate, day, start, duration int) []string {
	var free []string
	ids := sortedLabRoomIDs(init.LabRooms)
	for _, id := range ids {
		ok := true
		for p := start; p < start+duration; p++ {
			if !cand.Index.IsAvailable(day, p, "", "", id, false) {
				ok = false
				break
			}
		}
		if ok {
			free = append(free, id)
		}
	}
	return free
}

func sortedLabRoomIDs(rooms map[string]LabRoom) []string {
	ids := make([]string, 0, len(rooms))
	for id := range rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(m map[string][]Subject) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func permOf(rng *rand.Rand, n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}
