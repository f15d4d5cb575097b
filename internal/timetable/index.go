package timetable

// slotKey addresses a (day, period) cell in the term grid.
type slotKey struct {
	Day    int
	Period int
}

// ConstraintIndex answers "is resource R free at (day, period)?" in O(1) and
// is kept in lockstep with its owning candidate's assignment list. Per the
// design notes it is four small sets per cell rather than a graph: with
// tens of faculty and a few dozen rooms, plain maps of sets are already
// cache-friendly enough and far simpler than a bitset implementation would
// be to keep correct across incremental add/remove.
type ConstraintIndex struct {
	faculty map[slotKey]map[string]bool
	section map[slotKey]map[string]bool
	room    map[slotKey]map[string]bool // theory rooms, at most one occupant
	labRoom map[slotKey]map[string]bool // lab rooms, several per cell (one per parallel batch), each with at most one occupant
}

// NewConstraintIndex returns an empty index.
func NewConstraintIndex() *ConstraintIndex {
	return &ConstraintIndex{
		faculty: make(map[slotKey]map[string]bool),
		section: make(map[slotKey]map[string]bool),
		room:    make(map[slotKey]map[string]bool),
		labRoom: make(map[slotKey]map[string]bool),
	}
}

func (c *ConstraintIndex) add(a Assignment) {
	key := slotKey{a.Day, a.Period}
	addTo(c.faculty, key, a.FacultyID)
	addTo(c.section, key, a.SectionID)
	if a.IsTheory || a.Batch == WholeSectionBatch {
		addTo(c.room, key, a.RoomID)
	} else {
		addTo(c.labRoom, key, a.RoomID)
	}
}

func (c *ConstraintIndex) remove(a Assignment) {
	key := slotKey{a.Day, a.Period}
	removeFrom(c.faculty, key, a.FacultyID)
	removeFrom(c.section, key, a.SectionID)
	if a.IsTheory || a.Batch == WholeSectionBatch {
		removeFrom(c.room, key, a.RoomID)
	} else {
		removeFrom(c.labRoom, key, a.RoomID)
	}
}

// Add registers an assignment's resources as occupied.
func (c *ConstraintIndex) Add(a Assignment) { c.add(a) }

// Remove undoes Add.
func (c *ConstraintIndex) Remove(a Assignment) { c.remove(a) }

// IsAvailable reports whether every non-empty id among facultyID, sectionID
// and roomID is free at (day, period). An empty string for any id means
// "don't care" for that resource.
func (c *ConstraintIndex) IsAvailable(day, period int, facultyID, sectionID, roomID string, isTheory bool) bool {
	key := slotKey{day, period}
	if facultyID != "" && has(c.faculty, key, facultyID) {
		return false
	}
	if sectionID != "" && has(c.section, key, sectionID) {
		return false
	}
	if roomID != "" {
		if isTheory {
			if has(c.room, key, roomID) {
				return false
			}
		} else if has(c.labRoom, key, roomID) {
			return false
		}
	}
	return true
}

// RebuildFrom clears all maps and re-adds every assignment. Used after
// wholesale replacement of a candidate's assignment list (crossover output,
// mutation, local-search undo).
func (c *ConstraintIndex) RebuildFrom(assignments []Assignment) {
	c.faculty = make(map[slotKey]map[string]bool)
	c.section = make(map[slotKey]map[string]bool)
	c.room = make(map[slotKey]map[string]bool)
	c.labRoom = make(map[slotKey]map[string]bool)
	for _, a := range assignments {
		c.add(a)
	}
}

// Clone returns a deep, independent copy of the index.
func (c *ConstraintIndex) Clone() *ConstraintIndex {
	clone := NewConstraintIndex()
	clone.faculty = cloneSetMap(c.faculty)
	clone.section = cloneSetMap(c.section)
	clone.room = cloneSetMap(c.room)
	clone.labRoom = cloneSetMap(c.labRoom)
	return clone
}

func addTo(m map[slotKey]map[string]bool, key slotKey, id string) {
	if id == "" {
		return
	}
	set, ok := m[key]
	if !ok {
		set = make(map[string]bool, 2)
		m[key] = set
	}
	set[id] = true
}

func removeFrom(m map[slotKey]map[string]bool, key slotKey, id string) {
	if id == "" {
		return
	}
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m, key)
	}
}

func has(m map[slotKey]map[string]bool, key slotKey, id string) bool {
	set, ok := m[key]
	if !ok {
		return false
	}
	return set[id]
}

func cloneSetMap(m map[slotKey]map[string]bool) map[slotKey]map[string]bool {
	out := make(map[slotKey]map[string]bool, len(m))
	for key, set := range m {
		clonedSet := make(map[string]bool, len(set))
		for id := range set {
			clonedSet[id] = true
		}
		out[key] = clonedSet
	}
	return out
}

// masterScheduleAssignments converts immutable external reservations into
// synthetic Assignments with empty subject fields, so availability queries
// naturally respect them once pre-loaded into an index.
func masterScheduleAssignments(entries []MasterScheduleEntry) []Assignment {
	out := make([]Assignment, 0, len(entries))
	for _, e := range entries {
		out = append(out, Assignment{
			Day:       e.Day,
			Period:    e.Period,
			FacultyID: e.FacultyID,
			SectionID: e.SectionID,
			RoomID:    e.RoomID,
			IsTheory:  e.IsTheory,
			Batch:     WholeSectionBatch,
		})
	}
	return out
}
