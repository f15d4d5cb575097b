package timetable

// Candidate is one complete timetable under consideration: an assignment
// list plus the constraint index derived from it and a cached fitness. A
// Candidate exclusively owns both; cloning one duplicates both so that
// crossover and mutation never share mutable state across candidates (see
// §5 — no shared mutable state, no in-place mutation of parents).
type Candidate struct {
	Assignments []Assignment
	Index       *ConstraintIndex
	Fitness     float64
	master      []Assignment // synthetic master-schedule entries, pre-loaded into Index
}

// NewCandidate returns an empty candidate pre-loaded with the master
// schedule, ready for the initializer to populate.
func NewCandidate(master []MasterScheduleEntry) *Candidate {
	synthetic := masterScheduleAssignments(master)
	idx := NewConstraintIndex()
	for _, a := range synthetic {
		idx.Add(a)
	}
	return &Candidate{
		Assignments: nil,
		Index:       idx,
		master:      synthetic,
	}
}

// Clone performs a compact, independent copy of both the assignment list and
// the index. Deep-copying the index by rebuilding from the (cheaply copied)
// assignment slice avoids the allocator pressure of copying nested maps
// entry-by-entry through reflection, at the cost of one rebuild pass.
func (c *Candidate) Clone() *Candidate {
	assignments := make([]Assignment, len(c.Assignments))
	copy(assignments, c.Assignments)
	clone := &Candidate{
		Assignments: assignments,
		Index:       NewConstraintIndex(),
		Fitness:     c.Fitness,
		master:      c.master,
	}
	for _, a := range clone.master {
		clone.Index.Add(a)
	}
	for _, a := range assignments {
		clone.Index.Add(a)
	}
	return clone
}

// ReplaceAssignments swaps in a wholesale new assignment list and rebuilds
// the index (master schedule entries included) to match.
func (c *Candidate) ReplaceAssignments(assignments []Assignment) {
	c.Assignments = assignments
	c.Index.RebuildFrom(append(append([]Assignment{}, c.master...), assignments...))
}

// Add appends a single assignment and incrementally updates the index.
func (c *Candidate) Add(a Assignment) {
	c.Assignments = append(c.Assignments, a)
	c.Index.Add(a)
}
