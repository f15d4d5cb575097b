package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario E — a lab session split across two non-adjacent periods on the
// same day is relocated onto a contiguous pair.
func TestRepairRelocatesASplitLabSessionOntoContiguousPeriods(t *testing.T) {
	geometry := DefaultGeometry()
	cand := NewCandidate(nil)
	cand.Add(Assignment{Day: 0, Period: 0, SubjectCode: "CS201L", SectionID: "sec-a", FacultyID: "f1", RoomID: "lab-a", Batch: 1, IsTheory: false})
	cand.Add(Assignment{Day: 0, Period: 3, SubjectCode: "CS201L", SectionID: "sec-a", FacultyID: "f1", RoomID: "lab-a", Batch: 1, IsTheory: false})

	_, before := Evaluate(cand.Assignments, geometry)
	require.Equal(t, 1, before.LabContinuity)

	repaired := Repair(cand, geometry)

	assert.Equal(t, 1, repaired)
	_, after := Evaluate(cand.Assignments, geometry)
	assert.Equal(t, 0, after.LabContinuity)
}

func TestRepairLeavesAlreadyContiguousSessionsUntouched(t *testing.T) {
	geometry := DefaultGeometry()
	cand := NewCandidate(nil)
	cand.Add(Assignment{Day: 0, Period: 0, SubjectCode: "CS201L", SectionID: "sec-a", FacultyID: "f1", RoomID: "lab-a", Batch: 1, IsTheory: false})
	cand.Add(Assignment{Day: 0, Period: 1, SubjectCode: "CS201L", SectionID: "sec-a", FacultyID: "f1", RoomID: "lab-a", Batch: 1, IsTheory: false})

	before := append([]Assignment{}, cand.Assignments...)
	repaired := Repair(cand, geometry)

	assert.Equal(t, 0, repaired)
	assert.Equal(t, before, cand.Assignments)
}

func TestRepairLeavesUnrelocatableSessionAsAWarningCase(t *testing.T) {
	geometry := Geometry{Days: 1, Periods: 3, MorningPeriodsEnd: 3}
	cand := NewCandidate(nil)
	// Occupies every other slot so no contiguous pair can ever be found.
	cand.Add(Assignment{Day: 0, Period: 0, SubjectCode: "CS201L", SectionID: "sec-a", FacultyID: "f1", RoomID: "lab-a", Batch: 1, IsTheory: false})
	cand.Add(Assignment{Day: 0, Period: 2, SubjectCode: "CS201L", SectionID: "sec-a", FacultyID: "f1", RoomID: "lab-a", Batch: 1, IsTheory: false})
	cand.Add(Assignment{Day: 0, Period: 1, SubjectCode: "PH101", SectionID: "sec-a", FacultyID: "f2", RoomID: "room-101", IsTheory: true})

	repaired := Repair(cand, geometry)
	assert.Equal(t, 0, repaired)
}
