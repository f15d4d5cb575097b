package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCandidatePreloadsMasterScheduleIntoIndex(t *testing.T) {
	master := []MasterScheduleEntry{
		{Day: 0, Period: 0, FacultyID: "ext-f1", SectionID: "ext-sec", RoomID: "ext-r1", IsTheory: true},
	}
	cand := NewCandidate(master)
	assert.Empty(t, cand.Assignments)
	assert.False(t, cand.Index.IsAvailable(0, 0, "ext-f1", "", "", true))
}

func TestCandidateAddAppendsAndUpdatesIndex(t *testing.T) {
	cand := NewCandidate(nil)
	a := Assignment{Day: 1, Period: 2, FacultyID: "f1", SectionID: "sec-a", RoomID: "r1", IsTheory: true}
	cand.Add(a)

	assert.Len(t, cand.Assignments, 1)
	assert.False(t, cand.Index.IsAvailable(1, 2, "f1", "", "", true))
}

func TestCandidateCloneIsIndependentOfParent(t *testing.T) {
	cand := NewCandidate(nil)
	cand.Add(Assignment{Day: 0, Period: 0, FacultyID: "f1", SectionID: "sec-a", RoomID: "r1", IsTheory: true})
	cand.Fitness = 750

	clone := cand.Clone()
	clone.Add(Assignment{Day: 1, Period: 1, FacultyID: "f2", SectionID: "sec-b", RoomID: "r2", IsTheory: true})

	assert.Len(t, cand.Assignments, 1, "mutating the clone must not affect the parent")
	assert.Len(t, clone.Assignments, 2)
	assert.Equal(t, 750.0, clone.Fitness)
	assert.True(t, cand.Index.IsAvailable(1, 1, "f2", "", "", true))
	assert.False(t, clone.Index.IsAvailable(1, 1, "f2", "", "", true))
}

func TestCandidateReplaceAssignmentsRebuildsIndexIncludingMaster(t *testing.T) {
	master := []MasterScheduleEntry{
		{Day: 0, Period: 0, FacultyID: "ext-f1", SectionID: "", RoomID: "", IsTheory: true},
	}
	cand := NewCandidate(master)
	cand.Add(Assignment{Day: 1, Period: 1, FacultyID: "f1", SectionID: "sec-a", RoomID: "r1", IsTheory: true})

	cand.ReplaceAssignments([]Assignment{
		{Day: 2, Period: 2, FacultyID: "f2", SectionID: "sec-b", RoomID: "r2", IsTheory: true},
	})

	assert.False(t, cand.Index.IsAvailable(0, 0, "ext-f1", "", "", true), "master schedule entries must survive a replace")
	assert.True(t, cand.Index.IsAvailable(1, 1, "f1", "", "", true), "stale assignment must be gone after replace")
	assert.False(t, cand.Index.IsAvailable(2, 2, "f2", "", "", true))
}
