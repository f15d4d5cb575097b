package timetable

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTabuSearchNeverReturnsALowerFitnessThanItStartedWith(t *testing.T) {
	geometry := DefaultGeometry()
	cand := NewCandidate(nil)
	cand.Add(Assignment{Day: 0, Period: 2, SubjectCode: "MA101", SectionID: "sec-a", FacultyID: "f1", RoomID: "r1", IsTheory: true})
	cand.Add(Assignment{Day: 1, Period: 2, SubjectCode: "MA101", SectionID: "sec-a", FacultyID: "f1", RoomID: "r1", IsTheory: true})
	cand.Add(Assignment{Day: 2, Period: 5, SubjectCode: "PH101", SectionID: "sec-a", FacultyID: "f2", RoomID: "r1", IsTheory: true})
	cand.Fitness, _ = Evaluate(cand.Assignments, geometry)
	startFitness := cand.Fitness

	rng := rand.New(rand.NewSource(13))
	result := TabuSearch(cand, geometry, DefaultTabuConfig(), rng)

	assert.GreaterOrEqual(t, result.Fitness, startFitness)
	finalFitness, _ := Evaluate(result.Assignments, geometry)
	assert.Equal(t, result.Fitness, finalFitness)
}

func TestTabuSearchDoesNotMutateItsInput(t *testing.T) {
	geometry := DefaultGeometry()
	cand := NewCandidate(nil)
	cand.Add(Assignment{Day: 0, Period: 0, SubjectCode: "MA101", SectionID: "sec-a", FacultyID: "f1", IsTheory: true})
	cand.Add(Assignment{Day: 1, Period: 1, SubjectCode: "PH101", SectionID: "sec-a", FacultyID: "f2", IsTheory: true})
	cand.Fitness, _ = Evaluate(cand.Assignments, geometry)
	before := append([]Assignment{}, cand.Assignments...)

	rng := rand.New(rand.NewSource(21))
	TabuSearch(cand, geometry, DefaultTabuConfig(), rng)

	assert.Equal(t, before, cand.Assignments)
}

func TestTabuSearchSkipsWhenFewerThanTwoTheoryAssignments(t *testing.T) {
	geometry := DefaultGeometry()
	cand := NewCandidate(nil)
	cand.Add(Assignment{Day: 0, Period: 0, SubjectCode: "CS201L", SectionID: "sec-a", IsTheory: false})
	cand.Fitness, _ = Evaluate(cand.Assignments, geometry)

	rng := rand.New(rand.NewSource(1))
	result := TabuSearch(cand, geometry, DefaultTabuConfig(), rng)

	assert.Equal(t, cand.Assignments, result.Assignments)
}

func TestIsTabuIsSymmetric(t *testing.T) {
	list := []tabuMove{{i: 1, j: 2}}
	assert.True(t, isTabu(list, tabuMove{i: 1, j: 2}))
	assert.True(t, isTabu(list, tabuMove{i: 2, j: 1}))
	assert.False(t, isTabu(list, tabuMove{i: 1, j: 3}))
}
