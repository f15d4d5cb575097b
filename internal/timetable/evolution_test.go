package timetable

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallSubjects() []Subject {
	return []Subject{
		{Code: "MA101", Name: "Maths", Type: SubjectCoreTheory, TheoryHours: 3, TheoryFaculty: "f1", SectionID: "sec-a", NoOfBatches: 1},
		{Code: "CS201L", Name: "DS Lab", Type: SubjectCoreLab, LabHours: 2, LabFaculty: "f2", SectionID: "sec-a", NoOfBatches: 1},
	}
}

func TestEvolveReturnsTheBestCandidateEverSeenAsAnIndependentClone(t *testing.T) {
	geometry := DefaultGeometry()
	subjects := smallSubjects()
	init := NewInitializer(geometry, fixtureSections(), fixtureLabRooms(2), nil)
	rng := rand.New(rand.NewSource(11))

	cfg := DefaultEvolutionConfig()
	cfg.PopulationSize = 8
	cfg.Generations = 10

	population := make([]*Candidate, 0, cfg.PopulationSize)
	for i := 0; i < cfg.PopulationSize; i++ {
		cand, _ := init.Construct(subjects, rng)
		cand.Fitness, _ = Evaluate(cand.Assignments, geometry)
		population = append(population, cand)
	}

	best, stats := Evolve(population, subjects, init, geometry, cfg, rng)

	require.NotNil(t, best)
	assert.Greater(t, stats.GenerationsRun, 0)
	fitness, _ := Evaluate(best.Assignments, geometry)
	assert.Equal(t, best.Fitness, fitness)

	// Mutating the returned candidate must not disturb the population that
	// produced it.
	snapshotLen := len(best.Assignments)
	best.Add(Assignment{Day: 5, Period: 6, SubjectCode: "ZZZ", SectionID: "sec-z"})
	assert.Equal(t, snapshotLen+1, len(best.Assignments))
	for _, cand := range population {
		assert.NotContains(t, cand.Assignments, Assignment{Day: 5, Period: 6, SubjectCode: "ZZZ", SectionID: "sec-z"})
	}
}

func TestEvolveStopsEarlyWhenAPerfectCandidateAppears(t *testing.T) {
	geometry := DefaultGeometry()
	cfg := DefaultEvolutionConfig()
	cfg.PopulationSize = 4
	cfg.Generations = 200
	cfg.EarlyStopFitness = 1000

	perfect := NewCandidate(nil)
	perfect.Fitness = 1000
	population := []*Candidate{perfect, perfect.Clone(), perfect.Clone(), perfect.Clone()}

	rng := rand.New(rand.NewSource(1))
	init := NewInitializer(geometry, fixtureSections(), fixtureLabRooms(2), nil)
	_, stats := Evolve(population, nil, init, geometry, cfg, rng)

	assert.True(t, stats.StoppedEarly)
	assert.Less(t, stats.GenerationsRun, cfg.Generations)
}

func TestTournamentSelectAlwaysPicksAPopulationMember(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	population := []*Candidate{
		{Fitness: 100}, {Fitness: 500}, {Fitness: 900},
	}
	winner := tournamentSelect(population, 3, rng)
	assert.Contains(t, population, winner)
}

func TestCrossoverBelowRateReturnsUnmodifiedClones(t *testing.T) {
	p1 := NewCandidate(nil)
	p1.Add(Assignment{Day: 0, Period: 0, SubjectCode: "A"})
	p1.Add(Assignment{Day: 0, Period: 1, SubjectCode: "B"})
	p2 := NewCandidate(nil)
	p2.Add(Assignment{Day: 1, Period: 0, SubjectCode: "C"})
	p2.Add(Assignment{Day: 1, Period: 1, SubjectCode: "D"})

	rng := rand.New(rand.NewSource(2))
	c1, c2 := crossover(p1, p2, 0, rng) // rate 0: rng.Float64() > 0 is always true, so no cut is taken
	assert.Equal(t, p1.Assignments, c1.Assignments)
	assert.Equal(t, p2.Assignments, c2.Assignments)
}

func TestInterpolateReachesBothEndpoints(t *testing.T) {
	assert.Equal(t, 0.25, interpolate(0.25, 0.05, 0, 10))
	assert.Equal(t, 0.05, interpolate(0.25, 0.05, 9, 10))
}
