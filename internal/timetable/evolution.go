package timetable

import (
	"math/rand"
	"time"
)

// EvolutionConfig governs the population loop of §4.3. Every field has a
// documented default pulled straight from the spec; callers override only
// what they need to.
type EvolutionConfig struct {
	PopulationSize               int
	Generations                  int
	CrossoverRate                float64
	MutationRateStart            float64
	MutationRateEnd              float64
	EliteRatio                   float64
	TournamentK                  int
	DiversityStagnationThreshold int
	DiversityInjectionFraction   float64
	EliteLocalSearchCount        int
	EarlyStopFitness             float64

	// Deadline is an optional wall-clock bound (§5): if set, the loop checks
	// it at each generation boundary and returns best_ever early rather than
	// spending the full generation budget. Zero value means no deadline.
	Deadline time.Time
}

// DefaultEvolutionConfig returns the §4.3 defaults.
func DefaultEvolutionConfig() EvolutionConfig {
	return EvolutionConfig{
		PopulationSize:               120,
		Generations:                  500,
		CrossoverRate:                0.85,
		MutationRateStart:            0.25,
		MutationRateEnd:              0.05,
		EliteRatio:                   0.15,
		TournamentK:                  3,
		DiversityStagnationThreshold: 50,
		DiversityInjectionFraction:   0.25,
		EliteLocalSearchCount:        5,
		EarlyStopFitness:             1000,
	}
}

// EvolutionStats reports bookkeeping from a completed (or early-stopped) run.
type EvolutionStats struct {
	GenerationsRun    int
	StagnationResets  int
	StoppedEarly      bool
}

// Evolve iterates the population loop until the generation budget is spent
// or early_stop_fitness is reached, returning the best candidate ever seen
// (a deep copy, independent of the final population).
func Evolve(population []*Candidate, subjects []Subject, init *Initializer, geometry Geometry, cfg EvolutionConfig, rng *rand.Rand) (*Candidate, EvolutionStats) {
	stats := EvolutionStats{}
	var bestEver *Candidate
	stagnation := 0

	eliteCount := int(cfg.EliteRatio * float64(cfg.PopulationSize))
	if eliteCount < 1 {
		eliteCount = 1
	}
	diversityCount := int(cfg.DiversityInjectionFraction * float64(cfg.PopulationSize))

	for gen := 0; gen < cfg.Generations; gen++ {
		stats.GenerationsRun = gen + 1
		sortByFitnessDesc(population)

		if bestEver == nil || population[0].Fitness > bestEver.Fitness {
			bestEver = population[0].Clone()
			stagnation = 0
		} else {
			stagnation++
		}

		if stagnation > cfg.DiversityStagnationThreshold && diversityCount > 0 {
			stats.StagnationResets++
			start := len(population) - diversityCount
			if start < 0 {
				start = 0
			}
			for i := start; i < len(population); i++ {
				fresh, _ := init.Construct(subjects, rng)
				fresh.Fitness, _ = Evaluate(fresh.Assignments, geometry)
				population[i] = fresh
			}
			stagnation = 0
			sortByFitnessDesc(population)
		}

		next := make([]*Candidate, 0, cfg.PopulationSize)
		for i := 0; i < eliteCount && i < len(population); i++ {
			next = append(next, population[i].Clone())
		}

		for i := 0; i < cfg.EliteLocalSearchCount && i < len(next); i++ {
			next[i] = TabuSearch(next[i], geometry, DefaultTabuConfigForElite(), rng)
		}

		mutationRate := interpolate(cfg.MutationRateStart, cfg.MutationRateEnd, gen, cfg.Generations)
		for len(next) < cfg.PopulationSize {
			p1 := tournamentSelect(population, cfg.TournamentK, rng)
			p2 := tournamentSelect(population, cfg.TournamentK, rng)
			c1, c2 := crossover(p1, p2, cfg.CrossoverRate, rng)
			maybeMutate(c1, mutationRate, rng)
			maybeMutate(c2, mutationRate, rng)
			c1.Fitness, _ = Evaluate(c1.Assignments, geometry)
			c2.Fitness, _ = Evaluate(c2.Assignments, geometry)
			next = append(next, c1, c2)
		}
		population = next[:cfg.PopulationSize]

		if bestEver.Fitness >= cfg.EarlyStopFitness {
			stats.StoppedEarly = true
			break
		}
		if !cfg.Deadline.IsZero() && !time.Now().Before(cfg.Deadline) {
			break
		}
	}
	sortByFitnessDesc(population)
	if bestEver == nil || population[0].Fitness > bestEver.Fitness {
		bestEver = population[0].Clone()
	}
	return bestEver, stats
}

func sortByFitnessDesc(population []*Candidate) {
	// insertion sort is adequate here: population sizes are small (tens to
	// low hundreds) and this runs once per generation.
	for i := 1; i < len(population); i++ {
		for j := i; j > 0 && population[j].Fitness > population[j-1].Fitness; j-- {
			population[j], population[j-1] = population[j-1], population[j]
		}
	}
}

func tournamentSelect(population []*Candidate, k int, rng *rand.Rand) *Candidate {
	best := population[rng.Intn(len(population))]
	for i := 1; i < k; i++ {
		challenger := population[rng.Intn(len(population))]
		if challenger.Fitness > best.Fitness {
			best = challenger
		}
	}
	return best
}

// crossover performs one-point crossover over the assignment list, per
// §4.3: the cut point is uniform in [1, min(|p1|,|p2|)-1]. A crossover that
// slices an unordered assignment multiset can produce duplicated
// subject-hours; that is intentional (§4.3 note) and is caught by
// countDuplicates in the fitness function rather than forbidden here.
func crossover(p1, p2 *Candidate, rate float64, rng *rand.Rand) (*Candidate, *Candidate) {
	c1, c2 := p1.Clone(), p2.Clone()
	if rng.Float64() > rate || len(p1.Assignments) <= 1 || len(p2.Assignments) <= 1 {
		return c1, c2
	}
	minLen := len(p1.Assignments)
	if len(p2.Assignments) < minLen {
		minLen = len(p2.Assignments)
	}
	if minLen <= 1 {
		return c1, c2
	}
	cut := 1 + rng.Intn(minLen-1)

	child1 := append(append([]Assignment{}, p1.Assignments[:cut]...), p2.Assignments[cut:]...)
	child2 := append(append([]Assignment{}, p2.Assignments[:cut]...), p1.Assignments[cut:]...)
	c1.ReplaceAssignments(child1)
	c2.ReplaceAssignments(child2)
	return c1, c2
}

// maybeMutate applies swap mutation with probability rate: two distinct
// assignment indices have only their (day, period) fields swapped, and the
// index is rebuilt to match.
func maybeMutate(c *Candidate, rate float64, rng *rand.Rand) {
	if rng.Float64() >= rate || len(c.Assignments) < 2 {
		return
	}
	i := rng.Intn(len(c.Assignments))
	j := rng.Intn(len(c.Assignments) - 1)
	if j >= i {
		j++
	}
	c.Assignments[i].Day, c.Assignments[j].Day = c.Assignments[j].Day, c.Assignments[i].Day
	c.Assignments[i].Period, c.Assignments[j].Period = c.Assignments[j].Period, c.Assignments[i].Period
	c.ReplaceAssignments(c.Assignments)
}

func interpolate(start, end float64, gen, totalGens int) float64 {
	if totalGens <= 1 {
		return end
	}
	t := float64(gen) / float64(totalGens-1)
	return start*(1-t) + end*t
}
