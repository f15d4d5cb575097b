package timetable

import "math/rand"

// TabuConfig governs the neighborhood explorer of §4.5.
type TabuConfig struct {
	MaxIterations int
	TabuSize      int
	SamplesPerIteration int
}

// DefaultTabuConfig returns the §4.5 default (50 iterations, a 20-entry
// tabu list), used for the driver's final tabu pass.
func DefaultTabuConfig() TabuConfig {
	return TabuConfig{MaxIterations: 50, TabuSize: 20, SamplesPerIteration: 10}
}

// DefaultTabuConfigForElite returns the reduced 30-iteration budget used for
// the intra-generation elite passes in §4.3.
func DefaultTabuConfigForElite() TabuConfig {
	return TabuConfig{MaxIterations: 30, TabuSize: 20, SamplesPerIteration: 10}
}

type tabuMove struct{ i, j int }

// TabuSearch escapes shallow local optima on a single candidate by swapping
// pairs of theory assignments, forbidding recent reverse moves. It never
// mutates the input candidate; the returned candidate is independent.
func TabuSearch(input *Candidate, geometry Geometry, cfg TabuConfig, rng *rand.Rand) *Candidate {
	current := input.Clone()
	if current.Fitness == 0 {
		current.Fitness, _ = Evaluate(current.Assignments, geometry)
	}
	var tabuList []tabuMove

	theoryIdx := theoryIndices(current.Assignments)
	if len(theoryIdx) < 2 {
		return current
	}

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		if current.Fitness >= 1000 {
			break
		}

		bestFitness := current.Fitness
		var bestMove tabuMove
		found := false

		samples := cfg.SamplesPerIteration
		for s := 0; s < samples; s++ {
			a := theoryIdx[rng.Intn(len(theoryIdx))]
			b := theoryIdx[rng.Intn(len(theoryIdx))]
			if a == b {
				continue
			}
			move := tabuMove{a, b}
			if isTabu(tabuList, move) {
				continue
			}

			current.Assignments[a].Day, current.Assignments[b].Day = current.Assignments[b].Day, current.Assignments[a].Day
			current.Assignments[a].Period, current.Assignments[b].Period = current.Assignments[b].Period, current.Assignments[a].Period
			current.Index.RebuildFrom(withMaster(current))

			fitness, _ := Evaluate(current.Assignments, geometry)
			if fitness > bestFitness {
				bestFitness = fitness
				bestMove = move
				found = true
			}

			// unswap
			current.Assignments[a].Day, current.Assignments[b].Day = current.Assignments[b].Day, current.Assignments[a].Day
			current.Assignments[a].Period, current.Assignments[b].Period = current.Assignments[b].Period, current.Assignments[a].Period
			current.Index.RebuildFrom(withMaster(current))
		}

		if !found {
			continue
		}

		i, j := bestMove.i, bestMove.j
		current.Assignments[i].Day, current.Assignments[j].Day = current.Assignments[j].Day, current.Assignments[i].Day
		current.Assignments[i].Period, current.Assignments[j].Period = current.Assignments[j].Period, current.Assignments[i].Period
		current.ReplaceAssignments(current.Assignments)
		current.Fitness = bestFitness

		tabuList = append(tabuList, bestMove)
		if len(tabuList) > cfg.TabuSize {
			tabuList = tabuList[len(tabuList)-cfg.TabuSize:]
		}
	}

	return current
}

func isTabu(list []tabuMove, move tabuMove) bool {
	for _, m := range list {
		if (m.i == move.i && m.j == move.j) || (m.i == move.j && m.j == move.i) {
			return true
		}
	}
	return false
}

func theoryIndices(assignments []Assignment) []int {
	var idx []int
	for i, a := range assignments {
		if a.IsTheory {
			idx = append(idx, i)
		}
	}
	return idx
}

// withMaster is a small helper so the index can be rebuilt purely from the
// candidate's own state during a scoped swap/unswap cycle.
func withMaster(c *Candidate) []Assignment {
	out := make([]Assignment, 0, len(c.master)+len(c.Assignments))
	out = append(out, c.master...)
	out = append(out, c.Assignments...)
	return out
}
