package timetable

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrInputMalformed is returned only when the input document itself fails
// structural validation (§7) — the one condition the driver treats as a
// hard error rather than recovering locally into warnings.
var ErrInputMalformed = errors.New("timetable: input malformed")

// Config governs one solve end to end: term geometry, the evolution loop,
// the driver's final tabu pass, and reproducibility.
type Config struct {
	Geometry         Geometry
	Evolution        EvolutionConfig
	FinalTabu        TabuConfig
	Seed             int64
	SuccessThreshold float64 // the result's `success` flag; the final tabu pass uses a fixed 900 cut-off

	// MaxWallClockSeconds bounds the evolution loop (§5, §6). Zero means no
	// deadline; the loop runs the full Generations budget.
	MaxWallClockSeconds int
}

// DefaultConfig returns the §4.3/§4.5/§4.7 defaults with a fixed seed so a
// caller that never overrides Seed still gets reproducible runs (§8,
// Scenario F).
func DefaultConfig() Config {
	return Config{
		Geometry:         DefaultGeometry(),
		Evolution:        DefaultEvolutionConfig(),
		FinalTabu:        DefaultTabuConfig(),
		Seed:             1,
		SuccessThreshold: 900,
	}
}

// Result is the wire-agnostic outcome of a solve (§6).
type Result struct {
	Assignments []Assignment
	Fitness     float64
	Success     bool
	Warnings    []string
	Report      ViolationReport
	QualityTier string
}

// Driver is the top-level entry point of §4.7: it validates and normalizes
// inputs, seeds and evolves a population, repairs lab continuity on the
// winner, and optionally runs one more tabu pass before reporting.
type Driver struct {
	cfg Config
}

// NewDriver constructs a Driver with the given configuration.
func NewDriver(cfg Config) *Driver {
	if cfg.Geometry.Days == 0 {
		cfg.Geometry = DefaultGeometry()
	}
	if cfg.Evolution.PopulationSize == 0 {
		cfg.Evolution = DefaultEvolutionConfig()
	}
	if cfg.FinalTabu.MaxIterations == 0 {
		cfg.FinalTabu = DefaultTabuConfig()
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 900
	}
	return &Driver{cfg: cfg}
}

// Generate runs a single solve attempt (§4.7, steps 1-6).
func (d *Driver) Generate(subjects []Subject, faculties []Faculty, sections []Section, labRooms []LabRoom, master []MasterScheduleEntry) (*Result, error) {
	if err := validateStructure(subjects, sections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputMalformed, err)
	}

	var warnings []string
	normalized := make([]Subject, len(subjects))
	copy(normalized, subjects)
	for i := range normalized {
		warnings = append(warnings, normalized[i].Normalize()...)
	}

	for i := range normalized {
		if normalized[i].TheoryHours > 0 && normalized[i].TheoryFaculty == "" {
			warnings = append(warnings, fmt.Sprintf("subject %s: no theory faculty assigned, theory hours skipped", normalized[i].Code))
			normalized[i].TheoryHours = 0
		}
		if normalized[i].LabHours > 0 && normalized[i].LabFaculty == "" {
			warnings = append(warnings, fmt.Sprintf("subject %s: no lab faculty assigned, lab hours skipped", normalized[i].Code))
			normalized[i].LabHours = 0
		}
	}

	sectionIndex := make(map[string]Section, len(sections))
	for _, s := range sections {
		sectionIndex[s.ID] = s
	}
	labRoomIndex := make(map[string]LabRoom, len(labRooms))
	for _, r := range labRooms {
		labRoomIndex[r.ID] = r
	}

	rng := rand.New(rand.NewSource(d.cfg.Seed))
	init := NewInitializer(d.cfg.Geometry, sectionIndex, labRoomIndex, master)

	evolutionCfg := d.cfg.Evolution
	if d.cfg.MaxWallClockSeconds > 0 {
		evolutionCfg.Deadline = time.Now().Add(time.Duration(d.cfg.MaxWallClockSeconds) * time.Second)
	}

	population := make([]*Candidate, 0, d.cfg.Evolution.PopulationSize)
	for i := 0; i < d.cfg.Evolution.PopulationSize; i++ {
		cand, initWarnings := init.Construct(normalized, rng)
		if i == 0 {
			warnings = append(warnings, initWarnings...)
		}
		cand.Fitness, _ = Evaluate(cand.Assignments, d.cfg.Geometry)
		population = append(population, cand)
	}
	if len(population) == 0 {
		population = append(population, NewCandidate(master))
		population[0].Fitness, _ = Evaluate(population[0].Assignments, d.cfg.Geometry)
	}

	best, _ := Evolve(population, normalized, init, d.cfg.Geometry, evolutionCfg, rng)

	if repaired := Repair(best, d.cfg.Geometry); repaired > 0 {
		best.Fitness, _ = Evaluate(best.Assignments, d.cfg.Geometry)
	}

	if best.Fitness < 900 {
		best = TabuSearch(best, d.cfg.Geometry, d.cfg.FinalTabu, rng)
		best.Fitness, _ = Evaluate(best.Assignments, d.cfg.Geometry)
	}

	fitness, report := Evaluate(best.Assignments, d.cfg.Geometry)
	warnings = append(warnings, violationWarnings(report)...)

	result := &Result{
		Assignments: best.Assignments,
		Fitness:     fitness,
		Success:     fitness >= d.cfg.SuccessThreshold,
		Warnings:    warnings,
		Report:      report,
		QualityTier: QualityTier(report.HardCount(), fitness),
	}
	return result, nil
}

// GenerateWithRetry retries Generate up to maxAttempts times and keeps the
// best-fitness candidate seen. It never blocks forever: whatever is best is
// returned, flagged success=false with warnings if it never reached
// fitnessThreshold.
func (d *Driver) GenerateWithRetry(subjects []Subject, faculties []Faculty, sections []Section, labRooms []LabRoom, master []MasterScheduleEntry, maxAttempts int, fitnessThreshold float64) (*Result, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if fitnessThreshold <= 0 {
		fitnessThreshold = d.cfg.SuccessThreshold
	}

	var best *Result
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptCfg := d.cfg
		attemptCfg.Seed = d.cfg.Seed + int64(attempt)
		attemptDriver := NewDriver(attemptCfg)

		result, err := attemptDriver.Generate(subjects, faculties, sections, labRooms, master)
		if err != nil {
			return nil, err
		}
		result.Success = result.Fitness >= fitnessThreshold
		if best == nil || result.Fitness > best.Fitness {
			best = result
		}
		if best.Fitness >= fitnessThreshold {
			break
		}
	}
	if !best.Success {
		best.Warnings = append(best.Warnings, fmt.Sprintf("non-convergence: best fitness %.1f stayed below threshold %.1f after retries", best.Fitness, fitnessThreshold))
	}
	return best, nil
}

func validateStructure(subjects []Subject, sections []Section) error {
	seenSections := make(map[string]bool, len(sections))
	for _, s := range sections {
		if s.ID == "" {
			return errors.New("section with empty id")
		}
		seenSections[s.ID] = true
	}
	for _, s := range subjects {
		if s.Code == "" {
			return errors.New("subject with empty code")
		}
		if s.SectionID == "" {
			return fmt.Errorf("subject %s: empty section id", s.Code)
		}
	}
	return nil
}

// violationWarnings names the top violation categories for NonConvergence
// reporting (§7), skipping any category that is already zero.
func violationWarnings(r ViolationReport) []string {
	var out []string
	note := func(count int, label string) {
		if count > 0 {
			out = append(out, fmt.Sprintf("%d %s violation(s)", count, label))
		}
	}
	note(r.FacultyConflicts, "faculty double-booking")
	note(r.SectionConflicts, "section double-booking")
	note(r.TheoryRoomConflicts, "classroom double-booking")
	note(r.LabRoomConflicts, "lab-room double-booking")
	note(r.LabContinuity, "lab continuity")
	note(r.ProjectContinuity, "project continuity")
	note(r.DuplicateAssignments, "duplicate assignment")
	return out
}
