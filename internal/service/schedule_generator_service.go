package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/anon-univ/timetable-engine/internal/dto"
	"github.com/anon-univ/timetable-engine/internal/models"
	"github.com/anon-univ/timetable-engine/internal/timetable"
	appErrors "github.com/anon-univ/timetable-engine/pkg/errors"
)

type semesterScheduleRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.SemesterSchedule) error
	ListByTermClass(ctx context.Context, termID, classID string) ([]models.SemesterSchedule, error)
	FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SemesterScheduleStatus, meta types.JSONText) error
}

type semesterScheduleSlotRepository interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.SemesterScheduleSlot) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ScheduleGeneratorService runs the timetable solver (§4 of the engine) and
// persists accepted proposals as versioned semester schedules.
type ScheduleGeneratorService struct {
	driver    *timetable.Driver
	semesters semesterScheduleRepository
	slots     semesterScheduleSlotRepository
	tx        txProvider
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	store     *proposalStore

	maxAttempts      int
	fitnessThreshold float64
}

// ScheduleGeneratorConfig governs generator behaviour independent of the
// solver's own tuning (which lives on timetable.Config).
type ScheduleGeneratorConfig struct {
	ProposalTTL      time.Duration
	MaxAttempts      int
	FitnessThreshold float64
}

// NewScheduleGeneratorService wires scheduler dependencies. driver owns the
// solver configuration (population size, generations, seed, deadline);
// cache backs the short-lived proposal store.
func NewScheduleGeneratorService(
	driver *timetable.Driver,
	semesters semesterScheduleRepository,
	slots semesterScheduleSlotRepository,
	tx txProvider,
	cache CacheRepository,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.FitnessThreshold <= 0 {
		cfg.FitnessThreshold = 900
	}
	return &ScheduleGeneratorService{
		driver:           driver,
		semesters:        semesters,
		slots:            slots,
		tx:               tx,
		validator:        validate,
		metrics:          metrics,
		logger:           logger,
		store:            newProposalStore(cache, cfg.ProposalTTL),
		maxAttempts:      cfg.MaxAttempts,
		fitnessThreshold: cfg.FitnessThreshold,
	}
}

// Generate runs the solver over the supplied reference data and stashes the
// result as a short-lived proposal the caller can inspect before Save.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = s.maxAttempts
	}
	fitnessThreshold := req.FitnessThreshold
	if fitnessThreshold <= 0 {
		fitnessThreshold = s.fitnessThreshold
	}

	start := time.Now()
	result, err := s.driver.GenerateWithRetry(
		toTimetableSubjects(req.Subjects),
		toTimetableFaculties(req.Faculties),
		toTimetableSections(req.Sections),
		toTimetableLabRooms(req.LabRooms),
		toTimetableMaster(req.MasterSchedule),
		maxAttempts,
		fitnessThreshold,
	)
	if err != nil {
		if errors.Is(err, timetable.ErrInputMalformed) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "timetable input malformed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable solve failed")
	}
	if s.metrics != nil {
		s.metrics.ObserveScheduleSolve(time.Since(start), result.QualityTier)
	}

	proposal := scheduleProposal{
		ProposalID:  uuid.NewString(),
		TermID:      req.TermID,
		ClassID:     req.ClassID,
		Result:      *result,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, proposal); err != nil {
		s.logger.Warn("failed to cache timetable proposal", zap.Error(err))
	}

	return &dto.GenerateTimetableResponse{
		ProposalID:  proposal.ProposalID,
		Timetable:   toAssignmentResponses(result.Assignments),
		Fitness:     result.Fitness,
		Success:     result.Success,
		Warnings:    result.Warnings,
		QualityTier: result.QualityTier,
	}, nil
}

// Save persists a previously generated proposal as a draft semester
// schedule, optionally publishing it immediately.
func (s *ScheduleGeneratorService) Save(ctx context.Context, req dto.SaveScheduleRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save schedule payload")
	}
	proposal, ok := s.store.Get(ctx, req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	metaPayload := map[string]any{
		"fitness":     proposal.Result.Fitness,
		"qualityTier": proposal.Result.QualityTier,
		"warnings":    proposal.Result.Warnings,
		"generated":   proposal.RequestedAt,
		"algorithm":   "hybrid_ga_tabu_v1",
	}
	metaBytes, marshalErr := json.Marshal(metaPayload)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
		return "", err
	}

	record := &models.SemesterSchedule{
		TermID:  proposal.TermID,
		ClassID: proposal.ClassID,
		Status:  models.SemesterScheduleStatusDraft,
		Meta:    types.JSONText(metaBytes),
	}

	if err = s.semesters.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester schedule")
		return "", err
	}

	slotModels := make([]models.SemesterScheduleSlot, 0, len(proposal.Result.Assignments))
	for _, a := range proposal.Result.Assignments {
		var room *string
		if a.RoomID != "" {
			r := a.RoomID
			room = &r
		}
		slotModels = append(slotModels, models.SemesterScheduleSlot{
			SemesterScheduleID: record.ID,
			DayOfWeek:          a.Day,
			TimeSlot:           a.Period,
			SubjectCode:        a.SubjectCode,
			SubjectName:        a.SubjectName,
			SubjectType:        string(a.SubjectType),
			TeacherID:          a.FacultyID,
			SectionID:          a.SectionID,
			Room:               room,
			BatchNumber:        a.Batch,
			IsTheory:           a.IsTheory,
		})
	}

	if err = s.slots.UpsertBatch(ctx, tx, slotModels); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist semester schedule slots")
		return "", err
	}

	if req.CommitToDaily {
		if err = s.semesters.UpdateStatus(ctx, tx, record.ID, models.SemesterScheduleStatusPublished, nil); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule status")
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return "", err
	}

	s.store.Delete(ctx, req.ProposalID)
	return record.ID, nil
}

// List returns semester schedules for a class-term tuple.
func (s *ScheduleGeneratorService) List(ctx context.Context, query dto.SemesterScheduleQuery) ([]models.SemesterSchedule, error) {
	if query.TermID == "" || query.ClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId and classId are required")
	}
	list, err := s.semesters.ListByTermClass(ctx, query.TermID, query.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester schedules")
	}
	return list, nil
}

// GetSlots returns slot detail for a stored schedule.
func (s *ScheduleGeneratorService) GetSlots(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if _, err := s.semesters.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedule")
	}
	slots, err := s.slots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester schedule slots")
	}
	return slots, nil
}

// Delete removes a draft schedule version.
func (s *ScheduleGeneratorService) Delete(ctx context.Context, scheduleID string) error {
	record, err := s.semesters.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedule")
	}
	if record.Status != models.SemesterScheduleStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft schedules can be deleted")
	}
	if err := s.semesters.Delete(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester schedule")
	}
	return nil
}

// --- DTO <-> domain mapping ---

func toTimetableSubjects(in []dto.SubjectRequest) []timetable.Subject {
	out := make([]timetable.Subject, 0, len(in))
	for _, s := range in {
		out = append(out, timetable.Subject{
			Code:          s.SubjectCode,
			Name:          s.SubjectName,
			Type:          timetable.SubjectType(s.SubjectType),
			TheoryHours:   s.TheoryHours,
			LabHours:      s.LabHours,
			TheoryFaculty: s.TheoryFaculty,
			LabFaculty:    s.LabFaculty,
			NoOfBatches:   s.NoOfBatches,
			SectionID:     s.Section,
			SemesterID:    s.Semester,
		})
	}
	return out
}

func toTimetableFaculties(in []dto.FacultyRequest) []timetable.Faculty {
	out := make([]timetable.Faculty, 0, len(in))
	for _, f := range in {
		out = append(out, timetable.Faculty{ID: f.ID, Name: f.Name})
	}
	return out
}

func toTimetableSections(in []dto.SectionRequest) []timetable.Section {
	out := make([]timetable.Section, 0, len(in))
	for _, sec := range in {
		out = append(out, timetable.Section{ID: sec.ID, Name: sec.Name, SemesterID: sec.Semester, Classroom: sec.Classroom})
	}
	return out
}

func toTimetableLabRooms(in []dto.LabRoomRequest) []timetable.LabRoom {
	out := make([]timetable.LabRoom, 0, len(in))
	for _, r := range in {
		out = append(out, timetable.LabRoom{ID: r.ID, Name: r.Name})
	}
	return out
}

func toTimetableMaster(in []dto.MasterScheduleEntryRequest) []timetable.MasterScheduleEntry {
	out := make([]timetable.MasterScheduleEntry, 0, len(in))
	for _, m := range in {
		out = append(out, timetable.MasterScheduleEntry{
			Day:       m.Day,
			Period:    m.Period,
			FacultyID: m.FacultyID,
			SectionID: m.SectionID,
			RoomID:    m.RoomID,
			IsTheory:  m.IsTheory,
		})
	}
	return out
}

func toAssignmentResponses(in []timetable.Assignment) []dto.AssignmentResponse {
	out := make([]dto.AssignmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, dto.AssignmentResponse{
			Day:         a.Day,
			Period:      a.Period,
			SubjectCode: a.SubjectCode,
			SubjectName: a.SubjectName,
			SubjectType: string(a.SubjectType),
			FacultyID:   a.FacultyID,
			SectionID:   a.SectionID,
			RoomID:      a.RoomID,
			BatchNumber: a.Batch,
			IsTheory:    a.IsTheory,
		})
	}
	return out
}

// --- Proposal cache ---

// scheduleProposal is the cached outcome of a Generate call, keyed by
// ProposalID until Save consumes it or the TTL expires.
type scheduleProposal struct {
	ProposalID  string
	TermID      string
	ClassID     string
	Result      timetable.Result
	RequestedAt time.Time
}

const proposalCacheKeyPrefix = "timetable:proposal:"

// proposalStore backs Generate/Save with the Redis-fronted CacheRepository
// rather than an in-memory map, so proposals survive across replicas of the
// API gateway.
type proposalStore struct {
	cache CacheRepository
	ttl   time.Duration
}

func newProposalStore(cache CacheRepository, ttl time.Duration) *proposalStore {
	return &proposalStore{cache: cache, ttl: ttl}
}

func (s *proposalStore) Save(ctx context.Context, proposal scheduleProposal) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, proposalCacheKeyPrefix+proposal.ProposalID, proposal, s.ttl)
}

func (s *proposalStore) Get(ctx context.Context, id string) (scheduleProposal, bool) {
	if s.cache == nil {
		return scheduleProposal{}, false
	}
	var proposal scheduleProposal
	if err := s.cache.Get(ctx, proposalCacheKeyPrefix+id, &proposal); err != nil {
		return scheduleProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.DeleteByPattern(ctx, proposalCacheKeyPrefix+id)
}
