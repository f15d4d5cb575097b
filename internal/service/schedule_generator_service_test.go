package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anon-univ/timetable-engine/internal/dto"
	"github.com/anon-univ/timetable-engine/internal/models"
	"github.com/anon-univ/timetable-engine/internal/timetable"
	appErrors "github.com/anon-univ/timetable-engine/pkg/errors"
)

func smallGenerateRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		TermID:  "term-1",
		ClassID: "class-1",
		Subjects: []dto.SubjectRequest{
			{SubjectCode: "CS301", SubjectName: "Data Structures", SubjectType: "PCC", TheoryHours: 3, TheoryFaculty: "f1", Section: "sec-1"},
			{SubjectCode: "CS302", SubjectName: "Algorithms Lab", SubjectType: "PCCL", LabHours: 2, LabFaculty: "f2", NoOfBatches: 2, Section: "sec-1"},
		},
		Faculties: []dto.FacultyRequest{{ID: "f1", Name: "Dr. A"}, {ID: "f2", Name: "Dr. B"}},
		Sections:  []dto.SectionRequest{{ID: "sec-1", Name: "CSE-A", Classroom: "R101"}},
		LabRooms:  []dto.LabRoomRequest{{ID: "lab-1", Name: "Lab A"}, {ID: "lab-2", Name: "Lab B"}},
	}
}

func testDriver() *timetable.Driver {
	cfg := timetable.DefaultConfig()
	cfg.Evolution.PopulationSize = 10
	cfg.Evolution.Generations = 15
	cfg.Seed = 7
	return timetable.NewDriver(cfg)
}

func TestScheduleGeneratorServiceGenerateSuccess(t *testing.T) {
	service := newSchedulerServiceFixture(t, schedulerFixtureConfig{})

	resp, err := service.Generate(context.Background(), smallGenerateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ProposalID)
	assert.Len(t, resp.Timetable, 7) // 3 theory hours + 1 two-period lab session across 2 batches
	assert.NotEmpty(t, resp.QualityTier)
}

func TestScheduleGeneratorServiceGenerateRejectsMalformedInput(t *testing.T) {
	service := newSchedulerServiceFixture(t, schedulerFixtureConfig{})

	req := smallGenerateRequest()
	req.Subjects[0].SubjectCode = ""

	_, err := service.Generate(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestScheduleGeneratorServiceSaveDraft(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	service := newSchedulerServiceFixture(t, schedulerFixtureConfig{tx: txProvider})

	resp, err := service.Generate(context.Background(), smallGenerateRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := service.Save(context.Background(), dto.SaveScheduleRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())

	slots, err := service.GetSlots(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, slots, len(resp.Timetable))
}

func TestScheduleGeneratorServiceSaveUnknownProposal(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	service := newSchedulerServiceFixture(t, schedulerFixtureConfig{tx: txProvider})

	_, err := service.Save(context.Background(), dto.SaveScheduleRequest{ProposalID: "missing"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestScheduleGeneratorServiceSaveCommitToDailyPublishes(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	service := newSchedulerServiceFixture(t, schedulerFixtureConfig{tx: txProvider})

	resp, err := service.Generate(context.Background(), smallGenerateRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := service.Save(context.Background(), dto.SaveScheduleRequest{ProposalID: resp.ProposalID, CommitToDaily: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	schedules, err := service.semesters.ListByTermClass(context.Background(), "term-1", "class-1")
	require.NoError(t, err)
	var found bool
	for _, s := range schedules {
		if s.ID == id {
			found = true
			assert.Equal(t, models.SemesterScheduleStatusPublished, s.Status)
		}
	}
	assert.True(t, found)
}

// --- Fixtures ---

type schedulerFixtureConfig struct {
	tx txProvider
}

func newSchedulerServiceFixture(t *testing.T, cfg schedulerFixtureConfig) *ScheduleGeneratorService {
	semesters := &semesterScheduleRepoStub{}
	slots := &semesterScheduleSlotRepoStub{}
	cache := newFakeCacheRepository()
	tx := cfg.tx
	if tx == nil {
		tx = noopTxProvider{}
	}

	return NewScheduleGeneratorService(
		testDriver(),
		semesters,
		slots,
		tx,
		cache,
		nil,
		validator.New(),
		zap.NewNop(),
		ScheduleGeneratorConfig{ProposalTTL: time.Hour, MaxAttempts: 1, FitnessThreshold: 1},
	)
}

type semesterScheduleRepoStub struct {
	items []models.SemesterSchedule
}

func (s *semesterScheduleRepoStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.SemesterSchedule) error {
	schedule.ID = uuidString(len(s.items) + 1)
	schedule.Version = len(s.items) + 1
	s.items = append(s.items, *schedule)
	return nil
}

func (s *semesterScheduleRepoStub) ListByTermClass(ctx context.Context, termID, classID string) ([]models.SemesterSchedule, error) {
	return s.items, nil
}

func (s *semesterScheduleRepoStub) FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error) {
	for _, item := range s.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *semesterScheduleRepoStub) Delete(ctx context.Context, id string) error {
	for idx, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *semesterScheduleRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SemesterScheduleStatus, meta types.JSONText) error {
	for idx := range s.items {
		if s.items[idx].ID == id {
			s.items[idx].Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

type semesterScheduleSlotRepoStub struct {
	items map[string][]models.SemesterScheduleSlot
}

func (s *semesterScheduleSlotRepoStub) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.SemesterScheduleSlot) error {
	if s.items == nil {
		s.items = make(map[string][]models.SemesterScheduleSlot)
	}
	for _, slot := range slots {
		s.items[slot.SemesterScheduleID] = append(s.items[slot.SemesterScheduleID], slot)
	}
	return nil
}

func (s *semesterScheduleSlotRepoStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	return s.items[scheduleID], nil
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func uuidString(v int) string {
	return "sched-" + string(rune('0'+v))
}

// fakeCacheRepository is an in-memory stand-in for the Redis-backed
// CacheRepository, round-tripping values through JSON exactly like the real
// implementation so encoding bugs would surface here too.
type fakeCacheRepository struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCacheRepository() *fakeCacheRepository {
	return &fakeCacheRepository{items: make(map[string][]byte)}
}

func (c *fakeCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	raw, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *fakeCacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	delete(c.items, pattern)
	c.mu.Unlock()
	return nil
}
