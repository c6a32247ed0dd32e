package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/prepdesk/exam-service/internal/events"
	"github.com/prepdesk/exam-service/internal/models"
	"github.com/prepdesk/exam-service/internal/repositories"
	"github.com/prepdesk/exam-service/internal/validator"
)

// ===== IN-MEMORY REPOSITORY =====

type fakeRepository struct {
	tests     map[uint]*models.Test
	questions map[uint][]*models.Question
	attempts  map[uint]*models.TestAttempt
	nextID    uint

	// cachedTestReads counts GetByID calls, which go through the redis
	// read-through cache in production; freshTestReads counts
	// GetByIDWithQuestions calls, which always hit the database.
	cachedTestReads int
	freshTestReads  int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		tests:     make(map[uint]*models.Test),
		questions: make(map[uint][]*models.Question),
		attempts:  make(map[uint]*models.TestAttempt),
		nextID:    1,
	}
}

func (f *fakeRepository) Test() repositories.TestRepository         { return &fakeTestRepo{f} }
func (f *fakeRepository) Question() repositories.QuestionRepository { return &fakeQuestionRepo{f} }
func (f *fakeRepository) Attempt() repositories.AttemptRepository   { return &fakeAttemptRepo{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

type fakeTestRepo struct{ f *fakeRepository }

func (r *fakeTestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	r.f.cachedTestReads++
	test, ok := r.f.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *test
	return &copied, nil
}

func (r *fakeTestRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	r.f.freshTestReads++
	test, ok := r.f.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *test
	for _, q := range r.f.questions[id] {
		copied.Questions = append(copied.Questions, *q)
	}
	return &copied, nil
}

func (r *fakeTestRepo) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	_, ok := r.f.tests[id]
	return ok, nil
}

type fakeQuestionRepo struct{ f *fakeRepository }

func (r *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	for _, qs := range r.f.questions {
		for _, q := range qs {
			if q.ID == id {
				return q, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeQuestionRepo) GetByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.Question, error) {
	return r.f.questions[testID], nil
}

type fakeAttemptRepo struct{ f *fakeRepository }

func (r *fakeAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error {
	// Mirror the partial unique index on in-progress attempts
	for _, existing := range r.f.attempts {
		if existing.TestID == attempt.TestID &&
			existing.UserID == attempt.UserID &&
			existing.Status == models.AttemptInProgress {
			return gorm.ErrDuplicatedKey
		}
	}

	attempt.ID = r.f.nextID
	r.f.nextID++
	copied := *attempt
	r.f.attempts[attempt.ID] = &copied
	return nil
}

func (r *fakeAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error) {
	attempt, ok := r.f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (r *fakeAttemptRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *fakeAttemptRepo) Update(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error {
	if _, ok := r.f.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *attempt
	r.f.attempts[attempt.ID] = &copied
	return nil
}

func (r *fakeAttemptRepo) GetActiveAttempt(ctx context.Context, tx *gorm.DB, testID uint, userID string) (*models.TestAttempt, error) {
	for _, attempt := range r.f.attempts {
		if attempt.TestID == testID && attempt.UserID == userID && attempt.Status == models.AttemptInProgress {
			copied := *attempt
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAttemptRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	var out []*models.TestAttempt
	for _, attempt := range r.f.attempts {
		if filters.UserID != nil && attempt.UserID != *filters.UserID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		if filters.TestID != nil && attempt.TestID != *filters.TestID {
			continue
		}
		copied := *attempt
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAttemptRepo) GetCompletedByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.TestAttempt, error) {
	var out []*models.TestAttempt
	for _, attempt := range r.f.attempts {
		if attempt.TestID == testID && attempt.Status == models.AttemptCompleted {
			copied := *attempt
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ===== FIXTURES =====

func newAttemptTestHarness(t *testing.T) (*fakeRepository, *events.MockEventPublisher, AttemptService) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(logger)
	svc := NewAttemptService(repo, logger, validator.New(), NewGradingService(logger), publisher)

	return repo, publisher, svc
}

func seedTest(t *testing.T, repo *fakeRepository, id uint, active bool, duration *int) {
	t.Helper()

	repo.tests[id] = &models.Test{
		ID:           id,
		CourseID:     1,
		Title:        "Algebra Midterm",
		IsActive:     active,
		PassingScore: 60,
		Duration:     duration,
		CreatedBy:    "teacher-1",
	}
	repo.questions[id] = []*models.Question{
		question(t, 10, models.MCQ, models.ChoiceKey{Options: []string{"b"}}, 4, 1),
		question(t, 11, models.TrueFalse, models.BoolKey{Value: true}, 2, 0),
		question(t, 12, models.FillBlank, models.TextKey{Text: "42"}, 4, 0),
	}
	for _, q := range repo.questions[id] {
		q.TestID = id
	}
}

// ===== START =====

func TestAttemptService_Start(t *testing.T) {
	repo, publisher, svc := newAttemptTestHarness(t)
	duration := 30
	seedTest(t, repo, 1, true, &duration)

	resp, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if resp.Status != models.AttemptInProgress {
		t.Errorf("Status = %s, want in_progress", resp.Status)
	}
	if resp.EndsAt == nil {
		t.Error("expected EndsAt for a timed test")
	}
	if !resp.CanSubmit {
		t.Error("expected CanSubmit for a fresh attempt")
	}
	if resp.TimeRemaining == nil || *resp.TimeRemaining <= 0 {
		t.Error("expected positive TimeRemaining for a timed attempt")
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventAttemptStarted {
		t.Errorf("expected one attempt.started event, got %+v", published)
	}
}

func TestAttemptService_Start_UntimedTest(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	resp, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if resp.EndsAt != nil {
		t.Error("untimed test should not get a deadline")
	}
	if resp.TimeRemaining != nil {
		t.Error("untimed attempt should not report time remaining")
	}
}

func TestAttemptService_Start_TestNotFound(t *testing.T) {
	_, _, svc := newAttemptTestHarness(t)

	_, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 99}, "user-1")
	if !errors.Is(err, ErrTestNotFound) {
		t.Errorf("expected ErrTestNotFound, got %v", err)
	}
}

func TestAttemptService_Start_InactiveTest(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, false, nil)

	_, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if !errors.Is(err, ErrTestNotActive) {
		t.Errorf("expected ErrTestNotActive, got %v", err)
	}
}

func TestAttemptService_Start_ReadsActiveFlagFresh(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	if _, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A just-deactivated test must stop admitting attempts immediately,
	// so admission may not go through the cached test read.
	if repo.cachedTestReads != 0 {
		t.Errorf("admission used the cached test read %d times, want 0", repo.cachedTestReads)
	}
	if repo.freshTestReads == 0 {
		t.Error("expected admission to read the test fresh")
	}
}

func TestAttemptService_Start_ConflictSurfacesExistingAttempt(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	first, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	_, err = svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ExistingAttemptID != first.ID {
		t.Errorf("conflict carries attempt %d, want %d", conflict.ExistingAttemptID, first.ID)
	}
}

func TestAttemptService_Start_DifferentUsersDoNotConflict(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	if _, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1"); err != nil {
		t.Fatalf("Start for user-1 failed: %v", err)
	}
	if _, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-2"); err != nil {
		t.Fatalf("Start for user-2 failed: %v", err)
	}
}

// ===== SUBMIT ANSWERS =====

func TestAttemptService_SubmitAnswers_MergesAnswers(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err = svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"10": json.RawMessage(`"a"`),
		"11": json.RawMessage(`true`),
	}, "user-1")
	if err != nil {
		t.Fatalf("first SubmitAnswers failed: %v", err)
	}

	// Second submission overwrites question 10 and adds question 12
	resp, err := svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"10": json.RawMessage(`"b"`),
		"12": json.RawMessage(`"42"`),
	}, "user-1")
	if err != nil {
		t.Fatalf("second SubmitAnswers failed: %v", err)
	}

	answers, err := resp.TestAttempt.AnswerSet()
	if err != nil {
		t.Fatalf("AnswerSet failed: %v", err)
	}
	if len(answers) != 3 {
		t.Errorf("expected 3 merged answers, got %d", len(answers))
	}
	if string(answers["10"]) != `"b"` {
		t.Errorf("answer 10 = %s, want overwritten value \"b\"", answers["10"])
	}
	if string(answers["11"]) != `true` {
		t.Errorf("answer 11 = %s, want untouched value true", answers["11"])
	}
}

func TestAttemptService_SubmitAnswers_RejectsForeignQuestion(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err = svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"999": json.RawMessage(`"b"`),
	}, "user-1")
	if !errors.Is(err, ErrQuestionNotInTest) {
		t.Fatalf("expected ErrQuestionNotInTest, got %v", err)
	}

	// Nothing may have been merged alongside the rejection
	stored := repo.attempts[started.ID]
	answers, err := stored.AnswerSet()
	if err != nil {
		t.Fatalf("AnswerSet failed: %v", err)
	}
	if len(answers) != 0 {
		t.Errorf("expected no stored answers after rejection, got %d", len(answers))
	}
}

func TestAttemptService_SubmitAnswers_RejectsWrongShape(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// question 11 is true/false, a string payload must be rejected
	_, err = svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"11": json.RawMessage(`"true"`),
	}, "user-1")

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
}

func TestAttemptService_SubmitAnswers_OwnershipEnforced(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err = svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"10": json.RawMessage(`"b"`),
	}, "user-2")

	var perm *PermissionError
	if !errors.As(err, &perm) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func TestAttemptService_SubmitAnswers_CompletedAttemptRejected(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Complete(context.Background(), started.ID, "user-1"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	_, err = svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"10": json.RawMessage(`"b"`),
	}, "user-1")
	if !errors.Is(err, ErrAttemptNotActive) {
		t.Errorf("expected ErrAttemptNotActive, got %v", err)
	}
}

func TestAttemptService_SubmitAnswers_ExpiredAttemptForceCompletes(t *testing.T) {
	repo, publisher, svc := newAttemptTestHarness(t)
	duration := 30
	seedTest(t, repo, 1, true, &duration)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"10": json.RawMessage(`"b"`),
	}, "user-1"); err != nil {
		t.Fatalf("SubmitAnswers failed: %v", err)
	}

	// Push the deadline into the past
	stored := repo.attempts[started.ID]
	past := time.Now().Add(-time.Minute)
	stored.EndsAt = &past
	publisher.ClearEvents()

	_, err = svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"11": json.RawMessage(`true`),
	}, "user-1")
	if !errors.Is(err, ErrAttemptTimeExpired) {
		t.Fatalf("expected ErrAttemptTimeExpired, got %v", err)
	}

	frozen := repo.attempts[started.ID]
	if frozen.Status != models.AttemptCompleted {
		t.Errorf("Status = %s, want completed after forced expiry", frozen.Status)
	}
	if frozen.EndReason == nil || *frozen.EndReason != models.AttemptEndReasonTimeout {
		t.Errorf("EndReason = %v, want time_out", frozen.EndReason)
	}
	if frozen.CompletedAt == nil || !frozen.CompletedAt.Equal(past) {
		t.Errorf("CompletedAt = %v, want the deadline %v", frozen.CompletedAt, past)
	}

	// The late answer must not have been graded
	answers, err := frozen.AnswerSet()
	if err != nil {
		t.Fatalf("AnswerSet failed: %v", err)
	}
	if _, ok := answers["11"]; ok {
		t.Error("late answer must be discarded on expiry")
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventAttemptCompleted {
		t.Errorf("expected one attempt.completed event, got %+v", published)
	}
}

// ===== COMPLETE =====

func TestAttemptService_Complete_GradesAndFreezes(t *testing.T) {
	repo, publisher, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"10": json.RawMessage(`"a"`),  // wrong, -1
		"11": json.RawMessage(`true`), // +2
		"12": json.RawMessage(`"42"`), // +4
	}, "user-1"); err != nil {
		t.Fatalf("SubmitAnswers failed: %v", err)
	}
	publisher.ClearEvents()

	resp, err := svc.Complete(context.Background(), started.ID, "user-1")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Status != models.AttemptCompleted {
		t.Errorf("Status = %s, want completed", resp.Status)
	}
	if resp.Score == nil || *resp.Score != 50 {
		t.Errorf("Score = %v, want 50", resp.Score)
	}
	if resp.FinalPoints != 5 || resp.TotalPoints != 10 {
		t.Errorf("points = %v/%v, want 5/10", resp.FinalPoints, resp.TotalPoints)
	}
	if resp.Passed {
		t.Error("score 50 under passing score 60 must not pass")
	}
	if resp.CompletedAt == nil {
		t.Error("CompletedAt must be set")
	}
	if resp.EndReason == nil || *resp.EndReason != models.AttemptEndReasonSubmitted {
		t.Errorf("EndReason = %v, want submitted", resp.EndReason)
	}
	if resp.CanSubmit {
		t.Error("completed attempt must not be submittable")
	}

	results, err := resp.TestAttempt.ResultSet()
	if err != nil {
		t.Fatalf("ResultSet failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 result entries, got %d", len(results))
	}
	if r := results["10"]; r.Correct || !r.Answered || r.Points != -1 {
		t.Errorf("result 10 = %+v, want answered incorrect with -1", r)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventAttemptCompleted {
		t.Fatalf("expected one attempt.completed event, got %+v", published)
	}
}

func TestAttemptService_Complete_Passed(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"10": json.RawMessage(`"b"`),
		"11": json.RawMessage(`true`),
		"12": json.RawMessage(`"42"`),
	}, "user-1"); err != nil {
		t.Fatalf("SubmitAnswers failed: %v", err)
	}

	resp, err := svc.Complete(context.Background(), started.ID, "user-1")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Score == nil || *resp.Score != 100 {
		t.Errorf("Score = %v, want 100", resp.Score)
	}
	if !resp.Passed {
		t.Error("perfect score must pass")
	}
}

func TestAttemptService_Complete_Idempotent(t *testing.T) {
	repo, publisher, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.SubmitAnswers(context.Background(), started.ID, map[string]json.RawMessage{
		"11": json.RawMessage(`true`),
	}, "user-1"); err != nil {
		t.Fatalf("SubmitAnswers failed: %v", err)
	}

	first, err := svc.Complete(context.Background(), started.ID, "user-1")
	if err != nil {
		t.Fatalf("first Complete failed: %v", err)
	}
	publisher.ClearEvents()

	second, err := svc.Complete(context.Background(), started.ID, "user-1")
	if err != nil {
		t.Fatalf("repeat Complete failed: %v", err)
	}

	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("CompletedAt changed on repeat completion: %v vs %v", second.CompletedAt, first.CompletedAt)
	}
	if *second.Score != *first.Score {
		t.Errorf("Score changed on repeat completion: %d vs %d", *second.Score, *first.Score)
	}
	if string(second.Results) != string(first.Results) {
		t.Error("Results changed on repeat completion")
	}
	if published := publisher.GetPublishedEvents(); len(published) != 0 {
		t.Errorf("repeat completion must not publish events, got %d", len(published))
	}
}

func TestAttemptService_Complete_NotFound(t *testing.T) {
	_, _, svc := newAttemptTestHarness(t)

	_, err := svc.Complete(context.Background(), 42, "user-1")
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("expected ErrAttemptNotFound, got %v", err)
	}
}

func TestAttemptService_Complete_ExpiredUsesTimeoutReason(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	duration := 30
	seedTest(t, repo, 1, true, &duration)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stored := repo.attempts[started.ID]
	past := time.Now().Add(-time.Minute)
	stored.EndsAt = &past

	resp, err := svc.Complete(context.Background(), started.ID, "user-1")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.EndReason == nil || *resp.EndReason != models.AttemptEndReasonTimeout {
		t.Errorf("EndReason = %v, want time_out", resp.EndReason)
	}
}

// ===== READS =====

func TestAttemptService_GetCurrentAttempt(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	current, err := svc.GetCurrentAttempt(context.Background(), 1, "user-1")
	if err != nil {
		t.Fatalf("GetCurrentAttempt failed: %v", err)
	}
	if current.ID != started.ID {
		t.Errorf("current attempt = %d, want %d", current.ID, started.ID)
	}

	if _, err := svc.Complete(context.Background(), started.ID, "user-1"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if _, err := svc.GetCurrentAttempt(context.Background(), 1, "user-1"); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("expected ErrAttemptNotFound after completion, got %v", err)
	}
}

func TestAttemptService_GetByID_OwnershipEnforced(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)

	started, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err = svc.GetByID(context.Background(), started.ID, "user-2")
	var perm *PermissionError
	if !errors.As(err, &perm) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func TestAttemptService_ListByUser(t *testing.T) {
	repo, _, svc := newAttemptTestHarness(t)
	seedTest(t, repo, 1, true, nil)
	seedTest(t, repo, 2, true, nil)

	if _, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 2}, "user-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Start(context.Background(), StartAttemptRequest{TestID: 1}, "user-2"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	list, err := svc.ListByUser(context.Background(), "user-1", repositories.AttemptFilters{})
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if list.Total != 2 || len(list.Attempts) != 2 {
		t.Errorf("expected 2 attempts for user-1, got total=%d len=%d", list.Total, len(list.Attempts))
	}
}
