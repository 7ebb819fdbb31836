package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reviewcash/backend/internal/ident"
	"github.com/reviewcash/backend/internal/models"
	"github.com/reviewcash/backend/internal/notify"
	"github.com/reviewcash/backend/internal/ratelimit"
	"github.com/reviewcash/backend/internal/realtime"
	"github.com/reviewcash/backend/internal/token"
)

// ---------------------------------------------------------------------------
// In-memory mocks. These let us test the real lifecycle logic without a
// database; transactional helpers take the noopTx below.
// ---------------------------------------------------------------------------

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// --- UserStore mock ---

type mockUsers struct {
	mu       sync.Mutex
	profiles map[int64]*models.UserProfile
}

func newMockUsers() *mockUsers {
	return &mockUsers{profiles: make(map[int64]*models.UserProfile)}
}

func (m *mockUsers) GetOrCreate(_ context.Context, id int64, username string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.profiles[id]
	if !ok {
		u = &models.UserProfile{ID: id, Username: username, LastSubmission: make(map[string]time.Time)}
		m.profiles[id] = u
	}
	u.Username = username
	return copyProfile(u), nil
}

func (m *mockUsers) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id int64) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyProfile(u), nil
}

func (m *mockUsers) Credit(_ context.Context, _ pgx.Tx, id int64, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.profiles[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	u.Balance += amount
	return u.Balance, nil
}

func (m *mockUsers) Debit(_ context.Context, _ pgx.Tx, id int64, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.profiles[id]
	if !ok || u.Balance < amount {
		return 0, pgx.ErrNoRows
	}
	u.Balance -= amount
	return u.Balance, nil
}

func (m *mockUsers) ApplyEarning(_ context.Context, _ pgx.Tx, id int64, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.profiles[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	u.Balance += amount
	u.TotalEarned += amount
	u.TasksDone++
	return u.Balance, nil
}

func (m *mockUsers) RecordSubmissionTime(_ context.Context, _ pgx.Tx, id int64, platform string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.profiles[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if u.LastSubmission == nil {
		u.LastSubmission = make(map[string]time.Time)
	}
	u.LastSubmission[platform] = at
	return nil
}

func (m *mockUsers) ClearSubmissionTime(_ context.Context, _ pgx.Tx, id int64, platform string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.profiles[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(u.LastSubmission, platform)
	return nil
}

func (m *mockUsers) get(id int64) *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyProfile(m.profiles[id])
}

func (m *mockUsers) set(u *models.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.LastSubmission == nil {
		u.LastSubmission = make(map[string]time.Time)
	}
	m.profiles[u.ID] = u
}

func copyProfile(u *models.UserProfile) *models.UserProfile {
	if u == nil {
		return nil
	}
	cp := *u
	cp.LastSubmission = make(map[string]time.Time, len(u.LastSubmission))
	for k, v := range u.LastSubmission {
		cp.LastSubmission[k] = v
	}
	return &cp
}

// --- TopupStore mock ---

type mockTopups struct {
	mu    sync.Mutex
	items map[int64]*models.TopupRequest
}

func newMockTopups() *mockTopups { return &mockTopups{items: make(map[int64]*models.TopupRequest)} }

func (m *mockTopups) CreateTx(_ context.Context, _ pgx.Tx, t *models.TopupRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *mockTopups) GetByID(_ context.Context, id int64) (*models.TopupRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *mockTopups) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id int64) (*models.TopupRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockTopups) MarkHandledTx(_ context.Context, _ pgx.Tx, id int64, status, handledBy, reason string, handledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.Status != models.StatusPending {
		return pgx.ErrNoRows
	}
	t.Status = status
	t.HandledBy = handledBy
	t.Reason = reason
	t.HandledAt = &handledAt
	return nil
}

func (m *mockTopups) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// --- WithdrawStore mock ---

type mockWithdraws struct {
	mu    sync.Mutex
	items map[int64]*models.WithdrawRequest
}

func newMockWithdraws() *mockWithdraws {
	return &mockWithdraws{items: make(map[int64]*models.WithdrawRequest)}
}

func (m *mockWithdraws) CreateTx(_ context.Context, _ pgx.Tx, w *models.WithdrawRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.CreatedAt = time.Now()
	cp := *w
	m.items[w.ID] = &cp
	return nil
}

func (m *mockWithdraws) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id int64) (*models.WithdrawRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *w
	return &cp, nil
}

func (m *mockWithdraws) MarkHandledTx(_ context.Context, _ pgx.Tx, id int64, status, handledBy, reason string, handledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.items[id]
	if !ok || w.Status != models.StatusPending {
		return pgx.ErrNoRows
	}
	w.Status = status
	w.HandledBy = handledBy
	w.Reason = reason
	w.HandledAt = &handledAt
	return nil
}

func (m *mockWithdraws) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// --- TaskStore mock ---

type mockTasks struct {
	mu    sync.Mutex
	items map[int64]*models.Task
}

func newMockTasks() *mockTasks { return &mockTasks{items: make(map[int64]*models.Task)} }

func (m *mockTasks) CreateTx(_ context.Context, _ pgx.Tx, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *mockTasks) GetByID(_ context.Context, id int64) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *mockTasks) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id int64) (*models.Task, error) {
	return m.GetByID(ctx, id)
}

func (m *mockTasks) SoftDeleteTx(_ context.Context, _ pgx.Tx, id int64, deletedBy, reason string, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.Status != models.TaskStatusActive {
		return pgx.ErrNoRows
	}
	t.Status = models.TaskStatusDeleted
	t.DeletedBy = deletedBy
	t.DeletedReason = reason
	t.DeletedAt = &deletedAt
	return nil
}

// --- SubmissionStore mock ---

type mockSubmissions struct {
	mu    sync.Mutex
	items map[int64]*models.WorkSubmission
}

func newMockSubmissions() *mockSubmissions {
	return &mockSubmissions{items: make(map[int64]*models.WorkSubmission)}
}

func (m *mockSubmissions) CreateTx(_ context.Context, _ pgx.Tx, s *models.WorkSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now()
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

func (m *mockSubmissions) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id int64) (*models.WorkSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *mockSubmissions) MarkHandledTx(_ context.Context, _ pgx.Tx, id int64, status, handledBy, reason string, handledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok || s.Status != models.StatusPending {
		return pgx.ErrNoRows
	}
	s.Status = status
	s.HandledBy = handledBy
	s.Reason = reason
	s.HandledAt = &handledAt
	return nil
}

func (m *mockSubmissions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// --- Notifier and alert recorders ---

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingNotifier) Publish(ev realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) byType(eventType string) []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.Event
	for _, ev := range r.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type alertRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (a *alertRecorder) insert(_ context.Context, _ pgx.Tx, args notify.AdminAlertArgs) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.texts = append(a.texts, args.Text)
	return nil
}

func (a *alertRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.texts)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	engine      *Engine
	users       *mockUsers
	topups      *mockTopups
	withdraws   *mockWithdraws
	tasks       *mockTasks
	submissions *mockSubmissions
	events      *recordingNotifier
	alerts      *alertRecorder
	clock       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		users:       newMockUsers(),
		topups:      newMockTopups(),
		withdraws:   newMockWithdraws(),
		tasks:       newMockTasks(),
		submissions: newMockSubmissions(),
		events:      &recordingNotifier{},
		alerts:      &alertRecorder{},
		clock:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.engine = &Engine{
		Pool:        mockPool{},
		Users:       f.users,
		Topups:      f.topups,
		Withdraws:   f.withdraws,
		Tasks:       f.tasks,
		Submissions: f.submissions,
		Limiter: ratelimit.NewPolicy(map[string]time.Duration{
			models.PlatformGoogle: 72 * time.Hour,
			models.PlatformYandex: 24 * time.Hour,
		}),
		IDs:         ident.New(),
		Notifier:    f.events,
		InsertAlert: f.alerts.insert,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		MinTopup:    100,
		MinWithdraw: 250,
		Banks:       []string{"sber", "tinkoff", "alfa"},
		Now:         func() time.Time { return f.clock },
	}
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

var testAdmin = token.Identity{ID: 777, Handle: "RapiHappy"}

func mustBalance(t *testing.T, f *fixture, userID, want int64) {
	t.Helper()
	u := f.users.get(userID)
	if u == nil {
		t.Fatalf("user %d does not exist", userID)
	}
	if u.Balance != want {
		t.Fatalf("user %d balance: got %d, want %d", userID, u.Balance, want)
	}
}
