package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reviewcash/backend/internal/engine"
	"github.com/reviewcash/backend/internal/middleware"
	"github.com/reviewcash/backend/internal/models"
	"github.com/reviewcash/backend/internal/token"
)

var testAdmin = token.Identity{ID: 777, Handle: "RapiHappy"}

type fakeEngine struct {
	lastAction string
	lastID     int64
	lastReason string
	err        error
}

func (f *fakeEngine) ApproveTopup(_ context.Context, _ token.Identity, id int64) (*models.TopupRequest, error) {
	f.lastAction, f.lastID = "approve_topup", id
	if f.err != nil {
		return nil, f.err
	}
	return &models.TopupRequest{ID: id, Status: models.StatusApproved}, nil
}

func (f *fakeEngine) RejectTopup(_ context.Context, _ token.Identity, id int64, reason string) (*models.TopupRequest, error) {
	f.lastAction, f.lastID, f.lastReason = "reject_topup", id, reason
	if f.err != nil {
		return nil, f.err
	}
	return &models.TopupRequest{ID: id, Status: models.StatusRejected, Reason: reason}, nil
}

func (f *fakeEngine) MarkWithdrawPaid(_ context.Context, _ token.Identity, id int64) (*models.WithdrawRequest, error) {
	f.lastAction, f.lastID = "paid_withdraw", id
	if f.err != nil {
		return nil, f.err
	}
	return &models.WithdrawRequest{ID: id, Status: models.StatusPaid}, nil
}

func (f *fakeEngine) RejectWithdraw(_ context.Context, _ token.Identity, id int64, reason string) (*models.WithdrawRequest, error) {
	f.lastAction, f.lastID, f.lastReason = "reject_withdraw", id, reason
	if f.err != nil {
		return nil, f.err
	}
	return &models.WithdrawRequest{ID: id, Status: models.StatusRejected}, nil
}

func (f *fakeEngine) ApproveSubmission(_ context.Context, _ token.Identity, id int64) (*models.WorkSubmission, error) {
	f.lastAction, f.lastID = "approve_submission", id
	if f.err != nil {
		return nil, f.err
	}
	return &models.WorkSubmission{ID: id, Status: models.StatusPaid}, nil
}

func (f *fakeEngine) RejectSubmission(_ context.Context, _ token.Identity, id int64, reason string) (*models.WorkSubmission, error) {
	f.lastAction, f.lastID, f.lastReason = "reject_submission", id, reason
	if f.err != nil {
		return nil, f.err
	}
	return &models.WorkSubmission{ID: id, Status: models.StatusRejected}, nil
}

func (f *fakeEngine) DeleteTask(_ context.Context, _ token.Identity, id int64, reason string) (*models.Task, error) {
	f.lastAction, f.lastID, f.lastReason = "delete_task", id, reason
	if f.err != nil {
		return nil, f.err
	}
	return &models.Task{ID: id, Status: models.TaskStatusDeleted, DeletedReason: reason}, nil
}

type fakeTopups struct {
	pending []*models.TopupRequest
	all     []*models.TopupRequest
}

func (f *fakeTopups) ListPending(context.Context) ([]*models.TopupRequest, error) {
	return f.pending, nil
}
func (f *fakeTopups) ListAll(context.Context) ([]*models.TopupRequest, error) { return f.all, nil }

type fakeWithdraws struct{ pending []*models.WithdrawRequest }

func (f *fakeWithdraws) ListPending(context.Context) ([]*models.WithdrawRequest, error) {
	return f.pending, nil
}
func (f *fakeWithdraws) ListAll(context.Context) ([]*models.WithdrawRequest, error) {
	return f.pending, nil
}

type fakeSubmissions struct{ pending []*models.WorkSubmission }

func (f *fakeSubmissions) ListPending(context.Context) ([]*models.WorkSubmission, error) {
	return f.pending, nil
}
func (f *fakeSubmissions) ListAll(context.Context) ([]*models.WorkSubmission, error) {
	return f.pending, nil
}

type fakeTasks struct{ active []*models.Task }

func (f *fakeTasks) ListActive(context.Context) ([]*models.Task, error) { return f.active, nil }
func (f *fakeTasks) ListAll(context.Context) ([]*models.Task, error)    { return f.active, nil }

type fakeModerators struct {
	mods    []*models.SecondaryAdmin
	removed []int64
}

func (f *fakeModerators) Add(_ context.Context, a *models.SecondaryAdmin) error {
	a.AddedAt = time.Now()
	f.mods = append(f.mods, a)
	return nil
}

func (f *fakeModerators) Remove(_ context.Context, userID int64) error {
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakeModerators) List(context.Context) ([]*models.SecondaryAdmin, error) {
	return f.mods, nil
}

type fakeSessions struct{ admins, users int }

func (f fakeSessions) Connected() (int, int) { return f.admins, f.users }

func newAdminHandler(eng *fakeEngine) *AdminHandler {
	return &AdminHandler{
		Engine:      eng,
		Topups:      &fakeTopups{},
		Withdraws:   &fakeWithdraws{},
		Submissions: &fakeSubmissions{},
		Tasks:       &fakeTasks{},
		Moderators:  &fakeModerators{},
		Sessions:    fakeSessions{admins: 1, users: 3},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func adminRequest(method, target string, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(middleware.WithAdmin(req.Context(), &testAdmin))
}

func TestResolveTopupApprove(t *testing.T) {
	eng := &fakeEngine{}
	h := newAdminHandler(eng)

	rec := httptest.NewRecorder()
	h.ResolveTopup(rec, adminRequest(http.MethodPost, "/api/admin/topups/42/approve", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if eng.lastAction != "approve_topup" || eng.lastID != 42 {
		t.Errorf("engine call: got %s/%d", eng.lastAction, eng.lastID)
	}
}

func TestResolveTopupRejectPassesReason(t *testing.T) {
	eng := &fakeEngine{}
	h := newAdminHandler(eng)

	rec := httptest.NewRecorder()
	h.ResolveTopup(rec, adminRequest(http.MethodPost, "/api/admin/topups/42/reject", `{"reason":"no payment received"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if eng.lastReason != "no payment received" {
		t.Errorf("reason: got %q", eng.lastReason)
	}
}

func TestResolveTopupConflictMapsTo409(t *testing.T) {
	eng := &fakeEngine{err: engine.ErrConflict}
	h := newAdminHandler(eng)

	rec := httptest.NewRecorder()
	h.ResolveTopup(rec, adminRequest(http.MethodPost, "/api/admin/topups/42/approve", ""))

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
}

func TestResolveTopupNotFoundMapsTo404(t *testing.T) {
	eng := &fakeEngine{err: engine.ErrNotFound}
	h := newAdminHandler(eng)

	rec := httptest.NewRecorder()
	h.ResolveTopup(rec, adminRequest(http.MethodPost, "/api/admin/topups/99/approve", ""))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestResolveTopupUnknownAction(t *testing.T) {
	h := newAdminHandler(&fakeEngine{})

	rec := httptest.NewRecorder()
	h.ResolveTopup(rec, adminRequest(http.MethodPost, "/api/admin/topups/42/promote", ""))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestResolveTopupWithoutIdentity(t *testing.T) {
	h := newAdminHandler(&fakeEngine{})

	rec := httptest.NewRecorder()
	h.ResolveTopup(rec, httptest.NewRequest(http.MethodPost, "/api/admin/topups/42/approve", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestResolveWithdrawPaid(t *testing.T) {
	eng := &fakeEngine{}
	h := newAdminHandler(eng)

	rec := httptest.NewRecorder()
	h.ResolveWithdraw(rec, adminRequest(http.MethodPost, "/api/admin/withdraws/7/paid", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if eng.lastAction != "paid_withdraw" || eng.lastID != 7 {
		t.Errorf("engine call: got %s/%d", eng.lastAction, eng.lastID)
	}
}

func TestDeleteTaskReasonFromQuery(t *testing.T) {
	eng := &fakeEngine{}
	h := newAdminHandler(eng)

	rec := httptest.NewRecorder()
	h.DeleteTask(rec, adminRequest(http.MethodDelete, "/api/admin/tasks/5?reason=spam", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if eng.lastAction != "delete_task" || eng.lastID != 5 || eng.lastReason != "spam" {
		t.Errorf("engine call: got %s/%d/%q", eng.lastAction, eng.lastID, eng.lastReason)
	}
}

func TestListTopupsPendingByDefault(t *testing.T) {
	h := newAdminHandler(&fakeEngine{})
	h.Topups = &fakeTopups{
		pending: []*models.TopupRequest{{ID: 1, Status: models.StatusPending}},
		all:     []*models.TopupRequest{{ID: 1}, {ID: 2}},
	}

	rec := httptest.NewRecorder()
	h.ListTopups(rec, adminRequest(http.MethodGet, "/api/admin/topups", ""))

	var got []*models.TopupRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("pending list: got %d entries, want 1", len(got))
	}

	rec = httptest.NewRecorder()
	h.ListTopups(rec, adminRequest(http.MethodGet, "/api/admin/topups?all=1", ""))
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("all list: got %d entries, want 2", len(got))
	}
}

func TestListTopupsEmptyIsArray(t *testing.T) {
	h := newAdminHandler(&fakeEngine{})

	rec := httptest.NewRecorder()
	h.ListTopups(rec, adminRequest(http.MethodGet, "/api/admin/topups", ""))

	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty list body: got %q, want []", body)
	}
}

func TestOverviewCounts(t *testing.T) {
	h := newAdminHandler(&fakeEngine{})
	h.Topups = &fakeTopups{pending: []*models.TopupRequest{{ID: 1}, {ID: 2}}}
	h.Submissions = &fakeSubmissions{pending: []*models.WorkSubmission{{ID: 3}}}
	h.Tasks = &fakeTasks{active: []*models.Task{{ID: 4}}}

	rec := httptest.NewRecorder()
	h.Overview(rec, adminRequest(http.MethodGet, "/api/admin/overview", ""))

	var got map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]int{
		"pending_topups":      2,
		"pending_withdraws":   0,
		"pending_submissions": 1,
		"active_tasks":        1,
		"admin_sessions":      1,
		"user_sessions":       3,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %d, want %d", k, got[k], v)
		}
	}
}

func TestAddModeratorStripsAtPrefix(t *testing.T) {
	h := newAdminHandler(&fakeEngine{})
	mods := &fakeModerators{}
	h.Moderators = mods

	rec := httptest.NewRecorder()
	h.AddModerator(rec, adminRequest(http.MethodPost, "/api/admin/admins", `{"username":"@helper"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if len(mods.mods) != 1 || mods.mods[0].Username != "helper" {
		t.Errorf("stored moderator: %+v", mods.mods)
	}
	if mods.mods[0].AddedBy != testAdmin.Label() {
		t.Errorf("added_by: got %q", mods.mods[0].AddedBy)
	}
}

func TestAddModeratorRequiresIdentifier(t *testing.T) {
	h := newAdminHandler(&fakeEngine{})

	rec := httptest.NewRecorder()
	h.AddModerator(rec, adminRequest(http.MethodPost, "/api/admin/admins", `{}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestRemoveModerator(t *testing.T) {
	h := newAdminHandler(&fakeEngine{})
	mods := &fakeModerators{}
	h.Moderators = mods

	rec := httptest.NewRecorder()
	h.RemoveModerator(rec, adminRequest(http.MethodDelete, "/api/admin/admins/555", ""))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
	if len(mods.removed) != 1 || mods.removed[0] != 555 {
		t.Errorf("removed: %v", mods.removed)
	}
}
