package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/reviewcash/backend/internal/middleware"
	"github.com/reviewcash/backend/internal/models"
	"github.com/reviewcash/backend/internal/token"
)

// Lifecycle is the subset of engine transitions driven from the admin panel.
type Lifecycle interface {
	ApproveTopup(ctx context.Context, admin token.Identity, topupID int64) (*models.TopupRequest, error)
	RejectTopup(ctx context.Context, admin token.Identity, topupID int64, reason string) (*models.TopupRequest, error)
	MarkWithdrawPaid(ctx context.Context, admin token.Identity, withdrawID int64) (*models.WithdrawRequest, error)
	RejectWithdraw(ctx context.Context, admin token.Identity, withdrawID int64, reason string) (*models.WithdrawRequest, error)
	ApproveSubmission(ctx context.Context, admin token.Identity, submissionID int64) (*models.WorkSubmission, error)
	RejectSubmission(ctx context.Context, admin token.Identity, submissionID int64, reason string) (*models.WorkSubmission, error)
	DeleteTask(ctx context.Context, admin token.Identity, taskID int64, reason string) (*models.Task, error)
}

// TopupLister is the read side of the topup queue.
type TopupLister interface {
	ListPending(ctx context.Context) ([]*models.TopupRequest, error)
	ListAll(ctx context.Context) ([]*models.TopupRequest, error)
}

// WithdrawLister is the read side of the withdraw queue.
type WithdrawLister interface {
	ListPending(ctx context.Context) ([]*models.WithdrawRequest, error)
	ListAll(ctx context.Context) ([]*models.WithdrawRequest, error)
}

// SubmissionLister is the read side of the submission queue.
type SubmissionLister interface {
	ListPending(ctx context.Context) ([]*models.WorkSubmission, error)
	ListAll(ctx context.Context) ([]*models.WorkSubmission, error)
}

// TaskLister is the read side of the task board.
type TaskLister interface {
	ListActive(ctx context.Context) ([]*models.Task, error)
	ListAll(ctx context.Context) ([]*models.Task, error)
}

// ModeratorStore manages the secondary administrator list.
type ModeratorStore interface {
	Add(ctx context.Context, a *models.SecondaryAdmin) error
	Remove(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*models.SecondaryAdmin, error)
}

// SessionCounter reports live realtime sessions for the overview.
type SessionCounter interface {
	Connected() (admins, users int)
}

// AdminHandler serves the /api/admin endpoints behind AdminAuth.
type AdminHandler struct {
	Engine      Lifecycle
	Topups      TopupLister
	Withdraws   WithdrawLister
	Submissions SubmissionLister
	Tasks       TaskLister
	Moderators  ModeratorStore
	Sessions    SessionCounter
	Logger      *slog.Logger
}

type resolveRequest struct {
	Reason string `json:"reason"`
}

// --- GET /api/admin/me ---

func (h *AdminHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AdminFromCtx(r.Context())
	if admin == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     admin.ID,
		"handle": admin.Handle,
		"label":  admin.Label(),
	})
}

// --- GET /api/admin/overview ---

// Overview returns the pending queue depths and live session counts.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	topups, err := h.Topups.ListPending(r.Context())
	if err != nil {
		writeEngineError(w, h.Logger, "overview: list topups", err)
		return
	}
	withdraws, err := h.Withdraws.ListPending(r.Context())
	if err != nil {
		writeEngineError(w, h.Logger, "overview: list withdraws", err)
		return
	}
	submissions, err := h.Submissions.ListPending(r.Context())
	if err != nil {
		writeEngineError(w, h.Logger, "overview: list submissions", err)
		return
	}
	tasks, err := h.Tasks.ListActive(r.Context())
	if err != nil {
		writeEngineError(w, h.Logger, "overview: list tasks", err)
		return
	}
	adminSessions, userSessions := 0, 0
	if h.Sessions != nil {
		adminSessions, userSessions = h.Sessions.Connected()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending_topups":      len(topups),
		"pending_withdraws":   len(withdraws),
		"pending_submissions": len(submissions),
		"active_tasks":        len(tasks),
		"admin_sessions":      adminSessions,
		"user_sessions":       userSessions,
	})
}

// --- GET /api/admin/topups  /  POST /api/admin/topups/{id}/{approve|reject} ---

func (h *AdminHandler) ListTopups(w http.ResponseWriter, r *http.Request) {
	var (
		items []*models.TopupRequest
		err   error
	)
	if r.URL.Query().Get("all") != "" {
		items, err = h.Topups.ListAll(r.Context())
	} else {
		items, err = h.Topups.ListPending(r.Context())
	}
	if err != nil {
		writeEngineError(w, h.Logger, "list topups", err)
		return
	}
	if items == nil {
		items = []*models.TopupRequest{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) ResolveTopup(w http.ResponseWriter, r *http.Request) {
	admin, id, action, ok := h.resolveArgs(w, r, "/api/admin/topups/")
	if !ok {
		return
	}
	var (
		topup *models.TopupRequest
		err   error
	)
	switch action {
	case "approve":
		topup, err = h.Engine.ApproveTopup(r.Context(), *admin, id)
	case "reject":
		topup, err = h.Engine.RejectTopup(r.Context(), *admin, id, decodeReason(r))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
		return
	}
	if err != nil {
		writeEngineError(w, h.Logger, "resolve topup", err)
		return
	}
	writeJSON(w, http.StatusOK, topup)
}

// --- GET /api/admin/withdraws  /  POST /api/admin/withdraws/{id}/{paid|reject} ---

func (h *AdminHandler) ListWithdraws(w http.ResponseWriter, r *http.Request) {
	var (
		items []*models.WithdrawRequest
		err   error
	)
	if r.URL.Query().Get("all") != "" {
		items, err = h.Withdraws.ListAll(r.Context())
	} else {
		items, err = h.Withdraws.ListPending(r.Context())
	}
	if err != nil {
		writeEngineError(w, h.Logger, "list withdraws", err)
		return
	}
	if items == nil {
		items = []*models.WithdrawRequest{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) ResolveWithdraw(w http.ResponseWriter, r *http.Request) {
	admin, id, action, ok := h.resolveArgs(w, r, "/api/admin/withdraws/")
	if !ok {
		return
	}
	var (
		withdraw *models.WithdrawRequest
		err      error
	)
	switch action {
	case "paid":
		withdraw, err = h.Engine.MarkWithdrawPaid(r.Context(), *admin, id)
	case "reject":
		withdraw, err = h.Engine.RejectWithdraw(r.Context(), *admin, id, decodeReason(r))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
		return
	}
	if err != nil {
		writeEngineError(w, h.Logger, "resolve withdraw", err)
		return
	}
	writeJSON(w, http.StatusOK, withdraw)
}

// --- GET /api/admin/submissions  /  POST /api/admin/submissions/{id}/{approve|reject} ---

func (h *AdminHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	var (
		items []*models.WorkSubmission
		err   error
	)
	if r.URL.Query().Get("all") != "" {
		items, err = h.Submissions.ListAll(r.Context())
	} else {
		items, err = h.Submissions.ListPending(r.Context())
	}
	if err != nil {
		writeEngineError(w, h.Logger, "list submissions", err)
		return
	}
	if items == nil {
		items = []*models.WorkSubmission{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) ResolveSubmission(w http.ResponseWriter, r *http.Request) {
	admin, id, action, ok := h.resolveArgs(w, r, "/api/admin/submissions/")
	if !ok {
		return
	}
	var (
		sub *models.WorkSubmission
		err error
	)
	switch action {
	case "approve":
		sub, err = h.Engine.ApproveSubmission(r.Context(), *admin, id)
	case "reject":
		sub, err = h.Engine.RejectSubmission(r.Context(), *admin, id, decodeReason(r))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
		return
	}
	if err != nil {
		writeEngineError(w, h.Logger, "resolve submission", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// --- GET /api/admin/tasks  /  DELETE /api/admin/tasks/{id} ---

func (h *AdminHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var (
		items []*models.Task
		err   error
	)
	if r.URL.Query().Get("all") != "" {
		items, err = h.Tasks.ListAll(r.Context())
	} else {
		items, err = h.Tasks.ListActive(r.Context())
	}
	if err != nil {
		writeEngineError(w, h.Logger, "list tasks", err)
		return
	}
	if items == nil {
		items = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AdminFromCtx(r.Context())
	if admin == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/admin/tasks/"), "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task id"})
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = decodeReason(r)
	}
	task, err := h.Engine.DeleteTask(r.Context(), *admin, id, reason)
	if err != nil {
		writeEngineError(w, h.Logger, "delete task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- /api/admin/admins ---

func (h *AdminHandler) ListModerators(w http.ResponseWriter, r *http.Request) {
	mods, err := h.Moderators.List(r.Context())
	if err != nil {
		writeEngineError(w, h.Logger, "list moderators", err)
		return
	}
	if mods == nil {
		mods = []*models.SecondaryAdmin{}
	}
	writeJSON(w, http.StatusOK, mods)
}

func (h *AdminHandler) AddModerator(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AdminFromCtx(r.Context())
	if admin == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var body struct {
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if body.UserID == 0 && body.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id or username is required"})
		return
	}
	mod := &models.SecondaryAdmin{
		UserID:   body.UserID,
		Username: strings.TrimPrefix(body.Username, "@"),
		AddedBy:  admin.Label(),
	}
	if err := h.Moderators.Add(r.Context(), mod); err != nil {
		writeEngineError(w, h.Logger, "add moderator", err)
		return
	}
	writeJSON(w, http.StatusCreated, mod)
}

func (h *AdminHandler) RemoveModerator(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/admin/admins/"), "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid admin id"})
		return
	}
	if err := h.Moderators.Remove(r.Context(), id); err != nil {
		writeEngineError(w, h.Logger, "remove moderator", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

// resolveArgs pulls the verified admin plus "{id}/{action}" out of a
// transition request, writing the error response itself when anything is
// missing.
func (h *AdminHandler) resolveArgs(w http.ResponseWriter, r *http.Request, prefix string) (*token.Identity, int64, string, bool) {
	admin := middleware.AdminFromCtx(r.Context())
	if admin == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return nil, 0, "", false
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.SplitN(strings.TrimSuffix(rest, "/"), "/", 2)
	if len(parts) != 2 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
		return nil, 0, "", false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, 0, "", false
	}
	return admin, id, parts[1], true
}

// decodeReason reads an optional {"reason": ...} body. A missing or
// malformed body is treated as no reason given; the engine substitutes
// its default.
func decodeReason(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	var body resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return ""
	}
	return body.Reason
}
