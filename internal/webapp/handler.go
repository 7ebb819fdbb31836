// Package webapp serves the single dispatch endpoint the Telegram webapp
// front-end talks to. Every user action arrives as POST /api/webapp with an
// action name and the Telegram user attached; responses always carry a
// userMessage the webapp can surface directly.
package webapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/reviewcash/backend/internal/engine"
	"github.com/reviewcash/backend/internal/models"
)

// Engine is the user-facing slice of the request lifecycle engine.
type Engine interface {
	Profile(ctx context.Context, userID int64, username string) (*models.UserProfile, error)
	RequestTopup(ctx context.Context, userID int64, username string, amount int64) (*models.TopupRequest, error)
	ConfirmTopup(ctx context.Context, userID, topupID int64) error
	RequestWithdraw(ctx context.Context, userID int64, username string, amount int64, bank, name, card string) (*models.WithdrawRequest, error)
	PublishTask(ctx context.Context, userID int64, username, title, link, platform string, budget int64) (*models.Task, error)
	SubmitWork(ctx context.Context, userID int64, username string, taskID int64, content, proofURL string) (*models.WorkSubmission, error)
}

// TaskBoard lists the active tasks for the get_tasks action.
type TaskBoard interface {
	ListActive(ctx context.Context) ([]*models.Task, error)
}

// Handler dispatches webapp actions to the engine.
type Handler struct {
	Engine Engine
	Tasks  TaskBoard
	Logger *slog.Logger
}

type request struct {
	Action string `json:"action"`
	User   struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`

	Amount   int64  `json:"amount"`
	TopupID  int64  `json:"topup_id"`
	Bank     string `json:"bank"`
	Name     string `json:"name"`
	Card     string `json:"card"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Platform string `json:"platform"`
	Budget   int64  `json:"budget"`
	TaskID   int64  `json:"task_id"`
	Content  string `json:"content"`
	ProofURL string `json:"proof_url"`
}

type response struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	UserMessage string `json:"userMessage,omitempty"`
	Data        any    `json:"data,omitempty"`
}

// ServeHTTP handles POST /api/webapp.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, response{Error: "invalid JSON", UserMessage: "The request could not be read."})
		return
	}
	if req.User.ID == 0 {
		writeResponse(w, http.StatusBadRequest, response{Error: "missing user", UserMessage: "Open this page from the Telegram bot."})
		return
	}

	switch req.Action {
	case "profile":
		h.profile(w, r, req)
	case "get_tasks":
		h.getTasks(w, r)
	case "publish_task":
		h.publishTask(w, r, req)
	case "submit_work":
		h.submitWork(w, r, req)
	case "request_topup":
		h.requestTopup(w, r, req)
	case "confirm_topup":
		h.confirmTopup(w, r, req)
	case "request_withdraw":
		h.requestWithdraw(w, r, req)
	default:
		writeResponse(w, http.StatusBadRequest, response{Error: "unknown action", UserMessage: "This action is not supported."})
	}
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request, req request) {
	profile, err := h.Engine.Profile(r.Context(), req.User.ID, req.User.Username)
	if err != nil {
		h.fail(w, "profile", err)
		return
	}
	writeResponse(w, http.StatusOK, response{Success: true, Data: profile})
}

func (h *Handler) getTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.ListActive(r.Context())
	if err != nil {
		h.fail(w, "get_tasks", err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeResponse(w, http.StatusOK, response{Success: true, Data: tasks})
}

func (h *Handler) publishTask(w http.ResponseWriter, r *http.Request, req request) {
	task, err := h.Engine.PublishTask(r.Context(), req.User.ID, req.User.Username, req.Title, req.Link, req.Platform, req.Budget)
	if err != nil {
		h.fail(w, "publish_task", err)
		return
	}
	writeResponse(w, http.StatusOK, response{
		Success:     true,
		UserMessage: fmt.Sprintf("Task published. %d was reserved from your balance.", task.Budget),
		Data:        task,
	})
}

func (h *Handler) submitWork(w http.ResponseWriter, r *http.Request, req request) {
	sub, err := h.Engine.SubmitWork(r.Context(), req.User.ID, req.User.Username, req.TaskID, req.Content, req.ProofURL)
	if err != nil {
		h.fail(w, "submit_work", err)
		return
	}
	writeResponse(w, http.StatusOK, response{
		Success:     true,
		UserMessage: "Submission received. You will be paid after moderation.",
		Data:        sub,
	})
}

func (h *Handler) requestTopup(w http.ResponseWriter, r *http.Request, req request) {
	topup, err := h.Engine.RequestTopup(r.Context(), req.User.ID, req.User.Username, req.Amount)
	if err != nil {
		h.fail(w, "request_topup", err)
		return
	}
	writeResponse(w, http.StatusOK, response{
		Success:     true,
		UserMessage: fmt.Sprintf("Top-up request created. Put the code %s in the transfer comment.", topup.Code),
		Data:        topup,
	})
}

func (h *Handler) confirmTopup(w http.ResponseWriter, r *http.Request, req request) {
	if err := h.Engine.ConfirmTopup(r.Context(), req.User.ID, req.TopupID); err != nil {
		h.fail(w, "confirm_topup", err)
		return
	}
	writeResponse(w, http.StatusOK, response{
		Success:     true,
		UserMessage: "Payment marked as sent. An administrator will check it shortly.",
	})
}

func (h *Handler) requestWithdraw(w http.ResponseWriter, r *http.Request, req request) {
	withdraw, err := h.Engine.RequestWithdraw(r.Context(), req.User.ID, req.User.Username, req.Amount, req.Bank, req.Name, req.Card)
	if err != nil {
		h.fail(w, "request_withdraw", err)
		return
	}
	writeResponse(w, http.StatusOK, response{
		Success:     true,
		UserMessage: "Withdrawal request created. The money leaves your balance until it is processed.",
		Data:        withdraw,
	})
}

// fail translates engine errors into a webapp response. Validation,
// conflict and not-found outcomes stay 200 with a userMessage the webapp
// shows as-is; only infrastructure failures become 5xx.
func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		writeResponse(w, http.StatusOK, response{Error: "validation", UserMessage: verr.Reason})
	case errors.Is(err, engine.ErrConflict):
		writeResponse(w, http.StatusOK, response{Error: "conflict", UserMessage: "This request has already been handled."})
	case errors.Is(err, engine.ErrNotFound):
		writeResponse(w, http.StatusOK, response{Error: "not_found", UserMessage: "The request was not found."})
	default:
		h.Logger.Error("webapp action failed", "action", action, "error", err)
		writeResponse(w, http.StatusInternalServerError, response{Error: "internal", UserMessage: "Something went wrong. Try again later."})
	}
}

func writeResponse(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
