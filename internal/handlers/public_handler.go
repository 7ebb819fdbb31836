package handlers

import (
	"log/slog"
	"net/http"

	"github.com/reviewcash/backend/internal/models"
)

// PublicHandler serves the unauthenticated read-only endpoints used by the
// webapp's task board.
type PublicHandler struct {
	Tasks       TaskLister
	Submissions SubmissionLister
	Logger      *slog.Logger
}

// ListTasks handles GET /api/tasks: the active task board.
func (h *PublicHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.ListActive(r.Context())
	if err != nil {
		writeEngineError(w, h.Logger, "list active tasks", err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ListPendingSubmissions handles GET /api/submissions: the open review
// queue, shown to users so they can see work awaiting moderation.
func (h *PublicHandler) ListPendingSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Submissions.ListPending(r.Context())
	if err != nil {
		writeEngineError(w, h.Logger, "list pending submissions", err)
		return
	}
	if subs == nil {
		subs = []*models.WorkSubmission{}
	}
	writeJSON(w, http.StatusOK, subs)
}
