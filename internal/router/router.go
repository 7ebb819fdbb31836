package router

import (
	"net/http"
	"strings"

	"github.com/reviewcash/backend/internal/handlers"
	"github.com/reviewcash/backend/internal/middleware"
	"github.com/reviewcash/backend/internal/webapp"
)

// New assembles the HTTP surface: public reads, the webapp dispatch
// endpoint, the websocket upgrade and the token-gated admin panel API.
func New(
	public *handlers.PublicHandler,
	webApp *webapp.Handler,
	admin *handlers.AdminHandler,
	ws http.Handler,
	verifier middleware.TokenVerifier,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tasks", methodGET(public.ListTasks))
	mux.HandleFunc("/api/submissions", methodGET(public.ListPendingSubmissions))
	mux.HandleFunc("/api/webapp", methodPOST(webApp.ServeHTTP))
	mux.Handle("/ws", ws)

	adminMux := http.NewServeMux()
	adminMux.HandleFunc("/api/admin/me", methodGET(admin.GetMe))
	adminMux.HandleFunc("/api/admin/overview", methodGET(admin.Overview))

	adminMux.HandleFunc("/api/admin/topups", methodGET(admin.ListTopups))
	adminMux.HandleFunc("/api/admin/topups/", methodPOST(admin.ResolveTopup))
	adminMux.HandleFunc("/api/admin/withdraws", methodGET(admin.ListWithdraws))
	adminMux.HandleFunc("/api/admin/withdraws/", methodPOST(admin.ResolveWithdraw))
	adminMux.HandleFunc("/api/admin/submissions", methodGET(admin.ListSubmissions))
	adminMux.HandleFunc("/api/admin/submissions/", methodPOST(admin.ResolveSubmission))

	adminMux.HandleFunc("/api/admin/tasks", methodGET(admin.ListTasks))
	adminMux.HandleFunc("/api/admin/tasks/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && strings.Count(r.URL.Path, "/") >= 4 {
			admin.DeleteTask(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	adminMux.HandleFunc("/api/admin/admins", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			admin.ListModerators(w, r)
		case http.MethodPost:
			admin.AddModerator(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	adminMux.HandleFunc("/api/admin/admins/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && strings.Count(r.URL.Path, "/") >= 4 {
			admin.RemoveModerator(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.Handle("/api/admin/", middleware.AdminAuth(verifier)(adminMux))

	return mux
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPOST(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
