// Package handlers serves the GoodThings REST API of the development backend.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"goodthings/internal/service"
)

// ServerInfo - body of GET /
const ServerInfo = "GoodThings API running"

type Handlers struct {
	AuthService service.AuthService
	PostService service.PostService
	Validate    *validator.Validate
	Logger      *slog.Logger
}

func NewHandlers(services *service.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		AuthService: services.Auth,
		PostService: services.Post,
		Validate:    validator.New(),
		Logger:      logger,
	}
}

// Routes - registers public routes and the token-protected subrouter
func (h *Handlers) Routes(r *mux.Router) {
	r.HandleFunc("/", h.Home).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/users", h.Register).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(AuthMiddleware(h.AuthService))
	private.HandleFunc("/auth", h.Me).Methods(http.MethodGet)
	private.HandleFunc("/posts", h.GetPosts).Methods(http.MethodGet)
	private.HandleFunc("/posts", h.CreatePost).Methods(http.MethodPost)
	private.HandleFunc("/posts/{id}", h.UpdatePost).Methods(http.MethodPut)
	private.HandleFunc("/posts/{id}", h.DeletePost).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}

func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ServerInfo))
}
