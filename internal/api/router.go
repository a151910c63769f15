package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasksync/internal/api/middleware"
)

// NewRouter mounts the task and sync handlers under /api.
func NewRouter(tasks *TaskHandler, sync *SyncHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", tasks.ListTasks)
		r.Post("/tasks", tasks.CreateTask)
		r.Get("/tasks/{id}", tasks.GetTask)
		r.Put("/tasks/{id}", tasks.UpdateTask)
		r.Delete("/tasks/{id}", tasks.DeleteTask)

		r.Post("/sync", sync.TriggerSync)
		r.Get("/health", sync.Health)
	})

	return r
}
