package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fileconverter/internal/http/handlers"
	"fileconverter/internal/infra"
	"fileconverter/internal/middleware"
)

// NewRouter assembles the HTTP surface.
func NewRouter(app *handlers.App, logger infra.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(allowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api/files", func(r chi.Router) {
		r.Post("/upload", app.Upload)
		r.Get("/", app.ListJobs)
		r.Get("/{id}", app.GetJob)
		r.Post("/{id}/start", app.StartJob)
		r.Get("/{id}/download", app.DownloadJob)
	})

	r.Route("/api/convert", func(r chi.Router) {
		r.Post("/audio", app.ConvertAudio)
		r.Post("/video", app.ConvertVideo)
	})

	return r
}
